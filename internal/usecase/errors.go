package usecase

import crerr "github.com/cockroachdb/errors"

var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrNotFound              = crerr.New("resource not found")
	ErrUnauthorized          = crerr.New("unauthorized")
	ErrDependencyUnavailable = crerr.New("dependency unavailable")
	// ErrProviderUnavailable covers timeouts, non-2xx responses, blocks and
	// open circuit breakers on an upstream provider.
	ErrProviderUnavailable = crerr.New("provider unavailable")
	// ErrParseFailure marks a malformed upstream payload.
	ErrParseFailure = crerr.New("provider payload could not be parsed")
)
