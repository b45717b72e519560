package transport

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/streamhub/internal/platform/resilience"
)

var (
	// ErrBlocked marks 401/403/429/451 and anti-bot 503 responses. Callers treat
	// it like any other unavailability and move to the next strategy.
	ErrBlocked = crerr.New("upstream blocked request")
	// ErrUpstreamStatus marks any other non-2xx response.
	ErrUpstreamStatus = crerr.New("upstream returned non-2xx status")
	// ErrBodyTooLarge marks responses over the configured size limit.
	ErrBodyTooLarge = crerr.New("response body exceeds limit")
)

// Request describes one outbound GET.
type Request struct {
	URL     string
	Header  http.Header
	Timeout time.Duration
}

// Response is a fully read, decoded response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Via        string
}

// Transport is one egress strategy: a direct connection, an outbound proxy,
// or a URL-prefix relay.
type Transport interface {
	Name() string
	Do(ctx context.Context, req Request) (Response, error)
}

// StatusError carries the upstream status code.
type StatusError struct {
	Code       int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("status %d (retry after %s)", e.Code, e.RetryAfter)
	}
	return fmt.Sprintf("status %d", e.Code)
}

// checkStatus converts a non-2xx status into a classified error. 404 and 410
// are permanent: no other egress path will find the resource.
func checkStatus(code int, header http.Header) error {
	if code >= 200 && code < 300 {
		return nil
	}

	err := error(&StatusError{Code: code, RetryAfter: parseRetryAfter(header.Get("Retry-After"))})
	switch code {
	case http.StatusNotFound, http.StatusGone:
		return resilience.Permanent(crerr.Mark(err, ErrUpstreamStatus))
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusTooManyRequests,
		http.StatusUnavailableForLegalReasons, http.StatusServiceUnavailable:
		return crerr.Mark(err, ErrBlocked)
	default:
		return crerr.Mark(err, ErrUpstreamStatus)
	}
}

// parseRetryAfter accepts delay-seconds or an HTTP date.
func parseRetryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
	}
	return 0
}

func effectiveTimeout(ctx context.Context, timeout time.Duration) time.Duration {
	if deadline, ok := ctx.Deadline(); ok {
		remaining := time.Until(deadline)
		if timeout <= 0 || remaining < timeout {
			return remaining
		}
	}
	return timeout
}
