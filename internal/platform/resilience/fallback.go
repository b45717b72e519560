package resilience

import (
	"context"
	"fmt"

	crerr "github.com/cockroachdb/errors"
	"go.uber.org/multierr"
)

var (
	// ErrAllAttemptsFailed marks the aggregate error returned by FirstSuccess.
	ErrAllAttemptsFailed = crerr.New("all attempts failed")
	// ErrPermanent marks an attempt error that no later strategy can fix,
	// such as a 404 from the origin.
	ErrPermanent = crerr.New("permanent failure")
)

// Permanent marks err so FirstSuccess stops walking the remaining attempts.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return crerr.Mark(err, ErrPermanent)
}

// Attempt is one strategy in an ordered fallback list.
type Attempt[T any] struct {
	Name string
	Run  func(ctx context.Context) (T, error)
}

// AttemptHook observes the outcome of each attempt. err is nil on success.
type AttemptHook func(name string, err error)

// FirstSuccess runs attempts in order and returns the first successful result.
// When every attempt fails the per-attempt errors are combined and marked with
// ErrAllAttemptsFailed. Context cancellation and permanent errors stop the
// walk early.
func FirstSuccess[T any](ctx context.Context, attempts []Attempt[T], hooks ...AttemptHook) (T, error) {
	var zero T
	if len(attempts) == 0 {
		return zero, crerr.Mark(crerr.New("no attempts configured"), ErrAllAttemptsFailed)
	}

	var combined error
	permanent := false
	for _, attempt := range attempts {
		if err := ctx.Err(); err != nil {
			combined = multierr.Append(combined, err)
			break
		}
		if attempt.Run == nil {
			continue
		}

		value, err := attempt.Run(ctx)
		for _, hook := range hooks {
			if hook != nil {
				hook(attempt.Name, err)
			}
		}
		if err == nil {
			return value, nil
		}
		combined = multierr.Append(combined, fmt.Errorf("%s: %w", attempt.Name, err))
		if crerr.Is(err, ErrPermanent) {
			permanent = true
			break
		}
	}

	if combined == nil {
		combined = crerr.New("no runnable attempts")
	}
	combined = crerr.Mark(combined, ErrAllAttemptsFailed)
	if permanent {
		combined = crerr.Mark(combined, ErrPermanent)
	}
	return zero, combined
}
