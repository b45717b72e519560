package livescore

import "context"

type Provider interface {
	Name() string
	FetchEvents(ctx context.Context) ([]Event, error)
}
