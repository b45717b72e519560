package match

import "context"

// Provider is an upstream source of canonical matches.
type Provider interface {
	Name() string
	FetchMatches(ctx context.Context) ([]Match, error)
}
