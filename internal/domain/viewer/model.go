package viewer

import (
	"context"
	"time"
)

// Sample is a best-effort viewer count for one source key.
type Sample struct {
	Key       string
	Count     int
	SampledAt time.Time
}

// SampleKey builds the cache key for a (source, id) pair.
func SampleKey(source, id string) string {
	return source + ":" + id
}

// Repository stores heartbeat sessions so the service can count viewers
// currently watching a match on this site.
type Repository interface {
	Heartbeat(ctx context.Context, matchID, sessionID string, at time.Time) error
	CountActive(ctx context.Context, matchID string, since time.Time) (int, error)
	Prune(ctx context.Context, before time.Time) (int, error)
}
