package channel

import "context"

// Directory lists TV channels.
type Directory interface {
	Name() string
	FetchChannels(ctx context.Context) ([]Channel, error)
}
