package stream

import "time"

// Kind is the media type of a resolved URL.
type Kind string

const (
	KindHLS        Kind = "hls"
	KindMP4        Kind = "mp4"
	KindUnresolved Kind = "unresolved"
)

// Stream is one playable feed listed by the primary provider for a source.
type Stream struct {
	ID       string
	StreamNo int
	Language string
	HD       bool
	EmbedURL string
	Source   string
	Viewers  int
}

// Resolution is the outcome of resolving an embed page. ResolvedURL is empty
// and Kind is KindUnresolved when nothing playable was found.
type Resolution struct {
	EmbedURL    string
	ResolvedURL string
	Kind        Kind
	ResolvedAt  time.Time
}

func (r Resolution) Found() bool {
	return r.ResolvedURL != "" && r.Kind != KindUnresolved
}

func Unresolved(embedURL string, at time.Time) Resolution {
	return Resolution{EmbedURL: embedURL, Kind: KindUnresolved, ResolvedAt: at}
}
