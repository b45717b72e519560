package resolver

import (
	"net/url"
	"strings"

	"github.com/riskibarqy/streamhub/internal/domain/stream"
)

var mediaSuffixes = []struct {
	suffix string
	kind   stream.Kind
}{
	{suffix: ".m3u8", kind: stream.KindHLS},
	{suffix: ".m3u", kind: stream.KindHLS},
	{suffix: ".mp4", kind: stream.KindMP4},
	{suffix: ".m4v", kind: stream.KindMP4},
}

// DirectMedia reports whether rawURL already points at a playable file,
// judged by the extension of its path. Query strings are ignored.
func DirectMedia(rawURL string) (stream.Kind, bool) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return stream.KindUnresolved, false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return stream.KindUnresolved, false
	}
	path := strings.ToLower(u.Path)
	for _, m := range mediaSuffixes {
		if strings.HasSuffix(path, m.suffix) {
			return m.kind, true
		}
	}
	return stream.KindUnresolved, false
}
