package resolver

import (
	"encoding/base64"
	"net/url"
	"strings"

	"github.com/grafana/regexp"
)

// Extractor finds a playable URL inside a fetched page. Implementations are
// pure: they only look at the page body and its URL.
type Extractor interface {
	Name() string
	TryExtract(html, baseURL string) (string, bool)
}

type funcExtractor struct {
	name string
	fn   func(html, baseURL string) (string, bool)
}

func (e funcExtractor) Name() string { return e.name }

func (e funcExtractor) TryExtract(html, baseURL string) (string, bool) {
	return e.fn(html, baseURL)
}

// NewExtractor wraps fn as a named Extractor.
func NewExtractor(name string, fn func(html, baseURL string) (string, bool)) Extractor {
	return funcExtractor{name: name, fn: fn}
}

// DefaultExtractors returns the built-in extractors in the order they are tried.
func DefaultExtractors() []Extractor {
	return []Extractor{
		NewExtractor("playlist-url", ExtractPlaylistURL),
		NewExtractor("player-config", ExtractPlayerConfig),
		NewExtractor("base64-payload", ExtractBase64Payload),
	}
}

var (
	absoluteMediaPattern = regexp.MustCompile(`(?i)(?:https?:)?//[^\s"'<>\\(){}]+?\.(?:m3u8|mp4)(?:\?[^\s"'<>\\(){}]*)?`)
	quotedMediaPattern   = regexp.MustCompile(`(?i)["']([^"'\s<>]+?\.(?:m3u8|mp4)(?:\?[^"'\s<>]*)?)["']`)
	playerKeyPattern     = regexp.MustCompile(`(?i)\b(?:source|file|src|hls|hlsurl|videourl|streamurl|playbackurl)["']?\s*[:=]\s*["']([^"']+)["']`)
	queryParamPattern    = regexp.MustCompile(`(?i)[?&](?:source|file|src|url|stream)=([^&"'\s<>]+)`)
	atobPattern          = regexp.MustCompile(`atob\(\s*["']([A-Za-z0-9+/=_-]{8,})["']\s*\)`)
	base64LiteralPattern = regexp.MustCompile(`["']([A-Za-z0-9+/_-]{24,}={0,2})["']`)
)

// unescapeScript turns JSON-escaped slashes back into plain ones so URL
// patterns match inside inline script payloads.
func unescapeScript(body string) string {
	body = strings.ReplaceAll(body, `\/`, "/")
	return strings.ReplaceAll(body, `\u002F`, "/")
}

// acceptMedia absolutizes candidate and keeps it only if it looks playable.
func acceptMedia(candidate, baseURL string) (string, bool) {
	abs, ok := Absolutize(candidate, baseURL)
	if !ok {
		return "", false
	}
	if _, ok := DirectMedia(abs); !ok {
		return "", false
	}
	return abs, true
}

// ExtractPlaylistURL looks for absolute, protocol-relative or quoted relative
// URLs ending in a playlist or video extension.
func ExtractPlaylistURL(html, baseURL string) (string, bool) {
	body := unescapeScript(html)
	for _, candidate := range absoluteMediaPattern.FindAllString(body, -1) {
		if out, ok := acceptMedia(candidate, baseURL); ok {
			return out, true
		}
	}
	for _, m := range quotedMediaPattern.FindAllStringSubmatch(body, -1) {
		if out, ok := acceptMedia(m[1], baseURL); ok {
			return out, true
		}
	}
	return "", false
}

// ExtractPlayerConfig reads player setup keys such as `file: "..."` and
// `source=` query parameters.
func ExtractPlayerConfig(html, baseURL string) (string, bool) {
	body := unescapeScript(html)
	for _, m := range playerKeyPattern.FindAllStringSubmatch(body, -1) {
		if out, ok := acceptMedia(m[1], baseURL); ok {
			return out, true
		}
	}
	for _, m := range queryParamPattern.FindAllStringSubmatch(body, -1) {
		value, err := url.QueryUnescape(m[1])
		if err != nil {
			continue
		}
		if out, ok := acceptMedia(value, baseURL); ok {
			return out, true
		}
	}
	return "", false
}

// ExtractBase64Payload decodes atob() arguments and long base64 literals and
// scans the decoded text for playable URLs.
func ExtractBase64Payload(html, baseURL string) (string, bool) {
	candidates := make([]string, 0, 4)
	for _, m := range atobPattern.FindAllStringSubmatch(html, -1) {
		candidates = append(candidates, m[1])
	}
	for _, m := range base64LiteralPattern.FindAllStringSubmatch(html, -1) {
		candidates = append(candidates, m[1])
	}

	for _, candidate := range candidates {
		decoded, ok := decodeBase64(candidate)
		if !ok {
			continue
		}
		if out, ok := acceptMedia(decoded, baseURL); ok {
			return out, true
		}
		if out, ok := ExtractPlaylistURL(decoded, baseURL); ok {
			return out, true
		}
		if out, ok := ExtractPlayerConfig(decoded, baseURL); ok {
			return out, true
		}
	}
	return "", false
}

var base64Encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

func decodeBase64(value string) (string, bool) {
	for _, enc := range base64Encodings {
		raw, err := enc.DecodeString(value)
		if err != nil {
			continue
		}
		text := strings.TrimSpace(string(raw))
		if text == "" || !printable(text) {
			continue
		}
		return text, true
	}
	return "", false
}

func printable(s string) bool {
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			continue
		}
		if r < 0x20 || r == 0x7f || r == 0xfffd {
			return false
		}
	}
	return true
}
