package resolver

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/grafana/regexp"
)

var (
	iframeQuotedPattern   = regexp.MustCompile(`(?i)<iframe[^>]*\ssrc=["']([^"']+)["']`)
	iframeUnquotedPattern = regexp.MustCompile(`(?i)<iframe[^>]*\ssrc=([^\s>"']+)`)
	iframeScriptPattern   = regexp.MustCompile(`(?i)iframe\.src\s*=\s*["']([^"']+)["']`)
)

var frameSelectors = []struct {
	selector string
	attr     string
}{
	{selector: "iframe[src]", attr: "src"},
	{selector: "iframe[data-src]", attr: "data-src"},
	{selector: "frame[src]", attr: "src"},
}

// DiscoverIframes returns the absolute, de-duplicated frame URLs referenced by
// html, in document order. Script assignments to iframe.src are included.
func DiscoverIframes(html, baseURL string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 4)
	add := func(ref string) {
		abs, ok := Absolutize(ref, baseURL)
		if !ok || abs == baseURL {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		for _, sel := range frameSelectors {
			doc.Find(sel.selector).Each(func(_ int, s *goquery.Selection) {
				if value, ok := s.Attr(sel.attr); ok {
					add(value)
				}
			})
		}
	} else {
		for _, m := range iframeQuotedPattern.FindAllStringSubmatch(html, -1) {
			add(m[1])
		}
		for _, m := range iframeUnquotedPattern.FindAllStringSubmatch(html, -1) {
			add(m[1])
		}
	}

	for _, m := range iframeScriptPattern.FindAllStringSubmatch(unescapeScript(html), -1) {
		add(m[1])
	}
	return out
}
