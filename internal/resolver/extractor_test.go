package resolver

import (
	"encoding/base64"
	"testing"

	"github.com/riskibarqy/streamhub/internal/domain/stream"
)

func TestAbsolutize(t *testing.T) {
	base := "https://embed.example/path/to/page.html?x=1"
	tests := []struct {
		ref  string
		want string
		ok   bool
	}{
		{ref: "https://cdn.example/a.m3u8", want: "https://cdn.example/a.m3u8", ok: true},
		{ref: "//cdn.example/a.m3u8", want: "https://cdn.example/a.m3u8", ok: true},
		{ref: "/root/a.m3u8", want: "https://embed.example/root/a.m3u8", ok: true},
		{ref: "a.m3u8", want: "https://embed.example/path/to/a.m3u8", ok: true},
		{ref: "./a.m3u8", want: "https://embed.example/path/to/a.m3u8", ok: true},
		{ref: "../a.m3u8", want: "https://embed.example/path/a.m3u8", ok: true},
		{ref: "../../../a.m3u8", want: "https://embed.example/a.m3u8", ok: true},
		{ref: `https:\/\/cdn.example\/b.m3u8`, want: "https://cdn.example/b.m3u8", ok: true},
		{ref: "a.m3u8?token=a%2Fb", want: "https://embed.example/path/to/a.m3u8?token=a%2Fb", ok: true},
		{ref: "javascript:void(0)", ok: false},
		{ref: "about:blank", ok: false},
		{ref: "#frag", ok: false},
		{ref: "", ok: false},
	}

	for _, tt := range tests {
		got, ok := Absolutize(tt.ref, base)
		if ok != tt.ok || got != tt.want {
			t.Fatalf("Absolutize(%q) = %q, %v; want %q, %v", tt.ref, got, ok, tt.want, tt.ok)
		}
	}
}

func TestDirectMedia(t *testing.T) {
	tests := []struct {
		url  string
		kind stream.Kind
		ok   bool
	}{
		{url: "https://cdn.example/live.m3u8", kind: stream.KindHLS, ok: true},
		{url: "https://cdn.example/live.M3U8?token=1", kind: stream.KindHLS, ok: true},
		{url: "http://cdn.example/clip.mp4", kind: stream.KindMP4, ok: true},
		{url: "https://embed.example/watch?file=live.m3u8", kind: stream.KindUnresolved, ok: false},
		{url: "https://embed.example/embed/1", kind: stream.KindUnresolved, ok: false},
		{url: "ftp://cdn.example/live.m3u8", kind: stream.KindUnresolved, ok: false},
	}
	for _, tt := range tests {
		kind, ok := DirectMedia(tt.url)
		if kind != tt.kind || ok != tt.ok {
			t.Fatalf("DirectMedia(%q) = %s, %v; want %s, %v", tt.url, kind, ok, tt.kind, tt.ok)
		}
	}
}

func TestExtractPlaylistURLRelative(t *testing.T) {
	got, ok := ExtractPlaylistURL(`<script>hls.loadSource('/hls/abc/index.m3u8?t=9');</script>`, "https://embed.example/e/abc")
	if !ok || got != "https://embed.example/hls/abc/index.m3u8?t=9" {
		t.Fatalf("unexpected extraction: %q %v", got, ok)
	}
}

func TestExtractPlayerConfigQueryParam(t *testing.T) {
	html := `<a href="/player.html?source=https%3A%2F%2Fcdn.example%2Flive%2Fx.m3u8&autoplay=1">watch</a>`
	got, ok := ExtractPlayerConfig(html, "https://embed.example/")
	if !ok || got != "https://cdn.example/live/x.m3u8" {
		t.Fatalf("unexpected extraction: %q %v", got, ok)
	}
}

func TestExtractBase64Literal(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"file":"//cdn.example/v/clip.mp4"}`))
	got, ok := ExtractBase64Payload(`<div data-config="`+encoded+`"></div>`, "https://embed.example/")
	if !ok || got != "https://cdn.example/v/clip.mp4" {
		t.Fatalf("unexpected extraction: %q %v", got, ok)
	}
}

func TestExtractorsIgnoreNonMedia(t *testing.T) {
	html := `<script src="/static/app.js"></script><img src="/logo.png">`
	for _, ex := range DefaultExtractors() {
		if got, ok := ex.TryExtract(html, "https://embed.example/"); ok {
			t.Fatalf("%s extracted %q from page without media", ex.Name(), got)
		}
	}
}

func TestDiscoverIframes(t *testing.T) {
	html := `<html>
<iframe src="/embed/1"></iframe>
<iframe data-src="//player.example/2"></iframe>
<iframe src="about:blank"></iframe>
<iframe src="/embed/1"></iframe>
<script>var f = document.createElement('iframe'); iframe.src = "https:\/\/player.example\/3";</script>
</html>`
	got := DiscoverIframes(html, "https://site.example/watch")
	want := []string{
		"https://site.example/embed/1",
		"https://player.example/2",
		"https://player.example/3",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}
