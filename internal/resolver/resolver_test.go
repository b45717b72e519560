package resolver

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/riskibarqy/streamhub/internal/domain/stream"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
	"github.com/riskibarqy/streamhub/internal/platform/transport"
)

type fakePages struct {
	mu       sync.Mutex
	pages    map[string]string
	failing  map[string]bool
	calls    map[string]int
	referers map[string]string
}

func newFakePages(pages map[string]string) *fakePages {
	return &fakePages{
		pages:    pages,
		failing:  map[string]bool{},
		calls:    map[string]int{},
		referers: map[string]string{},
	}
}

func (f *fakePages) Get(_ context.Context, target string, header http.Header) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[target]++
	f.referers[target] = header.Get("Referer")
	if f.failing[target] {
		return nil, errors.New("connection reset")
	}
	body, ok := f.pages[target]
	if !ok {
		return nil, errors.New("not found")
	}
	return []byte(body), nil
}

func (f *fakePages) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakePages) count(target string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[target]
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestResolver(fetcher PageFetcher, clock *testClock) *Resolver {
	return New(fetcher, Config{
		CacheTTL: 10 * time.Minute,
		Logger:   logging.NewNop(),
		Now:      clock.Now,
	})
}

func TestResolveDirectMediaMakesNoRequests(t *testing.T) {
	fetcher := newFakePages(nil)
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestResolver(fetcher, clock)

	res := r.Resolve(context.Background(), "https://cdn.example/live/index.m3u8?token=abc")
	if !res.Found() || res.Kind != stream.KindHLS {
		t.Fatalf("expected direct hls resolution, got %+v", res)
	}
	if res.ResolvedURL != "https://cdn.example/live/index.m3u8?token=abc" {
		t.Fatalf("unexpected resolved url: %s", res.ResolvedURL)
	}
	if fetcher.total() != 0 {
		t.Fatalf("expected no network calls, got %d", fetcher.total())
	}

	res = r.Resolve(context.Background(), "https://cdn.example/vod/clip.MP4")
	if res.Kind != stream.KindMP4 {
		t.Fatalf("expected mp4 kind, got %s", res.Kind)
	}
}

func TestResolveFindsPlaylistInEmbedPage(t *testing.T) {
	fetcher := newFakePages(map[string]string{
		"https://embed.example/e/1": `<html><script>var player = new Player({file: "https:\/\/cdn.example\/hls\/master.m3u8"});</script></html>`,
	})
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestResolver(fetcher, clock)

	res := r.Resolve(context.Background(), "https://embed.example/e/1")
	if !res.Found() {
		t.Fatalf("expected resolution, got %+v", res)
	}
	if res.ResolvedURL != "https://cdn.example/hls/master.m3u8" {
		t.Fatalf("unexpected resolved url: %s", res.ResolvedURL)
	}
}

func TestResolveNoPatternReturnsUnresolvedAndCaches(t *testing.T) {
	fetcher := newFakePages(map[string]string{
		"https://embed.example/empty": `<html><body><p>stream offline</p></body></html>`,
	})
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestResolver(fetcher, clock)

	res := r.Resolve(context.Background(), "https://embed.example/empty")
	if res.Found() || res.Kind != stream.KindUnresolved || res.ResolvedURL != "" {
		t.Fatalf("expected unresolved, got %+v", res)
	}

	_ = r.Resolve(context.Background(), "https://embed.example/empty")
	if got := fetcher.count("https://embed.example/empty"); got != 1 {
		t.Fatalf("expected cached not-found within ttl, got %d fetches", got)
	}

	clock.Advance(10*time.Minute + time.Second)
	_ = r.Resolve(context.Background(), "https://embed.example/empty")
	if got := fetcher.count("https://embed.example/empty"); got != 2 {
		t.Fatalf("expected re-attempt after ttl, got %d fetches", got)
	}
}

func TestResolveFetchFailureIsNotCached(t *testing.T) {
	fetcher := newFakePages(map[string]string{})
	fetcher.failing["https://embed.example/down"] = true
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestResolver(fetcher, clock)

	res := r.Resolve(context.Background(), "https://embed.example/down")
	if res.Found() {
		t.Fatalf("expected unresolved, got %+v", res)
	}
	_ = r.Resolve(context.Background(), "https://embed.example/down")
	if got := fetcher.count("https://embed.example/down"); got != 2 {
		t.Fatalf("expected failure to be retried, got %d fetches", got)
	}
	if r.CacheLen() != 0 {
		t.Fatalf("expected empty cache, got %d", r.CacheLen())
	}
}

func TestResolveFollowsIframesWithReferer(t *testing.T) {
	fetcher := newFakePages(map[string]string{
		"https://embed.example/watch/1": `<html><iframe src="/player/1"></iframe></html>`,
		"https://embed.example/player/1": `<html><iframe src="//media.example/frame?id=1"></iframe></html>`,
		"https://media.example/frame?id=1": `<video><source src="../live/stream.m3u8" type="application/x-mpegURL"></video>`,
	})
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestResolver(fetcher, clock)

	res := r.Resolve(context.Background(), "https://embed.example/watch/1")
	if !res.Found() {
		t.Fatalf("expected resolution through two frames, got %+v", res)
	}
	if res.ResolvedURL != "https://media.example/live/stream.m3u8" {
		t.Fatalf("unexpected resolved url: %s", res.ResolvedURL)
	}
	if got := fetcher.referers["https://media.example/frame?id=1"]; got != "https://embed.example/player/1" {
		t.Fatalf("expected parent page as referer, got %q", got)
	}
}

func TestResolveStopsAtMaxDepth(t *testing.T) {
	fetcher := newFakePages(map[string]string{
		"https://a.example/0": `<iframe src="https://a.example/1"></iframe>`,
		"https://a.example/1": `<iframe src="https://a.example/2"></iframe>`,
		"https://a.example/2": `<iframe src="https://a.example/3"></iframe>`,
		"https://a.example/3": `<script>file: "https://cdn.example/deep.m3u8"</script>`,
	})
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestResolver(fetcher, clock)

	res := r.Resolve(context.Background(), "https://a.example/0")
	if res.Found() {
		t.Fatalf("expected depth limit to stop the walk, got %+v", res)
	}
	if got := fetcher.count("https://a.example/3"); got != 0 {
		t.Fatalf("expected page beyond max depth to be skipped, got %d fetches", got)
	}
}

func TestResolveVisitsEachPageOnce(t *testing.T) {
	fetcher := newFakePages(map[string]string{
		"https://loop.example/a": `<iframe src="https://loop.example/b"></iframe>`,
		"https://loop.example/b": `<iframe src="https://loop.example/a"></iframe><iframe src="https://loop.example/b"></iframe>`,
	})
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestResolver(fetcher, clock)

	res := r.Resolve(context.Background(), "https://loop.example/a")
	if res.Found() {
		t.Fatalf("expected unresolved, got %+v", res)
	}
	if fetcher.count("https://loop.example/a") != 1 || fetcher.count("https://loop.example/b") != 1 {
		t.Fatalf("expected one fetch per page, got %+v", fetcher.calls)
	}
}

func TestResolveInvalidURL(t *testing.T) {
	fetcher := newFakePages(nil)
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestResolver(fetcher, clock)

	res := r.Resolve(context.Background(), "not a url")
	if res.Found() {
		t.Fatalf("expected unresolved, got %+v", res)
	}
	if fetcher.total() != 0 {
		t.Fatalf("expected no network calls, got %d", fetcher.total())
	}
}

func TestResolveReportsOutcomes(t *testing.T) {
	fetcher := newFakePages(map[string]string{
		"https://embed.example/ok": `<source src="https://cdn.example/a.mp4">`,
	})
	var outcomes []string
	r := New(fetcher, Config{
		Logger:    logging.NewNop(),
		OnOutcome: func(o string) { outcomes = append(outcomes, o) },
	})

	r.Resolve(context.Background(), "https://embed.example/ok")
	r.Resolve(context.Background(), "https://embed.example/ok")
	r.Resolve(context.Background(), "https://cdn.example/b.m3u8")

	want := []string{OutcomeFound, OutcomeCacheHit, OutcomeDirect}
	if len(outcomes) != len(want) {
		t.Fatalf("expected %v, got %v", want, outcomes)
	}
	for i := range want {
		if outcomes[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, outcomes)
		}
	}
}

func TestResolveDecodesBase64Payload(t *testing.T) {
	payload := base64.StdEncoding.EncodeToString([]byte("https://cdn.example/secret/playlist.m3u8"))
	fetcher := newFakePages(map[string]string{
		"https://embed.example/b64": `<script>var src = atob("` + payload + `"); player.load(src);</script>`,
	})
	clock := &testClock{now: time.Unix(1_700_000_000, 0)}
	r := newTestResolver(fetcher, clock)

	res := r.Resolve(context.Background(), "https://embed.example/b64")
	if res.ResolvedURL != "https://cdn.example/secret/playlist.m3u8" {
		t.Fatalf("expected decoded playlist, got %+v", res)
	}
}

func TestResolveZeroDepthScansEmbedPageOnly(t *testing.T) {
	fetcher := newFakePages(map[string]string{
		"https://a.example/0": `<iframe src="https://a.example/1"></iframe>`,
		"https://a.example/1": `<script>file: "https://cdn.example/one.m3u8"</script>`,
	})
	depth := 0
	r := New(fetcher, Config{MaxDepth: &depth, Logger: logging.NewNop()})

	if res := r.Resolve(context.Background(), "https://a.example/0"); res.Found() {
		t.Fatalf("depth 0 must not follow frames, got %+v", res)
	}
	if got := fetcher.count("https://a.example/1"); got != 0 {
		t.Fatalf("expected no frame fetches, got %d", got)
	}
}

type egressFunc struct {
	name string
	do   func(ctx context.Context, req transport.Request) (transport.Response, error)
}

func (e egressFunc) Name() string { return e.name }

func (e egressFunc) Do(ctx context.Context, req transport.Request) (transport.Response, error) {
	return e.do(ctx, req)
}

func TestResolveFallsBackWhenDirectTransportHangs(t *testing.T) {
	hanging := egressFunc{name: "direct", do: func(ctx context.Context, _ transport.Request) (transport.Response, error) {
		<-ctx.Done()
		return transport.Response{}, ctx.Err()
	}}
	proxied := egressFunc{name: "proxy:backup", do: func(context.Context, transport.Request) (transport.Response, error) {
		return transport.Response{StatusCode: http.StatusOK, Body: []byte(`<video src="https://cdn.example/live.m3u8"></video>`), Via: "proxy:backup"}, nil
	}}

	timeout := 600 * time.Millisecond
	chain := transport.NewChain(transport.ChainConfig{Name: "resolver", Timeout: timeout}, hanging, proxied)
	r := New(chain, Config{Timeout: timeout, Logger: logging.NewNop()})

	res := r.Resolve(context.Background(), "https://embed.example/watch/1")
	if !res.Found() {
		t.Fatalf("expected backup transport to resolve the stream, got %+v", res)
	}
	if res.ResolvedURL != "https://cdn.example/live.m3u8" {
		t.Fatalf("resolved url = %q", res.ResolvedURL)
	}
}
