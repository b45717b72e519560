package resolver

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/streamhub/internal/domain/stream"
	"github.com/riskibarqy/streamhub/internal/platform/cache"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
	"github.com/riskibarqy/streamhub/internal/platform/resilience"
)

// Outcome labels reported through Config.OnOutcome.
const (
	OutcomeDirect      = "direct"
	OutcomeCacheHit    = "cache_hit"
	OutcomeFound       = "found"
	OutcomeNotFound    = "not_found"
	OutcomeFetchFailed = "fetch_failed"
)

const (
	defaultMaxDepth    = 2
	defaultConcurrency = 3
	defaultMaxFanout   = 6
	defaultTimeout     = 8 * time.Second
	defaultCacheTTL    = 10 * time.Minute
)

// PageFetcher downloads a page body. *transport.Chain satisfies it.
type PageFetcher interface {
	Get(ctx context.Context, target string, header http.Header) ([]byte, error)
}

type Config struct {
	// MaxDepth is how many frame hops are followed below the embed page.
	// nil selects the default; 0 scans the embed page only.
	MaxDepth    *int
	Concurrency int
	// MaxFanout caps the pages scanned at a single depth.
	MaxFanout  int
	Timeout    time.Duration
	CacheTTL   time.Duration
	Extractors []Extractor
	Logger     *logging.Logger
	Now        func() time.Time
	OnOutcome  func(outcome string)
}

// Resolver turns embed page URLs into direct playable URLs. It walks the embed
// page and its frames breadth first, running the extractors on each page.
type Resolver struct {
	fetcher     PageFetcher
	extractors  []Extractor
	maxDepth    int
	concurrency int
	maxFanout   int
	timeout     time.Duration
	cache       *cache.Store[stream.Resolution]
	flight      resilience.Group[stream.Resolution]
	logger      *logging.Logger
	now         func() time.Time
	onOutcome   func(string)
}

func New(fetcher PageFetcher, cfg Config) *Resolver {
	maxDepth := defaultMaxDepth
	if cfg.MaxDepth != nil {
		maxDepth = max(*cfg.MaxDepth, 0)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.MaxFanout <= 0 {
		cfg.MaxFanout = defaultMaxFanout
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if len(cfg.Extractors) == 0 {
		cfg.Extractors = DefaultExtractors()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Resolver{
		fetcher:     fetcher,
		extractors:  cfg.Extractors,
		maxDepth:    maxDepth,
		concurrency: cfg.Concurrency,
		maxFanout:   cfg.MaxFanout,
		timeout:     cfg.Timeout,
		cache:       cache.NewStore[stream.Resolution](cfg.CacheTTL, cache.WithClock[stream.Resolution](cfg.Now)),
		logger:      cfg.Logger.Named("resolver"),
		now:         cfg.Now,
		onOutcome:   cfg.OnOutcome,
	}
}

// Resolve never fails: when nothing playable is found the result is
// unresolved. Definitive answers are cached; transient fetch failures are not.
func (r *Resolver) Resolve(ctx context.Context, embedURL string) stream.Resolution {
	embedURL = strings.TrimSpace(embedURL)
	if kind, ok := DirectMedia(embedURL); ok {
		r.observe(OutcomeDirect)
		return stream.Resolution{EmbedURL: embedURL, ResolvedURL: embedURL, Kind: kind, ResolvedAt: r.now()}
	}
	if _, ok := validHTTPURL(embedURL); !ok {
		r.observe(OutcomeNotFound)
		return stream.Unresolved(embedURL, r.now())
	}

	if cached, ok := r.cache.Get(ctx, embedURL); ok {
		r.observe(OutcomeCacheHit)
		return cached
	}

	res, _, _ := r.flight.Do(embedURL, func() (stream.Resolution, error) {
		if cached, ok := r.cache.Get(ctx, embedURL); ok {
			return cached, nil
		}
		res, definitive := r.walk(ctx, embedURL)
		switch {
		case res.Found():
			r.observe(OutcomeFound)
		case definitive:
			r.observe(OutcomeNotFound)
		default:
			r.observe(OutcomeFetchFailed)
		}
		if definitive {
			r.cache.Set(ctx, embedURL, res)
		}
		return res, nil
	})
	return res
}

// Invalidate drops a cached resolution.
func (r *Resolver) Invalidate(ctx context.Context, embedURL string) {
	r.cache.Delete(ctx, strings.TrimSpace(embedURL))
}

func (r *Resolver) CacheLen() int {
	return r.cache.Len()
}

type page struct {
	url     string
	referer string
}

type scanResult struct {
	fetched bool
	media   string
	kind    stream.Kind
	frames  []string
}

// walk scans the embed page, then its frames, level by level. The second
// return value reports whether the answer is definitive: the embed page was
// fetched and the walk finished inside its budget.
func (r *Resolver) walk(ctx context.Context, embedURL string) (stream.Resolution, bool) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	visited := map[string]struct{}{embedURL: {}}
	level := []page{{url: embedURL}}
	rootFetched := false

	for depth := 0; depth <= r.maxDepth && len(level) > 0; depth++ {
		results := r.scanLevel(ctx, level)
		if depth == 0 {
			rootFetched = results[0].fetched
		}

		for i, res := range results {
			if res.media == "" {
				continue
			}
			r.logger.DebugContext(ctx, "stream resolved",
				"embed_url", embedURL,
				"page", level[i].url,
				"depth", depth,
			)
			return stream.Resolution{
				EmbedURL:    embedURL,
				ResolvedURL: res.media,
				Kind:        res.kind,
				ResolvedAt:  r.now(),
			}, true
		}

		if depth == r.maxDepth {
			break
		}
		var next []page
		for i, res := range results {
			for _, frame := range res.frames {
				if _, seen := visited[frame]; seen {
					continue
				}
				visited[frame] = struct{}{}
				if len(next) < r.maxFanout {
					next = append(next, page{url: frame, referer: level[i].url})
				}
			}
		}
		level = next
	}

	definitive := rootFetched && ctx.Err() == nil
	return stream.Unresolved(embedURL, r.now()), definitive
}

// scanLevel scans pages with bounded concurrency. Results keep the order of
// pages so the first match in document order wins.
func (r *Resolver) scanLevel(ctx context.Context, pages []page) []scanResult {
	results := make([]scanResult, len(pages))
	if len(pages) == 1 {
		results[0] = r.scanPage(ctx, pages[0])
		return results
	}

	pool, err := ants.NewPool(r.concurrency)
	if err != nil {
		for i, p := range pages {
			results[i] = r.scanPage(ctx, p)
		}
		return results
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for i, p := range pages {
		i, p := i, p
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			results[i] = r.scanPage(ctx, p)
		}); err != nil {
			wg.Done()
			results[i] = r.scanPage(ctx, p)
		}
	}
	wg.Wait()
	return results
}

func (r *Resolver) scanPage(ctx context.Context, p page) scanResult {
	header := http.Header{}
	if p.referer != "" {
		header.Set("Referer", p.referer)
	}
	body, err := r.fetcher.Get(ctx, p.url, header)
	if err != nil {
		r.logger.DebugContext(ctx, "resolver page fetch failed", "page", p.url, "error", err)
		return scanResult{}
	}

	html := string(body)
	for _, extractor := range r.extractors {
		media, ok := extractor.TryExtract(html, p.url)
		if !ok {
			continue
		}
		if kind, ok := DirectMedia(media); ok {
			return scanResult{fetched: true, media: media, kind: kind}
		}
	}

	frames := DiscoverIframes(html, p.url)
	for _, frame := range frames {
		if kind, ok := DirectMedia(frame); ok {
			return scanResult{fetched: true, media: frame, kind: kind}
		}
	}
	return scanResult{fetched: true, frames: frames}
}

func (r *Resolver) observe(outcome string) {
	if r.onOutcome != nil {
		r.onOutcome(outcome)
	}
}
