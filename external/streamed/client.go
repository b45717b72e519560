package streamed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/streamhub/internal/domain/match"
	"github.com/riskibarqy/streamhub/internal/domain/stream"
	"github.com/riskibarqy/streamhub/internal/platform/cache"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
	"github.com/riskibarqy/streamhub/internal/platform/resilience"
	"github.com/riskibarqy/streamhub/internal/platform/transport"
	"github.com/riskibarqy/streamhub/internal/usecase"
)

const (
	ProviderName   = "primary"
	defaultBaseURL = "https://streamed.pk"
)

// Fetcher is the subset of transport.Chain the client needs.
type Fetcher interface {
	GetJSON(ctx context.Context, target string, out any) error
}

type ClientConfig struct {
	BaseURL string
	Fetcher Fetcher
	// ViewerFetcher serves viewer-count samples, which run under a much
	// shorter deadline than list calls. Defaults to Fetcher.
	ViewerFetcher  Fetcher
	CacheTTL       time.Duration
	StreamCacheTTL time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the primary match-list provider. Every list call is cached
// for CacheTTL; a cache hit performs no network I/O.
type Client struct {
	baseURL  string
	fetcher  Fetcher
	viewerFn Fetcher
	logger   *logging.Logger
	breaker  *resilience.CircuitBreaker

	matches *cache.Store[[]match.Match]
	sports  *cache.Store[[]match.Sport]
	streams *cache.Store[[]stream.Stream]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	if cfg.StreamCacheTTL <= 0 {
		cfg.StreamCacheTTL = time.Minute
	}
	if cfg.ViewerFetcher == nil {
		cfg.ViewerFetcher = cfg.Fetcher
	}

	return &Client{
		baseURL:  baseURL,
		fetcher:  cfg.Fetcher,
		viewerFn: cfg.ViewerFetcher,
		logger:   logger.Named("provider." + ProviderName),
		breaker:  resilience.BreakerFor(ProviderName, cfg.CircuitBreaker),
		matches:  cache.NewStore[[]match.Match](cfg.CacheTTL),
		sports:   cache.NewStore[[]match.Sport](cfg.CacheTTL),
		streams:  cache.NewStore[[]stream.Stream](cfg.StreamCacheTTL),
	}
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) BreakerState() resilience.CircuitState { return c.breaker.State() }

// FetchMatches returns every valid match. Records that fail to decode or
// normalize are skipped.
func (c *Client) FetchMatches(ctx context.Context) ([]match.Match, error) {
	return c.matches.GetOrLoad(ctx, "matches:all", func(ctx context.Context) ([]match.Match, error) {
		records, err := c.fetchRecords(ctx, c.fetcher, "/api/matches/all")
		if err != nil {
			return nil, err
		}

		out := make([]match.Match, 0, len(records))
		malformed, dropped := 0, 0
		for _, rec := range records {
			var raw rawMatch
			if err := sonic.Unmarshal(rec, &raw); err != nil {
				malformed++
				continue
			}
			m, ok := NormalizeMatch(raw, c.baseURL)
			if !ok {
				dropped++
				continue
			}
			out = append(out, m)
		}
		out = mergeDuplicates(out)

		c.logger.DebugContext(ctx, "primary matches loaded",
			"records", len(records),
			"matches", len(out),
			"malformed", malformed,
			"dropped", dropped,
		)
		return out, nil
	})
}

func (c *Client) FetchSports(ctx context.Context) ([]match.Sport, error) {
	return c.sports.GetOrLoad(ctx, "sports", func(ctx context.Context) ([]match.Sport, error) {
		records, err := c.fetchRecords(ctx, c.fetcher, "/api/sports")
		if err != nil {
			return nil, err
		}
		out := make([]match.Sport, 0, len(records))
		for _, rec := range records {
			var raw rawSport
			if err := sonic.Unmarshal(rec, &raw); err != nil {
				continue
			}
			if sport, ok := NormalizeSport(raw); ok {
				out = append(out, sport)
			}
		}
		return out, nil
	})
}

// FetchStreams lists the playable feeds behind one source.
func (c *Client) FetchStreams(ctx context.Context, source, id string) ([]stream.Stream, error) {
	if strings.TrimSpace(source) == "" || strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%w: source and id are required", usecase.ErrInvalidInput)
	}
	key := "streams:" + source + ":" + id
	return c.streams.GetOrLoad(ctx, key, func(ctx context.Context) ([]stream.Stream, error) {
		return c.loadStreams(ctx, c.fetcher, source, id)
	})
}

// FetchViewerCount sums the viewers the provider reports across the streams
// of one source. It bypasses the stream cache; callers cache samples.
func (c *Client) FetchViewerCount(ctx context.Context, source, id string) (int, error) {
	streams, err := c.loadStreams(ctx, c.viewerFn, source, id)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, s := range streams {
		total += s.Viewers
	}
	return total, nil
}

func (c *Client) loadStreams(ctx context.Context, fetcher Fetcher, source, id string) ([]stream.Stream, error) {
	path := "/api/stream/" + url.PathEscape(source) + "/" + url.PathEscape(id)
	records, err := c.fetchRecords(ctx, fetcher, path)
	if err != nil {
		return nil, err
	}
	out := make([]stream.Stream, 0, len(records))
	for _, rec := range records {
		var raw rawStream
		if err := sonic.Unmarshal(rec, &raw); err != nil {
			continue
		}
		if s, ok := NormalizeStream(raw); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// fetchRecords decodes the top-level array lazily so one malformed element
// does not discard its siblings. Caller cancellation is not counted against
// the breaker.
func (c *Client) fetchRecords(ctx context.Context, fetcher Fetcher, path string) ([]json.RawMessage, error) {
	if err := c.breaker.Allow(); err != nil {
		c.logger.WarnContext(ctx, "primary circuit breaker rejected request", "path", path, "state", c.breaker.State())
		return nil, crerr.Mark(crerr.Wrap(err, "primary provider"), usecase.ErrProviderUnavailable)
	}

	var records []json.RawMessage
	err := fetcher.GetJSON(ctx, c.baseURL+path, &records)
	switch {
	case err == nil:
		c.breaker.RecordSuccess()
		return records, nil
	case crerr.Is(err, transport.ErrDecode):
		c.breaker.RecordSuccess()
		return nil, crerr.Mark(err, usecase.ErrParseFailure)
	case crerr.Is(err, resilience.ErrPermanent):
		c.breaker.RecordSuccess()
		return nil, crerr.Mark(err, usecase.ErrNotFound)
	case errors.Is(ctx.Err(), context.Canceled):
		c.breaker.Release()
		return nil, crerr.Mark(crerr.Wrap(err, "primary request cancelled"), usecase.ErrProviderUnavailable)
	default:
		c.breaker.RecordFailure()
		c.logger.WarnContext(ctx, "primary request failed", "path", path, "error", err)
		return nil, crerr.Mark(err, usecase.ErrProviderUnavailable)
	}
}
