package scoreboard

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/streamhub/internal/domain/livescore"
	"github.com/riskibarqy/streamhub/internal/platform/cache"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
	"github.com/riskibarqy/streamhub/internal/platform/resilience"
	"github.com/riskibarqy/streamhub/internal/platform/transport"
	"github.com/riskibarqy/streamhub/internal/usecase"
)

const ProviderName = "livescore"

type Fetcher interface {
	GetJSON(ctx context.Context, target string, out any) error
}

type ClientConfig struct {
	URL            string
	Fetcher        Fetcher
	CacheTTL       time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads the live-score feed: one JSON object keyed by sport, each
// value an array of fixtures.
type Client struct {
	url     string
	fetcher Fetcher
	logger  *logging.Logger
	breaker *resilience.CircuitBreaker
	events  *cache.Store[[]livescore.Event]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 30 * time.Second
	}
	return &Client{
		url:     strings.TrimSpace(cfg.URL),
		fetcher: cfg.Fetcher,
		logger:  logger.Named("provider." + ProviderName),
		breaker: resilience.BreakerFor(ProviderName, cfg.CircuitBreaker),
		events:  cache.NewStore[[]livescore.Event](cfg.CacheTTL),
	}
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) BreakerState() resilience.CircuitState { return c.breaker.State() }

// FetchEvents flattens every sport partition into one list ordered by sport
// name so repeated calls yield identical output.
func (c *Client) FetchEvents(ctx context.Context) ([]livescore.Event, error) {
	return c.events.GetOrLoad(ctx, "events", func(ctx context.Context) ([]livescore.Event, error) {
		if err := c.breaker.Allow(); err != nil {
			return nil, crerr.Mark(crerr.Wrap(err, "livescore provider"), usecase.ErrProviderUnavailable)
		}

		var partitions map[string][]json.RawMessage
		err := c.fetcher.GetJSON(ctx, c.url, &partitions)
		if err != nil {
			if crerr.Is(err, transport.ErrDecode) {
				c.breaker.RecordSuccess()
				return nil, crerr.Mark(err, usecase.ErrParseFailure)
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				c.breaker.Release()
				return nil, crerr.Mark(err, usecase.ErrProviderUnavailable)
			}
			c.breaker.RecordFailure()
			c.logger.WarnContext(ctx, "livescore request failed", "error", err)
			return nil, crerr.Mark(err, usecase.ErrProviderUnavailable)
		}
		c.breaker.RecordSuccess()

		sports := make([]string, 0, len(partitions))
		for sport := range partitions {
			sports = append(sports, sport)
		}
		sort.Strings(sports)

		out := make([]livescore.Event, 0, 64)
		skipped := 0
		for _, sport := range sports {
			for _, rec := range partitions[sport] {
				var raw rawEvent
				if err := sonic.Unmarshal(rec, &raw); err != nil {
					skipped++
					continue
				}
				ev, ok := NormalizeEvent(sport, raw)
				if !ok {
					skipped++
					continue
				}
				out = append(out, ev)
			}
		}

		c.logger.DebugContext(ctx, "livescore events loaded", "sports", len(sports), "events", len(out), "skipped", skipped)
		return out, nil
	})
}
