package channels

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"

	"github.com/riskibarqy/streamhub/internal/domain/channel"
	"github.com/riskibarqy/streamhub/internal/platform/cache"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
	"github.com/riskibarqy/streamhub/internal/platform/resilience"
	"github.com/riskibarqy/streamhub/internal/platform/transport"
	"github.com/riskibarqy/streamhub/internal/usecase"
)

const ProviderName = "channels"

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

type rawChannel struct {
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	Viewers     int    `json:"viewers"`
}

// Client reads the flat TV channel directory.
type Client struct {
	url      string
	fetcher  Fetcher
	logger   *logging.Logger
	breaker  *resilience.CircuitBreaker
	channels *cache.Store[[]channel.Channel]
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &Client{
		url:      strings.TrimSpace(cfg.URL),
		fetcher:  cfg.Fetcher,
		logger:   logger.Named("provider." + ProviderName),
		breaker:  resilience.BreakerFor(ProviderName, cfg.CircuitBreaker),
		channels: cache.NewStore[[]channel.Channel](cfg.CacheTTL),
	}
}

func (c *Client) Name() string { return ProviderName }

func (c *Client) BreakerState() resilience.CircuitState { return c.breaker.State() }

func (c *Client) FetchChannels(ctx context.Context) ([]channel.Channel, error) {
	return c.channels.GetOrLoad(ctx, "channels", func(ctx context.Context) ([]channel.Channel, error) {
		if err := c.breaker.Allow(); err != nil {
			return nil, crerr.Mark(crerr.Wrap(err, "channel directory"), usecase.ErrProviderUnavailable)
		}

		var records []json.RawMessage
		if err := c.fetcher.GetJSON(ctx, c.url, &records); err != nil {
			if crerr.Is(err, transport.ErrDecode) {
				c.breaker.RecordSuccess()
				return nil, crerr.Mark(err, usecase.ErrParseFailure)
			}
			if errors.Is(ctx.Err(), context.Canceled) {
				c.breaker.Release()
				return nil, crerr.Mark(err, usecase.ErrProviderUnavailable)
			}
			c.breaker.RecordFailure()
			c.logger.WarnContext(ctx, "channel directory request failed", "error", err)
			return nil, crerr.Mark(err, usecase.ErrProviderUnavailable)
		}
		c.breaker.RecordSuccess()

		out := make([]channel.Channel, 0, len(records))
		seen := make(map[string]struct{}, len(records))
		for _, rec := range records {
			var raw rawChannel
			if err := sonic.Unmarshal(rec, &raw); err != nil {
				continue
			}
			ch, ok := NormalizeChannel(raw)
			if !ok {
				continue
			}
			key := ch.Slug() + "|" + ch.CountryCode
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, ch)
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].Viewers != out[j].Viewers {
				return out[i].Viewers > out[j].Viewers
			}
			return out[i].Name < out[j].Name
		})
		return out, nil
	})
}

// NormalizeChannel requires a name and a URL.
func NormalizeChannel(raw rawChannel) (channel.Channel, bool) {
	name := strings.TrimSpace(raw.Name)
	link := strings.TrimSpace(raw.URL)
	if name == "" || link == "" || channel.Slugify(name) == "" {
		return channel.Channel{}, false
	}
	viewers := raw.Viewers
	if viewers < 0 {
		viewers = 0
	}
	return channel.Channel{
		Name:        name,
		CountryCode: strings.ToUpper(strings.TrimSpace(raw.CountryCode)),
		URL:         link,
		Image:       strings.TrimSpace(raw.Image),
		Viewers:     viewers,
	}, true
}
