package app

import (
	"fmt"
	"time"

	"github.com/riskibarqy/streamhub/external/channels"
	"github.com/riskibarqy/streamhub/external/scoreboard"
	"github.com/riskibarqy/streamhub/external/streamed"
	"github.com/riskibarqy/streamhub/internal/config"
	"github.com/riskibarqy/streamhub/internal/domain/channel"
	"github.com/riskibarqy/streamhub/internal/domain/livescore"
	"github.com/riskibarqy/streamhub/internal/interfaces/httpapi"
	"github.com/riskibarqy/streamhub/internal/observability"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
	"github.com/riskibarqy/streamhub/internal/platform/resilience"
	"github.com/riskibarqy/streamhub/internal/platform/transport"
)

// providers groups the upstream clients. livescores and channels stay nil
// interfaces when their provider is disabled.
type providers struct {
	primary       *streamed.Client
	livescores    livescore.Provider
	channels      channel.Directory
	resolverChain *transport.Chain
	breakers      []httpapi.BreakerReporter
}

func newProviders(cfg config.Config, logger *logging.Logger, metrics *observability.Metrics) (providers, error) {
	egress, err := buildTransports(cfg)
	if err != nil {
		return providers{}, err
	}
	agents := transport.NewUserAgents()
	chain := func(name string, timeout time.Duration, rateLimit float64) *transport.Chain {
		return transport.NewChain(transport.ChainConfig{
			Name:       name,
			Timeout:    timeout,
			RateLimit:  rateLimit,
			RateBurst:  max(1, int(rateLimit)),
			UserAgents: agents,
			Logger:     logger,
			OnAttempt:  metrics.ObserveAttempt,
		}, egress...)
	}
	breaker := breakerConfig(cfg.ProviderCircuit, logger, metrics)

	out := providers{}
	out.primary = streamed.NewClient(streamed.ClientConfig{
		BaseURL:        cfg.PrimaryBaseURL,
		Fetcher:        chain(streamed.ProviderName, cfg.PrimaryTimeout, 0),
		ViewerFetcher:  chain("viewers", cfg.ViewerTimeout, 0),
		CacheTTL:       cfg.PrimaryCacheTTL,
		StreamCacheTTL: cfg.StreamCacheTTL,
		Logger:         logger,
		CircuitBreaker: breaker,
	})
	out.breakers = append(out.breakers, out.primary)

	if cfg.LivescoreEnabled {
		client := scoreboard.NewClient(scoreboard.ClientConfig{
			URL:            cfg.LivescoreURL,
			Fetcher:        chain(scoreboard.ProviderName, cfg.LivescoreTimeout, 0),
			CacheTTL:       cfg.LivescoreCacheTTL,
			Logger:         logger,
			CircuitBreaker: breaker,
		})
		out.livescores = client
		out.breakers = append(out.breakers, client)
	}
	if cfg.ChannelsEnabled {
		client := channels.NewClient(channels.ClientConfig{
			URL:            cfg.ChannelsURL,
			Fetcher:        chain(channels.ProviderName, cfg.ChannelsTimeout, 0),
			CacheTTL:       cfg.ChannelsCacheTTL,
			Logger:         logger,
			CircuitBreaker: breaker,
		})
		out.channels = client
		out.breakers = append(out.breakers, client)
	}

	out.resolverChain = chain("resolver", cfg.ResolverTimeout, cfg.ResolverRateLimit)
	return out, nil
}

// buildTransports orders egress as direct, then proxies, then relays.
func buildTransports(cfg config.Config) ([]transport.Transport, error) {
	httpCfg := transport.HTTPConfig{
		Timeout:      max(cfg.PrimaryTimeout, cfg.ResolverTimeout, cfg.LivescoreTimeout, cfg.ChannelsTimeout),
		MaxBodyBytes: cfg.MaxBodyBytes,
	}

	out := []transport.Transport{transport.NewDirect(httpCfg)}
	for _, raw := range cfg.ProxyList {
		proxy, err := transport.NewProxy(raw, httpCfg)
		if err != nil {
			return nil, fmt.Errorf("invalid PROXY_LIST entry: %w", err)
		}
		out = append(out, proxy)
	}
	for _, raw := range cfg.RelayList {
		relay, err := transport.NewRelay(raw, httpCfg)
		if err != nil {
			return nil, fmt.Errorf("invalid RELAY_LIST entry: %w", err)
		}
		out = append(out, relay)
	}
	return out, nil
}

func breakerConfig(cfg config.CircuitConfig, logger *logging.Logger, metrics *observability.Metrics) resilience.CircuitBreakerConfig {
	return resilience.CircuitBreakerConfig{
		Enabled:          cfg.Enabled,
		FailureThreshold: cfg.FailureCount,
		OpenTimeout:      cfg.OpenTimeout,
		HalfOpenMaxReq:   cfg.HalfOpenMaxReq,
		OnStateChange: func(name string, from, to resilience.CircuitState) {
			logger.Warn("provider circuit state changed", "provider", name, "from", from, "to", to)
			metrics.ObserveBreaker(name, from, to)
		},
	}
}
