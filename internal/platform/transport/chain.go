package transport

import (
	"context"
	"net/http"
	"time"

	crerr "github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/riskibarqy/streamhub/internal/platform/logging"
	"github.com/riskibarqy/streamhub/internal/platform/resilience"
)

// Chain walks an ordered list of transports and returns the first success.
// Provider clients, the stream resolver and the viewer probe all fetch
// through a Chain.
type Chain struct {
	name       string
	transports []Transport
	agents     *UserAgents
	limiter    *rate.Limiter
	timeout    time.Duration
	logger     *logging.Logger
	onAttempt  resilience.AttemptHook
}

type ChainConfig struct {
	// Name labels log lines and metrics, e.g. "primary" or "resolver".
	Name string
	// Timeout bounds each individual transport attempt.
	Timeout time.Duration
	// RateLimit caps attempts per second across the chain; <= 0 disables it.
	RateLimit  float64
	RateBurst  int
	UserAgents *UserAgents
	Logger     *logging.Logger
	// OnAttempt receives (chain/transport, err) for every attempt.
	OnAttempt func(chain, transport string, err error)
}

func NewChain(cfg ChainConfig, transports ...Transport) *Chain {
	c := &Chain{
		name:       cfg.Name,
		transports: transports,
		agents:     cfg.UserAgents,
		timeout:    cfg.Timeout,
		logger:     cfg.Logger,
	}
	if c.agents == nil {
		c.agents = NewUserAgents()
	}
	if c.logger == nil {
		c.logger = logging.Default()
	}
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if cfg.OnAttempt != nil {
		name := cfg.Name
		c.onAttempt = func(transport string, err error) { cfg.OnAttempt(name, transport, err) }
	}
	return c
}

func (c *Chain) Name() string { return c.name }

func (c *Chain) Transports() []string {
	out := make([]string, 0, len(c.transports))
	for _, t := range c.transports {
		out = append(out, t.Name())
	}
	return out
}

// Fetch sends req through each transport in order until one succeeds.
func (c *Chain) Fetch(ctx context.Context, req Request) (Response, error) {
	return c.fetch(ctx, req, nil)
}

// fetch runs the fallback walk. accept, when set, validates a 2xx body inside
// the attempt so a rejected body moves on to the next transport.
func (c *Chain) fetch(ctx context.Context, req Request, accept func(Response) error) (Response, error) {
	if len(c.transports) == 0 {
		return Response{}, crerr.New("transport chain is empty")
	}

	req.Header = c.prepareHeader(req.Header)
	if req.Timeout <= 0 {
		req.Timeout = c.timeout
	}

	attempts := make([]resilience.Attempt[Response], 0, len(c.transports))
	for i, t := range c.transports {
		t, left := t, len(c.transports)-i
		attempts = append(attempts, resilience.Attempt[Response]{
			Name: t.Name(),
			Run: func(ctx context.Context) (Response, error) {
				if c.limiter != nil {
					if err := c.limiter.Wait(ctx); err != nil {
						return Response{}, err
					}
				}
				attemptCtx, cancel := withAttemptBudget(ctx, req.Timeout, left)
				defer cancel()

				resp, err := t.Do(attemptCtx, req)
				if err != nil {
					return Response{}, err
				}
				if accept != nil {
					if err := accept(resp); err != nil {
						return Response{}, err
					}
				}
				return resp, nil
			},
		})
	}

	started := time.Now()
	resp, err := resilience.FirstSuccess(ctx, attempts, c.logAttempt(ctx, req.URL), c.onAttempt)
	if err != nil {
		return Response{}, crerr.Wrapf(err, "%s fetch %s", c.name, req.URL)
	}

	c.logger.DebugContext(ctx, "fetch succeeded",
		"chain", c.name,
		"via", resp.Via,
		"url", req.URL,
		"bytes", len(resp.Body),
		"duration_ms", time.Since(started),
	)
	return resp, nil
}

// Get is Fetch for callers that only need the body.
func (c *Chain) Get(ctx context.Context, target string, header http.Header) ([]byte, error) {
	resp, err := c.Fetch(ctx, Request{URL: target, Header: header})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Chain) prepareHeader(in http.Header) http.Header {
	header := make(http.Header, len(in)+3)
	for k, v := range in {
		header[k] = append([]string(nil), v...)
	}
	if header.Get("User-Agent") == "" {
		header.Set("User-Agent", c.agents.Next())
	}
	if header.Get("Accept-Encoding") == "" {
		header.Set("Accept-Encoding", AcceptEncoding)
	}
	if header.Get("Accept-Language") == "" {
		header.Set("Accept-Language", "en-US,en;q=0.9")
	}
	return header
}

func (c *Chain) logAttempt(ctx context.Context, target string) resilience.AttemptHook {
	return func(transport string, err error) {
		if err == nil {
			return
		}
		c.logger.DebugContext(ctx, "transport attempt failed",
			"chain", c.name,
			"transport", transport,
			"url", target,
			"error", err,
		)
	}
}

// withAttemptBudget bounds one transport attempt. When the caller has a
// deadline, what remains of it is shared evenly by the transports not yet
// tried, so a hanging first hop cannot starve the fallbacks.
func withAttemptBudget(ctx context.Context, perAttempt time.Duration, left int) (context.Context, context.CancelFunc) {
	budget := perAttempt
	if deadline, ok := ctx.Deadline(); ok && left > 0 {
		share := time.Until(deadline) / time.Duration(left)
		if budget <= 0 || share < budget {
			budget = share
		}
	}
	if budget <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, budget)
}
