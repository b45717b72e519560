package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/panjf2000/ants/v2"

	"github.com/riskibarqy/streamhub/internal/domain/match"
	"github.com/riskibarqy/streamhub/internal/domain/viewer"
	"github.com/riskibarqy/streamhub/internal/platform/cache"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
)

const (
	defaultProbeConcurrency = 6
	defaultProbeTimeout     = 4 * time.Second
	defaultProbeCacheTTL    = 3 * time.Minute
	defaultHeartbeatWindow  = 90 * time.Second
)

// ViewerCounter reads a viewer count for one source from its provider.
type ViewerCounter interface {
	FetchViewerCount(ctx context.Context, source, id string) (int, error)
}

type ViewerProbeConfig struct {
	Timeout     time.Duration
	CacheTTL    time.Duration
	Concurrency int
	Logger      *logging.Logger
	Now         func() time.Time
	// OnResult observes every probe that reached the provider.
	OnResult func(ok bool)
}

// ViewerProbe samples provider viewer counts with a short cache. Failures are
// reported as absent counts, never as errors.
type ViewerProbe struct {
	counter     ViewerCounter
	samples     *cache.Store[viewer.Sample]
	timeout     time.Duration
	concurrency int
	logger      *logging.Logger
	now         func() time.Time
	onResult    func(bool)
}

func NewViewerProbe(counter ViewerCounter, cfg ViewerProbeConfig) *ViewerProbe {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultProbeTimeout
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultProbeCacheTTL
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultProbeConcurrency
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ViewerProbe{
		counter:     counter,
		samples:     cache.NewStore[viewer.Sample](cfg.CacheTTL, cache.WithClock[viewer.Sample](cfg.Now)),
		timeout:     cfg.Timeout,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger.Named("viewer_probe"),
		now:         cfg.Now,
		onResult:    cfg.OnResult,
	}
}

// Probe returns the viewer count for (source, id). The boolean is false when
// the count could not be obtained.
func (p *ViewerProbe) Probe(ctx context.Context, source, id string) (int, bool) {
	source, id = strings.TrimSpace(source), strings.TrimSpace(id)
	if source == "" || id == "" {
		return 0, false
	}
	key := viewer.SampleKey(source, id)
	sample, err := p.samples.GetOrLoad(ctx, key, func(ctx context.Context) (viewer.Sample, error) {
		ctx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()

		count, err := p.counter.FetchViewerCount(ctx, source, id)
		if p.onResult != nil {
			p.onResult(err == nil)
		}
		if err != nil {
			return viewer.Sample{}, err
		}
		return viewer.Sample{Key: key, Count: count, SampledAt: p.now()}, nil
	})
	if err != nil {
		p.logger.DebugContext(ctx, "viewer probe failed", "source", source, "id", id, "error", err)
		return 0, false
	}
	return sample.Count, true
}

// ProbeBatch probes every source with bounded concurrency. Failed sources are
// omitted from the result; they never cancel their siblings.
func (p *ViewerProbe) ProbeBatch(ctx context.Context, sources []match.Source) map[string]int {
	out := make(map[string]int, len(sources))
	if len(sources) == 0 {
		return out
	}

	var mu sync.Mutex
	record := func(s match.Source) {
		if count, ok := p.Probe(ctx, s.Provider, s.ID); ok {
			mu.Lock()
			out[viewer.SampleKey(s.Provider, s.ID)] = count
			mu.Unlock()
		}
	}

	pool, err := ants.NewPool(min(p.concurrency, len(sources)))
	if err != nil {
		for _, s := range sources {
			record(s)
		}
		return out
	}
	defer pool.Release()

	var wg sync.WaitGroup
	for _, s := range sources {
		s := s
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			record(s)
		}); err != nil {
			wg.Done()
			record(s)
		}
	}
	wg.Wait()
	return out
}

// Clear drops the cached sample for one source.
func (p *ViewerProbe) Clear(ctx context.Context, source, id string) {
	p.samples.Delete(ctx, viewer.SampleKey(strings.TrimSpace(source), strings.TrimSpace(id)))
}

// ClearSource drops every cached sample of one provider source.
func (p *ViewerProbe) ClearSource(ctx context.Context, source string) int {
	return p.samples.DeletePrefix(ctx, viewer.SampleKey(strings.TrimSpace(source), ""))
}

func (p *ViewerProbe) ClearAll() int {
	return p.samples.Clear()
}

// MatchViewers combines provider samples with on-site heartbeats.
type MatchViewers struct {
	MatchID string
	// Total is the provider sum, or nil when no source answered.
	Total   *int
	Sources map[string]int
	Active  int
}

type ViewerServiceConfig struct {
	HeartbeatWindow time.Duration
	Logger          *logging.Logger
	Now             func() time.Time
}

type ViewerService struct {
	probe   *ViewerProbe
	repo    viewer.Repository
	catalog CatalogSource
	window  time.Duration
	logger  *logging.Logger
	now     func() time.Time
}

func NewViewerService(probe *ViewerProbe, repo viewer.Repository, catalog CatalogSource, cfg ViewerServiceConfig) *ViewerService {
	if cfg.HeartbeatWindow <= 0 {
		cfg.HeartbeatWindow = defaultHeartbeatWindow
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ViewerService{
		probe:   probe,
		repo:    repo,
		catalog: catalog,
		window:  cfg.HeartbeatWindow,
		logger:  cfg.Logger.Named("viewers"),
		now:     cfg.Now,
	}
}

// MatchViewers probes every non-channel source of the match. Heartbeat store
// failures degrade to zero active viewers.
func (s *ViewerService) MatchViewers(ctx context.Context, matchID string) (MatchViewers, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ViewerService.MatchViewers")
	defer span.End()

	matchID = strings.TrimSpace(matchID)
	if matchID == "" {
		return MatchViewers{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	m, ok := s.catalog.Current(ctx).Match(matchID)
	if !ok {
		return MatchViewers{}, fmt.Errorf("%w: match %s", ErrNotFound, matchID)
	}

	sources := make([]match.Source, 0, len(m.Sources))
	for _, src := range m.Sources {
		if src.Provider != ChannelSourceProvider {
			sources = append(sources, src)
		}
	}

	out := MatchViewers{MatchID: matchID, Sources: s.probe.ProbeBatch(ctx, sources)}
	if len(out.Sources) > 0 {
		total := 0
		for _, c := range out.Sources {
			total += c
		}
		out.Total = &total
	}

	if s.repo != nil {
		active, err := s.repo.CountActive(ctx, matchID, s.now().Add(-s.window))
		if err != nil {
			s.logger.WarnContext(ctx, "count active viewers failed", "match_id", matchID, "error", err)
		} else {
			out.Active = active
		}
	}
	return out, nil
}

// Heartbeat records a session as watching matchID and returns the number of
// active sessions.
func (s *ViewerService) Heartbeat(ctx context.Context, matchID, sessionID string) (int, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ViewerService.Heartbeat")
	defer span.End()

	matchID, sessionID = strings.TrimSpace(matchID), strings.TrimSpace(sessionID)
	if matchID == "" || sessionID == "" {
		return 0, fmt.Errorf("%w: match id and session id are required", ErrInvalidInput)
	}
	if s.repo == nil {
		return 0, fmt.Errorf("%w: heartbeat store is not configured", ErrDependencyUnavailable)
	}

	now := s.now()
	if err := s.repo.Heartbeat(ctx, matchID, sessionID, now); err != nil {
		return 0, crerr.Mark(crerr.Wrap(err, "record heartbeat"), ErrDependencyUnavailable)
	}
	active, err := s.repo.CountActive(ctx, matchID, now.Add(-s.window))
	if err != nil {
		return 0, crerr.Mark(crerr.Wrap(err, "count active viewers"), ErrDependencyUnavailable)
	}
	return active, nil
}

// PruneHeartbeats removes sessions older than the heartbeat window.
func (s *ViewerService) PruneHeartbeats(ctx context.Context) (int, error) {
	if s.repo == nil {
		return 0, nil
	}
	removed, err := s.repo.Prune(ctx, s.now().Add(-s.window))
	if err != nil {
		return 0, crerr.Mark(crerr.Wrap(err, "prune heartbeats"), ErrDependencyUnavailable)
	}
	return removed, nil
}
