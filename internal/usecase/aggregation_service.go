package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc"
	"go.opentelemetry.io/otel/attribute"

	"github.com/riskibarqy/streamhub/internal/domain/channel"
	"github.com/riskibarqy/streamhub/internal/domain/livescore"
	"github.com/riskibarqy/streamhub/internal/domain/match"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
	"github.com/riskibarqy/streamhub/internal/platform/resilience"
)

// ProviderStatus is the outcome of one provider call in a cycle.
type ProviderStatus struct {
	Name     string
	OK       bool
	Error    string
	Records  int
	Duration time.Duration
}

// Catalog is one aggregation cycle's output. Matches are sorted by priority.
// Stale is set when the match list comes from an earlier cycle; Cached is set
// on copies served without running a cycle.
type Catalog struct {
	Matches     []match.Match
	Events      []livescore.Event
	Channels    []channel.Channel
	GeneratedAt time.Time
	Stale       bool
	Cached      bool
	Providers   []ProviderStatus
}

func (c Catalog) Match(id string) (match.Match, bool) {
	for _, m := range c.Matches {
		if m.ID == id {
			return m, true
		}
	}
	return match.Match{}, false
}

type AggregatorConfig struct {
	Interval   time.Duration
	Classifier match.Classifier
	Weights    Weights
	Threshold  int
	Logger     *logging.Logger
	Now        func() time.Time
	// OnCycle observes every finished cycle.
	OnCycle func(duration time.Duration, catalog Catalog)
}

// Aggregator rebuilds the catalog from every provider on each cycle. It never
// fails: when the primary provider is down the previous catalog is served
// with Stale set.
type Aggregator struct {
	primary    match.Provider
	livescores livescore.Provider
	channels   channel.Directory

	interval   time.Duration
	classifier match.Classifier
	weights    Weights
	matcher    TeamMatcher
	logger     *logging.Logger
	now        func() time.Time
	onCycle    func(time.Duration, Catalog)

	mu          sync.RWMutex
	current     Catalog
	hasData     bool
	refreshedAt time.Time
	flight      resilience.Group[Catalog]
}

// NewAggregator wires the providers. livescores and channels may be nil.
func NewAggregator(primary match.Provider, livescores livescore.Provider, channels channel.Directory, cfg AggregatorConfig) *Aggregator {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Minute
	}
	if cfg.Classifier.Windows.IsZero() {
		cfg.Classifier = match.NewClassifier(match.DefaultWindowTable())
	}
	if cfg.Weights.SportTiers == nil {
		cfg.Weights = DefaultWeights()
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Aggregator{
		primary:    primary,
		livescores: livescores,
		channels:   channels,
		interval:   cfg.Interval,
		classifier: cfg.Classifier,
		weights:    cfg.Weights,
		matcher:    NewTeamMatcher(cfg.Threshold),
		logger:     cfg.Logger.Named("aggregator"),
		now:        cfg.Now,
		onCycle:    cfg.OnCycle,
	}
}

func (a *Aggregator) Classifier() match.Classifier {
	return a.classifier
}

func (a *Aggregator) Now() time.Time {
	return a.now()
}

// Current returns the cached catalog, refreshing it first when the last cycle
// ran more than one interval ago.
func (a *Aggregator) Current(ctx context.Context) Catalog {
	a.mu.RLock()
	catalog, ok, refreshedAt := a.current, a.hasData, a.refreshedAt
	a.mu.RUnlock()

	if ok && a.now().Sub(refreshedAt) < a.interval {
		catalog.Cached = true
		return catalog
	}
	return a.Refresh(ctx)
}

// Snapshot returns the cached catalog without triggering a refresh.
func (a *Aggregator) Snapshot() (Catalog, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current, a.hasData
}

// Refresh runs one cycle. Concurrent callers share the same cycle, so it is
// detached from the caller's cancellation: a reader that disconnects must not
// fail the cycle every other reader is waiting on.
func (a *Aggregator) Refresh(ctx context.Context) Catalog {
	return a.cycle(context.WithoutCancel(ctx))
}

func (a *Aggregator) cycle(ctx context.Context) Catalog {
	catalog, _, _ := a.flight.Do("catalog", func() (Catalog, error) {
		return a.refresh(ctx), nil
	})
	return catalog
}

// Run refreshes immediately and then on every interval until ctx is done.
func (a *Aggregator) Run(ctx context.Context) {
	a.cycle(ctx)

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.cycle(ctx)
		}
	}
}

type fetchResult[T any] struct {
	items  []T
	status ProviderStatus
}

func fetchProvider[T any](ctx context.Context, name string, fn func(context.Context) ([]T, error)) fetchResult[T] {
	started := time.Now()
	items, err := fn(ctx)
	status := ProviderStatus{Name: name, OK: err == nil, Records: len(items), Duration: time.Since(started)}
	if err != nil {
		status.Error = err.Error()
		items = nil
	}
	return fetchResult[T]{items: items, status: status}
}

func (a *Aggregator) refresh(ctx context.Context) Catalog {
	ctx, span := startUsecaseSpan(ctx, "usecase.Aggregator.Refresh")
	defer span.End()

	started := time.Now()
	var (
		primary  fetchResult[match.Match]
		events   fetchResult[livescore.Event]
		channels fetchResult[channel.Channel]
	)

	var wg conc.WaitGroup
	wg.Go(func() {
		primary = fetchProvider(ctx, a.primary.Name(), a.primary.FetchMatches)
	})
	if a.livescores != nil {
		wg.Go(func() {
			events = fetchProvider(ctx, a.livescores.Name(), a.livescores.FetchEvents)
		})
	}
	if a.channels != nil {
		wg.Go(func() {
			channels = fetchProvider(ctx, a.channels.Name(), a.channels.FetchChannels)
		})
	}
	if recovered := wg.WaitAndRecover(); recovered != nil {
		a.logger.ErrorContext(ctx, "provider fetch panicked", "error", recovered.AsError())
	}

	statuses := []ProviderStatus{primary.status}
	if a.livescores != nil {
		statuses = append(statuses, events.status)
	}
	if a.channels != nil {
		statuses = append(statuses, channels.status)
	}
	for _, st := range statuses {
		if st.Name == "" {
			continue
		}
		if !st.OK {
			a.logger.WarnContext(ctx, "provider fetch failed",
				"provider", st.Name,
				"duration", st.Duration,
				"error", st.Error,
			)
		}
	}

	a.mu.RLock()
	previous, hadPrevious := a.current, a.hasData
	a.mu.RUnlock()

	now := a.now()
	catalog := Catalog{
		Events:      events.items,
		Channels:    channels.items,
		GeneratedAt: now,
		Providers:   statuses,
	}
	if !events.status.OK && hadPrevious {
		catalog.Events = previous.Events
	}
	if !channels.status.OK && hadPrevious {
		catalog.Channels = previous.Channels
	}

	if primary.status.OK {
		catalog.Matches = a.build(primary.items, events.items, channels.items, now)
	} else {
		catalog.Stale = true
		if hadPrevious {
			// Last known matches, rescored against this cycle's secondary data.
			catalog.Matches = a.build(previous.Matches, catalog.Events, catalog.Channels, now)
			catalog.GeneratedAt = previous.GeneratedAt
		}
	}

	if ctx.Err() != nil && hadPrevious {
		a.logger.InfoContext(ctx, "aggregation cycle cancelled, keeping previous catalog")
		return previous
	}

	a.mu.Lock()
	a.current = catalog
	a.hasData = true
	a.refreshedAt = now
	a.mu.Unlock()

	span.SetAttributes(
		attribute.Int("catalog.matches", len(catalog.Matches)),
		attribute.Bool("catalog.stale", catalog.Stale),
	)

	elapsed := time.Since(started)
	a.logger.InfoContext(ctx, "aggregation cycle finished",
		"matches", len(catalog.Matches),
		"events", len(catalog.Events),
		"channels", len(catalog.Channels),
		"stale", catalog.Stale,
		"duration", elapsed,
	)
	if a.onCycle != nil {
		a.onCycle(elapsed, catalog)
	}
	return catalog
}

// build merges secondary data into the primary matches, scores and sorts
// them. The input slice is not modified.
func (a *Aggregator) build(primary []match.Match, events []livescore.Event, channels []channel.Channel, now time.Time) []match.Match {
	out := make([]match.Match, 0, len(primary))
	for _, m := range primary {
		if !match.ValidTeamName(m.Teams.Home.Name) || !match.ValidTeamName(m.Teams.Away.Name) {
			continue
		}
		m.Sources = match.DedupeSources(m.Sources)
		if len(m.Sources) == 0 {
			continue
		}
		if ev, ok := a.matcher.FindBestEvent(m, events); ok {
			m = Enrich(m, ev)
		}
		m = AttachChannels(m, channels)
		m.PriorityScore = PriorityScore(m, now, a.classifier, a.weights)
		out = append(out, m)
	}
	SortCatalog(out)
	return out
}

// SortCatalog orders by priority descending, then start time and id
// ascending, so identical inputs always produce the same order.
func SortCatalog(matches []match.Match) {
	sort.SliceStable(matches, func(i, j int) bool {
		a, b := matches[i], matches[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if !a.StartTime.Equal(b.StartTime) {
			return a.StartTime.Before(b.StartTime)
		}
		return a.ID < b.ID
	})
}
