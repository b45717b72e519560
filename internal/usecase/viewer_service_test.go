package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/streamhub/internal/domain/match"
	viewermock "github.com/riskibarqy/streamhub/internal/mocks/domain/viewer"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
)

type countingCounter struct {
	mu     sync.Mutex
	counts map[string]int
	calls  map[string]int
}

func newCountingCounter(counts map[string]int) *countingCounter {
	return &countingCounter{counts: counts, calls: map[string]int{}}
}

func (c *countingCounter) FetchViewerCount(_ context.Context, source, id string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	key := source + ":" + id
	c.calls[key]++
	count, ok := c.counts[key]
	if !ok {
		return 0, errors.New("all transports failed")
	}
	return count, nil
}

func (c *countingCounter) callsFor(key string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[key]
}

func TestViewerProbe_Probe_CachesSamples(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)}
	counter := newCountingCounter(map[string]int{"alpha:1": 42})
	probe := NewViewerProbe(counter, ViewerProbeConfig{CacheTTL: 3 * time.Minute, Logger: logging.NewNop(), Now: clock.Now})

	count, ok := probe.Probe(context.Background(), "alpha", "1")
	if !ok || count != 42 {
		t.Fatalf("expected 42, got %d ok=%v", count, ok)
	}
	probe.Probe(context.Background(), "alpha", "1")
	if counter.callsFor("alpha:1") != 1 {
		t.Fatalf("expected cache hit, got %d calls", counter.callsFor("alpha:1"))
	}

	clock.Advance(3*time.Minute + time.Millisecond)
	probe.Probe(context.Background(), "alpha", "1")
	if counter.callsFor("alpha:1") != 2 {
		t.Fatalf("expected refresh after ttl, got %d calls", counter.callsFor("alpha:1"))
	}

	probe.Clear(context.Background(), "alpha", "1")
	probe.Probe(context.Background(), "alpha", "1")
	if counter.callsFor("alpha:1") != 3 {
		t.Fatalf("expected refresh after clear, got %d calls", counter.callsFor("alpha:1"))
	}
}

func TestViewerProbe_Probe_FailureIsAbsentAndNotCached(t *testing.T) {
	t.Parallel()

	counter := newCountingCounter(map[string]int{})
	probe := NewViewerProbe(counter, ViewerProbeConfig{Logger: logging.NewNop()})

	if _, ok := probe.Probe(context.Background(), "alpha", "down"); ok {
		t.Fatalf("expected absent count")
	}
	probe.Probe(context.Background(), "alpha", "down")
	if counter.callsFor("alpha:down") != 2 {
		t.Fatalf("failures must not be cached, got %d calls", counter.callsFor("alpha:down"))
	}
}

func TestViewerProbe_ProbeBatch_IndependentFailures(t *testing.T) {
	t.Parallel()

	counter := newCountingCounter(map[string]int{"alpha:1": 10, "bravo:1": 5, "charlie:1": 7})
	probe := NewViewerProbe(counter, ViewerProbeConfig{Concurrency: 2, Logger: logging.NewNop()})

	got := probe.ProbeBatch(context.Background(), []match.Source{
		{Provider: "alpha", ID: "1"},
		{Provider: "bravo", ID: "1"},
		{Provider: "delta", ID: "1"},
		{Provider: "charlie", ID: "1"},
	})
	if len(got) != 3 || got["alpha:1"] != 10 || got["bravo:1"] != 5 || got["charlie:1"] != 7 {
		t.Fatalf("unexpected batch result: %+v", got)
	}
	if _, ok := got["delta:1"]; ok {
		t.Fatalf("failed source should be omitted")
	}

	if cleared := probe.ClearAll(); cleared != 3 {
		t.Fatalf("expected 3 cleared samples, got %d", cleared)
	}
}

func TestViewerService_MatchViewers(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	m := fixture("m1", match.SportFootball, "Arsenal", "Chelsea", now, "alpha", "bravo")
	m.Sources = append(m.Sources, match.Source{Provider: ChannelSourceProvider, ID: "sky-sports"})
	catalog := staticCatalog{catalog: Catalog{Matches: []match.Match{m}}}

	counter := newCountingCounter(map[string]int{"alpha:m1": 100})
	repo := viewermock.NewRepository(t)
	repo.On("CountActive", mock.Anything, "m1", now.Add(-90*time.Second)).Return(4, nil).Once()

	probe := NewViewerProbe(counter, ViewerProbeConfig{Logger: logging.NewNop()})
	svc := NewViewerService(probe, repo, catalog, ViewerServiceConfig{Logger: logging.NewNop(), Now: func() time.Time { return now }})

	got, err := svc.MatchViewers(context.Background(), "m1")
	if err != nil {
		t.Fatalf("match viewers: %v", err)
	}
	if got.Total == nil || *got.Total != 100 {
		t.Fatalf("expected total 100, got %+v", got.Total)
	}
	if got.Active != 4 {
		t.Fatalf("expected 4 active, got %d", got.Active)
	}
	if counter.callsFor(ChannelSourceProvider+":sky-sports") != 0 {
		t.Fatalf("channel sources must not be probed")
	}

	if _, err := svc.MatchViewers(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestViewerService_MatchViewers_NoSamples(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	catalog := staticCatalog{catalog: Catalog{Matches: []match.Match{fixture("m1", match.SportFootball, "Arsenal", "Chelsea", now, "alpha")}}}
	repo := viewermock.NewRepository(t)
	repo.On("CountActive", mock.Anything, "m1", mock.Anything).Return(0, errors.New("db down")).Once()

	probe := NewViewerProbe(newCountingCounter(nil), ViewerProbeConfig{Logger: logging.NewNop()})
	svc := NewViewerService(probe, repo, catalog, ViewerServiceConfig{Logger: logging.NewNop(), Now: func() time.Time { return now }})

	got, err := svc.MatchViewers(context.Background(), "m1")
	if err != nil {
		t.Fatalf("degraded dependencies must not fail: %v", err)
	}
	if got.Total != nil || got.Active != 0 {
		t.Fatalf("expected absent total, got %+v", got)
	}
}

func TestViewerService_Heartbeat(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	repo := viewermock.NewRepository(t)
	repo.On("Heartbeat", mock.Anything, "m1", "session-1", now).Return(nil).Once()
	repo.On("CountActive", mock.Anything, "m1", now.Add(-time.Minute)).Return(3, nil).Once()

	svc := NewViewerService(nil, repo, staticCatalog{}, ViewerServiceConfig{HeartbeatWindow: time.Minute, Logger: logging.NewNop(), Now: func() time.Time { return now }})

	active, err := svc.Heartbeat(context.Background(), "m1", "session-1")
	if err != nil {
		t.Fatalf("heartbeat: %v", err)
	}
	if active != 3 {
		t.Fatalf("expected 3 active sessions, got %d", active)
	}

	if _, err := svc.Heartbeat(context.Background(), "m1", " "); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestViewerService_Heartbeat_StoreFailure(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	repo := viewermock.NewRepository(t)
	repo.On("Heartbeat", mock.Anything, "m1", "s", now).Return(errors.New("connection refused")).Once()

	svc := NewViewerService(nil, repo, staticCatalog{}, ViewerServiceConfig{Logger: logging.NewNop(), Now: func() time.Time { return now }})
	if _, err := svc.Heartbeat(context.Background(), "m1", "s"); !crerr.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}
}

func TestViewerProbe_ClearSource(t *testing.T) {
	t.Parallel()

	counter := newCountingCounter(map[string]int{"alpha:1": 1, "alpha:2": 2, "alphabet:1": 3, "bravo:1": 4})
	probe := NewViewerProbe(counter, ViewerProbeConfig{Logger: logging.NewNop()})
	for _, key := range [][2]string{{"alpha", "1"}, {"alpha", "2"}, {"alphabet", "1"}, {"bravo", "1"}} {
		probe.Probe(context.Background(), key[0], key[1])
	}

	if cleared := probe.ClearSource(context.Background(), "alpha"); cleared != 2 {
		t.Fatalf("expected 2 cleared samples, got %d", cleared)
	}
	probe.Probe(context.Background(), "bravo", "1")
	if counter.callsFor("bravo:1") != 1 {
		t.Fatalf("other sources must stay cached, got %d calls", counter.callsFor("bravo:1"))
	}
	probe.Probe(context.Background(), "alpha", "1")
	if counter.callsFor("alpha:1") != 2 {
		t.Fatalf("cleared source should refetch, got %d calls", counter.callsFor("alpha:1"))
	}
}

func TestViewerService_PruneHeartbeats(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	repo := viewermock.NewRepository(t)
	repo.On("Prune", mock.Anything, now.Add(-2*time.Minute)).Return(5, nil).Once()
	repo.On("Prune", mock.Anything, mock.Anything).Return(0, errors.New("db down")).Once()

	svc := NewViewerService(nil, repo, staticCatalog{}, ViewerServiceConfig{HeartbeatWindow: 2 * time.Minute, Logger: logging.NewNop(), Now: func() time.Time { return now }})

	removed, err := svc.PruneHeartbeats(context.Background())
	if err != nil || removed != 5 {
		t.Fatalf("expected 5 pruned sessions, got %d err=%v", removed, err)
	}
	if _, err := svc.PruneHeartbeats(context.Background()); !crerr.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable, got %v", err)
	}

	noStore := NewViewerService(nil, nil, staticCatalog{}, ViewerServiceConfig{Logger: logging.NewNop()})
	if removed, err := noStore.PruneHeartbeats(context.Background()); err != nil || removed != 0 {
		t.Fatalf("missing store should be a no-op, got %d err=%v", removed, err)
	}
}
