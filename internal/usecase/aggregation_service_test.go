package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/riskibarqy/streamhub/internal/domain/channel"
	"github.com/riskibarqy/streamhub/internal/domain/livescore"
	"github.com/riskibarqy/streamhub/internal/domain/match"
	channelmock "github.com/riskibarqy/streamhub/internal/mocks/domain/channel"
	livescoremock "github.com/riskibarqy/streamhub/internal/mocks/domain/livescore"
	matchmock "github.com/riskibarqy/streamhub/internal/mocks/domain/match"
	"github.com/riskibarqy/streamhub/internal/platform/logging"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func fixture(id, category, home, away string, start time.Time, sources ...string) match.Match {
	m := match.Match{
		ID:        id,
		Title:     home + " vs " + away,
		Category:  category,
		StartTime: start,
		Teams:     match.Teams{Home: match.Team{Name: home}, Away: match.Team{Name: away}},
	}
	for _, s := range sources {
		m.Sources = append(m.Sources, match.Source{Provider: s, ID: id})
	}
	return m
}

func newTestAggregator(t *testing.T, clock *manualClock) (*Aggregator, *matchmock.Provider, *livescoremock.Provider, *channelmock.Directory) {
	t.Helper()

	primary := matchmock.NewProvider(t)
	scores := livescoremock.NewProvider(t)
	channels := channelmock.NewDirectory(t)
	primary.On("Name").Return("primary").Maybe()
	scores.On("Name").Return("livescore").Maybe()
	channels.On("Name").Return("channels").Maybe()

	agg := NewAggregator(primary, scores, channels, AggregatorConfig{
		Interval: time.Minute,
		Logger:   logging.NewNop(),
		Now:      clock.Now,
	})
	return agg, primary, scores, channels
}

func TestAggregator_Refresh_MergesSecondaryData(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2026, 3, 1, 15, 10, 0, 0, time.UTC)}
	agg, primary, scores, channels := newTestAggregator(t, clock)

	kickoff := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	primary.On("FetchMatches", mock.Anything).
		Return([]match.Match{fixture("liv-mun", match.SportFootball, "Liverpool", "Manchester United", kickoff, "alpha", "bravo")}, nil).
		Once()
	scores.On("FetchEvents", mock.Anything).
		Return([]livescore.Event{{
			Sport:       match.SportFootball,
			HomeTeam:    "Liverpool",
			AwayTeam:    "Man Utd",
			HomeScore:   intPtr(1),
			AwayScore:   intPtr(0),
			Progress:    "10'",
			League:      "Premier League",
			Broadcaster: "Sky Sports",
		}}, nil).
		Once()
	channels.On("FetchChannels", mock.Anything).
		Return([]channel.Channel{{Name: "Sky Sports", CountryCode: "GB", URL: "https://tv.example/sky"}}, nil).
		Once()

	catalog := agg.Refresh(context.Background())
	if catalog.Stale {
		t.Fatalf("expected fresh catalog")
	}
	if len(catalog.Matches) != 1 {
		t.Fatalf("expected one match, got %d", len(catalog.Matches))
	}
	got := catalog.Matches[0]
	if !got.Recognized || got.Score == nil || got.Score.Home != 1 {
		t.Fatalf("expected livescore enrichment, got %+v", got)
	}
	if len(got.Sources) != 3 || !got.HasSource(ChannelSourceProvider, "sky-sports") {
		t.Fatalf("expected channel source attached, got %+v", got.Sources)
	}
	if got.PriorityScore == 0 {
		t.Fatalf("expected priority score to be computed")
	}
	if len(catalog.Providers) != 3 {
		t.Fatalf("expected 3 provider statuses, got %+v", catalog.Providers)
	}
}

func TestAggregator_Refresh_AllProvidersFailServesStaleCatalog(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)}
	agg, primary, scores, channels := newTestAggregator(t, clock)

	timeout := context.DeadlineExceeded
	primary.On("FetchMatches", mock.Anything).
		Return([]match.Match{fixture("m1", match.SportFootball, "Arsenal", "Chelsea", clock.Now(), "alpha")}, nil).
		Once()
	scores.On("FetchEvents", mock.Anything).Return([]livescore.Event{{HomeTeam: "Arsenal", AwayTeam: "Chelsea"}}, nil).Once()
	channels.On("FetchChannels", mock.Anything).Return([]channel.Channel{}, nil).Once()

	first := agg.Refresh(context.Background())
	if first.Stale || len(first.Matches) != 1 {
		t.Fatalf("unexpected first catalog: %+v", first)
	}

	clock.Advance(time.Minute)
	primary.On("FetchMatches", mock.Anything).Return(nil, timeout).Once()
	scores.On("FetchEvents", mock.Anything).Return(nil, timeout).Once()
	channels.On("FetchChannels", mock.Anything).Return(nil, timeout).Once()

	second := agg.Refresh(context.Background())
	if !second.Stale {
		t.Fatalf("expected stale catalog")
	}
	if len(second.Matches) != 1 || second.Matches[0].ID != "m1" {
		t.Fatalf("expected previous matches, got %+v", second.Matches)
	}
	if len(second.Events) != 1 {
		t.Fatalf("expected previous events, got %+v", second.Events)
	}
	if !second.GeneratedAt.Equal(first.GeneratedAt) {
		t.Fatalf("stale catalog should keep its original timestamp")
	}
	for _, st := range second.Providers {
		if st.OK || st.Error == "" {
			t.Fatalf("expected failed provider status, got %+v", st)
		}
	}
}

func TestAggregator_Refresh_NoPreviousCatalogIsEmptyAndStale(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)}
	agg, primary, scores, channels := newTestAggregator(t, clock)

	primary.On("FetchMatches", mock.Anything).Return(nil, errors.New("boom")).Once()
	scores.On("FetchEvents", mock.Anything).Return(nil, errors.New("boom")).Once()
	channels.On("FetchChannels", mock.Anything).Return(nil, errors.New("boom")).Once()

	catalog := agg.Refresh(context.Background())
	if !catalog.Stale || len(catalog.Matches) != 0 {
		t.Fatalf("expected empty stale catalog, got %+v", catalog)
	}
}

func TestAggregator_Refresh_PartialFailureKeepsFreshMatches(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)}
	agg, primary, scores, channels := newTestAggregator(t, clock)

	primary.On("FetchMatches", mock.Anything).
		Return([]match.Match{fixture("m1", match.SportBasketball, "Lakers", "Celtics", clock.Now(), "alpha")}, nil).
		Once()
	scores.On("FetchEvents", mock.Anything).Return(nil, errors.New("status 503")).Once()
	channels.On("FetchChannels", mock.Anything).Return(nil, errors.New("timeout")).Once()

	catalog := agg.Refresh(context.Background())
	if catalog.Stale || len(catalog.Matches) != 1 {
		t.Fatalf("expected fresh catalog from primary, got %+v", catalog)
	}
	if catalog.Matches[0].Recognized {
		t.Fatalf("match should not be enriched without secondary data")
	}
	if catalog.Providers[1].OK || catalog.Providers[1].Name != "livescore" {
		t.Fatalf("expected livescore failure to be reported, got %+v", catalog.Providers[1])
	}
}

func TestAggregator_Refresh_DropsPlaceholderTeams(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)}
	agg, primary, scores, channels := newTestAggregator(t, clock)

	primary.On("FetchMatches", mock.Anything).
		Return([]match.Match{
			fixture("ok", match.SportFootball, "Arsenal", "Chelsea", clock.Now(), "alpha"),
			fixture("tbd", match.SportFootball, "Arsenal", "TBD", clock.Now(), "alpha"),
			fixture("nosrc", match.SportFootball, "Everton", "Fulham", clock.Now()),
		}, nil).
		Once()
	scores.On("FetchEvents", mock.Anything).Return([]livescore.Event{}, nil).Once()
	channels.On("FetchChannels", mock.Anything).Return([]channel.Channel{}, nil).Once()

	catalog := agg.Refresh(context.Background())
	if len(catalog.Matches) != 1 || catalog.Matches[0].ID != "ok" {
		t.Fatalf("expected only the valid match, got %+v", catalog.Matches)
	}
}

func TestAggregator_Current_ServesCachedCatalogWithinInterval(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)}
	agg, primary, scores, channels := newTestAggregator(t, clock)

	primary.On("FetchMatches", mock.Anything).
		Return([]match.Match{fixture("m1", match.SportFootball, "Arsenal", "Chelsea", clock.Now(), "alpha")}, nil).
		Twice()
	scores.On("FetchEvents", mock.Anything).Return([]livescore.Event{}, nil).Twice()
	channels.On("FetchChannels", mock.Anything).Return([]channel.Channel{}, nil).Twice()

	first := agg.Current(context.Background())
	if first.Cached {
		t.Fatalf("first read should run a cycle")
	}
	clock.Advance(30 * time.Second)
	second := agg.Current(context.Background())
	if !second.Cached {
		t.Fatalf("expected cached catalog within interval")
	}
	clock.Advance(31 * time.Second)
	third := agg.Current(context.Background())
	if third.Cached {
		t.Fatalf("expected refresh after interval")
	}
}

func TestSortCatalog_IsDeterministic(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	input := []match.Match{
		{ID: "c", PriorityScore: 10, StartTime: base},
		{ID: "a", PriorityScore: 50, StartTime: base.Add(time.Hour)},
		{ID: "b", PriorityScore: 10, StartTime: base},
		{ID: "d", PriorityScore: 50, StartTime: base},
		{ID: "e", PriorityScore: 10, StartTime: base.Add(-time.Hour)},
	}
	want := []string{"d", "a", "e", "b", "c"}

	orders := [][]int{{0, 1, 2, 3, 4}, {4, 3, 2, 1, 0}, {2, 0, 4, 1, 3}}
	for _, order := range orders {
		shuffled := make([]match.Match, 0, len(input))
		for _, i := range order {
			shuffled = append(shuffled, input[i])
		}
		SortCatalog(shuffled)
		for i, id := range want {
			if shuffled[i].ID != id {
				t.Fatalf("order %v: position %d = %s, want %s", order, i, shuffled[i].ID, id)
			}
		}
	}
}

func TestAggregator_Current_CancelledCallerDoesNotMarkCatalogStale(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2026, 3, 1, 15, 10, 0, 0, time.UTC)}
	agg, primary, scores, channels := newTestAggregator(t, clock)

	kickoff := clock.Now().Add(-10 * time.Minute)
	primary.On("FetchMatches", mock.Anything).
		Return(func(ctx context.Context) ([]match.Match, error) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			return []match.Match{fixture("ars-che", match.SportFootball, "Arsenal", "Chelsea", kickoff, "alpha")}, nil
		}).
		Once()
	scores.On("FetchEvents", mock.Anything).Return(nil, nil).Once()
	channels.On("FetchChannels", mock.Anything).Return(nil, nil).Once()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	catalog := agg.Current(ctx)
	if catalog.Stale || len(catalog.Matches) != 1 {
		t.Fatalf("expected fresh catalog despite cancelled caller, got stale=%v matches=%d", catalog.Stale, len(catalog.Matches))
	}
	if snap, ok := agg.Snapshot(); !ok || snap.Stale {
		t.Fatalf("stored catalog must not be stale")
	}
}

func TestAggregator_Refresh_PrimaryFailureRescoresPreviousMatches(t *testing.T) {
	t.Parallel()

	clock := &manualClock{now: time.Date(2026, 3, 1, 15, 10, 0, 0, time.UTC)}
	agg, primary, scores, channels := newTestAggregator(t, clock)

	kickoff := clock.Now().Add(-10 * time.Minute)
	primary.On("FetchMatches", mock.Anything).
		Return([]match.Match{fixture("liv-mun", match.SportFootball, "Liverpool", "Manchester United", kickoff, "alpha")}, nil).
		Once()
	primary.On("FetchMatches", mock.Anything).Return(nil, errors.New("primary down")).Once()
	scores.On("FetchEvents", mock.Anything).Return(nil, nil).Once()
	scores.On("FetchEvents", mock.Anything).
		Return([]livescore.Event{{
			Sport:     match.SportFootball,
			HomeTeam:  "Liverpool",
			AwayTeam:  "Manchester United",
			HomeScore: intPtr(2),
			AwayScore: intPtr(1),
			Progress:  "55'",
			League:    "Premier League",
		}}, nil).
		Once()
	channels.On("FetchChannels", mock.Anything).Return(nil, nil).Times(2)

	first := agg.Refresh(context.Background())
	if first.Stale || len(first.Matches) != 1 {
		t.Fatalf("unexpected first catalog: %+v", first)
	}

	clock.Advance(2 * time.Minute)
	second := agg.Refresh(context.Background())
	if !second.Stale || len(second.Matches) != 1 {
		t.Fatalf("expected stale catalog with previous matches, got %+v", second)
	}
	got := second.Matches[0]
	if got.Score == nil || got.Score.Home != 2 || got.Progress != "55'" {
		t.Fatalf("expected fresh livescore on previous match, got %+v", got)
	}
	if got.PriorityScore <= first.Matches[0].PriorityScore {
		t.Fatalf("expected rescored priority above %d, got %d", first.Matches[0].PriorityScore, got.PriorityScore)
	}
}
