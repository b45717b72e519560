package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/riskibarqy/streamhub/internal/domain/channel"
	"github.com/riskibarqy/streamhub/internal/domain/livescore"
	"github.com/riskibarqy/streamhub/internal/domain/match"
)

const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// CatalogSource serves the current aggregated catalog.
type CatalogSource interface {
	Current(ctx context.Context) Catalog
}

// SportsProvider lists sport categories from the primary provider.
type SportsProvider interface {
	FetchSports(ctx context.Context) ([]match.Sport, error)
}

// CatalogMeta describes how fresh a response is.
type CatalogMeta struct {
	GeneratedAt time.Time
	Cached      bool
	Stale       bool
	Providers   []ProviderStatus
}

func metaOf(c Catalog) CatalogMeta {
	return CatalogMeta{GeneratedAt: c.GeneratedAt, Cached: c.Cached, Stale: c.Stale, Providers: c.Providers}
}

// MatchView is a catalog match with liveness evaluated at read time.
type MatchView struct {
	match.Match
	Live bool
}

type ListQuery struct {
	Page  int
	Limit int
	Sport string
}

type MatchPage struct {
	Items []MatchView
	Total int
	Page  int
	Limit int
	Meta  CatalogMeta
}

type MatchList struct {
	Items []MatchView
	Meta  CatalogMeta
}

type SportList struct {
	Items []match.Sport
	Meta  CatalogMeta
}

type EventList struct {
	Items []livescore.Event
	Meta  CatalogMeta
}

type ChannelList struct {
	Items []channel.Channel
	Meta  CatalogMeta
}

// TeamView is everything the catalog knows about one team.
type TeamView struct {
	Name    string
	Badge   string
	Matches []MatchView
	Events  []livescore.Event
	Meta    CatalogMeta
}

type CatalogService struct {
	catalog    CatalogSource
	sports     SportsProvider
	classifier match.Classifier
	now        func() time.Time
}

func NewCatalogService(catalog CatalogSource, sports SportsProvider, classifier match.Classifier, now func() time.Time) *CatalogService {
	if classifier.Windows.IsZero() {
		classifier = match.NewClassifier(match.DefaultWindowTable())
	}
	if now == nil {
		now = time.Now
	}
	return &CatalogService{catalog: catalog, sports: sports, classifier: classifier, now: now}
}

func (s *CatalogService) views(matches []match.Match) []MatchView {
	now := s.now()
	out := make([]MatchView, 0, len(matches))
	for _, m := range matches {
		out = append(out, MatchView{Match: m, Live: s.classifier.IsLive(m, now)})
	}
	return out
}

// List returns one page of the priority-ordered catalog.
func (s *CatalogService) List(ctx context.Context, query ListQuery) (MatchPage, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.CatalogService.List")
	defer span.End()

	if query.Page < 0 || query.Limit < 0 {
		return MatchPage{}, fmt.Errorf("%w: page and limit must not be negative", ErrInvalidInput)
	}
	if query.Page == 0 {
		query.Page = 1
	}
	if query.Limit == 0 {
		query.Limit = DefaultPageLimit
	}
	if query.Limit > MaxPageLimit {
		query.Limit = MaxPageLimit
	}

	catalog := s.catalog.Current(ctx)
	matches := catalog.Matches
	if sport := strings.TrimSpace(query.Sport); sport != "" {
		matches = filterByCategory(matches, match.NormalizeSport(sport))
	}

	total := len(matches)
	start := (query.Page - 1) * query.Limit
	if start > total {
		start = total
	}
	end := min(start+query.Limit, total)

	return MatchPage{
		Items: s.views(matches[start:end]),
		Total: total,
		Page:  query.Page,
		Limit: query.Limit,
		Meta:  metaOf(catalog),
	}, nil
}

// Live returns matches currently inside their sport window.
func (s *CatalogService) Live(ctx context.Context) MatchList {
	catalog := s.catalog.Current(ctx)
	views := s.views(catalog.Matches)
	out := views[:0]
	for _, v := range views {
		if v.Live {
			out = append(out, v)
		}
	}
	return MatchList{Items: out, Meta: metaOf(catalog)}
}

func (s *CatalogService) Popular(ctx context.Context) MatchList {
	catalog := s.catalog.Current(ctx)
	out := make([]match.Match, 0, len(catalog.Matches))
	for _, m := range catalog.Matches {
		if m.Popular {
			out = append(out, m)
		}
	}
	return MatchList{Items: s.views(out), Meta: metaOf(catalog)}
}

func (s *CatalogService) Get(ctx context.Context, id string) (MatchView, CatalogMeta, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return MatchView{}, CatalogMeta{}, fmt.Errorf("%w: match id is required", ErrInvalidInput)
	}
	catalog := s.catalog.Current(ctx)
	m, ok := catalog.Match(id)
	if !ok {
		return MatchView{}, metaOf(catalog), fmt.Errorf("%w: match %s", ErrNotFound, id)
	}
	return MatchView{Match: m, Live: s.classifier.IsLive(m, s.now())}, metaOf(catalog), nil
}

// Sports lists provider categories. When the provider is unavailable the
// categories present in the catalog are returned instead.
func (s *CatalogService) Sports(ctx context.Context) SportList {
	catalog := s.catalog.Current(ctx)
	meta := metaOf(catalog)
	if s.sports != nil {
		if sports, err := s.sports.FetchSports(ctx); err == nil && len(sports) > 0 {
			return SportList{Items: sports, Meta: meta}
		}
	}

	seen := map[string]struct{}{}
	out := make([]match.Sport, 0)
	for _, m := range catalog.Matches {
		if _, ok := seen[m.Category]; ok || m.Category == "" {
			continue
		}
		seen[m.Category] = struct{}{}
		out = append(out, match.Sport{ID: m.Category, Name: m.Category})
	}
	meta.Stale = true
	return SportList{Items: out, Meta: meta}
}

func (s *CatalogService) BySport(ctx context.Context, category string) (MatchList, error) {
	category = strings.TrimSpace(category)
	if category == "" {
		return MatchList{}, fmt.Errorf("%w: sport category is required", ErrInvalidInput)
	}
	catalog := s.catalog.Current(ctx)
	return MatchList{
		Items: s.views(filterByCategory(catalog.Matches, match.NormalizeSport(category))),
		Meta:  metaOf(catalog),
	}, nil
}

func (s *CatalogService) Livescores(ctx context.Context, sport string) EventList {
	catalog := s.catalog.Current(ctx)
	sport = strings.TrimSpace(sport)
	if sport != "" {
		sport = match.NormalizeSport(sport)
	}
	return EventList{Items: livescore.FilterBySport(catalog.Events, sport), Meta: metaOf(catalog)}
}

// Team finds matches and score events involving name, using the same
// keyword matching that links providers.
func (s *CatalogService) Team(ctx context.Context, name string) (TeamView, error) {
	name = strings.TrimSpace(name)
	keywords := TeamKeywords(name)
	if len(keywords) == 0 {
		return TeamView{}, fmt.Errorf("%w: team name is too short", ErrInvalidInput)
	}

	catalog := s.catalog.Current(ctx)
	view := TeamView{Name: name, Meta: metaOf(catalog)}

	matches := make([]match.Match, 0)
	for _, m := range catalog.Matches {
		switch {
		case teamMentions(m.Teams.Home.Name, keywords):
			if view.Badge == "" {
				view.Badge = m.Teams.Home.Badge
			}
		case teamMentions(m.Teams.Away.Name, keywords):
			if view.Badge == "" {
				view.Badge = m.Teams.Away.Badge
			}
		default:
			continue
		}
		matches = append(matches, m)
	}
	view.Matches = s.views(matches)

	for _, ev := range catalog.Events {
		if teamMentions(ev.HomeTeam, keywords) || teamMentions(ev.AwayTeam, keywords) {
			view.Events = append(view.Events, ev)
		}
	}
	if len(view.Matches) == 0 && len(view.Events) == 0 {
		return view, fmt.Errorf("%w: team %s", ErrNotFound, name)
	}
	return view, nil
}

func (s *CatalogService) Channels(ctx context.Context, country string) ChannelList {
	catalog := s.catalog.Current(ctx)
	return ChannelList{Items: channel.FilterByCountry(catalog.Channels, country), Meta: metaOf(catalog)}
}

// teamMentions requires every keyword of the query to appear in team.
func teamMentions(team string, keywords []string) bool {
	normalized := normalizeTeamName(team)
	if normalized == "" {
		return false
	}
	for _, kw := range keywords {
		if !strings.Contains(normalized, kw) {
			return false
		}
	}
	return true
}

func filterByCategory(matches []match.Match, category string) []match.Match {
	out := make([]match.Match, 0, len(matches))
	for _, m := range matches {
		if m.Category == category {
			out = append(out, m)
		}
	}
	return out
}
