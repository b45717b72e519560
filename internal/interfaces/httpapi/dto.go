package httpapi

import (
	"time"

	"github.com/riskibarqy/streamhub/internal/domain/channel"
	"github.com/riskibarqy/streamhub/internal/domain/livescore"
	"github.com/riskibarqy/streamhub/internal/domain/match"
	"github.com/riskibarqy/streamhub/internal/domain/stream"
	"github.com/riskibarqy/streamhub/internal/usecase"
)

type metaDTO struct {
	GeneratedAt *time.Time        `json:"generatedAt,omitempty"`
	Cached      bool              `json:"cached"`
	Stale       bool              `json:"stale"`
	Providers   map[string]string `json:"providers,omitempty"`
}

type teamDTO struct {
	Name  string `json:"name"`
	Badge string `json:"badge,omitempty"`
}

type teamsDTO struct {
	Home teamDTO `json:"home"`
	Away teamDTO `json:"away"`
}

type sourceDTO struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

type scoreDTO struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

type matchDTO struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Category      string      `json:"category"`
	Date          int64       `json:"date"`
	StartTime     time.Time   `json:"startTime"`
	Live          bool        `json:"live"`
	Popular       bool        `json:"popular"`
	Poster        string      `json:"poster,omitempty"`
	Teams         teamsDTO    `json:"teams"`
	Sources       []sourceDTO `json:"sources"`
	PriorityScore int         `json:"priorityScore"`
	Score         *scoreDTO   `json:"score,omitempty"`
	Progress      string      `json:"progress,omitempty"`
	Status        string      `json:"status,omitempty"`
	Broadcaster   string      `json:"broadcaster,omitempty"`
	Tournament    string      `json:"tournament,omitempty"`
	Recognized    bool        `json:"recognized"`
}

type matchPageDTO struct {
	Items []matchDTO `json:"items"`
	Total int        `json:"total"`
	Page  int        `json:"page"`
	Limit int        `json:"limit"`
}

type streamDTO struct {
	ID          string `json:"id"`
	StreamNo    int    `json:"streamNo"`
	Language    string `json:"language,omitempty"`
	HD          bool   `json:"hd"`
	Source      string `json:"source"`
	EmbedURL    string `json:"embedUrl"`
	ResolvedURL string `json:"resolvedUrl"`
	Kind        string `json:"kind"`
	Viewers     int    `json:"viewers"`
}

type matchDetailDTO struct {
	Match   matchDTO    `json:"match"`
	Streams []streamDTO `json:"streams"`
}

type sportDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type eventDTO struct {
	Sport       string    `json:"sport"`
	HomeTeam    string    `json:"homeTeam"`
	AwayTeam    string    `json:"awayTeam"`
	HomeBadge   string    `json:"homeBadge,omitempty"`
	AwayBadge   string    `json:"awayBadge,omitempty"`
	HomeScore   *int      `json:"homeScore,omitempty"`
	AwayScore   *int      `json:"awayScore,omitempty"`
	Progress    string    `json:"progress,omitempty"`
	Status      string    `json:"status,omitempty"`
	League      string    `json:"league,omitempty"`
	Broadcaster string    `json:"broadcaster,omitempty"`
	StartTime   time.Time `json:"startTime"`
}

type channelDTO struct {
	Slug        string `json:"slug"`
	Name        string `json:"name"`
	CountryCode string `json:"countryCode"`
	URL         string `json:"url"`
	Image       string `json:"image,omitempty"`
	Viewers     int    `json:"viewers"`
}

type teamViewDTO struct {
	Name    string     `json:"name"`
	Badge   string     `json:"badge,omitempty"`
	Matches []matchDTO `json:"matches"`
	Events  []eventDTO `json:"events"`
}

type viewersDTO struct {
	MatchID string         `json:"matchId"`
	Total   *int           `json:"total"`
	Sources map[string]int `json:"sources"`
	Active  int            `json:"active"`
}

type heartbeatRequest struct {
	SessionID string `json:"sessionId" validate:"required,max=128"`
}

type heartbeatDTO struct {
	MatchID string `json:"matchId"`
	Active  int    `json:"active"`
}

type listMatchesQuery struct {
	Page  int    `validate:"gte=0"`
	Limit int    `validate:"gte=0"`
	Sport string `validate:"max=64"`
}

func metaToDTO(meta usecase.CatalogMeta) metaDTO {
	out := metaDTO{Cached: meta.Cached, Stale: meta.Stale}
	if !meta.GeneratedAt.IsZero() {
		at := meta.GeneratedAt.UTC()
		out.GeneratedAt = &at
	}
	if len(meta.Providers) > 0 {
		out.Providers = make(map[string]string, len(meta.Providers))
		for _, p := range meta.Providers {
			if p.OK {
				out.Providers[p.Name] = "ok"
			} else {
				out.Providers[p.Name] = "error"
			}
		}
	}
	return out
}

func matchToDTO(v usecase.MatchView) matchDTO {
	out := matchDTO{
		ID:            v.ID,
		Title:         v.Title,
		Category:      v.Category,
		Date:          v.StartTime.UnixMilli(),
		StartTime:     v.StartTime.UTC(),
		Live:          v.Live,
		Popular:       v.Popular,
		Poster:        v.Poster,
		Teams:         teamsDTO{Home: teamDTO(v.Teams.Home), Away: teamDTO(v.Teams.Away)},
		Sources:       make([]sourceDTO, 0, len(v.Sources)),
		PriorityScore: v.PriorityScore,
		Progress:      v.Progress,
		Status:        v.Status,
		Broadcaster:   v.Broadcaster,
		Tournament:    v.Tournament,
		Recognized:    v.Recognized,
	}
	for _, s := range v.Sources {
		out.Sources = append(out.Sources, sourceDTO{Source: s.Provider, ID: s.ID})
	}
	if v.Score != nil {
		out.Score = &scoreDTO{Home: v.Score.Home, Away: v.Score.Away}
	}
	return out
}

func matchesToDTO(items []usecase.MatchView) []matchDTO {
	out := make([]matchDTO, 0, len(items))
	for _, item := range items {
		out = append(out, matchToDTO(item))
	}
	return out
}

func streamToDTO(s usecase.ResolvedStream) streamDTO {
	kind := s.Resolution.Kind
	if kind == "" {
		kind = stream.KindUnresolved
	}
	return streamDTO{
		ID:          s.ID,
		StreamNo:    s.StreamNo,
		Language:    s.Language,
		HD:          s.HD,
		Source:      s.Source,
		EmbedURL:    s.EmbedURL,
		ResolvedURL: s.Resolution.ResolvedURL,
		Kind:        string(kind),
		Viewers:     s.Viewers,
	}
}

func streamsToDTO(items []usecase.ResolvedStream) []streamDTO {
	out := make([]streamDTO, 0, len(items))
	for _, item := range items {
		out = append(out, streamToDTO(item))
	}
	return out
}

func sportsToDTO(items []match.Sport) []sportDTO {
	out := make([]sportDTO, 0, len(items))
	for _, s := range items {
		out = append(out, sportDTO{ID: s.ID, Name: s.Name})
	}
	return out
}

func eventsToDTO(items []livescore.Event) []eventDTO {
	out := make([]eventDTO, 0, len(items))
	for _, e := range items {
		out = append(out, eventDTO{
			Sport:       e.Sport,
			HomeTeam:    e.HomeTeam,
			AwayTeam:    e.AwayTeam,
			HomeBadge:   e.HomeBadge,
			AwayBadge:   e.AwayBadge,
			HomeScore:   e.HomeScore,
			AwayScore:   e.AwayScore,
			Progress:    e.Progress,
			Status:      e.Status,
			League:      e.League,
			Broadcaster: e.Broadcaster,
			StartTime:   e.StartTime,
		})
	}
	return out
}

func channelsToDTO(items []channel.Channel) []channelDTO {
	out := make([]channelDTO, 0, len(items))
	for _, c := range items {
		out = append(out, channelDTO{
			Slug:        c.Slug(),
			Name:        c.Name,
			CountryCode: c.CountryCode,
			URL:         c.URL,
			Image:       c.Image,
			Viewers:     c.Viewers,
		})
	}
	return out
}
