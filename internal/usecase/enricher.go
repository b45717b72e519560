package usecase

import (
	"strings"
	"time"

	"github.com/riskibarqy/streamhub/internal/domain/channel"
	"github.com/riskibarqy/streamhub/internal/domain/livescore"
	"github.com/riskibarqy/streamhub/internal/domain/match"
)

// ChannelSourceProvider is the provider name used for sources attached from
// the channel directory.
const ChannelSourceProvider = "channel"

// Weights are the priority score components. They are recomputed into every
// catalog cycle and never persisted.
type Weights struct {
	Live           int
	Popular        int
	Recognized     int
	TopLeague      int
	Poster         int
	ManySources    int
	ManySourcesMin int
	SportTiers     map[string]int
	TopLeagues     []string
}

func DefaultWeights() Weights {
	tiers := make(map[string]int)
	tiers[match.SportFootball] = 30
	tiers[match.SportBasketball] = 20
	tiers[match.SportCricket] = 20
	tiers[match.SportAmericanFootball] = 15
	tiers[match.SportHockey] = 10
	tiers[match.SportTennis] = 10
	tiers[match.SportFight] = 10
	tiers[match.SportMotorSports] = 10
	tiers[match.SportBaseball] = 5

	return Weights{
		Live:           100,
		Popular:        50,
		Recognized:     25,
		TopLeague:      40,
		Poster:         10,
		ManySources:    15,
		ManySourcesMin: 3,
		SportTiers:     tiers,
		TopLeagues: []string{
			"premier league", "champions league", "europa league", "la liga", "laliga",
			"serie a", "bundesliga", "ligue 1", "world cup", "euro 20", "copa america",
			"nba", "nfl", "nhl", "mlb", "ipl", "ufc", "formula 1",
		},
	}
}

// Enrich merges a matched secondary-provider event into m. Primary values
// win for badges; score, progress and broadcaster follow the event.
func Enrich(m match.Match, ev livescore.Event) match.Match {
	if m.Teams.Home.Badge == "" {
		m.Teams.Home.Badge = strings.TrimSpace(ev.HomeBadge)
	}
	if m.Teams.Away.Badge == "" {
		m.Teams.Away.Badge = strings.TrimSpace(ev.AwayBadge)
	}
	if ev.HasScore() {
		m.Score = &match.Score{Home: *ev.HomeScore, Away: *ev.AwayScore}
	}
	if v := strings.TrimSpace(ev.Progress); v != "" {
		m.Progress = v
	}
	if v := strings.TrimSpace(ev.Status); v != "" {
		m.Status = v
	}
	if v := strings.TrimSpace(ev.Broadcaster); v != "" {
		m.Broadcaster = v
	}
	if v := strings.TrimSpace(ev.League); v != "" {
		m.Tournament = v
	}
	m.Recognized = true
	return m
}

// AttachChannels adds a source for every directory channel named in the
// match broadcaster field.
func AttachChannels(m match.Match, channels []channel.Channel) match.Match {
	if strings.TrimSpace(m.Broadcaster) == "" || len(channels) == 0 {
		return m
	}
	wanted := make(map[string]struct{})
	for _, name := range splitBroadcasters(m.Broadcaster) {
		if slug := channel.Slugify(name); slug != "" {
			wanted[slug] = struct{}{}
		}
	}

	m.Sources = append([]match.Source(nil), m.Sources...)
	for _, c := range channels {
		slug := c.Slug()
		if _, ok := wanted[slug]; !ok {
			continue
		}
		m.AddSource(match.Source{Provider: ChannelSourceProvider, ID: slug})
	}
	return m
}

func splitBroadcasters(value string) []string {
	return strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == '/' || r == ';' || r == '|' || r == '&'
	})
}

// PriorityScore is the weighted sum used to rank the catalog.
func PriorityScore(m match.Match, now time.Time, classifier match.Classifier, w Weights) int {
	score := w.SportTiers[m.Category]
	if classifier.IsLive(m, now) {
		score += w.Live
	}
	if m.Popular {
		score += w.Popular
	}
	if m.Recognized {
		score += w.Recognized
	}
	if isTopLeague(m, w.TopLeagues) {
		score += w.TopLeague
	}
	if m.Poster != "" {
		score += w.Poster
	}
	if w.ManySourcesMin > 0 && len(m.Sources) >= w.ManySourcesMin {
		score += w.ManySources
	}
	return score
}

func isTopLeague(m match.Match, leagues []string) bool {
	haystack := strings.ToLower(m.Tournament + " " + m.Title)
	if strings.TrimSpace(haystack) == "" {
		return false
	}
	for _, league := range leagues {
		league = strings.ToLower(strings.TrimSpace(league))
		if league != "" && strings.Contains(haystack, league) {
			return true
		}
	}
	return false
}
