package match

import (
	"strings"
	"time"
)

// Canonical sport categories. Provider-specific spellings are folded into
// these by NormalizeSport.
const (
	SportFootball         = "football"
	SportBasketball       = "basketball"
	SportAmericanFootball = "american-football"
	SportHockey           = "hockey"
	SportBaseball         = "baseball"
	SportCricket          = "cricket"
	SportTennis           = "tennis"
	SportRugby            = "rugby"
	SportFight            = "fight"
	SportMotorSports      = "motor-sports"
	SportGolf             = "golf"
	SportDarts            = "darts"
	SportAFL              = "afl"
	SportOther            = "other"
)

// Team is one side of a fixture.
type Team struct {
	Name  string
	Badge string
}

type Teams struct {
	Home Team
	Away Team
}

// Source names one playable endpoint for a match.
type Source struct {
	Provider string
	ID       string
}

func (s Source) Key() string {
	return s.Provider + "/" + s.ID
}

type Score struct {
	Home int
	Away int
}

// Match is the canonical, merged view of one real-world event. Liveness is
// never stored here; it is derived by Classifier at read time.
type Match struct {
	ID            string
	Title         string
	Category      string
	StartTime     time.Time
	Teams         Teams
	Sources       []Source
	Poster        string
	Popular       bool
	PriorityScore int
	Score         *Score
	Progress      string
	Status        string
	Broadcaster   string
	Tournament    string
	// Recognized is set when a secondary provider record was merged in.
	Recognized bool
}

// Sport is a category entry from the primary provider.
type Sport struct {
	ID   string
	Name string
}

// AddSource appends s unless the (provider, id) pair is already present or
// either half is empty. It reports whether the source was added.
func (m *Match) AddSource(s Source) bool {
	s.Provider = strings.TrimSpace(s.Provider)
	s.ID = strings.TrimSpace(s.ID)
	if s.Provider == "" || s.ID == "" {
		return false
	}
	for _, existing := range m.Sources {
		if existing == s {
			return false
		}
	}
	m.Sources = append(m.Sources, s)
	return true
}

// DedupeSources keeps the first occurrence of every (provider, id) pair and
// drops incomplete entries, preserving order.
func DedupeSources(in []Source) []Source {
	if len(in) == 0 {
		return nil
	}
	m := Match{Sources: make([]Source, 0, len(in))}
	for _, s := range in {
		m.AddSource(s)
	}
	return m.Sources
}

// HasSource reports whether the match carries the given source.
func (m Match) HasSource(provider, id string) bool {
	for _, s := range m.Sources {
		if s.Provider == provider && s.ID == id {
			return true
		}
	}
	return false
}

var sportAliases = map[string][]string{
	SportFootball:         {"soccer", "football"},
	SportBasketball:       {"basketball", "nba"},
	SportAmericanFootball: {"american-football", "american football", "nfl"},
	SportHockey:           {"hockey", "ice-hockey", "ice hockey", "nhl"},
	SportBaseball:         {"baseball", "mlb"},
	SportCricket:          {"cricket"},
	SportTennis:           {"tennis"},
	SportRugby:            {"rugby", "rugby-union", "rugby-league"},
	SportFight:            {"fight", "fighting", "mma", "ufc", "boxing", "wrestling"},
	SportMotorSports:      {"motor-sports", "motorsport", "motorsports", "f1", "formula-1", "motogp", "nascar"},
	SportGolf:             {"golf"},
	SportDarts:            {"darts"},
	SportAFL:              {"afl", "aussie-rules"},
}

var sportByAlias = func() map[string]string {
	out := make(map[string]string)
	for sport, aliases := range sportAliases {
		for _, alias := range aliases {
			out[alias] = sport
		}
	}
	return out
}()

// NormalizeSport folds a provider category into a canonical sport. Unknown
// categories are returned lower-cased so they still group consistently.
func NormalizeSport(raw string) string {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return SportOther
	}
	if sport, ok := sportByAlias[key]; ok {
		return sport
	}
	if sport, ok := sportByAlias[strings.ReplaceAll(key, "_", "-")]; ok {
		return sport
	}
	return key
}
