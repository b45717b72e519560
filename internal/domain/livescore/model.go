package livescore

import (
	"strings"
	"time"
)

// Event is one fixture from the live-score provider, already normalized.
// Scores are nil until the provider reports them.
type Event struct {
	Sport       string
	HomeTeam    string
	AwayTeam    string
	HomeBadge   string
	AwayBadge   string
	HomeScore   *int
	AwayScore   *int
	Progress    string
	Status      string
	League      string
	Broadcaster string
	StartTime   time.Time
}

func (e Event) HasScore() bool {
	return e.HomeScore != nil && e.AwayScore != nil
}

// InSport reports whether the event belongs to sport. Both sides are expected
// to be canonical sport names.
func (e Event) InSport(sport string) bool {
	return sport == "" || strings.EqualFold(e.Sport, sport)
}

// FilterBySport returns events for one sport; an empty sport returns all.
func FilterBySport(events []Event, sport string) []Event {
	if sport == "" {
		return events
	}
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if e.InSport(sport) {
			out = append(out, e)
		}
	}
	return out
}
