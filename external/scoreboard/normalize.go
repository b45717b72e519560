package scoreboard

import (
	"strings"

	"github.com/riskibarqy/streamhub/internal/domain/livescore"
	"github.com/riskibarqy/streamhub/internal/domain/match"
)

// NormalizeEvent maps one record from the sport partition. Records with a
// missing or placeholder team name are rejected.
func NormalizeEvent(sport string, raw rawEvent) (livescore.Event, bool) {
	home := strings.TrimSpace(raw.HomeTeam)
	away := strings.TrimSpace(raw.AwayTeam)
	if !match.ValidTeamName(home) || !match.ValidTeamName(away) {
		return livescore.Event{}, false
	}

	return livescore.Event{
		Sport:       match.NormalizeSport(sport),
		HomeTeam:    home,
		AwayTeam:    away,
		HomeBadge:   strings.TrimSpace(raw.HomeBadge),
		AwayBadge:   strings.TrimSpace(raw.AwayBadge),
		HomeScore:   raw.HomeScore.Value,
		AwayScore:   raw.AwayScore.Value,
		Progress:    strings.TrimSpace(raw.Progress),
		Status:      strings.TrimSpace(raw.Status),
		League:      strings.TrimSpace(raw.League),
		Broadcaster: strings.TrimSpace(raw.Broadcaster),
		StartTime:   raw.StartTime.Time,
	}, true
}
