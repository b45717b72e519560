package usecase

import (
	"strings"
	"unicode"

	"github.com/riskibarqy/streamhub/internal/domain/livescore"
	"github.com/riskibarqy/streamhub/internal/domain/match"
)

const (
	// DefaultMatchThreshold is the minimum keyword score for two fixtures to
	// be treated as the same event.
	DefaultMatchThreshold = 4

	exactMatchScore    = 100
	minKeywordLength   = 3
	sameSideWeight     = 2
	oppositeSideWeight = 1
)

var genericTeamTokens = map[string]struct{}{}

func init() {
	for _, token := range []string{
		"fc", "afc", "cf", "sc", "ac", "fk", "sk", "sv", "cd", "ud",
		"united", "utd", "city", "real", "club", "town", "the",
		"athletic", "sporting", "deportivo", "calcio",
	} {
		genericTeamTokens[token] = struct{}{}
	}
}

// normalizeTeamName lower-cases name and keeps only letters and digits.
func normalizeTeamName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func teamTokens(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// TeamKeywords returns the distinctive tokens of a team name. Generic club
// words are dropped unless nothing else would remain.
func TeamKeywords(name string) []string {
	tokens := teamTokens(name)
	keywords := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if len([]rune(token)) < minKeywordLength {
			continue
		}
		if _, generic := genericTeamTokens[token]; generic {
			continue
		}
		keywords = append(keywords, token)
	}
	if len(keywords) > 0 {
		return keywords
	}
	for _, token := range tokens {
		if len([]rune(token)) >= minKeywordLength {
			keywords = append(keywords, token)
		}
	}
	return keywords
}

// TeamMatchScore scores how likely a and b describe the same fixture. Each
// keyword of one side found in the same side of the other record scores 2,
// found in the opposite side scores 1. Both directions are tried and the
// higher result is kept. Identical normalized pairs score exactMatchScore.
func TeamMatchScore(a, b match.Teams) int {
	aHome, aAway := normalizeTeamName(a.Home.Name), normalizeTeamName(a.Away.Name)
	bHome, bAway := normalizeTeamName(b.Home.Name), normalizeTeamName(b.Away.Name)
	if aHome == "" || aAway == "" || bHome == "" || bAway == "" {
		return 0
	}
	if aHome == bHome && aAway == bAway {
		return exactMatchScore
	}
	return max(directedScore(a, bHome, bAway), directedScore(b, aHome, aAway))
}

func directedScore(from match.Teams, home, away string) int {
	score := 0
	for _, kw := range TeamKeywords(from.Home.Name) {
		switch {
		case strings.Contains(home, kw):
			score += sameSideWeight
		case strings.Contains(away, kw):
			score += oppositeSideWeight
		}
	}
	for _, kw := range TeamKeywords(from.Away.Name) {
		switch {
		case strings.Contains(away, kw):
			score += sameSideWeight
		case strings.Contains(home, kw):
			score += oppositeSideWeight
		}
	}
	return score
}

// TeamMatcher pairs canonical matches with secondary-provider events.
type TeamMatcher struct {
	Threshold int
}

func NewTeamMatcher(threshold int) TeamMatcher {
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}
	return TeamMatcher{Threshold: threshold}
}

// FindBestEvent returns the highest scoring event at or above the threshold.
// Ties go to the most recently dated candidate, then to the earlier entry.
func (tm TeamMatcher) FindBestEvent(m match.Match, events []livescore.Event) (livescore.Event, bool) {
	threshold := tm.Threshold
	if threshold <= 0 {
		threshold = DefaultMatchThreshold
	}

	bestIdx, bestScore := -1, 0
	for i, ev := range events {
		if !sportsCompatible(m.Category, ev.Sport) {
			continue
		}
		score := TeamMatchScore(m.Teams, eventTeams(ev))
		if score < threshold {
			continue
		}
		if bestIdx < 0 || score > bestScore ||
			(score == bestScore && ev.StartTime.After(events[bestIdx].StartTime)) {
			bestIdx, bestScore = i, score
		}
	}
	if bestIdx < 0 {
		return livescore.Event{}, false
	}
	return events[bestIdx], true
}

// FindBestEvent uses the default threshold.
func FindBestEvent(m match.Match, events []livescore.Event) (livescore.Event, bool) {
	return NewTeamMatcher(DefaultMatchThreshold).FindBestEvent(m, events)
}

func eventTeams(ev livescore.Event) match.Teams {
	return match.Teams{
		Home: match.Team{Name: ev.HomeTeam, Badge: ev.HomeBadge},
		Away: match.Team{Name: ev.AwayTeam, Badge: ev.AwayBadge},
	}
}

// sportsCompatible treats an unknown category on either side as a wildcard.
func sportsCompatible(a, b string) bool {
	if a == "" || b == "" || a == match.SportOther || b == match.SportOther {
		return true
	}
	return match.NormalizeSport(a) == match.NormalizeSport(b)
}
