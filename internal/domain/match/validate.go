package match

import "strings"

var placeholderTeamNames = stringSet(
	"tbd", "tba", "tbc",
	"to be decided", "to be announced", "to be confirmed",
	"team 1", "team 2", "team a", "team b",
	"home", "away", "home team", "away team",
	"unknown", "n/a", "na", "null", "undefined", "none",
	"vs", "winner", "loser",
)

// ValidTeamName rejects empty, one-character and placeholder names.
func ValidTeamName(name string) bool {
	trimmed := strings.TrimSpace(name)
	if len([]rune(trimmed)) < 2 {
		return false
	}
	key := strings.Join(strings.Fields(strings.ToLower(trimmed)), " ")
	_, placeholder := placeholderTeamNames[key]
	return !placeholder
}

func stringSet(values ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(values))
	for _, v := range values {
		out[v] = struct{}{}
	}
	return out
}
