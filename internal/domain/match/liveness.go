package match

import (
	"strings"
	"time"
)

// DefaultLiveWindow applies to sports without a table entry.
const DefaultLiveWindow = 3 * time.Hour

// WindowTable maps a canonical sport to how long after kickoff an event is
// considered live.
type WindowTable struct {
	windows  map[string]time.Duration
	fallback time.Duration
}

func NewWindowTable(windows map[string]time.Duration, fallback time.Duration) WindowTable {
	if fallback <= 0 {
		fallback = DefaultLiveWindow
	}
	table := WindowTable{windows: make(map[string]time.Duration, len(windows)), fallback: fallback}
	for sport, window := range windows {
		if window > 0 {
			table.windows[NormalizeSport(sport)] = window
		}
	}
	return table
}

func DefaultWindows() map[string]time.Duration {
	return map[string]time.Duration{
		SportFootball:         150 * time.Minute,
		SportCricket:          6 * time.Hour,
		SportBasketball:       3 * time.Hour,
		SportFight:            5 * time.Hour,
		SportMotorSports:      150 * time.Minute,
		SportAmericanFootball: 210 * time.Minute,
		SportBaseball:         210 * time.Minute,
		SportHockey:           3 * time.Hour,
		SportRugby:            2 * time.Hour,
		SportTennis:           4 * time.Hour,
		SportGolf:             10 * time.Hour,
	}
}

func DefaultWindowTable() WindowTable {
	return NewWindowTable(DefaultWindows(), DefaultLiveWindow)
}

// IsZero reports whether t was never built with NewWindowTable.
func (t WindowTable) IsZero() bool {
	return t.windows == nil && t.fallback == 0
}

func (t WindowTable) Window(sport string) time.Duration {
	if w, ok := t.windows[NormalizeSport(sport)]; ok {
		return w
	}
	if t.fallback <= 0 {
		return DefaultLiveWindow
	}
	return t.fallback
}

// InWindow reports start <= now <= start+window.
func InWindow(start time.Time, window time.Duration, now time.Time) bool {
	if start.IsZero() {
		return false
	}
	return !now.Before(start) && !now.After(start.Add(window))
}

// Classifier decides liveness per query. It holds no per-match state.
type Classifier struct {
	Windows WindowTable
}

func NewClassifier(windows WindowTable) Classifier {
	return Classifier{Windows: windows}
}

// IsLive applies the sport window, then lets an explicit "ended" signal from
// the secondary provider narrow the result. Without secondary data the window
// alone decides.
func (c Classifier) IsLive(m Match, now time.Time) bool {
	if !InWindow(m.StartTime, c.Windows.Window(m.Category), now) {
		return false
	}
	if IsEndedSignal(m.Progress) || IsEndedSignal(m.Status) {
		return false
	}
	return true
}

var endedSignals = stringSet(
	"ft", "full time", "full-time", "fulltime",
	"finished", "match finished", "final", "ended", "end", "game over",
	"aet", "after extra time", "after penalties", "ap", "pen",
	"postponed", "cancelled", "canceled", "abandoned", "suspended",
	"walkover", "retired", "result",
)

// IsEndedSignal reports whether a provider progress/status string says the
// event is over or will not take place.
func IsEndedSignal(progress string) bool {
	key := strings.ToLower(strings.TrimSpace(progress))
	if key == "" {
		return false
	}
	if _, ok := endedSignals[key]; ok {
		return true
	}
	return strings.HasPrefix(key, "final") || strings.Contains(key, " won by ")
}
