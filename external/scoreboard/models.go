package scoreboard

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type rawEvent struct {
	HomeTeam    string        `json:"homeTeam"`
	AwayTeam    string        `json:"awayTeam"`
	HomeBadge   string        `json:"homeBadge"`
	AwayBadge   string        `json:"awayBadge"`
	HomeScore   optionalScore `json:"homeScore"`
	AwayScore   optionalScore `json:"awayScore"`
	Progress    string        `json:"progress"`
	Status      string        `json:"status"`
	League      string        `json:"league"`
	Broadcaster string        `json:"broadcaster"`
	StartTime   flexibleTime  `json:"startTime"`
}

// optionalScore distinguishes "not reported" from zero and accepts numbers,
// numeric strings, and "-" placeholders.
type optionalScore struct {
	Value *int
}

func (s *optionalScore) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return fmt.Errorf("score must be a scalar, got %s", trimmed)
	}
	v := strings.Trim(trimmed, `"`)
	if v == "" || v == "null" || v == "-" {
		s.Value = nil
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		f, ferr := strconv.ParseFloat(v, 64)
		if ferr != nil {
			// Scores like "245/6" (cricket) are not numeric; treat as absent.
			s.Value = nil
			return nil
		}
		n = int(f)
	}
	s.Value = &n
	return nil
}

// flexibleTime accepts RFC 3339 strings and epoch seconds or milliseconds.
type flexibleTime struct {
	time.Time
}

func (t *flexibleTime) UnmarshalJSON(data []byte) error {
	v := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if v == "" || v == "null" {
		t.Time = time.Time{}
		return nil
	}
	if n, err := strconv.ParseInt(v, 10, 64); err == nil {
		if n >= 100_000_000_000 {
			t.Time = time.UnixMilli(n).UTC()
		} else if n > 0 {
			t.Time = time.Unix(n, 0).UTC()
		}
		return nil
	}
	parsed, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return err
	}
	t.Time = parsed.UTC()
	return nil
}
