package config

import (
	"testing"
	"time"
)

func TestParseTuning(t *testing.T) {
	raw := []byte(`
defaultWindow: 2h
liveWindows:
  football: 140m
  cricket: 7h
sportTiers:
  football: 40
weights:
  live: 120
  manySourcesMin: 2
topLeagues:
  - premier league
  - serie a
matchThreshold: 5
`)

	got, err := ParseTuning(raw)
	if err != nil {
		t.Fatalf("parse tuning: %v", err)
	}
	if got.DefaultWindow != 2*time.Hour {
		t.Fatalf("unexpected DefaultWindow: %s", got.DefaultWindow)
	}
	if got.LiveWindows["football"] != 140*time.Minute || got.LiveWindows["cricket"] != 7*time.Hour {
		t.Fatalf("unexpected LiveWindows: %+v", got.LiveWindows)
	}
	if got.SportTiers["football"] != 40 {
		t.Fatalf("unexpected SportTiers: %+v", got.SportTiers)
	}
	if got.Weights.Live == nil || *got.Weights.Live != 120 {
		t.Fatalf("expected live weight override")
	}
	if got.Weights.Popular != nil {
		t.Fatalf("expected popular weight to stay unset")
	}
	if len(got.TopLeagues) != 2 || got.MatchThreshold != 5 {
		t.Fatalf("unexpected leagues/threshold: %+v %d", got.TopLeagues, got.MatchThreshold)
	}
}

func TestParseTuning_Rejects(t *testing.T) {
	cases := map[string]string{
		"negative window":   "liveWindows:\n  football: -5m\n",
		"bad duration":      "defaultWindow: later\n",
		"negative threshold": "matchThreshold: -1\n",
		"zero min sources":  "weights:\n  manySourcesMin: 0\n",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := ParseTuning([]byte(raw)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadTuning_EmptyPath(t *testing.T) {
	got, err := LoadTuning("  ")
	if err != nil {
		t.Fatalf("load tuning: %v", err)
	}
	if got.MatchThreshold != 0 || got.LiveWindows != nil {
		t.Fatalf("expected zero tuning, got %+v", got)
	}
}
