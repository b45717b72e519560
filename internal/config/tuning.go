package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Tuning holds overrides for the catalog heuristics. Unset fields keep the
// compiled defaults of the match and usecase packages.
type Tuning struct {
	LiveWindows    map[string]time.Duration `yaml:"liveWindows"`
	DefaultWindow  time.Duration            `yaml:"defaultWindow"`
	SportTiers     map[string]int           `yaml:"sportTiers"`
	Weights        WeightOverrides          `yaml:"weights"`
	TopLeagues     []string                 `yaml:"topLeagues"`
	MatchThreshold int                      `yaml:"matchThreshold"`
}

type WeightOverrides struct {
	Live           *int `yaml:"live"`
	Popular        *int `yaml:"popular"`
	Recognized     *int `yaml:"recognized"`
	TopLeague      *int `yaml:"topLeague"`
	Poster         *int `yaml:"poster"`
	ManySources    *int `yaml:"manySources"`
	ManySourcesMin *int `yaml:"manySourcesMin"`
}

// LoadTuning reads a YAML tuning file. An empty path yields the zero Tuning.
func LoadTuning(path string) (Tuning, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Tuning{}, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("read TUNING_FILE %q: %w", path, err)
	}
	return ParseTuning(raw)
}

func ParseTuning(raw []byte) (Tuning, error) {
	var out Tuning
	if err := yaml.Unmarshal(raw, &out); err != nil {
		return Tuning{}, fmt.Errorf("parse tuning yaml: %w", err)
	}
	if err := out.validate(); err != nil {
		return Tuning{}, err
	}
	return out, nil
}

func (t Tuning) validate() error {
	for sport, window := range t.LiveWindows {
		if window <= 0 {
			return fmt.Errorf("tuning liveWindows.%s must be > 0", sport)
		}
	}
	if t.DefaultWindow < 0 {
		return fmt.Errorf("tuning defaultWindow must be >= 0")
	}
	if t.MatchThreshold < 0 {
		return fmt.Errorf("tuning matchThreshold must be >= 0")
	}
	if t.Weights.ManySourcesMin != nil && *t.Weights.ManySourcesMin < 1 {
		return fmt.Errorf("tuning weights.manySourcesMin must be >= 1")
	}
	return nil
}
