package app

import (
	"github.com/riskibarqy/streamhub/internal/config"
	"github.com/riskibarqy/streamhub/internal/domain/match"
	"github.com/riskibarqy/streamhub/internal/usecase"
)

// classifierFromTuning layers the tuning windows over the compiled defaults.
func classifierFromTuning(t config.Tuning) match.Classifier {
	windows := match.DefaultWindows()
	for sport, window := range t.LiveWindows {
		windows[match.NormalizeSport(sport)] = window
	}
	fallback := match.DefaultLiveWindow
	if t.DefaultWindow > 0 {
		fallback = t.DefaultWindow
	}
	return match.NewClassifier(match.NewWindowTable(windows, fallback))
}

func weightsFromTuning(t config.Tuning) usecase.Weights {
	w := usecase.DefaultWeights()
	override := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	override(&w.Live, t.Weights.Live)
	override(&w.Popular, t.Weights.Popular)
	override(&w.Recognized, t.Weights.Recognized)
	override(&w.TopLeague, t.Weights.TopLeague)
	override(&w.Poster, t.Weights.Poster)
	override(&w.ManySources, t.Weights.ManySources)
	override(&w.ManySourcesMin, t.Weights.ManySourcesMin)

	for sport, tier := range t.SportTiers {
		w.SportTiers[match.NormalizeSport(sport)] = tier
	}
	if len(t.TopLeagues) > 0 {
		w.TopLeagues = append([]string(nil), t.TopLeagues...)
	}
	return w
}
