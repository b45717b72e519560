package streamed

import (
	"strings"
	"time"

	"github.com/riskibarqy/streamhub/internal/domain/match"
	"github.com/riskibarqy/streamhub/internal/domain/stream"
)

// Values below this are epoch seconds, above it epoch milliseconds.
const epochMillisThreshold = 100_000_000_000

// NormalizeMatch maps a provider record to a canonical match. It reports false
// when either team name is missing or a placeholder, or when no usable source
// remains after de-duplication.
func NormalizeMatch(raw rawMatch, assetBase string) (match.Match, bool) {
	id := strings.TrimSpace(raw.ID)
	if id == "" || raw.Teams == nil || raw.Teams.Home == nil || raw.Teams.Away == nil {
		return match.Match{}, false
	}

	home := strings.TrimSpace(raw.Teams.Home.Name)
	away := strings.TrimSpace(raw.Teams.Away.Name)
	if !match.ValidTeamName(home) || !match.ValidTeamName(away) {
		return match.Match{}, false
	}

	sources := make([]match.Source, 0, len(raw.Sources))
	for _, s := range raw.Sources {
		sources = append(sources, match.Source{Provider: s.Source, ID: s.ID})
	}
	sources = match.DedupeSources(sources)
	if len(sources) == 0 {
		return match.Match{}, false
	}

	title := strings.TrimSpace(raw.Title)
	if title == "" {
		title = home + " vs " + away
	}

	return match.Match{
		ID:        id,
		Title:     title,
		Category:  match.NormalizeSport(raw.Category),
		StartTime: epochToTime(int64(raw.Date)),
		Teams: match.Teams{
			Home: match.Team{Name: home, Badge: badgeURL(assetBase, raw.Teams.Home.Badge)},
			Away: match.Team{Name: away, Badge: badgeURL(assetBase, raw.Teams.Away.Badge)},
		},
		Sources: sources,
		Poster:  assetURL(assetBase, raw.Poster),
		Popular: raw.Popular,
	}, true
}

func NormalizeSport(raw rawSport) (match.Sport, bool) {
	id := strings.TrimSpace(raw.ID)
	if id == "" {
		return match.Sport{}, false
	}
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		name = id
	}
	return match.Sport{ID: id, Name: name}, true
}

func NormalizeStream(raw rawStream) (stream.Stream, bool) {
	embed := strings.TrimSpace(raw.EmbedURL)
	if embed == "" {
		return stream.Stream{}, false
	}
	viewers := raw.Viewers
	if viewers < 0 {
		viewers = 0
	}
	return stream.Stream{
		ID:       strings.TrimSpace(raw.ID),
		StreamNo: raw.StreamNo,
		Language: strings.TrimSpace(raw.Language),
		HD:       raw.HD,
		EmbedURL: embed,
		Source:   strings.TrimSpace(raw.Source),
		Viewers:  viewers,
	}, true
}

func epochToTime(v int64) time.Time {
	switch {
	case v <= 0:
		return time.Time{}
	case v < epochMillisThreshold:
		return time.Unix(v, 0).UTC()
	default:
		return time.UnixMilli(v).UTC()
	}
}

// badgeURL expands a bare badge id into the provider's image path.
func badgeURL(assetBase, badge string) string {
	badge = strings.TrimSpace(badge)
	if badge == "" || strings.Contains(badge, "/") {
		return assetURL(assetBase, badge)
	}
	return assetBase + "/api/images/badge/" + badge + ".webp"
}

func assetURL(assetBase, path string) string {
	path = strings.TrimSpace(path)
	switch {
	case path == "":
		return ""
	case strings.HasPrefix(path, "http://"), strings.HasPrefix(path, "https://"):
		return path
	case strings.HasPrefix(path, "//"):
		return "https:" + path
	case strings.HasPrefix(path, "/"):
		return assetBase + path
	default:
		return assetBase + "/" + path
	}
}

// mergeDuplicates folds records sharing an id. The first record wins for
// scalar fields; sources are unioned and the popular flag is OR-ed.
func mergeDuplicates(in []match.Match) []match.Match {
	out := make([]match.Match, 0, len(in))
	index := make(map[string]int, len(in))
	for _, m := range in {
		if i, ok := index[m.ID]; ok {
			for _, s := range m.Sources {
				out[i].AddSource(s)
			}
			out[i].Popular = out[i].Popular || m.Popular
			if out[i].Poster == "" {
				out[i].Poster = m.Poster
			}
			continue
		}
		index[m.ID] = len(out)
		out = append(out, m)
	}
	return out
}
