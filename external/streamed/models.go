package streamed

import (
	"strconv"
	"strings"
)

type rawSport struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type rawTeam struct {
	Name  string `json:"name"`
	Badge string `json:"badge"`
}

type rawTeams struct {
	Home *rawTeam `json:"home"`
	Away *rawTeam `json:"away"`
}

type rawSource struct {
	Source string `json:"source"`
	ID     string `json:"id"`
}

type rawMatch struct {
	ID       string      `json:"id"`
	Title    string      `json:"title"`
	Category string      `json:"category"`
	Date     epochNumber `json:"date"`
	Poster   string      `json:"poster"`
	Popular  bool        `json:"popular"`
	Teams    *rawTeams   `json:"teams"`
	Sources  []rawSource `json:"sources"`
}

type rawStream struct {
	ID       string `json:"id"`
	StreamNo int    `json:"streamNo"`
	Language string `json:"language"`
	HD       bool   `json:"hd"`
	EmbedURL string `json:"embedUrl"`
	Source   string `json:"source"`
	Viewers  int    `json:"viewers"`
}

// epochNumber accepts a JSON number or numeric string. The provider has sent
// both over time.
type epochNumber int64

func (n *epochNumber) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if s == "" || s == "null" {
		*n = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*n = epochNumber(f)
	return nil
}
