package channel

import (
	"strings"
	"unicode"
)

// Channel is one entry of the TV channel directory.
type Channel struct {
	Name        string
	CountryCode string
	URL         string
	Image       string
	Viewers     int
}

// Slug is the stable identifier used when a channel is attached to a match
// as a source.
func (c Channel) Slug() string {
	return Slugify(c.Name)
}

// Slugify lower-cases s and joins its alphanumeric runs with '-'.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	return b.String()
}

// FilterByCountry matches the ISO country code case-insensitively.
func FilterByCountry(channels []Channel, country string) []Channel {
	country = strings.TrimSpace(country)
	if country == "" {
		return channels
	}
	out := make([]Channel, 0, len(channels))
	for _, c := range channels {
		if strings.EqualFold(c.CountryCode, country) {
			out = append(out, c)
		}
	}
	return out
}
