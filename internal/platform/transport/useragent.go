package transport

import "sync/atomic"

var defaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/128.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:130.0) Gecko/20100101 Firefox/130.0",
	"Mozilla/5.0 (iPhone; CPU iPhone OS 17_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.6 Mobile/15E148 Safari/604.1",
}

// UserAgents hands out user-agent strings round-robin.
type UserAgents struct {
	values []string
	next   atomic.Uint64
}

func NewUserAgents(values ...string) *UserAgents {
	if len(values) == 0 {
		values = defaultUserAgents
	}
	return &UserAgents{values: append([]string(nil), values...)}
}

func (u *UserAgents) Next() string {
	n := u.next.Add(1) - 1
	return u.values[n%uint64(len(u.values))]
}
