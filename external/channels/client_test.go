package channels

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/riskibarqy/streamhub/internal/platform/transport"
)

func TestClient_FetchChannels(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"name":"Sky Sports Main Event","countryCode":"gb","url":"https://tv.example/sky-main","viewers":40},
			{"name":"ESPN","countryCode":"US","url":"https://tv.example/espn","image":"https://img.example/espn.png","viewers":90},
			{"name":"Sky Sports Main Event","countryCode":"GB","url":"https://tv.example/sky-main-2"},
			{"name":"","countryCode":"US","url":"https://tv.example/blank"},
			{"name":"No Link","countryCode":"US"},
			{"name":7}
		]`))
	}))
	defer server.Close()

	chain := transport.NewChain(transport.ChainConfig{Name: ProviderName},
		transport.NewHTTPWithClient("direct", server.Client(), 0))
	client := NewClient(ClientConfig{URL: server.URL, Fetcher: chain})

	got, err := client.FetchChannels(context.Background())
	if err != nil {
		t.Fatalf("FetchChannels error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 channels, got %d: %+v", len(got), got)
	}
	if got[0].Name != "ESPN" {
		t.Fatalf("channels should be ordered by viewers, got %q first", got[0].Name)
	}
	if got[1].CountryCode != "GB" {
		t.Fatalf("country code should be upper-cased, got %q", got[1].CountryCode)
	}
}
