package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/riskibarqy/streamhub/internal/platform/resilience"
)

func TestMetrics_Observations(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.ObserveProvider("primary", true, 120*time.Millisecond)
	m.ObserveProvider("primary", false, time.Second)
	m.ObserveAttempt("resolver", "direct", errors.New("blocked"))
	m.ObserveAttempt("resolver", "relay-1", nil)
	m.ObserveResolution("found")
	m.ObserveResolution("found")
	m.ObserveCycle(2*time.Second, 42, true)
	m.ObserveProbe(false)
	m.ObserveBreaker("primary", resilience.CircuitStateClosed, resilience.CircuitStateOpen)

	if got := testutil.ToFloat64(m.providerFetches.WithLabelValues("primary", "error")); got != 1 {
		t.Fatalf("expected one failed primary fetch, got %v", got)
	}
	if got := testutil.ToFloat64(m.transportAttempts.WithLabelValues("resolver", "relay-1", "ok")); got != 1 {
		t.Fatalf("expected one relay success, got %v", got)
	}
	if got := testutil.ToFloat64(m.resolverOutcomes.WithLabelValues("found")); got != 2 {
		t.Fatalf("expected two found outcomes, got %v", got)
	}
	if got := testutil.ToFloat64(m.catalogMatches); got != 42 {
		t.Fatalf("expected 42 catalog matches, got %v", got)
	}
	if got := testutil.ToFloat64(m.catalogStale); got != 1 {
		t.Fatalf("expected stale gauge 1, got %v", got)
	}
	if got := testutil.ToFloat64(m.breakerChanges.WithLabelValues("primary", string(resilience.CircuitStateOpen))); got != 1 {
		t.Fatalf("expected one breaker transition, got %v", got)
	}
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.ObserveResolution("not_found")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `streamhub_resolver_outcomes_total{outcome="not_found"} 1`) {
		t.Fatalf("expected resolver outcome series in output")
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var m *Metrics
	m.ObserveProvider("primary", true, time.Second)
	m.ObserveCycle(time.Second, 1, false)
	m.ObserveProbe(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 from nil metrics, got %d", rec.Code)
	}
}
