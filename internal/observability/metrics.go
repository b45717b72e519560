package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riskibarqy/streamhub/internal/platform/resilience"
)

const metricsNamespace = "streamhub"

// Metrics owns a private registry so tests can build as many as they need.
// A nil *Metrics ignores every observation.
type Metrics struct {
	registry          *prometheus.Registry
	providerFetches   *prometheus.CounterVec
	providerDuration  *prometheus.HistogramVec
	transportAttempts *prometheus.CounterVec
	resolverOutcomes  *prometheus.CounterVec
	cycleDuration     prometheus.Histogram
	catalogMatches    prometheus.Gauge
	catalogStale      prometheus.Gauge
	probeResults      *prometheus.CounterVec
	breakerChanges    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		providerFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "provider_fetches_total",
			Help:      "Upstream provider fetches by result.",
		}, []string{"provider", "result"}),
		providerDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "provider_fetch_duration_seconds",
			Help:      "Upstream provider fetch latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider"}),
		transportAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "transport_attempts_total",
			Help:      "Egress attempts per chain and transport.",
		}, []string{"chain", "transport", "result"}),
		resolverOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "resolver_outcomes_total",
			Help:      "Embed resolutions by outcome.",
		}, []string{"outcome"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "aggregation_cycle_duration_seconds",
			Help:      "Duration of catalog aggregation cycles.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		}),
		catalogMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "catalog_matches",
			Help:      "Matches in the current catalog.",
		}),
		catalogStale: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "catalog_stale",
			Help:      "1 when the current catalog is served from a previous cycle.",
		}),
		probeResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "viewer_probe_results_total",
			Help:      "Viewer count probes by result.",
		}, []string{"result"}),
		breakerChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "circuit_breaker_transitions_total",
			Help:      "Circuit breaker state transitions.",
		}, []string{"breaker", "to"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.providerFetches,
		m.providerDuration,
		m.transportAttempts,
		m.resolverOutcomes,
		m.cycleDuration,
		m.catalogMatches,
		m.catalogStale,
		m.probeResults,
		m.breakerChanges,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveProvider(provider string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.providerFetches.WithLabelValues(provider, result(ok)).Inc()
	m.providerDuration.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) ObserveAttempt(chain, transport string, err error) {
	if m == nil {
		return
	}
	m.transportAttempts.WithLabelValues(chain, transport, result(err == nil)).Inc()
}

func (m *Metrics) ObserveResolution(outcome string) {
	if m == nil {
		return
	}
	m.resolverOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveCycle(d time.Duration, matches int, stale bool) {
	if m == nil {
		return
	}
	m.cycleDuration.Observe(d.Seconds())
	m.catalogMatches.Set(float64(matches))
	if stale {
		m.catalogStale.Set(1)
	} else {
		m.catalogStale.Set(0)
	}
}

func (m *Metrics) ObserveProbe(ok bool) {
	if m == nil {
		return
	}
	m.probeResults.WithLabelValues(result(ok)).Inc()
}

func (m *Metrics) ObserveBreaker(name string, _, to resilience.CircuitState) {
	if m == nil {
		return
	}
	m.breakerChanges.WithLabelValues(name, string(to)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
