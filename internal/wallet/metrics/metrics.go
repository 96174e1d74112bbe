// Package metrics provides Prometheus metrics for the wallet trust pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all wallet metrics.
type Metrics struct {
	// Issuer profile cache
	IssuerCacheHitsTotal      prometheus.Counter
	IssuerCacheMissesTotal    prometheus.Counter
	IssuerCacheRefreshesTotal *prometheus.CounterVec // scope: one, all

	// Remote fetches by kind (image, issuer, revocation)
	FetchDurationSeconds *prometheus.HistogramVec
	FetchFailuresTotal   *prometheus.CounterVec // kind, category

	// Verdicts
	RevocationVerdictsTotal *prometheus.CounterVec // state
	VerificationsTotal      *prometheus.CounterVec // verdict

	// Wallet contents
	ImportsTotal      *prometheus.CounterVec // outcome
	LoadFailuresTotal prometheus.Counter
	Credentials       prometheus.Gauge

	// Import events skipped while the publisher circuit is open
	EventsDroppedTotal prometheus.Counter
}

// New creates a Metrics instance registered with the default registry.
// Call it once per process.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics with reg. Tests pass a fresh prometheus.NewRegistry().
func NewWith(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		IssuerCacheHitsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "certwallet_issuer_cache_hits_total",
			Help: "Total number of issuer profile cache hits",
		}),
		IssuerCacheMissesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "certwallet_issuer_cache_misses_total",
			Help: "Total number of issuer profile cache misses",
		}),
		IssuerCacheRefreshesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certwallet_issuer_cache_refreshes_total",
			Help: "Total number of issuer cache purges by scope",
		}, []string{"scope"}),

		FetchDurationSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certwallet_fetch_duration_seconds",
			Help:    "Duration of remote document fetches by kind",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"kind"}),
		FetchFailuresTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certwallet_fetch_failures_total",
			Help: "Total number of failed remote fetches by kind and error category",
		}, []string{"kind", "category"}),

		RevocationVerdictsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certwallet_revocation_verdicts_total",
			Help: "Total number of revocation checks by resulting state",
		}, []string{"state"}),
		VerificationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certwallet_verifications_total",
			Help: "Total number of credential verifications by verdict",
		}, []string{"verdict"}),

		ImportsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certwallet_imports_total",
			Help: "Total number of credential imports by outcome",
		}, []string{"outcome"}),
		LoadFailuresTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "certwallet_load_failures_total",
			Help: "Total number of stored credentials that failed to parse during load",
		}),
		Credentials: f.NewGauge(prometheus.GaugeOpts{
			Name: "certwallet_credentials",
			Help: "Current number of credentials held in the wallet",
		}),
		EventsDroppedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "certwallet_events_dropped_total",
			Help: "Total number of import events skipped while the publisher circuit was open",
		}),
	}
}

func (m *Metrics) RecordCacheHit() {
	m.IssuerCacheHitsTotal.Inc()
}

func (m *Metrics) RecordCacheMiss() {
	m.IssuerCacheMissesTotal.Inc()
}

// RecordRefresh records a cache purge. scope is "one" or "all".
func (m *Metrics) RecordRefresh(scope string) {
	m.IssuerCacheRefreshesTotal.WithLabelValues(scope).Inc()
}

func (m *Metrics) ObserveFetch(kind string, d time.Duration) {
	m.FetchDurationSeconds.WithLabelValues(kind).Observe(d.Seconds())
}

func (m *Metrics) RecordFetchFailure(kind, category string) {
	m.FetchFailuresTotal.WithLabelValues(kind, category).Inc()
}

func (m *Metrics) RecordRevocationVerdict(state string) {
	m.RevocationVerdictsTotal.WithLabelValues(state).Inc()
}

func (m *Metrics) RecordVerification(verdict string) {
	m.VerificationsTotal.WithLabelValues(verdict).Inc()
}

func (m *Metrics) RecordImport(outcome string) {
	m.ImportsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordLoadFailure() {
	m.LoadFailuresTotal.Inc()
}

func (m *Metrics) SetCredentials(n int) {
	m.Credentials.Set(float64(n))
}

func (m *Metrics) RecordEventDropped() {
	m.EventsDroppedTotal.Inc()
}
