// Package metrics holds the HTTP-level Prometheus collectors shared by the
// server's middleware chain.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type HTTP struct {
	EndpointLatency *prometheus.HistogramVec
	Responses       *prometheus.CounterVec
	InFlight        prometheus.Gauge
}

// New registers the collectors with the default registry.
func New() *HTTP {
	return NewWith(prometheus.DefaultRegisterer)
}

func NewWith(reg prometheus.Registerer) *HTTP {
	f := promauto.With(reg)
	return &HTTP{
		EndpointLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "certwallet_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Responses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "certwallet_http_responses_total",
			Help: "HTTP responses by route pattern and status code",
		}, []string{"method", "route", "status"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "certwallet_http_requests_in_flight",
			Help: "Requests currently being served",
		}),
	}
}

// ObserveRequest records one finished request. route is the router pattern,
// never the raw path, to keep label cardinality bounded.
func (m *HTTP) ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	m.EndpointLatency.WithLabelValues(method, route).Observe(d.Seconds())
	m.Responses.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
