// Package httptransport assembles the server's chi router: middleware stack,
// wallet routes, health probes, and the Prometheus endpoint.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"certwallet/internal/platform/health"
	"certwallet/internal/platform/metrics"
	"certwallet/internal/platform/middleware"
	"certwallet/internal/wallet/handler"
)

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Logger         *slog.Logger
	Wallet         *handler.Handler
	Health         *health.Handler
	AdminTokens    middleware.AdminTokenValidator
	HTTPMetrics    *metrics.HTTP
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration
	MaxBodyBytes   int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(cfg.Logger))
	if cfg.HTTPMetrics != nil {
		r.Use(middleware.Metrics(cfg.HTTPMetrics))
	}

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		if cfg.RequestTimeout > 0 {
			r.Use(middleware.Timeout(cfg.RequestTimeout))
		}
		if cfg.MaxBodyBytes > 0 {
			r.Use(middleware.BodyLimit(cfg.MaxBodyBytes))
		}
		r.Use(middleware.ContentTypeJSON)
		cfg.Wallet.Register(r, middleware.RequireAdmin(cfg.AdminTokens, cfg.Logger))
	})

	return otelhttp.NewHandler(r, "certwallet.http")
}
