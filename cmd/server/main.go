package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"certwallet/internal/app"
	jwttoken "certwallet/internal/jwt_token"
	"certwallet/internal/platform/config"
	"certwallet/internal/platform/health"
	"certwallet/internal/platform/logger"
	httpmetrics "certwallet/internal/platform/metrics"
	httptransport "certwallet/internal/transport/http"
	"certwallet/internal/wallet/handler"
	walletmetrics "certwallet/internal/wallet/metrics"
	"certwallet/internal/wallet/tracer"
)

const (
	shutdownTimeout     = 10 * time.Second
	poolStatsInterval   = 15 * time.Second
	defaultAdminWarning = "admin.jwt_signing_key is empty; admin routes reject every token"
)

// main wires dependencies, loads stored certificates, and serves the HTTP API
// until SIGINT or SIGTERM.
func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log)

	log.Info("initializing certwallet",
		"addr", cfg.Server.Addr,
		"environment", cfg.Server.Environment,
		"store", cfg.Store.Driver,
		"issuer_cache", cfg.Resolver.Cache,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	wallet, err := app.Build(ctx, cfg, log,
		app.WithMetrics(walletmetrics.New()),
		app.WithTracer(tracer.NewOTel()),
	)
	if err != nil {
		return fmt.Errorf("build wallet: %w", err)
	}
	defer func() {
		if err := wallet.Close(); err != nil {
			log.Error("failed to close wallet backends", "error", err)
		}
	}()

	report, err := wallet.Service.Load(ctx)
	if err != nil {
		return fmt.Errorf("load certificates: %w", err)
	}
	for _, f := range report.Failures {
		log.Warn("stored certificate skipped", "filename", f.Filename, "error", f.Err)
	}
	log.Info("certificates loaded", "loaded", report.Loaded, "failed", len(report.Failures))

	checks := health.New(cfg.Server.Environment)
	checks.RegisterStat("certificates", func() int { return len(wallet.Service.List()) })
	if wallet.DB != nil {
		checks.RegisterCheck("database", wallet.DB.Health)
	}
	if wallet.Redis != nil {
		checks.RegisterCheck("redis", wallet.Redis.Health)
		go wallet.Redis.ReportPoolStats(ctx, poolStatsInterval)
	}
	if wallet.Producer != nil {
		checks.RegisterCheck("kafka", wallet.Producer.Ping)
	}

	if cfg.Admin.JWTSigningKey == "" {
		log.Warn(defaultAdminWarning)
	}

	router := httptransport.NewRouter(httptransport.RouterConfig{
		Logger:         log,
		Wallet:         handler.New(wallet.Service, wallet.Importer, log),
		Health:         checks,
		AdminTokens:    jwttoken.NewAdminTokens(cfg.Admin.JWTSigningKey, cfg.Admin.JWTIssuer),
		HTTPMetrics:    httpmetrics.New(),
		Gatherer:       prometheus.DefaultGatherer,
		RequestTimeout: cfg.Server.RequestTimeout,
		MaxBodyBytes:   cfg.Server.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("starting http server", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down server gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	log.Info("server stopped")
	return nil
}
