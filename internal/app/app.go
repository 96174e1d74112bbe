// Package app builds the wallet and its backing infrastructure from
// configuration. The server and the CLI share it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"certwallet/internal/platform/config"
	"certwallet/internal/platform/database"
	"certwallet/internal/platform/kafka/producer"
	"certwallet/internal/platform/redis"
	"certwallet/internal/wallet/events"
	"certwallet/internal/wallet/fetch"
	"certwallet/internal/wallet/metrics"
	"certwallet/internal/wallet/parser"
	"certwallet/internal/wallet/resolver"
	"certwallet/internal/wallet/revocation"
	"certwallet/internal/wallet/service"
	"certwallet/internal/wallet/store"
	"certwallet/internal/wallet/tracer"
)

const producerCloseTimeout = 10 * time.Second

// App is a wired wallet plus the clients it owns.
type App struct {
	Service  *service.Service
	Importer *service.Importer
	Resolver *resolver.Resolver

	DB       *database.Pool
	Redis    *redis.Client
	Producer *producer.Producer

	closers []func() error
}

// Option adjusts how Build wires the wallet.
type Option func(*options)

type options struct {
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	events  bool
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithoutEvents skips the Kafka producer even when brokers are configured.
func WithoutEvents() Option {
	return func(o *options) { o.events = false }
}

// Build connects every configured backend. On error, anything already opened
// is closed before returning.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (a *App, err error) {
	o := options{events: true}
	for _, opt := range opts {
		opt(&o)
	}
	if o.tracer == nil {
		o.tracer = tracer.NewNoop()
	}

	a = &App{}
	defer func() {
		if err != nil {
			_ = a.Close()
			a = nil
		}
	}()

	fetcherOpts := []fetch.Option{fetch.WithLogger(logger), fetch.WithTracer(o.tracer)}
	if o.metrics != nil {
		fetcherOpts = append(fetcherOpts, fetch.WithMetrics(o.metrics))
	}
	fetcher := fetch.New(fetch.Config{
		Timeout:       cfg.Fetch.Timeout,
		MaxBytes:      cfg.Fetch.MaxBytes,
		MaxRetries:    cfg.Fetch.MaxRetries,
		RetryInterval: cfg.Fetch.RetryInterval,
		UserAgent:     cfg.Fetch.UserAgent,
	}, fetcherOpts...)

	parserOpts := []parser.Option{parser.WithLogger(logger), parser.WithTracer(o.tracer)}
	if cfg.Fetch.RemoteImages {
		parserOpts = append(parserOpts, parser.WithImageFetcher(fetcher.ForKind(fetch.KindImage)))
	}
	p := parser.New(parserOpts...)

	st, err := a.openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	cache, err := a.openIssuerCache(ctx, cfg, p)
	if err != nil {
		return nil, err
	}
	resolverOpts := []resolver.Option{
		resolver.WithCache(cache),
		resolver.WithLogger(logger),
		resolver.WithTracer(o.tracer),
	}
	revocationOpts := []revocation.Option{revocation.WithLogger(logger), revocation.WithTracer(o.tracer)}
	if o.metrics != nil {
		resolverOpts = append(resolverOpts, resolver.WithMetrics(o.metrics))
		revocationOpts = append(revocationOpts, revocation.WithMetrics(o.metrics))
	}
	a.Resolver = resolver.New(fetcher.ForKind(fetch.KindIssuer), p, resolverOpts...)

	var checker revocation.Checker = revocation.NewListChecker(fetcher.ForKind(fetch.KindRevocation), revocationOpts...)
	if cfg.Revocation.CacheTTL > 0 {
		checker = revocation.NewCachingChecker(checker, cfg.Revocation.CacheTTL)
	}

	serviceOpts := []service.Option{
		service.WithLoadConcurrency(cfg.Wallet.LoadConcurrency),
		service.WithLogger(logger),
		service.WithTracer(o.tracer),
	}
	if o.metrics != nil {
		serviceOpts = append(serviceOpts, service.WithMetrics(o.metrics))
	}
	if o.events && cfg.Kafka.Brokers != "" {
		prod, err := producer.New(producer.Config{
			Brokers:         cfg.Kafka.Brokers,
			Acks:            cfg.Kafka.Acks,
			Retries:         cfg.Kafka.Retries,
			DeliveryTimeout: cfg.Kafka.DeliveryTimeout,
		}, logger)
		if err != nil {
			return nil, err
		}
		a.Producer = prod
		a.closers = append(a.closers, func() error { return prod.Close(producerCloseTimeout) })
		guardOpts := []events.GuardOption{events.WithGuardLogger(logger)}
		if o.metrics != nil {
			guardOpts = append(guardOpts, events.WithGuardMetrics(o.metrics))
		}
		publisher := events.NewGuardedPublisher(events.NewKafkaPublisher(prod, cfg.Kafka.Topic), guardOpts...)
		serviceOpts = append(serviceOpts, service.WithPublisher(publisher))
	}

	a.Service = service.New(st, p, a.Resolver, checker, serviceOpts...)
	a.Importer = service.NewImporter(a.Service)
	return a, nil
}

func (a *App) openStore(ctx context.Context, cfg config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case config.StoreMemory:
		return store.NewMemoryStore(), nil
	case config.StorePostgres:
		pool, err := database.New(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.DB = pool
		a.closers = append(a.closers, pool.Close)
		if err := database.Migrate(ctx, pool.DB()); err != nil {
			return nil, err
		}
		return store.NewPostgresStore(pool.DB()), nil
	case config.StoreFile:
		return store.NewFileStore(cfg.Store.Dir)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func (a *App) openIssuerCache(ctx context.Context, cfg config.Config, p *parser.Parser) (resolver.Cache, error) {
	if cfg.Resolver.Cache != config.CacheRedis {
		return resolver.NewMemoryCache(), nil
	}
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.Redis = client
	a.closers = append(a.closers, client.Close)
	return resolver.NewRedisCache(client.Client, p, cfg.Resolver.CacheTTL), nil
}

// Close releases clients in reverse order of opening.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
