package events

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"certwallet/internal/wallet/metrics"
	"certwallet/pkg/platform/circuit"
)

// ErrCircuitOpen is returned while recent publish failures keep the circuit open.
var ErrCircuitOpen = errors.New("import event publisher circuit open")

// Publisher is anything that can emit an import event.
type Publisher interface {
	PublishImport(ctx context.Context, event ImportEvent) error
}

// GuardedPublisher skips publishing while the broker keeps failing, so an
// outage costs imports one delivery timeout per cooldown instead of one each.
type GuardedPublisher struct {
	inner   Publisher
	breaker *circuit.Breaker
	metrics *metrics.Metrics
}

type GuardOption func(*guardOptions)

type guardOptions struct {
	threshold int
	cooldown  time.Duration
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

func WithFailureThreshold(n int) GuardOption {
	return func(o *guardOptions) { o.threshold = n }
}

func WithCooldown(d time.Duration) GuardOption {
	return func(o *guardOptions) { o.cooldown = d }
}

func WithGuardLogger(logger *slog.Logger) GuardOption {
	return func(o *guardOptions) { o.logger = logger }
}

func WithGuardMetrics(m *metrics.Metrics) GuardOption {
	return func(o *guardOptions) { o.metrics = m }
}

func NewGuardedPublisher(inner Publisher, opts ...GuardOption) *GuardedPublisher {
	o := guardOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	breakerOpts := []circuit.Option{
		circuit.WithFailureThreshold(o.threshold),
		circuit.WithCooldown(o.cooldown),
	}
	if o.logger != nil {
		logger := o.logger
		breakerOpts = append(breakerOpts, circuit.WithStateChange(func(name string, from, to circuit.State) {
			logger.Warn("circuit state changed", "circuit", name, "from", from.String(), "to", to.String())
		}))
	}
	return &GuardedPublisher{
		inner:   inner,
		breaker: circuit.New("import_events", breakerOpts...),
		metrics: o.metrics,
	}
}

func (p *GuardedPublisher) PublishImport(ctx context.Context, event ImportEvent) error {
	if !p.breaker.Allow() {
		if p.metrics != nil {
			p.metrics.RecordEventDropped()
		}
		return ErrCircuitOpen
	}
	if err := p.inner.PublishImport(ctx, event); err != nil {
		p.breaker.RecordFailure()
		return err
	}
	p.breaker.RecordSuccess()
	return nil
}

// State exposes the circuit state for health reporting.
func (p *GuardedPublisher) State() circuit.State {
	return p.breaker.State()
}
