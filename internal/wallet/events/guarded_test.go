package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certwallet/internal/wallet/metrics"
	"certwallet/pkg/platform/circuit"
)

func TestGuardedPublisherOpensOnFailures(t *testing.T) {
	rec := &recordingProducer{err: errors.New("broker unreachable")}
	m := metrics.NewWith(prometheus.NewRegistry())
	pub := NewGuardedPublisher(NewKafkaPublisher(rec, ""),
		WithFailureThreshold(2),
		WithCooldown(time.Hour),
		WithGuardMetrics(m),
	)
	ctx := context.Background()
	event := ImportEvent{RequestID: "req-1", Outcome: OutcomeImported}

	require.ErrorContains(t, pub.PublishImport(ctx, event), "broker unreachable")
	require.ErrorContains(t, pub.PublishImport(ctx, event), "broker unreachable")
	assert.Equal(t, circuit.StateOpen, pub.State())

	rec.err = nil
	require.ErrorIs(t, pub.PublishImport(ctx, event), ErrCircuitOpen)
	assert.Empty(t, rec.messages, "nothing reaches the producer while open")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDroppedTotal))
}

func TestGuardedPublisherPassesThrough(t *testing.T) {
	rec := &recordingProducer{}
	pub := NewGuardedPublisher(NewKafkaPublisher(rec, "imports"))

	require.NoError(t, pub.PublishImport(context.Background(), ImportEvent{RequestID: "req-1", Outcome: OutcomeDuplicate}))
	require.Len(t, rec.messages, 1)
	assert.Equal(t, "imports", rec.messages[0].Topic)
	assert.Equal(t, circuit.StateClosed, pub.State())
}
