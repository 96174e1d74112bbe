package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"certwallet/internal/platform/config"
	"certwallet/internal/wallet/metrics"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	cfg.Store.Dir = t.TempDir()
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildFileStore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Revocation.CacheTTL = 0

	a, err := Build(context.Background(), cfg, discardLogger(), WithMetrics(metrics.NewWith(prometheus.NewRegistry())))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, a.Close()) })

	assert.NotNil(t, a.Service)
	assert.NotNil(t, a.Importer)
	assert.Nil(t, a.DB)
	assert.Nil(t, a.Redis)
	assert.Nil(t, a.Producer, "no brokers configured")

	report, err := a.Service.Load(context.Background())
	require.NoError(t, err)
	assert.Zero(t, report.Loaded)
	assert.Empty(t, report.Failures)
}

func TestBuildMemoryStoreWithRevocationCache(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = config.StoreMemory
	cfg.Revocation.CacheTTL = time.Minute

	a, err := Build(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	assert.Empty(t, a.Service.List())
	require.NoError(t, a.Close())
}

func TestBuildSkipsEventsWhenDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kafka.Brokers = "localhost:9092"

	a, err := Build(context.Background(), cfg, discardLogger(), WithoutEvents())
	require.NoError(t, err)
	assert.Nil(t, a.Producer)
	require.NoError(t, a.Close())
}

func TestBuildCreatesProducerLazily(t *testing.T) {
	cfg := testConfig(t)
	cfg.Kafka.Brokers = "localhost:1"

	a, err := Build(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	assert.NotNil(t, a.Producer)
	assert.NoError(t, a.Close(), "nothing buffered to flush")
}

func TestBuildRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "tape"

	a, err := Build(context.Background(), cfg, discardLogger())
	require.Error(t, err)
	assert.Nil(t, a)
}
