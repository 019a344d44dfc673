package observability

import (
	"context"
	"testing"
	"time"

	"raffler/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

func newTestProvider(t *testing.T) (*MetricsProvider, *sdkmetric.ManualReader) {
	t.Helper()

	cfg := config.NewTestConfig()
	cfg.OTelEnabled = true

	reader := sdkmetric.NewManualReader()
	mp := NewMetricsProvider(cfg)
	require.NoError(t, mp.initializeWithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	return mp, reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Aggregation {
	t.Helper()

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	result := make(map[string]metricdata.Aggregation)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			result[m.Name] = m.Data
		}
	}
	return result
}

func sumOf(t *testing.T, data metricdata.Aggregation) int64 {
	t.Helper()

	sum, ok := data.(metricdata.Sum[int64])
	require.True(t, ok, "expected int64 sum, got %T", data)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetricsProvider_RecordsRaffleMetrics(t *testing.T) {
	t.Parallel()

	mp, reader := newTestProvider(t)

	mp.RecordEntryAccepted()
	mp.RecordEntryAccepted()
	mp.RecordEntryRejected(RejectionInsufficientFee)
	mp.RecordUpkeepSkipped("interval not elapsed")
	mp.RecordUpkeepPerformed()
	mp.RecordWinnerPicked(300, 3*time.Second)
	mp.RecordOracleAnomaly(AnomalyUnknownRequest)

	metrics := collect(t, reader)

	assert.Equal(t, int64(2), sumOf(t, metrics[EntriesAcceptedTotal]))
	assert.Equal(t, int64(1), sumOf(t, metrics[EntriesRejectedTotal]))
	assert.Equal(t, int64(1), sumOf(t, metrics[UpkeepSkippedTotal]))
	assert.Equal(t, int64(1), sumOf(t, metrics[UpkeepPerformedTotal]))
	assert.Equal(t, int64(1), sumOf(t, metrics[WinnersPickedTotal]))
	assert.Equal(t, int64(300), sumOf(t, metrics[PayoutAmount]))
	assert.Equal(t, int64(1), sumOf(t, metrics[OracleAnomaliesTotal]))

	hist, ok := metrics[OracleFulfillmentLatency].(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 1)
	assert.Equal(t, uint64(1), hist.DataPoints[0].Count)
	assert.InDelta(t, 3.0, hist.DataPoints[0].Sum, 0.001)
}

func TestMetricsProvider_ResourceSchemaMatchesSDK(t *testing.T) {
	t.Parallel()

	assert.Equal(t, resource.Default().SchemaURL(), semconv.SchemaURL)
}

func TestMetricsProvider_DisabledIsNoop(t *testing.T) {
	t.Parallel()

	mp := NewMetricsProvider(config.NewTestConfig())
	require.NoError(t, mp.Initialize(context.Background()))

	assert.NotPanics(t, func() {
		mp.RecordEntryAccepted()
		mp.RecordWinnerPicked(1, time.Second)
	})

	var nilProvider *MetricsProvider
	assert.NotPanics(t, func() {
		nilProvider.RecordPayoutFailed()
		_ = nilProvider.Shutdown(context.Background())
	})
}
