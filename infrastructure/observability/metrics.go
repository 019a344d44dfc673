package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"raffler/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the raffler service.
// A nil provider is valid and records nothing.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	entriesAcceptedCounter       metric.Int64Counter
	entriesRejectedCounter       metric.Int64Counter
	upkeepPerformedCounter       metric.Int64Counter
	upkeepSkippedCounter         metric.Int64Counter
	winnersPickedCounter         metric.Int64Counter
	payoutsFailedCounter         metric.Int64Counter
	roundsRecoveredCounter       metric.Int64Counter
	payoutAmountCounter          metric.Int64Counter
	oracleAnomaliesCounter       metric.Int64Counter
	fulfillmentLatencyHist       metric.Float64Histogram
	natsMessagesReceivedCounter  metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Debug("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	var exporter sdkmetric.Exporter
	var err error
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	reader := sdkmetric.NewPeriodicReader(
		exporter,
		sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
	)
	if err := mp.initializeWithReader(reader); err != nil {
		return err
	}

	otel.SetMeterProvider(mp.meterProvider)
	log.Info("Metrics provider initialized successfully")
	return nil
}

// initializeWithReader builds the meter provider around reader. Caller holds mu.
func (mp *MetricsProvider) initializeWithReader(reader sdkmetric.Reader) error {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(reader),
	)
	mp.meter = mp.meterProvider.Meter("raffler")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
		unit        string
	}{
		{&mp.entriesAcceptedCounter, EntriesAcceptedTotal, "Total number of accepted raffle entries", "1"},
		{&mp.entriesRejectedCounter, EntriesRejectedTotal, "Total number of rejected raffle entries", "1"},
		{&mp.upkeepPerformedCounter, UpkeepPerformedTotal, "Total number of rounds closed by upkeep", "1"},
		{&mp.upkeepSkippedCounter, UpkeepSkippedTotal, "Total number of upkeep checks that found nothing to do", "1"},
		{&mp.winnersPickedCounter, WinnersPickedTotal, "Total number of winners paid", "1"},
		{&mp.payoutsFailedCounter, PayoutsFailedTotal, "Total number of rejected winner transfers", "1"},
		{&mp.roundsRecoveredCounter, RoundsRecoveredTotal, "Total number of abandoned randomness requests", "1"},
		{&mp.payoutAmountCounter, PayoutAmount, "Total value paid to winners in base units", "{base_unit}"},
		{&mp.oracleAnomaliesCounter, OracleAnomaliesTotal, "Total number of rejected oracle fulfillments", "1"},
		{&mp.natsMessagesReceivedCounter, NATSMessagesReceivedTotal, "Total number of NATS messages received", "1"},
		{&mp.natsMessagesPublishedCounter, NATSMessagesPublishedTotal, "Total number of NATS messages published", "1"},
	}

	for _, c := range counters {
		counter, err := mp.meter.Int64Counter(c.name,
			metric.WithDescription(c.description),
			metric.WithUnit(c.unit),
		)
		if err != nil {
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
		*c.target = counter
	}

	var err error
	mp.fulfillmentLatencyHist, err = mp.meter.Float64Histogram(
		OracleFulfillmentLatency,
		metric.WithDescription("Time between a randomness request and its successful fulfillment in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600),
	)
	if err != nil {
		return fmt.Errorf("failed to create fulfillment latency histogram: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	if mp == nil {
		return nil
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordEntryAccepted records an accepted entry
func (mp *MetricsProvider) RecordEntryAccepted() {
	if !mp.isEnabled() {
		return
	}
	mp.entriesAcceptedCounter.Add(context.Background(), 1)
}

// RecordEntryRejected records a rejected entry
func (mp *MetricsProvider) RecordEntryRejected(reason string) {
	if !mp.isEnabled() {
		return
	}
	mp.entriesRejectedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelReason, reason)),
	)
}

// RecordUpkeepPerformed records a closed round
func (mp *MetricsProvider) RecordUpkeepPerformed() {
	if !mp.isEnabled() {
		return
	}
	mp.upkeepPerformedCounter.Add(context.Background(), 1)
}

// RecordUpkeepSkipped records an upkeep check that was not needed
func (mp *MetricsProvider) RecordUpkeepSkipped(reason string) {
	if !mp.isEnabled() {
		return
	}
	mp.upkeepSkippedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelReason, reason)),
	)
}

// RecordWinnerPicked records a successful payout and how long the oracle took
func (mp *MetricsProvider) RecordWinnerPicked(amount int64, latency time.Duration) {
	if !mp.isEnabled() {
		return
	}
	ctx := context.Background()
	mp.winnersPickedCounter.Add(ctx, 1)
	mp.payoutAmountCounter.Add(ctx, amount)
	mp.fulfillmentLatencyHist.Record(ctx, latency.Seconds())
}

// RecordPayoutFailed records a rejected winner transfer
func (mp *MetricsProvider) RecordPayoutFailed() {
	if !mp.isEnabled() {
		return
	}
	mp.payoutsFailedCounter.Add(context.Background(), 1)
}

// RecordRoundRecovered records an abandoned randomness request
func (mp *MetricsProvider) RecordRoundRecovered() {
	if !mp.isEnabled() {
		return
	}
	mp.roundsRecoveredCounter.Add(context.Background(), 1)
}

// RecordOracleAnomaly records a rejected oracle fulfillment
func (mp *MetricsProvider) RecordOracleAnomaly(kind string) {
	if !mp.isEnabled() {
		return
	}
	mp.oracleAnomaliesCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelReason, kind)),
	)
}

// RecordNATSMessageReceived records a NATS message being received
func (mp *MetricsProvider) RecordNATSMessageReceived(subject string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesReceivedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelSubject, subject)),
	)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelEventType, eventType)),
	)
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, or nil before initialization
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	return globalMetrics.Shutdown(ctx)
}
