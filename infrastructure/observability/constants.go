package observability

// Metric name prefixes
const (
	MetricPrefix = "raffler"
)

// Metric names
const (
	// Raffle metrics
	EntriesAcceptedTotal = MetricPrefix + ".entries.accepted_total"
	EntriesRejectedTotal = MetricPrefix + ".entries.rejected_total"
	UpkeepPerformedTotal = MetricPrefix + ".upkeep.performed_total"
	UpkeepSkippedTotal   = MetricPrefix + ".upkeep.skipped_total"
	WinnersPickedTotal   = MetricPrefix + ".winners.picked_total"
	PayoutsFailedTotal   = MetricPrefix + ".payouts.failed_total"
	RoundsRecoveredTotal = MetricPrefix + ".rounds.recovered_total"
	PayoutAmount         = MetricPrefix + ".payouts.amount"

	// Oracle metrics
	OracleAnomaliesTotal     = MetricPrefix + ".oracle.anomalies_total"
	OracleFulfillmentLatency = MetricPrefix + ".oracle.fulfillment_latency"

	// NATS metrics
	NATSMessagesReceivedTotal  = MetricPrefix + ".nats.messages_received_total"
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"
)

// Label keys
const (
	LabelReason    = "reason"
	LabelEventType = "event_type"
	LabelSubject   = "subject"
)

// Entry rejection reasons
const (
	RejectionInsufficientFee = "insufficient_fee"
	RejectionRaffleClosed    = "raffle_closed"
	RejectionInvalid         = "invalid_participant"
	RejectionPoolOverflow    = "pool_overflow"
)

// Oracle anomaly kinds
const (
	AnomalyUnknownRequest     = "unknown_request"
	AnomalyNotCalculating     = "not_calculating"
	AnomalyAlreadyOutstanding = "already_outstanding"
	AnomalyInvalidRandomValue = "invalid_random_value"
	AnomalyMalformedMessage   = "malformed_message"
)
