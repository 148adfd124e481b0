package types

// Telemetry metric names for CloudWatch.
const (
	// Metric Names
	MetricDeliveryAttempt = "DeliveryAttempt"
	MetricDeliveryLatency = "DeliveryAttemptLatency"
	MetricEventSkipped    = "EventSkipped"

	// Dimension Keys
	DimCategory = "Category"
	DimResult   = "Result"

	// MetricNamespace is the default CloudWatch namespace.
	MetricNamespace = "CommitCard"
)
