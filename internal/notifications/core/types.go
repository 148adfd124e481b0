package core

import (
	"context"
	"time"
)

// MetricResult categorizes a delivery outcome for metrics reporting.
type MetricResult string

const (
	MetricSuccess MetricResult = "success"
	MetricFailed  MetricResult = "failed"
	MetricSkipped MetricResult = "skipped"
)

// DeliveryMetrics abstracts CloudWatch/telemetry operations for the relay.
// Implementations must never fail the invocation: errors are logged only.
type DeliveryMetrics interface {
	// RecordDelivery counts one processed notification. category is the
	// event category, or the raw detail type for skipped notifications.
	RecordDelivery(ctx context.Context, category string, result MetricResult)
	// RecordLatency records how long the webhook POST took.
	RecordLatency(ctx context.Context, category string, duration time.Duration)
}

// NoopMetrics discards every measurement. It is used when metrics are
// disabled and in local development.
type NoopMetrics struct{}

var _ DeliveryMetrics = NoopMetrics{}

func (NoopMetrics) RecordDelivery(context.Context, string, MetricResult) {}
func (NoopMetrics) RecordLatency(context.Context, string, time.Duration) {}
