package core

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"commitcard/internal/types"
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchDeliveryMetrics emits relay metrics to AWS CloudWatch.
//
// Metrics emitted:
//   - DeliveryAttempt: Dims {Category, Result} on every processed notification
//   - DeliveryAttemptLatency: Dims {Category} for each webhook POST
//   - EventSkipped: Dims {Category} when a notification is ignored
type CloudWatchDeliveryMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger
}

// Compile-time assertion that CloudWatchDeliveryMetrics implements DeliveryMetrics.
var _ DeliveryMetrics = (*CloudWatchDeliveryMetrics)(nil)

// NewCloudWatchDeliveryMetrics creates metrics that publish to namespace. An
// empty namespace falls back to types.MetricNamespace.
func NewCloudWatchDeliveryMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchDeliveryMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchDeliveryMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordDelivery emits a DeliveryAttempt datum with Category and Result
// dimensions. Skipped notifications additionally emit EventSkipped in the
// same call.
func (m *CloudWatchDeliveryMetrics) RecordDelivery(ctx context.Context, category string, result MetricResult) {
	data := []cwtypes.MetricDatum{
		{
			MetricName: aws.String(types.MetricDeliveryAttempt),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{
				dimension(types.DimCategory, category),
				dimension(types.DimResult, string(result)),
			},
		},
	}
	if result == MetricSkipped {
		data = append(data, cwtypes.MetricDatum{
			MetricName: aws.String(types.MetricEventSkipped),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: []cwtypes.Dimension{dimension(types.DimCategory, category)},
		})
	}

	m.put(ctx, data, "failed to record delivery metric",
		"category", category,
		"result", string(result),
	)
}

// RecordLatency emits the webhook latency in milliseconds.
func (m *CloudWatchDeliveryMetrics) RecordLatency(ctx context.Context, category string, duration time.Duration) {
	data := []cwtypes.MetricDatum{
		{
			MetricName: aws.String(types.MetricDeliveryLatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: []cwtypes.Dimension{dimension(types.DimCategory, category)},
		},
	}

	m.put(ctx, data, "failed to record latency metric",
		"category", category,
		"duration_ms", duration.Milliseconds(),
	)
}

func (m *CloudWatchDeliveryMetrics) put(ctx context.Context, data []cwtypes.MetricDatum, failMsg string, logArgs ...any) {
	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error(failMsg, append([]any{"error", err.Error()}, logArgs...)...)
	}
}

func dimension(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}
