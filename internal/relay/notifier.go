// Package relay runs one CodeCommit notification through the pipeline:
// decode the embedded message, classify it, build a Teams card and deliver
// it. The outcome is always a Response; nothing is retried.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"commitcard/internal/codecommit"
	"commitcard/internal/config"
	"commitcard/internal/notifications/core"
	"commitcard/internal/notifications/teams"
	"commitcard/internal/types"
)

// Response bodies returned to the invoking infrastructure.
const (
	bodyDelivered     = "Notification sent to Microsoft Teams successfully"
	bodyDeliveryFail  = "Failed to send notification to Microsoft Teams"
	bodyUnhandledFmt  = "Unhandled event: %s"
	webhookMissingMsg = "TEAMS_WEBHOOK_URL environment variable is not set"
	configInvalidMsg  = "relay configuration could not be loaded"
)

// Response is the invocation result. It is the only output the caller sees.
type Response struct {
	StatusCode int    `json:"statusCode"`
	Body       string `json:"body"`
}

// CardFormatter builds a Teams card for a classified event.
type CardFormatter interface {
	Format(ev codecommit.Event) (teams.MessageCard, error)
}

// Sink delivers a card. *teams.Channel is the production implementation.
type Sink interface {
	Deliver(ctx context.Context, card teams.MessageCard) (*teams.DeliveryResult, error)
}

// Notifier is safe for concurrent use once constructed; it holds no
// per-invocation state.
type Notifier struct {
	formatter CardFormatter
	sink      Sink
	metrics   core.DeliveryMetrics
	logger    types.Logger
	clock     types.Clock

	// configErr is set when the process started without a usable webhook.
	// Every invocation then fails before decoding anything.
	configErr *types.AppError
}

// New creates a Notifier. A nil metrics selects core.NoopMetrics.
func New(formatter CardFormatter, sink Sink, metrics core.DeliveryMetrics, logger types.Logger) *Notifier {
	if metrics == nil {
		metrics = core.NoopMetrics{}
	}
	return &Notifier{
		formatter: formatter,
		sink:      sink,
		metrics:   metrics,
		logger:    logger,
		clock:     types.RealClock{},
	}
}

// NewMisconfigured creates a Notifier that rejects every invocation with a
// 500 because the configuration could not be loaded. A missing webhook URL
// is reported as such; any other loader failure is reported generically so
// SSM paths and validation internals stay in the logs.
func NewMisconfigured(cause error, logger types.Logger) *Notifier {
	appErr := types.NewAppError(types.ErrCodeConfigInvalid, configInvalidMsg, cause)

	var cfgErr *config.ConfigError
	if errors.As(cause, &cfgErr) && cfgErr.Type == config.ErrMissingEnv {
		appErr = types.NewAppError(types.ErrCodeConfigWebhookMissing, webhookMissingMsg, cause)
	}

	return &Notifier{
		metrics:   core.NoopMetrics{},
		logger:    logger,
		clock:     types.RealClock{},
		configErr: appErr,
	}
}

// SetClock overrides the clock for testing.
func (n *Notifier) SetClock(clock types.Clock) {
	n.clock = clock
}

// Process handles one SNS message. messageID is only used for logging;
// message is the raw SNS Message string. A logger attached to ctx with
// types.WithLogger takes precedence over the notifier's own.
func (n *Notifier) Process(ctx context.Context, messageID, message string) Response {
	logger := types.LoggerFrom(ctx, n.logger)
	if messageID != "" {
		logger = logger.With("sns_message_id", messageID)
	}

	if n.configErr != nil {
		logger.Error("relay is not configured",
			"code", string(n.configErr.Code),
			"error", errorString(n.configErr.Err),
		)
		return errorResponse(n.configErr)
	}

	msg, err := codecommit.DecodeMessage(message)
	if err != nil {
		logger.Warn("rejecting malformed notification", "error", err.Error())
		return errorResponse(err)
	}
	logger = logger.With("detail_type", msg.DetailType)

	ev, err := codecommit.Classify(msg)
	if err != nil {
		logger.Warn("rejecting notification", "error", err.Error())
		n.metrics.RecordDelivery(ctx, msg.DetailType, core.MetricFailed)
		return errorResponse(err)
	}
	if ev == nil {
		logger.Info("skipping unhandled notification")
		n.metrics.RecordDelivery(ctx, msg.DetailType, core.MetricSkipped)
		return Response{StatusCode: http.StatusOK, Body: fmt.Sprintf(bodyUnhandledFmt, msg.DetailType)}
	}

	category := string(ev.Category())
	logger = logger.With("event", category)

	card, err := n.formatter.Format(ev)
	if err != nil {
		logger.Error("failed to build card", "error", err.Error())
		n.metrics.RecordDelivery(ctx, category, core.MetricFailed)
		return errorResponse(types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build card", err))
	}

	start := n.clock.Now()
	result, err := n.sink.Deliver(ctx, card)
	n.metrics.RecordLatency(ctx, category, n.clock.Now().Sub(start))

	if err != nil {
		n.metrics.RecordDelivery(ctx, category, core.MetricFailed)
		appErr := deliveryFailure(err)
		logger.Error("teams delivery failed",
			"error", err.Error(),
			"details", appErr.Details,
		)
		return errorResponse(appErr)
	}

	n.metrics.RecordDelivery(ctx, category, core.MetricSuccess)
	logger.Info("teams notification delivered",
		"status", result.StatusCode,
		"provider_message_id", result.ProviderMessageID,
		"latency_ms", n.clock.Now().Sub(start).Milliseconds(),
	)
	return Response{StatusCode: http.StatusOK, Body: bodyDelivered}
}

// deliveryFailure turns a sink error into an upstream AppError whose message
// carries the upstream status and body text.
func deliveryFailure(err error) *types.AppError {
	var derr *teams.DeliveryError
	if errors.As(err, &derr) && derr.StatusCode != 0 {
		return types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamWebhook,
			fmt.Sprintf("%s (status %d): %s", bodyDeliveryFail, derr.StatusCode, derr.Body),
			err,
			map[string]any{"upstream_status": derr.StatusCode},
		)
	}
	cause := err
	if derr != nil && derr.Err != nil {
		cause = derr.Err
	}
	return types.NewAppError(
		types.ErrCodeUpstreamWebhook,
		fmt.Sprintf("%s: %v", bodyDeliveryFail, cause),
		err,
	)
}

// errorResponse maps err onto a Response. Errors that are not AppErrors are
// reported as 500 without exposing their text.
func errorResponse(err error) Response {
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		return Response{StatusCode: appErr.HTTPStatus(), Body: appErr.Message}
	}
	return Response{StatusCode: http.StatusInternalServerError, Body: "internal error"}
}

func errorString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// Ensure the production sink satisfies Sink.
var _ Sink = (*teams.Channel)(nil)

// Ensure the production formatter satisfies CardFormatter.
var _ CardFormatter = (*teams.Formatter)(nil)
