// Package main is the Lambda entrypoint of the CodeCommit to Microsoft Teams
// relay. It is subscribed to the SNS topic that CodeCommit notification rules
// publish to, and relays each event to one Teams incoming webhook.
//
// Configuration is loaded once at cold start. A configuration failure does
// not crash the function: every invocation is answered with a 500 until the
// function is reconfigured, so the failure is visible in the invocation
// result rather than only in init logs.
//
// With APP_ENV=local the binary reads one SNS event from stdin instead of
// starting the Lambda runtime:
//
//	cat testdata/pr_created.json | APP_ENV=local go run ./cmd/notifier
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-lambda-go/lambdacontext"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"commitcard/internal/config"
	"commitcard/internal/logging"
	"commitcard/internal/notifications/core"
	"commitcard/internal/notifications/teams"
	"commitcard/internal/relay"
	"commitcard/internal/security"
	"commitcard/internal/types"
)

// Handler adapts SNS-triggered Lambda invocations onto the relay.
type Handler struct {
	notifier *relay.Notifier
	logger   types.Logger
}

// Handle relays the first SNS record. SNS invokes Lambda with exactly one
// record, so any extra records are logged and ignored.
func (h *Handler) Handle(ctx context.Context, ev events.SNSEvent) (relay.Response, error) {
	logger := h.logger
	if lc, ok := lambdacontext.FromContext(ctx); ok {
		logger = logger.With("aws_request_id", lc.AwsRequestID)
		ctx = types.WithRequestID(ctx, lc.AwsRequestID)
	}
	ctx = types.WithLogger(ctx, logger)

	if len(ev.Records) == 0 {
		logger.Warn("invocation carried no SNS records")
		return h.notifier.Process(ctx, "", ""), nil
	}
	if len(ev.Records) > 1 {
		logger.Warn("ignoring extra SNS records", "record_count", len(ev.Records))
	}

	record := ev.Records[0].SNS
	return h.notifier.Process(ctx, record.MessageID, record.Message), nil
}

// newHandler wires the relay from a loaded configuration. cfgErr is the
// error returned by config.LoadConfig; when it is set, cfg is ignored and
// the handler rejects every invocation.
func newHandler(cfg *config.Config, cfgErr error, metrics core.DeliveryMetrics, client teams.Doer, logger types.Logger) *Handler {
	if cfgErr != nil {
		return &Handler{notifier: relay.NewMisconfigured(cfgErr, logger), logger: logger}
	}

	channel, err := teams.NewChannel(cfg.Teams.WebhookURL, cfg.Teams.UserAgent, client, logger)
	if err != nil {
		return &Handler{notifier: relay.NewMisconfigured(err, logger), logger: logger}
	}

	formatter := teams.NewFormatter(cfg.Console.Region, cfg.Console.DefaultRepository)
	return &Handler{
		notifier: relay.New(formatter, channel, metrics, logger),
		logger:   logger,
	}
}

// newMetrics returns CloudWatch metrics when enabled, falling back to no-op
// metrics if the AWS SDK config cannot be loaded.
func newMetrics(ctx context.Context, cfg *config.Config, logger types.Logger) core.DeliveryMetrics {
	if cfg == nil || !cfg.Observability.EnableMetrics {
		return core.NoopMetrics{}
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		logger.Warn("metrics disabled: failed to load AWS SDK config", "error", err.Error())
		return core.NoopMetrics{}
	}

	return core.NewCloudWatchDeliveryMetrics(
		cloudwatch.NewFromConfig(awsCfg),
		cfg.Observability.MetricNamespace,
		logger,
	)
}

// newWebhookClient guards the webhook POST against internal destinations
// everywhere except local runs, which commonly target a stub on localhost.
func newWebhookClient(cfg *config.Config, logger types.Logger) teams.Doer {
	if cfg == nil || cfg.Environment == "local" {
		return &http.Client{}
	}

	client, err := security.NewWebhookClient()
	if err != nil {
		logger.Error("failed to build guarded webhook client; using default transport", "error", err.Error())
		return &http.Client{}
	}
	return client
}

func main() {
	cfg, cfgErr := config.LoadConfig(config.NewSSMProvider(os.Getenv("AWS_REGION")))

	// LOG_LEVEL is still honoured when the rest of the configuration failed.
	level := config.ParseLogLevel(os.Getenv("LOG_LEVEL"))
	if cfg != nil {
		level = cfg.SlogLevel()
	}
	logger := logging.New(os.Stdout, level)
	typedLogger := logging.NewAdapter(logger)

	if cfgErr != nil {
		logger.Error("configuration failed; every invocation will be rejected", "error", cfgErr)
	} else {
		logger.Info("notifier initializing (cold start)",
			"environment", cfg.Environment,
			"version", cfg.Build.Version,
			"commit", cfg.Build.Commit,
			"metrics_enabled", cfg.Observability.EnableMetrics,
		)
	}

	metrics := newMetrics(context.Background(), cfg, typedLogger)
	handler := newHandler(cfg, cfgErr, metrics, newWebhookClient(cfg, typedLogger), typedLogger)

	if os.Getenv("APP_ENV") == "local" {
		if err := runLocal(handler, os.Stdin, os.Stdout); err != nil {
			logger.Error("local invocation failed", "error", err)
			os.Exit(1)
		}
		return
	}

	lambda.Start(handler.Handle)
}

// runLocal reads one SNS event as JSON from r, invokes the handler and writes
// the Response to w.
func runLocal(handler *Handler, r io.Reader, w io.Writer) error {
	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	if len(payload) == 0 {
		return fmt.Errorf("no input received on stdin")
	}

	var ev events.SNSEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return fmt.Errorf("parsing stdin as SNS event: %w", err)
	}

	resp, err := handler.Handle(context.Background(), ev)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
