// Package teams formats CodeCommit events as Microsoft Teams MessageCards and
// delivers them to an incoming webhook.
//
// Delivery is a single synchronous POST. Only HTTP 200 counts as success;
// Teams connectors answer 200 with body "1" when a card is accepted.
package teams

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"commitcard/internal/types"
)

// maxResponseBodyRead limits how much of a response body is kept for error
// reporting.
const maxResponseBodyRead = 4096

// ErrWebhookURLMissing is returned by NewChannel when no destination is set.
var ErrWebhookURLMissing = errors.New("teams channel: webhook URL is empty")

// DeliveryResult is the outcome of a successful POST.
type DeliveryResult struct {
	Success           bool
	StatusCode        int
	Detail            string
	ProviderMessageID string
}

// DeliveryError reports a POST that did not return HTTP 200. StatusCode is 0
// when no response was received.
type DeliveryError struct {
	StatusCode int
	Body       string
	Err        error
}

// Error implements the error interface.
func (e *DeliveryError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("teams webhook request failed: %v", e.Err)
	}
	return fmt.Sprintf("teams webhook returned %d: %s", e.StatusCode, e.Body)
}

// Unwrap returns the transport error, if any.
func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Doer is the subset of *http.Client used by Channel.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Channel posts cards to one Teams incoming webhook. The destination is fixed
// at construction so the channel never reads process configuration itself.
type Channel struct {
	webhookURL types.SecretString
	userAgent  string
	client     Doer
	logger     types.Logger
	clock      types.Clock
}

// NewChannel creates a Channel for the given webhook. A nil client selects
// an *http.Client with transport defaults.
func NewChannel(webhookURL types.SecretString, userAgent string, client Doer, logger types.Logger) (*Channel, error) {
	if webhookURL.IsZero() {
		return nil, ErrWebhookURLMissing
	}
	if logger == nil {
		return nil, fmt.Errorf("teams channel: logger is nil")
	}
	if client == nil {
		client = &http.Client{}
	}

	return &Channel{
		webhookURL: webhookURL,
		userAgent:  userAgent,
		client:     client,
		logger:     logger,
		clock:      types.RealClock{},
	}, nil
}

// SetClock overrides the clock for testing.
func (c *Channel) SetClock(clock types.Clock) {
	c.clock = clock
}

// Deliver POSTs card to the webhook exactly once. Any status other than 200
// returns a *DeliveryError carrying the status and (truncated) body.
func (c *Channel) Deliver(ctx context.Context, card MessageCard) (*DeliveryResult, error) {
	payload, err := json.Marshal(card)
	if err != nil {
		return nil, fmt.Errorf("teams deliver: failed to encode card: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL.Unmask(), bytes.NewReader(payload))
	if err != nil {
		return nil, &DeliveryError{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Info("delivering teams card",
		"title", card.Title,
		"payload_size", len(payload),
	)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("teams webhook network error", "error", err.Error())
		return nil, &DeliveryError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyRead))

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("teams webhook rejected card",
			"status", resp.StatusCode,
			"body", truncateBody(body),
		)
		return nil, &DeliveryError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	msgID := c.providerMessageID(resp)
	c.logger.Info("teams card delivered",
		"status", resp.StatusCode,
		"provider_message_id", msgID,
	)

	return &DeliveryResult{
		Success:           true,
		StatusCode:        resp.StatusCode,
		Detail:            string(body),
		ProviderMessageID: msgID,
	}, nil
}

// providerMessageID prefers the request id Teams returns and otherwise makes
// a traceable synthetic one: teams-{status}-{unix}-{uuid8}.
func (c *Channel) providerMessageID(resp *http.Response) string {
	for _, h := range []string{"request-id", "X-Request-Id", "X-MS-Request-Id"} {
		if id := resp.Header.Get(h); id != "" {
			return id
		}
	}
	return fmt.Sprintf("teams-%d-%d-%s",
		resp.StatusCode,
		c.clock.Now().Unix(),
		uuid.New().String()[:8],
	)
}

func truncateBody(body []byte) string {
	const maxLen = 200
	if len(body) > maxLen {
		return string(body[:maxLen]) + "..."
	}
	return string(body)
}
