// Package codecommit decodes CodeCommit notification-rule events delivered
// through SNS and classifies them into typed variants.
//
// An SNS delivery carries the CodeCommit notification as a JSON string in its
// Message field, so every event is decoded twice: once for the SNS envelope
// and once for the embedded notification.
package codecommit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"commitcard/internal/types"
)

// SNS message types as they appear in the Type field of an HTTP delivery.
const (
	SNSTypeNotification             = "Notification"
	SNSTypeSubscriptionConfirmation = "SubscriptionConfirmation"
	SNSTypeUnsubscribeConfirmation  = "UnsubscribeConfirmation"
)

// SNSEnvelope is the subset of an SNS delivery the relay reads. Lambda
// delivers the same fields under Records[].Sns.
type SNSEnvelope struct {
	Type         string `json:"Type"`
	MessageID    string `json:"MessageId"`
	TopicArn     string `json:"TopicArn"`
	Subject      string `json:"Subject,omitempty"`
	Message      string `json:"Message"`
	Timestamp    string `json:"Timestamp"`
	SubscribeURL string `json:"SubscribeURL,omitempty"`
}

// Message is the CodeCommit notification carried inside the SNS Message.
// Detail and AdditionalAttributes stay raw until the detail type is known.
type Message struct {
	Account              string          `json:"account"`
	DetailType           string          `json:"detailType"`
	Region               string          `json:"region"`
	Source               string          `json:"source"`
	Time                 string          `json:"time"`
	NotificationRuleArn  string          `json:"notificationRuleArn"`
	Resources            []string        `json:"resources"`
	Detail               json.RawMessage `json:"detail"`
	AdditionalAttributes json.RawMessage `json:"additionalAttributes"`
}

// DecodeSNSEnvelope parses the body of an SNS HTTP(S) delivery.
func DecodeSNSEnvelope(body []byte) (*SNSEnvelope, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, malformed("empty SNS body", nil)
	}

	var env SNSEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, malformed("failed to parse SNS envelope", err)
	}
	return &env, nil
}

// DecodeMessage parses the JSON string found in the SNS Message field.
func DecodeMessage(raw string) (*Message, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, malformed("SNS message is empty", nil)
	}

	var msg Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, malformed("SNS message is not a CodeCommit notification", err)
	}
	if msg.DetailType == "" {
		return nil, malformed("notification has no detailType", nil)
	}
	return &msg, nil
}

func malformed(msg string, err error) *types.AppError {
	return types.NewAppError(types.ErrCodeValidationMalformedEnvelope, msg, err)
}

// flexString accepts a JSON string or number. CodeCommit emits identifiers
// and line numbers in either form depending on the event source.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}
