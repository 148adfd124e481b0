package server

import (
	"errors"
	"io"
	"net/http"

	"commitcard/internal/codecommit"
	"commitcard/internal/types"
)

// maxSNSBodySize is the SNS maximum message size plus room for the envelope.
const maxSNSBodySize = 512 << 10

// snsMessageTypeHeader is set by SNS on every HTTP(S) delivery.
const snsMessageTypeHeader = "x-amz-sns-message-type"

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Commit  string `json:"commit,omitempty"`
}

type subscriptionResponse struct {
	Status       string `json:"status"`
	SubscribeURL string `json:"subscribe_url,omitempty"`
}

// HandleHealth reports liveness and build metadata.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	JSON(w, r, http.StatusOK, healthResponse{
		Status:  "healthy",
		Version: s.Build.Version,
		Commit:  s.Build.Commit,
	})
}

// HandleSNS accepts one SNS HTTP(S) delivery.
//
// Notification deliveries are processed by the relay and answered with the
// relay Response, using its statusCode as the HTTP status. Subscription
// confirmations are only logged: the SubscribeURL has to be visited by hand,
// which keeps a local server from silently subscribing itself to a topic.
func (s *Server) HandleSNS(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSNSBodySize))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			Error(w, r, types.NewAppError(types.ErrCodeValidationMalformedEnvelope, "request body is too large", err))
			return
		}
		Error(w, r, types.NewAppError(types.ErrCodeValidationMalformedEnvelope, "failed to read request body", err))
		return
	}

	env, err := codecommit.DecodeSNSEnvelope(body)
	if err != nil {
		Error(w, r, err)
		return
	}

	msgType := env.Type
	if msgType == "" {
		msgType = r.Header.Get(snsMessageTypeHeader)
	}

	logger := s.Logger.With("request_id", types.GetRequestID(r.Context()), "sns_message_id", env.MessageID)

	switch msgType {
	case codecommit.SNSTypeSubscriptionConfirmation:
		logger.Info("sns subscription confirmation received",
			"topic_arn", env.TopicArn,
			"subscribe_url", env.SubscribeURL,
		)
		JSON(w, r, http.StatusOK, subscriptionResponse{
			Status:       "pending_confirmation",
			SubscribeURL: env.SubscribeURL,
		})
	case codecommit.SNSTypeUnsubscribeConfirmation:
		logger.Info("sns unsubscribe confirmation received", "topic_arn", env.TopicArn)
		JSON(w, r, http.StatusOK, subscriptionResponse{Status: "unsubscribed"})
	case codecommit.SNSTypeNotification:
		resp := s.Processor.Process(r.Context(), env.MessageID, env.Message)
		JSON(w, r, resp.StatusCode, resp)
	default:
		Error(w, r, types.NewAppErrorWithDetails(
			types.ErrCodeValidationMalformedEnvelope,
			"unsupported SNS message type",
			nil,
			map[string]any{"type": msgType},
		))
	}
}
