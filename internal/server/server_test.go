package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commitcard/internal/config"
	"commitcard/internal/relay"
)

type processCall struct {
	messageID string
	message   string
}

// fakeProcessor records calls and returns a fixed response.
type fakeProcessor struct {
	calls []processCall
	resp  relay.Response
	panic bool
}

func (p *fakeProcessor) Process(_ context.Context, messageID, message string) relay.Response {
	if p.panic {
		panic("processor exploded")
	}
	p.calls = append(p.calls, processCall{messageID, message})
	return p.resp
}

func newTestServer(t *testing.T, p Processor) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	s, err := NewServer(p, logger, config.BuildInfo{Version: "1.2.3", Commit: "abc"})
	require.NoError(t, err)
	s.MountRoutes()
	return s
}

func snsBody(t *testing.T, env map[string]any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return bytes.NewReader(raw)
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(nil, slog.Default(), config.BuildInfo{})
	assert.Error(t, err)

	_, err = NewServer(&fakeProcessor{}, nil, config.BuildInfo{})
	assert.Error(t, err)
}

func TestHandleHealth(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	var body healthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, healthResponse{Status: "healthy", Version: "1.2.3", Commit: "abc"}, body)
}

func TestHandleSNS_NotificationPassesThroughRelayResponse(t *testing.T) {
	p := &fakeProcessor{resp: relay.Response{StatusCode: http.StatusInternalServerError, Body: "Failed to send notification to Microsoft Teams (status 503): Service Unavailable"}}
	s := newTestServer(t, p)

	req := httptest.NewRequest(http.MethodPost, "/sns", snsBody(t, map[string]any{
		"Type":      "Notification",
		"MessageId": "m-1",
		"Message":   `{"detailType":"CodeCommit Pull Request State Change"}`,
	}))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Len(t, p.calls, 1)
	assert.Equal(t, "m-1", p.calls[0].messageID)
	assert.Equal(t, `{"detailType":"CodeCommit Pull Request State Change"}`, p.calls[0].message)

	var resp relay.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, p.resp, resp)
}

func TestHandleSNS_TypeFromHeader(t *testing.T) {
	p := &fakeProcessor{resp: relay.Response{StatusCode: http.StatusOK, Body: "ok"}}
	s := newTestServer(t, p)

	req := httptest.NewRequest(http.MethodPost, "/sns", snsBody(t, map[string]any{"Message": "{}"}))
	req.Header.Set(snsMessageTypeHeader, "Notification")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, p.calls, 1)
}

func TestHandleSNS_SubscriptionConfirmationIsNotProcessed(t *testing.T) {
	p := &fakeProcessor{}
	s := newTestServer(t, p)

	req := httptest.NewRequest(http.MethodPost, "/sns", snsBody(t, map[string]any{
		"Type":         "SubscriptionConfirmation",
		"TopicArn":     "arn:aws:sns:us-east-1:123:codecommit",
		"SubscribeURL": "https://sns.us-east-1.amazonaws.com/?Action=ConfirmSubscription",
	}))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, p.calls)

	var body subscriptionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "pending_confirmation", body.Status)
	assert.Contains(t, body.SubscribeURL, "ConfirmSubscription")
}

func TestHandleSNS_Rejections(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"not json", "{"},
		{"unknown type", `{"Type":"Mystery"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProcessor{}
			s := newTestServer(t, p)

			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sns", strings.NewReader(tt.body)))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Empty(t, p.calls)

			var body APIErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, "validation_malformed_envelope", body.Error.Code)
			assert.NotEmpty(t, body.Error.RequestID)
		})
	}
}

func TestHandleSNS_BodyTooLarge(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{})

	big := strings.Repeat("a", maxSNSBodySize+1)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sns", strings.NewReader(big)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "too large")
}

func TestRecoverer(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{panic: true})

	req := httptest.NewRequest(http.MethodPost, "/sns", snsBody(t, map[string]any{"Type": "Notification", "Message": "{}"}))
	req.Header.Set("X-Request-Id", "req-9")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var body APIErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_unexpected_error", body.Error.Code)
}

func TestRequestIDMiddleware_PropagatesHeader(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "given-id")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "given-id", rec.Header().Get("X-Request-Id"))
}

func TestRoutes_MethodNotAllowed(t *testing.T) {
	s := newTestServer(t, &fakeProcessor{})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sns", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
