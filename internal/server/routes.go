package server

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"commitcard/internal/types"
)

// requestTimeout mirrors the Lambda function timeout so local runs fail the
// same way a slow webhook would in production.
const requestTimeout = 30 * time.Second

// MountRoutes registers the middleware chain and routes.
//
// Ordering:
//  1. Recoverer      - outermost so every panic is caught.
//  2. ContextTimeout - bounds the webhook POST.
//  3. RequestID      - correlation ID for logs.
//  4. RequestLogger  - one structured line per request.
func (s *Server) MountRoutes() {
	s.router.Use(s.Recoverer)
	s.router.Use(ContextTimeoutMiddleware(requestTimeout))
	s.router.Use(RequestIDMiddleware)
	s.router.Use(RequestLogger(s.Logger))

	s.router.Get("/health", s.HandleHealth)
	s.router.Post("/sns", s.HandleSNS)
}

// ContextTimeoutMiddleware sets a deadline on the request context.
func ContextTimeoutMiddleware(duration time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), duration)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDMiddleware reuses X-Request-Id when present and otherwise
// generates one. The ID is stored via types.WithRequestID and echoed back.
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := types.WithRequestID(r.Context(), requestID)
		w.Header().Set("X-Request-Id", requestID)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
