// Package server is the local development chassis for the relay. It accepts
// SNS HTTP(S) subscription deliveries on a chi router and runs each one
// through the same relay.Notifier the Lambda entrypoint uses.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"commitcard/internal/config"
	"commitcard/internal/relay"
)

// Processor runs one SNS message through the relay. *relay.Notifier is the
// production implementation.
type Processor interface {
	Process(ctx context.Context, messageID, message string) relay.Response
}

// Server encapsulates the dependencies of the local HTTP endpoint.
type Server struct {
	Processor Processor
	Logger    *slog.Logger
	Build     config.BuildInfo

	router *chi.Mux
}

// NewServer validates dependencies and prepares the router. Call MountRoutes
// before serving.
func NewServer(processor Processor, logger *slog.Logger, build config.BuildInfo) (*Server, error) {
	if processor == nil {
		return nil, fmt.Errorf("processor must not be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger must not be nil")
	}

	return &Server{
		Processor: processor,
		Logger:    logger,
		Build:     build,
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the http.Handler for the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router returns the underlying chi.Mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}
