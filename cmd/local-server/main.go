// Package main runs the relay as a plain HTTP server for local development.
//
// Point an SNS HTTP(S) subscription (through a tunnel) or curl at POST /sns
// and each delivery is relayed exactly as the Lambda entrypoint would relay
// it. SSM pointers are resolved from the process environment instead of AWS.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"commitcard/internal/config"
	"commitcard/internal/logging"
	"commitcard/internal/notifications/core"
	"commitcard/internal/notifications/teams"
	"commitcard/internal/relay"
	"commitcard/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run encapsulates the startup lifecycle so that main() can cleanly exit on error.
func run() error {
	cfg, err := config.LoadConfig(config.NewEnvVarProvider())
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	logger := logging.New(os.Stdout, cfg.SlogLevel())
	logger.Info("local relay server starting",
		"environment", cfg.Environment,
		"version", cfg.Build.Version,
		"port", cfg.Server.Port,
	)

	srv, err := buildServer(cfg, logger)
	if err != nil {
		return err
	}

	return runHTTPServer(srv, cfg, logger)
}

// buildServer wires the relay and mounts the routes. Metrics are never sent
// to CloudWatch from a developer machine.
func buildServer(cfg *config.Config, logger *slog.Logger) (*server.Server, error) {
	typedLogger := logging.NewAdapter(logger)

	channel, err := teams.NewChannel(cfg.Teams.WebhookURL, cfg.Teams.UserAgent, &http.Client{}, typedLogger)
	if err != nil {
		return nil, fmt.Errorf("creating teams channel: %w", err)
	}

	notifier := relay.New(
		teams.NewFormatter(cfg.Console.Region, cfg.Console.DefaultRepository),
		channel,
		core.NoopMetrics{},
		typedLogger,
	)

	srv, err := server.NewServer(notifier, logger, cfg.Build)
	if err != nil {
		return nil, fmt.Errorf("creating server: %w", err)
	}
	srv.MountRoutes()
	return srv, nil
}

// runHTTPServer starts the server with graceful shutdown on SIGINT/SIGTERM.
func runHTTPServer(srv *server.Server, cfg *config.Config, logger *slog.Logger) error {
	addr := ":" + cfg.Server.Port

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      35 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("server shutdown: %w", err)
	}

	logger.Info("server stopped cleanly")
	return nil
}

// Compile-time assertion that the relay satisfies the server contract.
var _ server.Processor = (*relay.Notifier)(nil)
