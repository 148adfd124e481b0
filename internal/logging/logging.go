// Package logging builds the JSON slog logger shared by the relay binaries
// and adapts it to types.Logger.
package logging

import (
	"io"
	"log/slog"

	"commitcard/internal/types"
)

// New creates a JSON slog.Logger writing to w at the given level.
func New(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: false,
	}))
}

// Adapter wraps *slog.Logger to implement the types.Logger interface.
// slog.Logger satisfies Info, Error and Warn, but its With returns
// *slog.Logger rather than types.Logger.
type Adapter struct {
	logger *slog.Logger
}

// Compile-time assertion that Adapter implements types.Logger.
var _ types.Logger = (*Adapter)(nil)

// NewAdapter wraps logger.
func NewAdapter(logger *slog.Logger) *Adapter {
	return &Adapter{logger: logger}
}

func (a *Adapter) Info(msg string, args ...any)  { a.logger.Info(msg, args...) }
func (a *Adapter) Error(msg string, args ...any) { a.logger.Error(msg, args...) }
func (a *Adapter) Warn(msg string, args ...any)  { a.logger.Warn(msg, args...) }
func (a *Adapter) With(args ...any) types.Logger {
	return &Adapter{logger: a.logger.With(args...)}
}
