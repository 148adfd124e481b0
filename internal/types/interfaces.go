package types

import "time"

// Clock is injected wherever latency or message IDs depend on the time.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock in UTC.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now().UTC() }

// Logger is the structured logger handed to the relay, the Teams channel and
// the metrics publisher. logging.Adapter implements it over slog.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}
