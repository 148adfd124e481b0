// Package config defines the configuration structure for the CodeCommit
// notification relay. Configuration is loaded once at process initialization
// (Lambda Cold Start) and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing webhook URL is reported as a ConfigError rather than a panic: the
// Lambda handler keeps running and answers every invocation with a 500 until
// the function is reconfigured.
package config

import (
	"commitcard/internal/types"
)

// SecretString is an alias for types.SecretString.
type SecretString = types.SecretString

// Config is the top-level configuration struct for the relay.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"prod" validate:"oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"commitcard-notifier"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Domain Configurations
	Teams         TeamsConfig
	Console       ConsoleConfig
	Server        ServerConfig
	Observability ObservabilityConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// TeamsConfig holds the destination incoming webhook. The URL embeds its own
// credential, so it is typically supplied through TEAMS_WEBHOOK_URL_SSM_PARAM.
// UserAgent defaults to Build.UserAgent().
type TeamsConfig struct {
	WebhookURL SecretString `envconfig:"TEAMS_WEBHOOK_URL" validate:"required,url"`
	UserAgent  string       `envconfig:"TEAMS_USER_AGENT"`
}

// ConsoleConfig controls the AWS console links placed on each card.
type ConsoleConfig struct {
	// Region is used when the event itself carries no region.
	Region string `envconfig:"CONSOLE_REGION" default:"us-east-1" validate:"required"`
	// DefaultRepository is linked from comment cards whose event omits the
	// repository name.
	DefaultRepository string `envconfig:"CODECOMMIT_DEFAULT_REPOSITORY"`
}

// ServerConfig is only read by the local development server.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8080"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"CommitCard"`
	EnableMetrics   bool   `envconfig:"ENABLE_METRICS" default:"true"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required environment variable was not found.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
