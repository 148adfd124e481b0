package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Options holds the parsed flags of one bootstrap run.
type Options struct {
	Environment   string
	WebhookURL    string
	Overwrite     bool
	ExportEnv     bool
	ExportEnvPath string
}

// Runner stores the webhook URL in SSM and optionally exports a .env file.
type Runner struct {
	SSM    *SSMManager
	In     io.Reader
	Out    io.Writer
	Logger *slog.Logger
}

// Run executes the bootstrap steps. The webhook URL is prompted for on In
// when not supplied as a flag. An existing parameter is left untouched
// unless Overwrite is set.
func (r *Runner) Run(ctx context.Context, opts Options) error {
	path := r.SSM.SSMPath(webhookParamKey)

	exists, err := r.SSM.ParameterExists(ctx, path)
	if err != nil {
		return err
	}

	if exists && !opts.Overwrite {
		r.Logger.Info("webhook URL already stored; skipping", "path", path)
	} else {
		webhookURL := opts.WebhookURL
		if webhookURL == "" {
			if webhookURL, err = r.prompt("Teams incoming webhook URL: "); err != nil {
				return err
			}
		}
		if err := validateWebhookURL(webhookURL); err != nil {
			return err
		}
		if err := r.SSM.PutSecret(ctx, path, webhookURL, opts.Overwrite); err != nil {
			return err
		}
	}

	fmt.Fprintf(r.Out, "Set on the notifier function:\n  TEAMS_WEBHOOK_URL_SSM_PARAM=%s\n", path)

	if opts.ExportEnv {
		return r.exportEnv(ctx, path, opts.ExportEnvPath)
	}
	return nil
}

func (r *Runner) prompt(label string) (string, error) {
	fmt.Fprint(r.Out, label)
	scanner := bufio.NewScanner(r.In)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("reading input: %w", err)
		}
		return "", fmt.Errorf("no webhook URL entered")
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// exportEnv reads the stored URL back and writes a .env usable by the local
// server. The file holds a credential, so it is restricted to the owner.
func (r *Runner) exportEnv(ctx context.Context, path, outPath string) error {
	value, err := r.SSM.GetSecret(ctx, path)
	if err != nil {
		return err
	}

	env := map[string]string{
		"APP_ENV":           "local",
		"LOG_LEVEL":         "debug",
		"TEAMS_WEBHOOK_URL": value,
		"ENABLE_METRICS":    "false",
	}
	if err := godotenv.Write(env, outPath); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	if err := os.Chmod(outPath, 0o600); err != nil {
		return fmt.Errorf("restricting permissions on %s: %w", outPath, err)
	}

	r.Logger.Info(".env file exported", "path", outPath, "keys", len(env))
	return nil
}

// validateWebhookURL applies the same rule the relay's config loader uses.
func validateWebhookURL(raw string) error {
	if err := validator.New().Var(raw, "required,url"); err != nil {
		return fmt.Errorf("invalid webhook URL: %w", err)
	}
	if !strings.HasPrefix(raw, "https://") {
		return fmt.Errorf("invalid webhook URL: must use https")
	}
	return nil
}
