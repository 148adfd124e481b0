// Package main implements the bootstrap CLI for the relay.
//
// It stores the Teams incoming webhook URL as an SSM SecureString under
// /{env}/commitcard/teams/webhook_url and prints the pointer variable the
// notifier function needs. With --export-env it also writes a .env file
// for the local server.
//
// Usage:
//
//	go run ./cmd/bootstrap --env=dev
//	go run ./cmd/bootstrap --env=prod --profile=prod --webhook-url=https://... --overwrite
//	go run ./cmd/bootstrap --env=dev --export-env
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

var validEnvironments = map[string]bool{
	"dev":     true,
	"staging": true,
	"prod":    true,
}

// STSClient is the subset of STS used to confirm the active identity.
type STSClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// Identity is the AWS principal the tool is about to act as.
type Identity struct {
	AccountID string
	ARN       string
}

func main() {
	envFlag := flag.String("env", "", "Target environment (dev/staging/prod) [required]")
	profileFlag := flag.String("profile", "", "AWS CLI profile (default: uses default credential chain)")
	regionFlag := flag.String("region", "us-east-1", "AWS region")
	webhookFlag := flag.String("webhook-url", "", "Teams incoming webhook URL (prompted for when empty)")
	overwriteFlag := flag.Bool("overwrite", false, "Replace an existing webhook URL parameter")
	exportEnvFlag := flag.Bool("export-env", false, "Write a .env file for the local server after storing the URL")
	exportEnvPath := flag.String("export-env-path", ".env", "Path for the exported .env file")
	flag.Parse()

	if err := checkEnvironment(*envFlag); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
		flag.Usage()
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	awsCfg, err := loadAWSConfig(ctx, *profileFlag, *regionFlag)
	if err != nil {
		logger.Error("initialization failed", "error", err)
		os.Exit(1)
	}

	identity, err := verifyIdentity(ctx, sts.NewFromConfig(awsCfg))
	if err != nil {
		logger.Error("initialization failed", "error", err, "profile", *profileFlag, "region", *regionFlag)
		os.Exit(1)
	}
	logger.Info("AWS identity verified", "account_id", identity.AccountID, "arn", identity.ARN)

	if *envFlag == "prod" && !confirmProduction(os.Stdin, os.Stderr, identity, *regionFlag) {
		fmt.Fprintln(os.Stderr, "Aborted. No changes were made.")
		return
	}

	runner := &Runner{
		SSM:    NewSSMManager(awsCfg, *envFlag, logger),
		In:     os.Stdin,
		Out:    os.Stderr,
		Logger: logger,
	}
	opts := Options{
		Environment:   *envFlag,
		WebhookURL:    *webhookFlag,
		Overwrite:     *overwriteFlag,
		ExportEnv:     *exportEnvFlag,
		ExportEnvPath: *exportEnvPath,
	}
	if err := runner.Run(ctx, opts); err != nil {
		logger.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}

	logger.Info("bootstrap completed", "env", *envFlag, "account", identity.AccountID)
}

func checkEnvironment(env string) error {
	if env == "" {
		return fmt.Errorf("--env is required")
	}
	if !validEnvironments[env] {
		return fmt.Errorf("invalid environment %q (must be dev, staging, or prod)", env)
	}
	return nil
}

func loadAWSConfig(ctx context.Context, profile, region string) (aws.Config, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading AWS config: %w", err)
	}
	return cfg, nil
}

// verifyIdentity calls STS GetCallerIdentity so bad credentials fail before
// anything is written.
func verifyIdentity(ctx context.Context, client STSClient) (*Identity, error) {
	idCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	out, err := client.GetCallerIdentity(idCtx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, fmt.Errorf("verifying AWS identity (STS GetCallerIdentity): %w", err)
	}
	return &Identity{
		AccountID: aws.ToString(out.Account),
		ARN:       aws.ToString(out.Arn),
	}, nil
}

// confirmProduction returns true only when the operator types "yes".
func confirmProduction(in io.Reader, out io.Writer, id *Identity, region string) bool {
	fmt.Fprintln(out, "============================================================")
	fmt.Fprintln(out, "  WARNING: You are targeting the PRODUCTION environment")
	fmt.Fprintln(out, "============================================================")
	fmt.Fprintf(out, "  Account: %s\n", id.AccountID)
	fmt.Fprintf(out, "  Region:  %s\n", region)
	fmt.Fprintf(out, "  ARN:     %s\n", id.ARN)
	fmt.Fprint(out, "Type 'yes' to continue: ")

	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(scanner.Text()), "yes")
}
