package config

import "context"

// SecretProvider abstracts the retrieval of secrets so the webhook URL can come
// from AWS SSM Parameter Store in deployed environments and from plain
// environment variables during local development.
type SecretProvider interface {
	// GetParametersBatch resolves the given parameter paths (or equivalent
	// identifiers) and returns a map of key -> plaintext value for every key
	// that was found.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
