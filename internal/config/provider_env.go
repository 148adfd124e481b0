package config

import (
	"context"
	"os"
)

// EnvVarProvider resolves each key as the name of another environment
// variable, so TEAMS_WEBHOOK_URL_SSM_PARAM=LOCAL_TEAMS_URL works locally with
// no AWS credentials. Unset names are left out of the result.
type EnvVarProvider struct {
	lookup func(string) (string, bool)
}

func NewEnvVarProvider() *EnvVarProvider {
	return &EnvVarProvider{lookup: os.LookupEnv}
}

func (p *EnvVarProvider) GetParametersBatch(_ context.Context, keys []string) (map[string]string, error) {
	found := make(map[string]string, len(keys))
	for _, name := range keys {
		if v, ok := p.lookup(name); ok {
			found[name] = v
		}
	}
	return found, nil
}
