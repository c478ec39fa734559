package secrets

import (
	"context"
	"fmt"

	"github.com/kevin07696/valueio-gateway/internal/config"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
	"go.uber.org/zap"
)

// NewSource builds the secret source selected by cfg.Backend, wrapped in a
// cache when CacheTTL is set. Backend "none" returns a nil source.
func NewSource(ctx context.Context, cfg config.SecretsConfig, logger *zap.Logger) (ports.SecretSource, error) {
	var (
		source ports.SecretSource
		err    error
	)

	switch cfg.Backend {
	case "", "none":
		return nil, nil
	case "local":
		source = NewLocalSource(cfg.LocalPath, logger)
	case "vault":
		source, err = NewVaultSource(VaultConfig{
			Address:   cfg.VaultAddress,
			Token:     cfg.VaultToken,
			MountPath: cfg.VaultMount,
		}, logger)
	case "aws":
		source, err = NewAWSSource(ctx, cfg.AWSRegion, cfg.AWSEndpoint, logger)
	default:
		return nil, fmt.Errorf("unsupported secrets backend: %s", cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	return WithCache(source, cfg.CacheTTL), nil
}

// ResolveGatewayTokens fills the processor write and admin tokens from source
// when they are empty in cfg and a path is configured for them
func ResolveGatewayTokens(ctx context.Context, cfg *config.Config, source ports.SecretSource) error {
	if source == nil {
		return nil
	}

	targets := []struct {
		name  string
		path  string
		token *string
	}{
		{"write_token", cfg.Secrets.WriteTokenPath, &cfg.Gateway.WriteToken},
		{"admin_token", cfg.Secrets.AdminTokenPath, &cfg.Gateway.AdminToken},
	}

	for _, t := range targets {
		if *t.token != "" || t.path == "" {
			continue
		}
		value, err := source.GetSecret(ctx, t.path)
		if err != nil {
			return fmt.Errorf("failed to resolve gateway %s: %w", t.name, err)
		}
		*t.token = value
	}

	return nil
}
