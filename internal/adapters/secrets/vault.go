package secrets

import (
	"context"
	"fmt"
	"time"

	vault "github.com/hashicorp/vault/api"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
	"go.uber.org/zap"
)

// VaultConfig contains configuration for the HashiCorp Vault source
type VaultConfig struct {
	// Vault server address (e.g., "https://vault.example.com:8200")
	Address string

	// Token for token authentication
	Token string

	// KV v2 secrets engine mount path (default: "secret")
	MountPath string
}

type vaultSource struct {
	client    *vault.Client
	mountPath string
	logger    *zap.Logger
}

// NewVaultSource creates a Vault-backed secret source reading from a KV v2 engine
func NewVaultSource(cfg VaultConfig, logger *zap.Logger) (ports.SecretSource, error) {
	vaultConfig := vault.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := vault.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	mount := cfg.MountPath
	if mount == "" {
		mount = "secret"
	}

	logger.Info("Vault secret source initialized",
		zap.String("address", cfg.Address),
		zap.String("mount", mount),
	)

	return &vaultSource{client: client, mountPath: mount, logger: logger}, nil
}

// GetSecret reads mount/data/path and returns its "value" key
func (s *vaultSource) GetSecret(ctx context.Context, path string) (string, error) {
	fullPath := fmt.Sprintf("%s/data/%s", s.mountPath, path)

	startTime := time.Now()
	secret, err := s.client.Logical().ReadWithContext(ctx, fullPath)
	if err != nil {
		s.logger.Error("Failed to retrieve secret from Vault",
			zap.String("path", path),
			zap.Error(err),
		)
		return "", fmt.Errorf("failed to read secret from Vault: %w", err)
	}
	if secret == nil {
		return "", fmt.Errorf("secret not found: %s", path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("invalid secret format from Vault")
	}
	value, ok := data["value"].(string)
	if !ok {
		return "", fmt.Errorf("secret %s has no string value", path)
	}

	s.logger.Debug("Secret retrieved from Vault",
		zap.String("path", path),
		zap.Duration("elapsed", time.Since(startTime)),
	)

	return value, nil
}
