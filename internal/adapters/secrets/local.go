package secrets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
	"go.uber.org/zap"
)

// localSource reads secrets from files under a base directory.
// WARNING: This is for development only. Use Vault or AWS Secrets Manager in production.
type localSource struct {
	basePath string
	logger   *zap.Logger
}

// NewLocalSource creates a filesystem secret source rooted at basePath
func NewLocalSource(basePath string, logger *zap.Logger) ports.SecretSource {
	return &localSource{basePath: basePath, logger: logger}
}

// GetSecret returns the file contents, or its "value" field when the file is JSON
func (s *localSource) GetSecret(ctx context.Context, path string) (string, error) {
	filePath := filepath.Join(s.basePath, filepath.Clean("/"+path))

	s.logger.Debug("Reading secret from filesystem", zap.String("path", path))

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("secret not found: %s", path)
		}
		return "", fmt.Errorf("failed to read secret: %w", err)
	}

	var wrapped struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Value != "" {
		return wrapped.Value, nil
	}

	return strings.TrimSpace(string(data)), nil
}
