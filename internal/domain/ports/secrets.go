package ports

import "context"

// SecretSource resolves a named secret to its plain value. Paths are
// backend-specific: a file name for the local source, a KV path for Vault,
// a secret id or ARN for AWS Secrets Manager.
type SecretSource interface {
	GetSecret(ctx context.Context, path string) (string, error)
}
