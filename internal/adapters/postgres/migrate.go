package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
)

//go:embed schema.sql
var schema string

// Migrate creates the tables the gateway uses. It is safe to run repeatedly.
func Migrate(ctx context.Context, db ports.DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
