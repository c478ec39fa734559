package ports

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx, so repositories run
// unchanged inside or outside a transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxFunc is the unit of work handed to a TransactionManager
type TxFunc func(ctx context.Context, tx pgx.Tx) error

// TransactionManager commits fn's work atomically; any error rolls back.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn TxFunc) error
}
