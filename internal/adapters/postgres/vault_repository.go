package postgres

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
)

// VaultRepository implements ports.VaultRepository over customer_vault
type VaultRepository struct {
	db  ports.DBTX
	txm ports.TransactionManager
}

// NewVaultRepository creates a vault repository
func NewVaultRepository(db ports.DBTX, txm ports.TransactionManager) *VaultRepository {
	return &VaultRepository{db: db, txm: txm}
}

// ListVaultIDs returns the customer's card ids in insertion order
func (r *VaultRepository) ListVaultIDs(ctx context.Context, customerID string) ([]string, error) {
	var ids []string
	err := r.db.QueryRow(ctx,
		`SELECT card_ids FROM customer_vault WHERE customer_id = $1`, customerID,
	).Scan(&ids)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, dbError("list vault ids", "vault", customerID, err)
	}
	return ids, nil
}

// AppendVaultID adds cardID in one statement, so concurrent appends of the
// same card cannot store it twice
func (r *VaultRepository) AppendVaultID(ctx context.Context, customerID, cardID string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
INSERT INTO customer_vault (customer_id, card_ids) VALUES ($1, ARRAY[$2::text])
ON CONFLICT (customer_id) DO UPDATE
SET card_ids = customer_vault.card_ids || $2::text, updated_at = now()
WHERE NOT ($2::text = ANY (customer_vault.card_ids))`,
		customerID, cardID,
	)
	if err != nil {
		return false, dbError("append vault id", "vault", customerID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveVaultID removes the entry at index under a row lock
func (r *VaultRepository) RemoveVaultID(ctx context.Context, customerID string, index int, expectedID string) error {
	return r.txm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var ids []string
		err := tx.QueryRow(ctx,
			`SELECT card_ids FROM customer_vault WHERE customer_id = $1 FOR UPDATE`, customerID,
		).Scan(&ids)
		if err != nil {
			return dbError("lock vault", "vault", customerID, err)
		}

		if index < 0 || index >= len(ids) {
			return domain.NewNotFoundError("payment method", strconv.Itoa(index))
		}
		if ids[index] != expectedID {
			return domain.NewDomainError(domain.ErrorCodeVaultConflict, "stored payment methods changed concurrently").
				WithDetail("index", index)
		}

		remaining := make([]string, 0, len(ids)-1)
		remaining = append(remaining, ids[:index]...)
		remaining = append(remaining, ids[index+1:]...)

		if _, err := tx.Exec(ctx,
			`UPDATE customer_vault SET card_ids = $2, updated_at = now() WHERE customer_id = $1`,
			customerID, remaining,
		); err != nil {
			return dbError("remove vault id", "vault", customerID, err)
		}
		return nil
	})
}
