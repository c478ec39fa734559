package postgres

import (
	"context"

	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
)

// CartRepository implements ports.CartService over cart_items
type CartRepository struct {
	db ports.DBTX
}

// NewCartRepository creates a cart repository
func NewCartRepository(db ports.DBTX) *CartRepository {
	return &CartRepository{db: db}
}

// EmptyCart removes every item from a customer's cart
func (r *CartRepository) EmptyCart(ctx context.Context, customerID string) error {
	if _, err := r.db.Exec(ctx, `DELETE FROM cart_items WHERE customer_id = $1`, customerID); err != nil {
		return dbError("empty cart", "cart", customerID, err)
	}
	return nil
}
