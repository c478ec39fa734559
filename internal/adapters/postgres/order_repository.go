package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
)

// OrderRepository implements ports.OrderRepository over the orders,
// order_notes and order_meta tables
type OrderRepository struct {
	db ports.DBTX
}

// NewOrderRepository creates an order repository
func NewOrderRepository(db ports.DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

const selectOrder = `
SELECT id, order_key, customer_id, total::text, currency, status, billing, shipping, paid_at, created_at
FROM orders
WHERE id = $1`

// GetOrder loads one order
func (r *OrderRepository) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	var (
		order             domain.Order
		total, status     string
		billing, shipping []byte
		paidAt            pgtype.Timestamptz
	)

	err := r.db.QueryRow(ctx, selectOrder, orderID).Scan(
		&order.ID, &order.Key, &order.CustomerID, &total, &order.Currency, &status,
		&billing, &shipping, &paidAt, &order.CreatedAt,
	)
	if err != nil {
		return nil, dbError("get order", "order", orderID, err)
	}

	if order.Total, err = parseAmount(total); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(billing, &order.Billing); err != nil {
		return nil, fmt.Errorf("decode billing address: %w", err)
	}
	if err := json.Unmarshal(shipping, &order.Shipping); err != nil {
		return nil, fmt.Errorf("decode shipping address: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	order.PaidAt = timePtr(paidAt)

	return &order, nil
}

// SaveOrder inserts or replaces an order as the host platform publishes it
func (r *OrderRepository) SaveOrder(ctx context.Context, order *domain.Order) error {
	billing, err := json.Marshal(order.Billing)
	if err != nil {
		return fmt.Errorf("encode billing address: %w", err)
	}
	shipping, err := json.Marshal(order.Shipping)
	if err != nil {
		return fmt.Errorf("encode shipping address: %w", err)
	}
	status := order.Status
	if status == "" {
		status = domain.OrderStatusPending
	}

	_, err = r.db.Exec(ctx, `
INSERT INTO orders (id, order_key, customer_id, total, currency, status, billing, shipping, paid_at)
VALUES ($1, $2, $3, $4::numeric, $5, $6, $7::jsonb, $8::jsonb, $9)
ON CONFLICT (id) DO UPDATE SET
    order_key = EXCLUDED.order_key,
    customer_id = EXCLUDED.customer_id,
    total = EXCLUDED.total,
    currency = EXCLUDED.currency,
    status = EXCLUDED.status,
    billing = EXCLUDED.billing,
    shipping = EXCLUDED.shipping`,
		order.ID, order.Key, order.CustomerID, order.Total.String(), order.Currency,
		string(status), string(billing), string(shipping), order.PaidAt,
	)
	if err != nil {
		return dbError("save order", "order", order.ID, err)
	}
	return nil
}

// AddNote appends an audit note to an order
func (r *OrderRepository) AddNote(ctx context.Context, orderID, content string) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO order_notes (id, order_id, content) VALUES ($1, $2, $3)`,
		uuid.New(), orderID, content,
	)
	if err != nil {
		return dbError("add order note", "order", orderID, err)
	}
	return nil
}

// ListNotes returns an order's notes oldest first
func (r *OrderRepository) ListNotes(ctx context.Context, orderID string) ([]domain.OrderNote, error) {
	rows, err := r.db.Query(ctx, `
SELECT id::text, order_id, content, created_at
FROM order_notes
WHERE order_id = $1
ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, dbError("list order notes", "order", orderID, err)
	}
	defer rows.Close()

	var notes []domain.OrderNote
	for rows.Next() {
		var n domain.OrderNote
		if err := rows.Scan(&n.ID, &n.OrderID, &n.Content, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan order note: %w", err)
		}
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("list order notes", "order", orderID, err)
	}
	return notes, nil
}

// GetMeta returns "" when the key is not set
func (r *OrderRepository) GetMeta(ctx context.Context, orderID, key string) (string, error) {
	var value string
	err := r.db.QueryRow(ctx,
		`SELECT meta_value FROM order_meta WHERE order_id = $1 AND meta_key = $2`,
		orderID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", dbError("get order meta", "order meta", orderID, err)
	}
	return value, nil
}

// SetMeta writes an order meta value
func (r *OrderRepository) SetMeta(ctx context.Context, orderID, key, value string) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO order_meta (order_id, meta_key, meta_value) VALUES ($1, $2, $3)
ON CONFLICT (order_id, meta_key) DO UPDATE SET meta_value = EXCLUDED.meta_value`,
		orderID, key, value,
	)
	if err != nil {
		return dbError("set order meta", "order", orderID, err)
	}
	return nil
}

// DeleteMeta removes an order meta value
func (r *OrderRepository) DeleteMeta(ctx context.Context, orderID, key string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM order_meta WHERE order_id = $1 AND meta_key = $2`,
		orderID, key,
	)
	if err != nil {
		return dbError("delete order meta", "order", orderID, err)
	}
	return nil
}

// MarkPaid sets paid_at unless it is already set
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `
UPDATE orders SET paid_at = $2, status = $3
WHERE id = $1 AND paid_at IS NULL`,
		orderID, paidAt, string(domain.OrderStatusProcessing),
	)
	if err != nil {
		return false, dbError("mark order paid", "order", orderID, err)
	}
	if tag.RowsAffected() == 1 {
		return true, nil
	}

	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, orderID).Scan(&exists); err != nil {
		return false, dbError("mark order paid", "order", orderID, err)
	}
	if !exists {
		return false, domain.NewNotFoundError("order", orderID)
	}
	return false, nil
}
