package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
)

// SubscriptionRepository implements ports.SubscriptionManager over the
// subscriptions table
type SubscriptionRepository struct {
	db  ports.DBTX
	txm ports.TransactionManager
}

// NewSubscriptionRepository creates a subscription repository
func NewSubscriptionRepository(db ports.DBTX, txm ports.TransactionManager) *SubscriptionRepository {
	return &SubscriptionRepository{db: db, txm: txm}
}

const subscriptionColumns = `id, order_id, customer_id, status, amount::text, interval_unit, interval_value,
next_payment_at, failed_payments, cancelled_at`

func scanSubscription(row pgx.Row) (*domain.Subscription, error) {
	var (
		sub         domain.Subscription
		status      string
		amount      string
		unit        string
		cancelledAt pgtype.Timestamptz
	)
	if err := row.Scan(
		&sub.ID, &sub.OrderID, &sub.CustomerID, &status, &amount, &unit, &sub.IntervalValue,
		&sub.NextPaymentAt, &sub.FailedPayments, &cancelledAt,
	); err != nil {
		return nil, err
	}

	parsed, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	sub.Amount = parsed
	sub.Status = domain.SubscriptionStatus(status)
	sub.IntervalUnit = domain.IntervalUnit(unit)
	sub.NextPaymentAt = sub.NextPaymentAt.UTC()
	sub.CancelledAt = timePtr(cancelledAt)
	return &sub, nil
}

func collectSubscriptions(rows pgx.Rows) ([]*domain.Subscription, error) {
	defer rows.Close()

	var subs []*domain.Subscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// SaveSubscription inserts or replaces a subscription as the host publishes it
func (r *SubscriptionRepository) SaveSubscription(ctx context.Context, sub *domain.Subscription) error {
	_, err := r.db.Exec(ctx, `
INSERT INTO subscriptions (id, order_id, customer_id, status, amount, interval_unit, interval_value,
    next_payment_at, failed_payments, cancelled_at)
VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
    status = EXCLUDED.status,
    amount = EXCLUDED.amount,
    interval_unit = EXCLUDED.interval_unit,
    interval_value = EXCLUDED.interval_value,
    next_payment_at = EXCLUDED.next_payment_at,
    failed_payments = EXCLUDED.failed_payments,
    cancelled_at = EXCLUDED.cancelled_at,
    updated_at = now()`,
		sub.ID, sub.OrderID, sub.CustomerID, string(sub.Status), sub.Amount.String(),
		string(sub.IntervalUnit), sub.IntervalValue, sub.NextPaymentAt, sub.FailedPayments, sub.CancelledAt,
	)
	if err != nil {
		return dbError("save subscription", "subscription", sub.ID, err)
	}
	return nil
}

// OrderHasSubscription reports whether any subscription was created from orderID
func (r *SubscriptionRepository) OrderHasSubscription(ctx context.Context, orderID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM subscriptions WHERE order_id = $1)`, orderID,
	).Scan(&exists)
	if err != nil {
		return false, dbError("check order subscription", "order", orderID, err)
	}
	return exists, nil
}

// ListByCustomer returns every subscription of a customer
func (r *SubscriptionRepository) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Subscription, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions WHERE customer_id = $1 ORDER BY next_payment_at, id`,
		customerID,
	)
	if err != nil {
		return nil, dbError("list customer subscriptions", "customer", customerID, err)
	}
	return collectSubscriptions(rows)
}

// ListDue returns active subscriptions whose next payment is at or before asOf
func (r *SubscriptionRepository) ListDue(ctx context.Context, asOf time.Time, limit int) ([]*domain.Subscription, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+subscriptionColumns+` FROM subscriptions
WHERE status = $1 AND next_payment_at <= $2
ORDER BY next_payment_at, id
LIMIT $3`,
		string(domain.SubscriptionStatusActive), asOf, limit,
	)
	if err != nil {
		return nil, dbError("list due subscriptions", "subscription", "", err)
	}
	return collectSubscriptions(rows)
}

// Cancel marks a subscription cancelled. Cancelling twice is a no-op.
func (r *SubscriptionRepository) Cancel(ctx context.Context, subscriptionID string) error {
	tag, err := r.db.Exec(ctx, `
UPDATE subscriptions
SET status = $2, cancelled_at = COALESCE(cancelled_at, now()), updated_at = now()
WHERE id = $1`,
		subscriptionID, string(domain.SubscriptionStatusCancelled),
	)
	if err != nil {
		return dbError("cancel subscription", "subscription", subscriptionID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("subscription", subscriptionID)
	}
	return nil
}

// RecordPaymentSuccess advances the next payment date of the order's
// subscriptions by one interval and clears the failure count
func (r *SubscriptionRepository) RecordPaymentSuccess(ctx context.Context, orderID string) error {
	return r.updateForOrder(ctx, orderID, func(sub *domain.Subscription) {
		sub.NextPaymentAt = sub.CalculateNextPaymentAt()
		sub.FailedPayments = 0
		sub.Status = domain.SubscriptionStatusActive
	})
}

// RecordPaymentFailure puts the order's subscriptions on hold
func (r *SubscriptionRepository) RecordPaymentFailure(ctx context.Context, orderID string) error {
	return r.updateForOrder(ctx, orderID, func(sub *domain.Subscription) {
		sub.FailedPayments++
		sub.Status = domain.SubscriptionStatusOnHold
	})
}

func (r *SubscriptionRepository) updateForOrder(ctx context.Context, orderID string, apply func(*domain.Subscription)) error {
	return r.txm.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT `+subscriptionColumns+` FROM subscriptions
WHERE order_id = $1 AND status <> $2
FOR UPDATE`,
			orderID, string(domain.SubscriptionStatusCancelled),
		)
		if err != nil {
			return dbError("lock order subscriptions", "order", orderID, err)
		}
		subs, err := collectSubscriptions(rows)
		if err != nil {
			return err
		}

		for _, sub := range subs {
			apply(sub)
			if _, err := tx.Exec(ctx, `
UPDATE subscriptions
SET status = $2, next_payment_at = $3, failed_payments = $4, updated_at = now()
WHERE id = $1`,
				sub.ID, string(sub.Status), sub.NextPaymentAt, sub.FailedPayments,
			); err != nil {
				return dbError("update subscription", "subscription", sub.ID, err)
			}
		}
		return nil
	})
}
