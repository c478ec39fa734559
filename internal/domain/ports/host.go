package ports

import (
	"context"
	"time"

	"github.com/kevin07696/valueio-gateway/internal/domain"
)

// OrderRepository is the host platform's order store as the gateway sees it
type OrderRepository interface {
	// GetOrder returns NOT_FOUND when the order does not exist
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	AddNote(ctx context.Context, orderID, content string) error
	ListNotes(ctx context.Context, orderID string) ([]domain.OrderNote, error)

	// GetMeta returns "" when the key is not set
	GetMeta(ctx context.Context, orderID, key string) (string, error)
	SetMeta(ctx context.Context, orderID, key, value string) error
	DeleteMeta(ctx context.Context, orderID, key string) error

	// MarkPaid records payment completion. It returns false when the order
	// was already paid so completion happens at most once.
	MarkPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error)
}

// VaultRepository stores each customer's ordered list of vaulted card ids
type VaultRepository interface {
	ListVaultIDs(ctx context.Context, customerID string) ([]string, error)

	// AppendVaultID adds cardID at the end of the list unless it is already
	// present. It reports whether the list changed.
	AppendVaultID(ctx context.Context, customerID, cardID string) (bool, error)

	// RemoveVaultID removes the entry at index, shifting later entries down.
	// It fails with VAULT_CONFLICT when the entry is no longer expectedID.
	RemoveVaultID(ctx context.Context, customerID string, index int, expectedID string) error
}

// SubscriptionManager exposes the host's subscription bookkeeping
type SubscriptionManager interface {
	OrderHasSubscription(ctx context.Context, orderID string) (bool, error)
	ListByCustomer(ctx context.Context, customerID string) ([]*domain.Subscription, error)
	ListDue(ctx context.Context, asOf time.Time, limit int) ([]*domain.Subscription, error)
	Cancel(ctx context.Context, subscriptionID string) error

	// RecordPaymentSuccess and RecordPaymentFailure apply to every
	// subscription created from the given order.
	RecordPaymentSuccess(ctx context.Context, orderID string) error
	RecordPaymentFailure(ctx context.Context, orderID string) error
}

// CartService empties the shopper's cart after a completed checkout
type CartService interface {
	EmptyCart(ctx context.Context, customerID string) error
}
