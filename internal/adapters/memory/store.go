// Package memory keeps host platform records in process memory. It backs
// development runs and service tests.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kevin07696/valueio-gateway/internal/domain"
)

// Store implements the host ports (orders, vault, subscriptions, carts)
type Store struct {
	mu            sync.RWMutex
	orders        map[string]*domain.Order
	notes         map[string][]domain.OrderNote
	meta          map[string]map[string]string
	vault         map[string][]string
	subscriptions map[string]*domain.Subscription
	carts         map[string][]string
	now           func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		orders:        make(map[string]*domain.Order),
		notes:         make(map[string][]domain.OrderNote),
		meta:          make(map[string]map[string]string),
		vault:         make(map[string][]string),
		subscriptions: make(map[string]*domain.Subscription),
		carts:         make(map[string][]string),
		now:           time.Now,
	}
}

// PutOrder adds or replaces an order
func (s *Store) PutOrder(order domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := order
	s.orders[order.ID] = &o
}

// PutSubscription adds or replaces a subscription
func (s *Store) PutSubscription(sub domain.Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := sub
	s.subscriptions[sub.ID] = &cp
}

// SaveOrder stores order, replacing any order with the same id
func (s *Store) SaveOrder(ctx context.Context, order *domain.Order) error {
	s.PutOrder(*order)
	return nil
}

// SaveSubscription stores sub, replacing any subscription with the same id
func (s *Store) SaveSubscription(ctx context.Context, sub *domain.Subscription) error {
	s.PutSubscription(*sub)
	return nil
}

// AddCartItem puts a product in a customer's cart
func (s *Store) AddCartItem(customerID, productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.carts[customerID] = append(s.carts[customerID], productID)
}

// CartItems returns the products in a customer's cart
func (s *Store) CartItems(customerID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.carts[customerID]...)
}

// GetSubscription returns a copy of a subscription
func (s *Store) GetSubscription(id string) (*domain.Subscription, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, false
	}
	cp := *sub
	return &cp, true
}

// OrderRepository

func (s *Store) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return nil, domain.NewNotFoundError("order", orderID)
	}
	cp := *o
	return &cp, nil
}

func (s *Store) AddNote(ctx context.Context, orderID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		return domain.NewNotFoundError("order", orderID)
	}
	s.notes[orderID] = append(s.notes[orderID], domain.OrderNote{
		ID:        uuid.NewString(),
		OrderID:   orderID,
		Content:   content,
		CreatedAt: s.now().UTC(),
	})
	return nil
}

func (s *Store) ListNotes(ctx context.Context, orderID string) ([]domain.OrderNote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.OrderNote(nil), s.notes[orderID]...), nil
}

func (s *Store) GetMeta(ctx context.Context, orderID, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta[orderID][key], nil
}

func (s *Store) SetMeta(ctx context.Context, orderID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.orders[orderID]; !ok {
		return domain.NewNotFoundError("order", orderID)
	}
	if s.meta[orderID] == nil {
		s.meta[orderID] = make(map[string]string)
	}
	s.meta[orderID][key] = value
	return nil
}

func (s *Store) DeleteMeta(ctx context.Context, orderID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.meta[orderID], key)
	return nil
}

func (s *Store) MarkPaid(ctx context.Context, orderID string, paidAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return false, domain.NewNotFoundError("order", orderID)
	}
	if o.PaidAt != nil {
		return false, nil
	}
	t := paidAt
	o.PaidAt = &t
	o.Status = domain.OrderStatusProcessing
	return true, nil
}

// VaultRepository

func (s *Store) ListVaultIDs(ctx context.Context, customerID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.vault[customerID]...), nil
}

func (s *Store) AppendVaultID(ctx context.Context, customerID, cardID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range s.vault[customerID] {
		if id == cardID {
			return false, nil
		}
	}
	s.vault[customerID] = append(s.vault[customerID], cardID)
	return true, nil
}

func (s *Store) RemoveVaultID(ctx context.Context, customerID string, index int, expectedID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := s.vault[customerID]
	if index < 0 || index >= len(ids) {
		return domain.NewNotFoundError("payment method", strconv.Itoa(index))
	}
	if ids[index] != expectedID {
		return domain.NewDomainError(domain.ErrorCodeVaultConflict, "stored payment methods changed concurrently").
			WithDetail("index", index)
	}
	s.vault[customerID] = append(ids[:index:index], ids[index+1:]...)
	return nil
}

// SubscriptionManager

func (s *Store) OrderHasSubscription(ctx context.Context, orderID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.subscriptions {
		if sub.OrderID == orderID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) ListByCustomer(ctx context.Context, customerID string) ([]*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Subscription
	for _, sub := range s.subscriptions {
		if sub.CustomerID == customerID {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sortSubscriptions(out)
	return out, nil
}

func (s *Store) ListDue(ctx context.Context, asOf time.Time, limit int) ([]*domain.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.Subscription
	for _, sub := range s.subscriptions {
		if sub.IsDue(asOf) {
			cp := *sub
			out = append(out, &cp)
		}
	}
	sortSubscriptions(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Cancel(ctx context.Context, subscriptionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[subscriptionID]
	if !ok {
		return domain.NewNotFoundError("subscription", subscriptionID)
	}
	if sub.IsCancelled() {
		return nil
	}
	now := s.now().UTC()
	sub.Status = domain.SubscriptionStatusCancelled
	sub.CancelledAt = &now
	return nil
}

func (s *Store) RecordPaymentSuccess(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscriptions {
		if sub.OrderID != orderID || sub.IsCancelled() {
			continue
		}
		sub.NextPaymentAt = sub.CalculateNextPaymentAt()
		sub.FailedPayments = 0
		sub.Status = domain.SubscriptionStatusActive
	}
	return nil
}

func (s *Store) RecordPaymentFailure(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subscriptions {
		if sub.OrderID != orderID || sub.IsCancelled() {
			continue
		}
		sub.FailedPayments++
		sub.Status = domain.SubscriptionStatusOnHold
	}
	return nil
}

// CartService

func (s *Store) EmptyCart(ctx context.Context, customerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, customerID)
	return nil
}

func sortSubscriptions(subs []*domain.Subscription) {
	sort.Slice(subs, func(i, j int) bool {
		if !subs[i].NextPaymentAt.Equal(subs[j].NextPaymentAt) {
			return subs[i].NextPaymentAt.Before(subs[j].NextPaymentAt)
		}
		return subs[i].ID < subs[j].ID
	})
}
