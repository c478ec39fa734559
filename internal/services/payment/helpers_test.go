package payment

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/adapters/memory"
	"github.com/kevin07696/valueio-gateway/internal/config"
	"github.com/kevin07696/valueio-gateway/internal/domain"
)

// MockProcessor mocks ports.ProcessorClient
type MockProcessor struct {
	mock.Mock
}

func (m *MockProcessor) Get(ctx context.Context, resource string) (*domain.RawResponse, error) {
	args := m.Called(ctx, resource)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RawResponse), args.Error(1)
}

func (m *MockProcessor) Post(ctx context.Context, resource string, params url.Values) (*domain.RawResponse, error) {
	args := m.Called(ctx, resource, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RawResponse), args.Error(1)
}

func (m *MockProcessor) Delete(ctx context.Context, resource string, params url.Values) (*domain.RawResponse, error) {
	args := m.Called(ctx, resource, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RawResponse), args.Error(1)
}

// storeVault adapts the memory store to CardVault
type storeVault struct {
	store *memory.Store
}

func (v storeVault) List(ctx context.Context, customerID string) ([]string, error) {
	return v.store.ListVaultIDs(ctx, customerID)
}

func (v storeVault) Append(ctx context.Context, customerID, cardID string) error {
	_, err := v.store.AppendVaultID(ctx, customerID, cardID)
	return err
}

type fixture struct {
	svc       *Service
	store     *memory.Store
	processor *MockProcessor
	now       time.Time
}

const (
	testOrderID    = "100"
	testCustomerID = "7"
)

func testGatewayConfig() config.GatewayConfig {
	return config.GatewayConfig{
		Enabled:      true,
		AccountID:    "acme",
		WriteToken:   "write-token",
		AdminToken:   "admin-token",
		TestMode:     true,
		VaultEnabled: true,
		Title:        "ValueIO Payment",
		Description:  "ValueIO Secure Payment",
		Currency:     "USD",
	}
}

func testOrder() domain.Order {
	return domain.Order{
		ID:         testOrderID,
		Key:        "wc_order_abc",
		CustomerID: testCustomerID,
		Total:      decimal.RequireFromString("49.99"),
		Currency:   "USD",
		Status:     domain.OrderStatusPending,
		Billing: domain.Address{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Address1:  "1 Main St",
			City:      "Austin",
			State:     "TX",
			Postcode:  "78701",
			Country:   "US",
			Email:     "ada@example.com",
			Phone:     "555-0100",
		},
		Shipping: domain.Address{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Address1:  "1 Main St",
			City:      "Austin",
			State:     "TX",
			Postcode:  "78701",
			Country:   "US",
		},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := memory.NewStore()
	store.PutOrder(testOrder())
	store.AddCartItem(testCustomerID, "sku-1")

	processor := new(MockProcessor)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	svc := NewService(Dependencies{
		Config:        testGatewayConfig(),
		Processor:     processor,
		Orders:        store,
		Subscriptions: store,
		Carts:         store,
		Vault:         storeVault{store: store},
		Links:         Links{BaseURL: "https://shop.example.com"},
		Logger:        zap.NewNop(),
		Now:           func() time.Time { return now },
	})

	return &fixture{svc: svc, store: store, processor: processor, now: now}
}

func (f *fixture) order(t *testing.T) *domain.Order {
	t.Helper()
	order, err := f.store.GetOrder(context.Background(), testOrderID)
	if err != nil {
		t.Fatalf("load order: %v", err)
	}
	return order
}

func (f *fixture) notes(t *testing.T) []string {
	t.Helper()
	notes, err := f.store.ListNotes(context.Background(), testOrderID)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	out := make([]string, 0, len(notes))
	for _, n := range notes {
		out = append(out, n.Content)
	}
	return out
}

func (f *fixture) vault(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if _, err := f.store.AppendVaultID(context.Background(), testCustomerID, id); err != nil {
			t.Fatalf("seed vault: %v", err)
		}
	}
}

func response(status int, body string) *domain.RawResponse {
	return &domain.RawResponse{StatusCode: status, Body: []byte(body)}
}

func formWith(key, value string) interface{} {
	return mock.MatchedBy(func(form url.Values) bool {
		return form.Get(key) == value
	})
}
