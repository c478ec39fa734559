package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kevin07696/valueio-gateway/internal/config"
	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/handlers/checkout"
	"github.com/kevin07696/valueio-gateway/pkg/middleware"
	"github.com/kevin07696/valueio-gateway/pkg/resilience"
)

const fixturesJSON = `{
  "orders": [
    {"id": "100", "key": "wc_order_abc", "customer_id": "7", "currency": "USD", "total": "49.99", "status": "pending",
     "billing": {"first_name": "Ada", "last_name": "Lovelace"}}
  ],
  "subscriptions": [
    {"id": "sub_1", "order_id": "100", "customer_id": "7", "status": "active", "amount": "9.99",
     "interval_unit": "month", "interval_value": 1, "next_payment_at": "2026-01-01T00:00:00Z"}
  ],
  "vaults": {"7": ["card_1", "card_2"]},
  "meta": {"100": {"valueio_vault_id": "card_1"}}
}`

func testApp(t *testing.T) *app {
	t.Helper()

	t.Setenv("VALUEIO_GATEWAY_ACCOUNT_ID", "acct")
	t.Setenv("VALUEIO_GATEWAY_WRITE_TOKEN", "write")
	t.Setenv("VALUEIO_GATEWAY_ADMIN_TOKEN", "admin")
	t.Setenv("VALUEIO_SERVER_PUBLIC_BASE_URL", "https://shop.example")
	t.Setenv("VALUEIO_SERVER_INTERNAL_SECRET", "internal")
	t.Setenv("VALUEIO_CRON_SECRET", "cron")
	t.Setenv("VALUEIO_LOGGER_LEVEL", "error")

	a, err := newApp(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(a.close)

	path := filepath.Join(t.TempDir(), "fixtures.json")
	require.NoError(t, os.WriteFile(path, []byte(fixturesJSON), 0600))
	require.NoError(t, loadFixtures(context.Background(), a.store, a.vaultRepo, path))

	return a
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("production", config.LoggerConfig{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = newLogger("development", config.LoggerConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestLoadFixtures(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()

	order, err := a.store.GetOrder(ctx, "100")
	require.NoError(t, err)
	assert.Equal(t, "49.99", order.Total.StringFixed(2))
	assert.Equal(t, "Ada", order.Billing.FirstName)

	ids, err := a.vaultRepo.ListVaultIDs(ctx, "7")
	require.NoError(t, err)
	assert.Equal(t, []string{"card_1", "card_2"}, ids)

	pinned, err := a.store.GetMeta(ctx, "100", domain.MetaVaultID)
	require.NoError(t, err)
	assert.Equal(t, "card_1", pinned)

	subs, err := a.store.ListByCustomer(ctx, "7")
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub_1", subs[0].ID)
}

func TestRoutes(t *testing.T) {
	a := testApp(t)
	a.logger = zap.NewNop()

	limiter := middleware.NewRateLimiter(100, 100, zap.NewNop())
	defer limiter.Shutdown()
	handler := a.routes(limiter, resilience.TestTimeoutConfig())

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("checkout redirects to the pay page", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders/100/checkout", strings.NewReader(url.Values{}.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp checkout.CheckoutResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "success", resp.Result)
		assert.True(t, strings.HasPrefix(resp.Redirect, "https://shop.example/orders/100/pay?"))
		assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))
		assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "value.io")
	})

	t.Run("unknown order", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/orders/999/checkout", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("cron requires secret", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/cron/process-billing", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Empty(t, rec.Header().Get("Content-Security-Policy"))
	})

	t.Run("account requires secret", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/customers/7/payment-methods", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	root := newRootCommand()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"serve", "bill", "check", "migrate"})
}
