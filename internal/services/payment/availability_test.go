package payment

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/valueio-gateway/internal/config"
	"github.com/kevin07696/valueio-gateway/internal/domain"
)

func unusableConfigs() map[string]config.GatewayConfig {
	disabled := testGatewayConfig()
	disabled.Enabled = false

	euro := testGatewayConfig()
	euro.Currency = "EUR"

	noAccount := testGatewayConfig()
	noAccount.AccountID = ""

	return map[string]config.GatewayConfig{
		"disabled":             disabled,
		"unsupported currency": euro,
		"missing account":      noAccount,
	}
}

func TestProcessPayment_UnusableGatewayNeverCharges(t *testing.T) {
	for name, cfg := range unusableConfigs() {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.vault(t, "cc_1")
			f.svc.cfg = cfg

			outcome, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{UseStored: true})
			require.Error(t, err)
			assert.Nil(t, outcome)
			assert.True(t, domain.IsDomainError(err, domain.ErrorCodeConfiguration))

			assert.False(t, f.order(t).IsPaid())
			f.processor.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestReceipt_UnusableGatewayNeverCallsProcessor(t *testing.T) {
	for name, cfg := range unusableConfigs() {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.svc.cfg = cfg

			_, err := f.svc.Receipt(context.Background(), testOrderID, "")
			assert.True(t, domain.IsDomainError(err, domain.ErrorCodeConfiguration))

			_, err = f.svc.Receipt(context.Background(), testOrderID, "pay_1")
			assert.True(t, domain.IsDomainError(err, domain.ErrorCodeConfiguration))

			assert.False(t, f.order(t).IsPaid())
			f.processor.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
			f.processor.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
		})
	}
}

func TestChargeSubscription_UnusableGatewayKeepsSubscriptionActive(t *testing.T) {
	for name, cfg := range unusableConfigs() {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			f.svc.cfg = cfg
			require.NoError(t, f.store.SetMeta(context.Background(), testOrderID, domain.MetaVaultID, "cc_1"))

			result := f.svc.ChargeSubscription(context.Background(), decimal.Zero, testOrderID)
			assert.False(t, result.Success)
			assert.True(t, domain.IsDomainError(result.Err, domain.ErrorCodeConfiguration))
			assert.Empty(t, f.notes(t))

			f.processor.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestChangePaymentMethod_UnusableGatewayLeavesPinnedCard(t *testing.T) {
	f := newFixture(t)
	f.vault(t, "cc_1", "cc_2")
	require.NoError(t, f.store.SetMeta(context.Background(), testOrderID, domain.MetaVaultID, "cc_1"))
	f.svc.cfg = unusableConfigs()["disabled"]

	_, err := f.svc.ChangePaymentMethod(context.Background(), testOrderID, ChangeRequest{
		PaymentMethod: GatewayID,
		UseStored:     true,
		MethodIndex:   1,
	})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeConfiguration))

	_, err = f.svc.ChangePaymentMethod(context.Background(), testOrderID, ChangeRequest{})
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeConfiguration), "no card form for a disabled gateway")

	pinned, _ := f.store.GetMeta(context.Background(), testOrderID, domain.MetaVaultID)
	assert.Equal(t, "cc_1", pinned)
}

func TestRefund_RequiresCredentialsOnly(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg = unusableConfigs()["missing account"]

	_, err := f.svc.Refund(context.Background(), testOrderID, nil, "")
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeConfiguration))

	// refunds of earlier payments still go through while checkout is switched off
	f.svc.cfg = unusableConfigs()["disabled"]
	_, err = f.svc.Refund(context.Background(), testOrderID, nil, "")
	require.Error(t, err)
	assert.False(t, domain.IsDomainError(err, domain.ErrorCodeConfiguration))

	f.processor.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
}
