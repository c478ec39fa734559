package payment

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/valueio-gateway/internal/domain"
)

const transactedBody = `{"data":{"payment":{"identifier":"pay_1","amount":"49.99","order_id":"100","transacted":true,"credit_card_id":"cc_1"},"credit_card":{"identifier":"cc_1","number":"XXXX-1111","month":"12","year":"2030","vaulted":true}}}`

func TestProcessPayment_StoredCardTransacted(t *testing.T) {
	f := newFixture(t)
	f.vault(t, "cc_1")

	f.processor.On("Post", mock.Anything, "payments", mock.MatchedBy(func(form url.Values) bool {
		return form.Get("payment[credit_card]") == "cc_1" &&
			form.Get("payment[transact]") == "true" &&
			form.Get("payment[amount]") == "49.99" &&
			form.Get("payment[order_id]") == testOrderID
	})).Return(response(http.StatusCreated, transactedBody), nil).Once()

	outcome, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{UseStored: true, MethodIndex: 0})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStateTransacted, outcome.State)
	assert.Equal(t, ResultSuccess, outcome.Result)
	assert.Equal(t, "pay_1", outcome.PaymentID)
	assert.Equal(t, "https://shop.example.com/checkout/order-received/100?key=wc_order_abc", outcome.RedirectURL)

	assert.True(t, f.order(t).IsPaid())
	assert.Empty(t, f.store.CartItems(testCustomerID))
	assert.Contains(t, f.notes(t), "ValueIO payment success. Payment ID: pay_1")

	paymentID, _ := f.store.GetMeta(context.Background(), testOrderID, domain.MetaPaymentID)
	assert.Equal(t, "pay_1", paymentID)

	ids, _ := f.store.ListVaultIDs(context.Background(), testCustomerID)
	assert.Equal(t, []string{"cc_1"}, ids, "vaulting an already stored card leaves the list unchanged")

	f.processor.AssertExpectations(t)
}

func TestProcessPayment_NewVaultedCardIsAppended(t *testing.T) {
	f := newFixture(t)
	f.vault(t, "cc_0")

	body := `{"data":{"payment":{"identifier":"pay_1","amount":49.99,"order_id":100,"transacted":true},"credit_card":{"identifier":"cc_1","vaulted":true}}}`
	f.processor.On("Post", mock.Anything, "payments", formWith("payment[credit_card]", "cc_0")).
		Return(response(http.StatusCreated, body), nil).Once()

	outcome, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{UseStored: true})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateTransacted, outcome.State)

	ids, _ := f.store.ListVaultIDs(context.Background(), testCustomerID)
	assert.Equal(t, []string{"cc_0", "cc_1"}, ids)
}

func TestProcessPayment_AmountMismatchNeverMarksPaid(t *testing.T) {
	f := newFixture(t)
	f.vault(t, "cc_1")

	body := `{"data":{"payment":{"identifier":"pay_1","amount":"39.99","order_id":"100","transacted":true},"credit_card":{"identifier":"cc_1","vaulted":true}}}`
	f.processor.On("Post", mock.Anything, "payments", mock.Anything).
		Return(response(http.StatusCreated, body), nil).Once()

	outcome, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{UseStored: true})
	require.NoError(t, err)

	assert.True(t, outcome.Failed())
	assert.Equal(t, ResultFailure, outcome.Result)
	assert.True(t, domain.IsDomainError(outcome.Err, domain.ErrorCodePaymentMismatch))
	assert.Equal(t, "https://shop.example.com/checkout", outcome.RedirectURL)
	assert.Equal(t, "Error while processing payment: payment amount does not match order.  Please contact the store administrator", outcome.Notice)

	assert.False(t, f.order(t).IsPaid())
	assert.Equal(t, []string{"sku-1"}, f.store.CartItems(testCustomerID))
	assert.Equal(t, []string{"Error while processing payment: payment amount does not match order"}, f.notes(t))
}

func TestProcessPayment_OrderIDMismatch(t *testing.T) {
	f := newFixture(t)
	f.vault(t, "cc_1")

	body := `{"data":{"payment":{"identifier":"pay_1","amount":"49.99","order_id":"101","transacted":true}}}`
	f.processor.On("Post", mock.Anything, "payments", mock.Anything).
		Return(response(http.StatusCreated, body), nil).Once()

	outcome, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{UseStored: true})
	require.NoError(t, err)
	assert.True(t, domain.IsDomainError(outcome.Err, domain.ErrorCodePaymentMismatch))
	assert.False(t, f.order(t).IsPaid())
}

func TestProcessPayment_ProcessorDeclineNotice(t *testing.T) {
	f := newFixture(t)
	f.vault(t, "cc_1")

	f.processor.On("Post", mock.Anything, "payments", mock.Anything).
		Return(response(http.StatusUnprocessableEntity, `{"errors":{"credit_card":["was declined"]}}`), nil).Once()

	outcome, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{UseStored: true})
	require.NoError(t, err)

	assert.True(t, outcome.Failed())
	assert.True(t, domain.IsDomainError(outcome.Err, domain.ErrorCodeProcessor))
	assert.Equal(t, "Error while processing payment: Error response received from Value.IO.  Status: 422.  Please contact the store administrator", outcome.Notice)
	require.Len(t, f.notes(t), 1)
	assert.Contains(t, f.notes(t)[0], `{"errors":{"credit_card":["was declined"]}}`)
}

func TestProcessPayment_NotTransactedFails(t *testing.T) {
	f := newFixture(t)
	f.vault(t, "cc_1")

	body := `{"data":{"payment":{"identifier":"pay_1","amount":"49.99","order_id":"100","transacted":false}}}`
	f.processor.On("Post", mock.Anything, "payments", mock.Anything).
		Return(response(http.StatusCreated, body), nil).Once()

	outcome, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{UseStored: true})
	require.NoError(t, err)
	assert.True(t, outcome.Failed())
	assert.False(t, f.order(t).IsPaid())
}

func TestProcessPayment_TransportErrorFails(t *testing.T) {
	f := newFixture(t)
	f.vault(t, "cc_1")

	f.processor.On("Post", mock.Anything, "payments", mock.Anything).
		Return(nil, domain.NewTransportError("payments", errors.New("connection refused"))).Once()

	outcome, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{UseStored: true})
	require.NoError(t, err)
	assert.True(t, outcome.Failed())
	assert.True(t, domain.IsDomainError(outcome.Err, domain.ErrorCodeTransport))
	assert.Contains(t, outcome.Notice, "Please contact the store administrator")
}

func TestProcessPayment_NewCardRedirectsToPayPage(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{})
	require.NoError(t, err)

	assert.Equal(t, domain.OrderStatePendingAuth, outcome.State)
	assert.Equal(t, "https://shop.example.com/orders/100/pay?key=wc_order_abc&order=100", outcome.RedirectURL)
	f.processor.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPayment_InvalidStoredIndex(t *testing.T) {
	f := newFixture(t)
	f.vault(t, "cc_1")

	_, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{UseStored: true, MethodIndex: 3})
	require.Error(t, err)
	assert.True(t, domain.IsValidationError(err))
	f.processor.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPayment_UnknownOrderIsNotAnOutcome(t *testing.T) {
	f := newFixture(t)

	outcome, err := f.svc.ProcessPayment(context.Background(), "404", CheckoutRequest{UseStored: true})
	require.Error(t, err)
	assert.Nil(t, outcome)
	assert.True(t, domain.IsNotFoundError(err))
}

func TestProcessPayment_AlreadyPaidSkipsProcessor(t *testing.T) {
	f := newFixture(t)
	_, err := f.store.MarkPaid(context.Background(), testOrderID, f.now)
	require.NoError(t, err)

	outcome, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{UseStored: true})
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStateTransacted, outcome.State)
	f.processor.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessPayment_PinsCardOnSubscriptionOrder(t *testing.T) {
	f := newFixture(t)
	f.vault(t, "cc_1")
	f.store.PutSubscription(domain.Subscription{
		ID:         "sub_1",
		OrderID:    testOrderID,
		CustomerID: testCustomerID,
		Status:     domain.SubscriptionStatusActive,
	})

	f.processor.On("Post", mock.Anything, "payments", mock.Anything).
		Return(response(http.StatusCreated, transactedBody), nil).Once()

	_, err := f.svc.ProcessPayment(context.Background(), testOrderID, CheckoutRequest{UseStored: true})
	require.NoError(t, err)

	pinned, _ := f.store.GetMeta(context.Background(), testOrderID, domain.MetaVaultID)
	assert.Equal(t, "cc_1", pinned)
}
