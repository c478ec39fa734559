package payment

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/valueio-gateway/internal/domain"
)

func TestRefund_PartialAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetMeta(ctx, testOrderID, domain.MetaPaymentID, "pay_1"))

	f.processor.On("Post", mock.Anything, "payments", mock.MatchedBy(func(form url.Values) bool {
		return form.Get("payment[kind]") == "refund" &&
			form.Get("payment[refunded_payment]") == "pay_1" &&
			form.Get("payment[amount]") == "10.00" &&
			form.Get("payment[order_id]") == ""
	})).Return(response(http.StatusCreated, `{"data":{"payment":{"identifier":"ref_1","amount":"10.00"}}}`), nil).Once()

	amount := decimal.RequireFromString("10")
	outcome, err := f.svc.Refund(ctx, testOrderID, &amount, "damaged")
	require.NoError(t, err)

	assert.True(t, outcome.Success)
	assert.Equal(t, "ref_1", outcome.RefundID)
	assert.Equal(t, []string{"ValueIO refund success. Refund ID: ref_1"}, f.notes(t))
}

func TestRefund_FindsPaymentIDInNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.AddNote(ctx, testOrderID, "ValueIO payment success. Payment ID: pay_old"))

	f.processor.On("Post", mock.Anything, "payments", mock.MatchedBy(func(form url.Values) bool {
		return form.Get("payment[refunded_payment]") == "pay_old" &&
			form.Get("payment[amount]") == "49.99"
	})).Return(response(http.StatusCreated, `{"data":{"payment":{"identifier":"ref_2"}}}`), nil).Once()

	outcome, err := f.svc.Refund(ctx, testOrderID, nil, "")
	require.NoError(t, err)
	assert.True(t, outcome.Success)
}

func TestRefund_ProcessorFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.SetMeta(ctx, testOrderID, domain.MetaPaymentID, "pay_1"))

	f.processor.On("Post", mock.Anything, "payments", mock.Anything).
		Return(response(http.StatusUnprocessableEntity, `{"errors":["already refunded"]}`), nil).Once()

	outcome, err := f.svc.Refund(ctx, testOrderID, nil, "")
	require.NoError(t, err)

	assert.False(t, outcome.Success)
	assert.True(t, domain.IsDomainError(outcome.Err, domain.ErrorCodeProcessor))
	assert.Equal(t, "Error while processing refund: Error response received from Value.IO.  Status: 422.  Please contact the store administrator", outcome.Notice)
	require.Len(t, f.notes(t), 1)
}

func TestRefund_WithoutPayment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Refund(context.Background(), testOrderID, nil, "")
	require.Error(t, err)
	assert.True(t, domain.IsNotFoundError(err))
	f.processor.AssertNotCalled(t, "Post", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefund_RejectsNonPositiveAmount(t *testing.T) {
	f := newFixture(t)

	amount := decimal.Zero
	_, err := f.svc.Refund(context.Background(), testOrderID, &amount, "")
	assert.True(t, domain.IsValidationError(err))
}
