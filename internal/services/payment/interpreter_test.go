package payment

import (
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kevin07696/valueio-gateway/internal/domain"
)

func TestInterpret_ParsesEnvelope(t *testing.T) {
	resp, err := interpret(response(http.StatusCreated, transactedBody), nil, interpretOptions{write: true})
	require.NoError(t, err)

	require.NotNil(t, resp.Payment)
	assert.Equal(t, "pay_1", resp.Payment.ID)
	assert.True(t, resp.Payment.Amount.Equal(decimal.RequireFromString("49.99")))
	assert.Equal(t, "100", resp.Payment.OrderID)
	assert.True(t, resp.Transacted())

	require.NotNil(t, resp.CreditCard)
	assert.Equal(t, "cc_1", resp.CreditCard.ID)
	assert.Equal(t, "XXXX-1111", resp.CreditCard.NumberMasked)
	assert.True(t, resp.CreditCard.Vaulted)
}

func TestInterpret_AcceptsNumbersAndStringBooleans(t *testing.T) {
	body := `{"data":{"payment":{"identifier":42,"amount":10.5,"order_id":100,"transacted":"true"},"credit_card":null}}`
	resp, err := interpret(response(http.StatusOK, body), nil, interpretOptions{})
	require.NoError(t, err)

	assert.Equal(t, "42", resp.Payment.ID)
	assert.Equal(t, "100", resp.Payment.OrderID)
	assert.True(t, resp.Payment.Amount.Equal(decimal.RequireFromString("10.50")))
	assert.True(t, resp.Payment.Transacted)
	assert.Nil(t, resp.CreditCard)
}

func TestInterpret_Errors(t *testing.T) {
	tests := []struct {
		name     string
		raw      *domain.RawResponse
		callErr  error
		opts     interpretOptions
		wantCode domain.ErrorCode
	}{
		{
			name:     "write non-2xx",
			raw:      response(http.StatusUnprocessableEntity, `{"errors":[]}`),
			opts:     interpretOptions{write: true},
			wantCode: domain.ErrorCodeProcessor,
		},
		{
			name:     "read non-2xx",
			raw:      response(http.StatusNotFound, ``),
			wantCode: domain.ErrorCodeProcessor,
		},
		{
			name:     "not json",
			raw:      response(http.StatusOK, `<html></html>`),
			opts:     interpretOptions{write: true},
			wantCode: domain.ErrorCodeInvalidResponse,
		},
		{
			name:     "no envelope",
			raw:      response(http.StatusOK, `{"payment":{}}`),
			wantCode: domain.ErrorCodeInvalidResponse,
		},
		{
			name:     "bad amount",
			raw:      response(http.StatusOK, `{"data":{"payment":{"amount":"ten"}}}`),
			wantCode: domain.ErrorCodeInvalidResponse,
		},
		{
			name:     "transport",
			callErr:  domain.NewTransportError("payments", errors.New("refused")),
			opts:     interpretOptions{write: true},
			wantCode: domain.ErrorCodeTransport,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := interpret(tt.raw, tt.callErr, tt.opts)
			require.Error(t, err)
			assert.Nil(t, resp)
			assert.Equal(t, tt.wantCode, domain.GetErrorCode(err))
		})
	}
}

func TestInterpret_ReturnFailures(t *testing.T) {
	opts := interpretOptions{write: true, returnFailures: true}

	resp, err := interpret(response(http.StatusUnprocessableEntity, `declined`), nil, opts)
	require.NoError(t, err)
	assert.True(t, resp.Failed)
	assert.Equal(t, "declined", resp.RawBody)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, err = interpret(nil, errors.New("connection reset"), opts)
	require.NoError(t, err)
	assert.True(t, resp.Failed)
	assert.Equal(t, "connection reset", resp.RawBody)
}

func TestVerifyAgainstOrder(t *testing.T) {
	order := testOrder()

	ok := &domain.PaymentResponse{Payment: &domain.Payment{Amount: decimal.RequireFromString("49.990"), OrderID: "100"}}
	assert.NoError(t, verifyAgainstOrder(ok, &order))

	wrongAmount := &domain.PaymentResponse{Payment: &domain.Payment{Amount: decimal.RequireFromString("39.99"), OrderID: "100"}}
	assert.True(t, domain.IsDomainError(verifyAgainstOrder(wrongAmount, &order), domain.ErrorCodePaymentMismatch))

	wrongOrder := &domain.PaymentResponse{Payment: &domain.Payment{Amount: decimal.RequireFromString("49.99"), OrderID: "99"}}
	assert.True(t, domain.IsDomainError(verifyAgainstOrder(wrongOrder, &order), domain.ErrorCodePaymentMismatch))

	missing := &domain.PaymentResponse{}
	assert.True(t, domain.IsDomainError(verifyAgainstOrder(missing, &order), domain.ErrorCodeInvalidResponse))
}
