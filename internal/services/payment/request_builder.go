package payment

import (
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/valueio-gateway/internal/config"
	"github.com/kevin07696/valueio-gateway/internal/domain"
)

// BuildPaymentRequest maps an order onto the processor payment payload.
// Transact, Destination and CreditCardID are left for the calling flow.
func BuildPaymentRequest(order *domain.Order, cfg config.GatewayConfig) domain.PaymentRequest {
	currency := order.Currency
	if currency == "" {
		currency = cfg.Currency
	}

	return domain.PaymentRequest{
		AccountID: cfg.AccountID,
		Amount:    order.Total,
		Currency:  currency,
		OrderKey:  order.Key,
		OrderID:   order.ID,

		Email:   order.Billing.Email,
		Phone:   order.Billing.Phone,
		Company: order.Billing.Company,

		FirstName: order.Billing.FirstName,
		LastName:  order.Billing.LastName,
		Address1:  order.Billing.Address1,
		Address2:  order.Billing.Address2,
		City:      order.Billing.City,
		State:     order.Billing.State,
		Postcode:  order.Billing.Postcode,
		Country:   order.Billing.Country,

		Shipping: order.Shipping,
	}
}

// BuildRefundRequest creates a refund of paymentID. A nil amount refunds the
// whole order total.
func BuildRefundRequest(order *domain.Order, paymentID string, amount *decimal.Decimal) domain.PaymentRequest {
	req := domain.PaymentRequest{
		Kind:            domain.PaymentKindRefund,
		RefundedPayment: paymentID,
		Amount:          order.Total,
	}
	if amount != nil {
		req.Amount = *amount
	}
	return req
}

// EncodeForm flattens a request into the processor's nested form fields,
// e.g. payment[amount] and payment[data][shipping_city].
func EncodeForm(req domain.PaymentRequest) url.Values {
	form := url.Values{}
	set := func(key, value string) {
		form.Set("payment["+key+"]", value)
	}
	setIf := func(key, value string) {
		if value != "" {
			set(key, value)
		}
	}

	set("amount", req.Amount.StringFixed(2))

	if req.Kind == domain.PaymentKindRefund {
		set("kind", string(req.Kind))
		set("refunded_payment", req.RefundedPayment)
		return form
	}

	set("valueio_account", req.AccountID)
	set("currency", req.Currency)
	set("global_order_number", req.OrderKey)
	set("order_id", req.OrderID)

	set("email", req.Email)
	set("phone", req.Phone)
	set("company", req.Company)

	set("first_name", req.FirstName)
	set("last_name", req.LastName)
	set("address1", req.Address1)
	set("address2", req.Address2)
	set("city", req.City)
	set("state", req.State)
	set("zip", req.Postcode)
	set("country", req.Country)

	shipping := map[string]string{
		"shipping_first_name": req.Shipping.FirstName,
		"shipping_last_name":  req.Shipping.LastName,
		"shipping_address1":   req.Shipping.Address1,
		"shipping_address2":   req.Shipping.Address2,
		"shipping_city":       req.Shipping.City,
		"shipping_state":      req.Shipping.State,
		"shipping_zip":        req.Shipping.Postcode,
		"shipping_country":    req.Shipping.Country,
	}
	for key, value := range shipping {
		form.Set("payment[data]["+key+"]", value)
	}

	set("transact", strconv.FormatBool(req.Transact))
	setIf("destination", req.Destination)
	setIf("credit_card", req.CreditCardID)

	return form
}
