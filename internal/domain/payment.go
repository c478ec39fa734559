package domain

import (
	"github.com/shopspring/decimal"
)

// OrderState is the gateway's view of an order's payment progress
type OrderState string

const (
	OrderStatePendingAuth OrderState = "PENDING_AUTH"
	OrderStateTransacted  OrderState = "TRANSACTED"
	OrderStateFailed      OrderState = "FAILED"
)

// PaymentKind distinguishes charges from refunds on the payments resource
type PaymentKind string

const (
	PaymentKindCharge PaymentKind = ""
	PaymentKindRefund PaymentKind = "refund"
)

// PaymentRequest is the outbound payload for the payments resource
type PaymentRequest struct {
	Amount          decimal.Decimal
	AccountID       string
	Currency        string
	OrderKey        string
	OrderID         string
	Email           string
	Phone           string
	Company         string
	FirstName       string
	LastName        string
	Address1        string
	Address2        string
	City            string
	State           string
	Postcode        string
	Country         string
	Shipping        Address
	Destination     string
	CreditCardID    string
	Kind            PaymentKind
	RefundedPayment string
	Transact        bool
}

// RawResponse is what the transport hands back for one processor call
type RawResponse struct {
	Method     string
	Resource   string
	Body       []byte
	StatusCode int
}

// IsSuccess reports a 2xx status
func (r *RawResponse) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Payment is the processor's payment object
type Payment struct {
	Amount       decimal.Decimal `json:"amount"`
	ID           string          `json:"identifier"`
	OrderID      string          `json:"order_id"`
	CreditCardID string          `json:"credit_card_id"`
	Transacted   bool            `json:"transacted"`
}

// CreditCard is the processor's stored card object
type CreditCard struct {
	ID           string `json:"identifier"`
	NumberMasked string `json:"number"`
	Month        string `json:"month"`
	Year         string `json:"year"`
	Vaulted      bool   `json:"vaulted"`
}

// PaymentResponse is the interpreted processor answer
type PaymentResponse struct {
	Payment    *Payment
	CreditCard *CreditCard
	RawBody    string
	StatusCode int
	// Failed is set only when the caller asked for failures to be returned
	// instead of raised.
	Failed bool
}

// Transacted returns true when the response carries a transacted payment
func (r *PaymentResponse) Transacted() bool {
	return r != nil && r.Payment != nil && r.Payment.Transacted
}

// ChargeResult reports a scheduled subscription charge to the host
type ChargeResult struct {
	Err       error
	OrderID   string
	PaymentID string
	Body      string
	Success   bool
}

// StoredCard is a vaulted card prepared for display
type StoredCard struct {
	ID           string `json:"id"`
	NumberMasked string `json:"number"`
	Month        string `json:"month"`
	Year         string `json:"year"`
	Index        int    `json:"index"`
}
