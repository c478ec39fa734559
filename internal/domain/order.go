package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Meta keys shared with the host platform.
const (
	// MetaVaultID pins a processor card id to a subscription order.
	MetaVaultID = "valueio_vault_id"
	// MetaPaymentID records the processor payment id of a transacted order.
	MetaPaymentID = "valueio_payment_id"
	// CustomerMetaVaultIDs holds the ordered list of a customer's vaulted card ids.
	CustomerMetaVaultIDs = "customer_valueio_vault_ids"
)

// OrderStatus mirrors the host platform's order lifecycle
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusFailed     OrderStatus = "failed"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// Address is a billing or shipping address as entered at checkout
type Address struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Company   string `json:"company"`
	Address1  string `json:"address_1"`
	Address2  string `json:"address_2"`
	City      string `json:"city"`
	State     string `json:"state"`
	Postcode  string `json:"postcode"`
	Country   string `json:"country"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// Order is the host platform order the gateway is asked to settle
type Order struct {
	CreatedAt  time.Time       `json:"created_at"`
	PaidAt     *time.Time      `json:"paid_at"`
	Total      decimal.Decimal `json:"total"`
	ID         string          `json:"id"`
	Key        string          `json:"key"`
	CustomerID string          `json:"customer_id"`
	Currency   string          `json:"currency"`
	Status     OrderStatus     `json:"status"`
	Billing    Address         `json:"billing"`
	Shipping   Address         `json:"shipping"`
}

// IsPaid returns true once payment completion has been recorded
func (o *Order) IsPaid() bool {
	return o.PaidAt != nil
}

// IsGuest returns true when no customer account is attached to the order
func (o *Order) IsGuest() bool {
	return o.CustomerID == "" || o.CustomerID == "0"
}

// OrderNote is a free-text audit entry on an order
type OrderNote struct {
	CreatedAt time.Time `json:"created_at"`
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	Content   string    `json:"content"`
}
