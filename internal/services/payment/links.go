package payment

import (
	"net/url"
	"strings"

	"github.com/kevin07696/valueio-gateway/internal/domain"
)

// Links builds storefront URLs that shoppers are redirected to
type Links struct {
	BaseURL string
}

func (l Links) base() string {
	return strings.TrimRight(l.BaseURL, "/")
}

// Checkout is where failed payments send the shopper back to
func (l Links) Checkout() string {
	return l.base() + "/checkout"
}

// Pay is the receipt page hosting the payment widget for an order
func (l Links) Pay(order *domain.Order) string {
	q := url.Values{}
	q.Set("order", order.ID)
	q.Set("key", order.Key)
	return l.base() + "/orders/" + url.PathEscape(order.ID) + "/pay?" + q.Encode()
}

// Return is the order-received page shown after a completed payment
func (l Links) Return(order *domain.Order) string {
	q := url.Values{}
	q.Set("key", order.Key)
	return l.base() + "/checkout/order-received/" + url.PathEscape(order.ID) + "?" + q.Encode()
}
