package domain

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// SubscriptionStatus represents the subscription state as the host platform tracks it
type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusOnHold    SubscriptionStatus = "on-hold"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// IntervalUnit defines the time unit for billing intervals
type IntervalUnit string

const (
	IntervalUnitDay   IntervalUnit = "day"
	IntervalUnitWeek  IntervalUnit = "week"
	IntervalUnitMonth IntervalUnit = "month"
	IntervalUnitYear  IntervalUnit = "year"
)

// Subscription is a host-side recurring charge. The card it renews with is
// pinned on its originating order under MetaVaultID.
type Subscription struct {
	NextPaymentAt  time.Time          `json:"next_payment_at"`
	CancelledAt    *time.Time         `json:"cancelled_at"`
	Amount         decimal.Decimal    `json:"amount"`
	ID             string             `json:"id"`
	OrderID        string             `json:"order_id"`
	CustomerID     string             `json:"customer_id"`
	Status         SubscriptionStatus `json:"status"`
	IntervalUnit   IntervalUnit       `json:"interval_unit"`
	IntervalValue  int                `json:"interval_value"`
	FailedPayments int                `json:"failed_payments"`
}

// IsActive returns true if the subscription is currently active
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionStatusActive
}

// IsCancelled returns true if the subscription has been cancelled
func (s *Subscription) IsCancelled() bool {
	return s.Status == SubscriptionStatusCancelled || s.CancelledAt != nil
}

// IsDue returns true if the subscription should be charged at asOf
func (s *Subscription) IsDue(asOf time.Time) bool {
	return s.IsActive() && !s.NextPaymentAt.After(asOf)
}

// CalculateNextPaymentAt advances the next payment date by one interval
func (s *Subscription) CalculateNextPaymentAt() time.Time {
	current := s.NextPaymentAt
	interval := s.IntervalValue
	if interval < 1 {
		interval = 1
	}

	var next time.Time
	switch s.IntervalUnit {
	case IntervalUnitDay:
		next = current.AddDate(0, 0, interval)
	case IntervalUnitWeek:
		next = current.AddDate(0, 0, interval*7)
	case IntervalUnitYear:
		next = current.AddDate(interval, 0, 0)
	default:
		next = current.AddDate(0, interval, 0)
	}

	return next.UTC()
}

// GetIntervalDescription returns a human-readable interval description
func (s *Subscription) GetIntervalDescription() string {
	if s.IntervalValue <= 1 {
		return string(s.IntervalUnit)
	}
	return strconv.Itoa(s.IntervalValue) + " " + string(s.IntervalUnit) + "s"
}
