package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestSubscription_IsActive tests active status check
func TestSubscription_IsActive(t *testing.T) {
	tests := []struct {
		name     string
		status   SubscriptionStatus
		expected bool
	}{
		{"active status returns true", SubscriptionStatusActive, true},
		{"on-hold status returns false", SubscriptionStatusOnHold, false},
		{"cancelled status returns false", SubscriptionStatusCancelled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{Status: tt.status}
			assert.Equal(t, tt.expected, sub.IsActive())
		})
	}
}

func TestSubscription_IsDue(t *testing.T) {
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		status   SubscriptionStatus
		next     time.Time
		expected bool
	}{
		{"active and past", SubscriptionStatusActive, asOf.Add(-time.Hour), true},
		{"active and exactly now", SubscriptionStatusActive, asOf, true},
		{"active and future", SubscriptionStatusActive, asOf.Add(time.Hour), false},
		{"on-hold and past", SubscriptionStatusOnHold, asOf.Add(-time.Hour), false},
		{"cancelled and past", SubscriptionStatusCancelled, asOf.Add(-time.Hour), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{Status: tt.status, NextPaymentAt: tt.next}
			assert.Equal(t, tt.expected, sub.IsDue(asOf))
		})
	}
}

func TestSubscription_CalculateNextPaymentAt(t *testing.T) {
	start := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		unit     IntervalUnit
		value    int
		expected time.Time
	}{
		{"daily", IntervalUnitDay, 3, time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC)},
		{"weekly", IntervalUnitWeek, 2, time.Date(2026, 1, 29, 0, 0, 0, 0, time.UTC)},
		{"monthly", IntervalUnitMonth, 1, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)},
		{"yearly", IntervalUnitYear, 1, time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)},
		{"zero interval counts as one", IntervalUnitMonth, 0, time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := &Subscription{NextPaymentAt: start, IntervalUnit: tt.unit, IntervalValue: tt.value}
			assert.Equal(t, tt.expected, sub.CalculateNextPaymentAt())
		})
	}
}

func TestSubscription_GetIntervalDescription(t *testing.T) {
	assert.Equal(t, "month", (&Subscription{IntervalUnit: IntervalUnitMonth, IntervalValue: 1}).GetIntervalDescription())
	assert.Equal(t, "3 weeks", (&Subscription{IntervalUnit: IntervalUnitWeek, IntervalValue: 3}).GetIntervalDescription())
}
