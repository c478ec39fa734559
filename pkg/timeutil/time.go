package timeutil

import (
	"fmt"
	"time"
)

// DateLayout is the calendar-day format accepted by billing triggers.
const DateLayout = "2006-01-02"

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

// EndOfDay returns the last instant of t's UTC day
func EndOfDay(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 23, 59, 59, 999999999, time.UTC)
}

// BillingCutoff resolves the instant a billing run bills up to. An empty
// day means now; otherwise every renewal due on that calendar day is included.
func BillingCutoff(day string, now time.Time) (time.Time, error) {
	if day == "" {
		return now, nil
	}
	parsed, err := time.Parse(DateLayout, day)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected %s: %w", DateLayout, err)
	}
	return EndOfDay(parsed), nil
}
