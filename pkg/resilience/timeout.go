package resilience

import (
	"context"
	"time"
)

// TimeoutConfig defines the timeout hierarchy from the HTTP edge down to a
// single processor call. Each layer must finish before its parent gives up:
//
//	HTTP Handler (60s) > Processor flow (45s) > single processor call (30s)
//	Cron job (5m) covers a whole billing batch.
type TimeoutConfig struct {
	HTTPHandler   time.Duration
	CronJob       time.Duration
	ProcessorFlow time.Duration
	ProcessorCall time.Duration
}

// DefaultTimeoutConfig returns production timeout values
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:   60 * time.Second,
		CronJob:       5 * time.Minute,
		ProcessorFlow: 45 * time.Second,
		ProcessorCall: 30 * time.Second,
	}
}

// TestTimeoutConfig returns shorter timeouts for testing
func TestTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		HTTPHandler:   5 * time.Second,
		CronJob:       30 * time.Second,
		ProcessorFlow: 4 * time.Second,
		ProcessorCall: 2 * time.Second,
	}
}

// HandlerContext creates a context with timeout for HTTP handlers
func (tc *TimeoutConfig) HandlerContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.HTTPHandler)
}

// CronContext creates a context with timeout for cron jobs
func (tc *TimeoutConfig) CronContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.CronJob)
}

// FlowContext bounds one payment flow, which may issue several processor calls
func (tc *TimeoutConfig) FlowContext(parent context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, tc.ProcessorFlow)
}
