// Package subscription runs scheduled renewal charges.
package subscription

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
	"github.com/kevin07696/valueio-gateway/pkg/observability"
)

// Charger bills one renewal. It reports failures in the result.
type Charger interface {
	ChargeSubscription(ctx context.Context, amount decimal.Decimal, orderID string) domain.ChargeResult
}

// BillingError describes one failed renewal in a batch
type BillingError struct {
	SubscriptionID string `json:"subscription_id"`
	OrderID        string `json:"order_id"`
	CustomerID     string `json:"customer_id"`
	Error          string `json:"error"`
	Retriable      bool   `json:"retriable"`
}

// BillingBatchResult summarizes a billing run
type BillingBatchResult struct {
	Errors         []BillingError `json:"errors,omitempty"`
	ProcessedCount int            `json:"processed"`
	SuccessCount   int            `json:"success_count"`
	FailedCount    int            `json:"failure_count"`
}

// Biller charges subscriptions that are due
type Biller struct {
	subs    ports.SubscriptionManager
	charger Charger
	logger  *zap.Logger
}

// NewBiller creates a Biller
func NewBiller(subs ports.SubscriptionManager, charger Charger, logger *zap.Logger) *Biller {
	return &Biller{
		subs:    subs,
		charger: charger,
		logger:  logger,
	}
}

// ProcessDue charges up to batchSize active subscriptions whose next payment
// is at or before asOf. Renewals run one after another.
func (b *Biller) ProcessDue(ctx context.Context, asOf time.Time, batchSize int) (*BillingBatchResult, error) {
	start := time.Now()
	defer func() { observability.ObserveBillingBatch(time.Since(start)) }()

	subscriptions, err := b.subs.ListDue(ctx, asOf, batchSize)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions due for billing: %w", err)
	}

	result := &BillingBatchResult{Errors: make([]BillingError, 0)}

	b.logger.Info("Processing billing batch",
		zap.Time("as_of", asOf),
		zap.Int("count", len(subscriptions)),
	)

	for _, sub := range subscriptions {
		if err := ctx.Err(); err != nil {
			b.logger.Warn("Billing batch interrupted",
				zap.Int("processed", result.ProcessedCount),
				zap.Error(err),
			)
			return result, err
		}

		result.ProcessedCount++
		charge := b.charger.ChargeSubscription(ctx, sub.Amount, sub.OrderID)
		if charge.Success {
			result.SuccessCount++
			continue
		}

		result.FailedCount++
		msg := "payment declined"
		if charge.Err != nil {
			msg = domain.MessageOf(charge.Err)
		}
		result.Errors = append(result.Errors, BillingError{
			SubscriptionID: sub.ID,
			OrderID:        sub.OrderID,
			CustomerID:     sub.CustomerID,
			Error:          msg,
			Retriable:      domain.IsRetryable(charge.Err) || domain.IsDomainError(charge.Err, domain.ErrorCodeTransport),
		})
		b.logger.Error("Billing failed for subscription",
			zap.String("subscription_id", sub.ID),
			zap.String("order_id", sub.OrderID),
			zap.String("error", msg),
		)
	}

	b.logger.Info("Billing batch completed",
		zap.Int("processed", result.ProcessedCount),
		zap.Int("success", result.SuccessCount),
		zap.Int("failed", result.FailedCount),
	)

	return result, nil
}
