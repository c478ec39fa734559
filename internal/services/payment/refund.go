package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/services/notice"
	"github.com/kevin07696/valueio-gateway/pkg/observability"
)

const paymentIDNotePrefix = "Payment ID: "

// RefundOutcome reports a refund attempt
type RefundOutcome struct {
	Err      error
	RefundID string
	Notice   string
	Success  bool
}

// Refund returns amount of an order's transacted payment to the shopper.
// A nil amount refunds the order total.
func (s *Service) Refund(ctx context.Context, orderID string, amount *decimal.Decimal, reason string) (*RefundOutcome, error) {
	if err := s.ready(false); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}
	if amount != nil && !amount.IsPositive() {
		return nil, domain.NewValidationError("refund amount must be positive")
	}

	paymentID, err := s.transactedPaymentID(ctx, order.ID)
	if err != nil {
		return nil, err
	}

	req := BuildRefundRequest(order, paymentID, amount)

	s.logger.Info("Refunding payment",
		zap.String("order_id", order.ID),
		zap.String("payment_id", paymentID),
		zap.String("amount", req.Amount.StringFixed(2)),
		zap.String("reason", reason),
	)

	raw, callErr := s.processor.Post(ctx, "payments", EncodeForm(req))
	resp, err := interpret(raw, callErr, interpretOptions{write: true})
	if err == nil && resp.Payment == nil {
		err = domain.NewInvalidResponseError("response is missing the payment object", nil)
	}
	if err != nil {
		if !domain.IsProcessorSide(err) {
			return nil, err
		}
		msg := "Error while processing refund: " + domain.MessageOf(err)
		if noteErr := s.orders.AddNote(ctx, order.ID, msg); noteErr != nil {
			s.logger.Error("Failed to add refund failure note", zap.String("order_id", order.ID), zap.Error(noteErr))
		}
		s.logger.Warn("Refund failed", zap.String("order_id", order.ID), zap.Error(err))
		observability.RecordPaymentFlow(observability.FlowRefund, observability.OutcomeFailure)
		return &RefundOutcome{Err: err, Notice: notice.ForError(msg)}, nil
	}

	if err := s.orders.AddNote(ctx, order.ID, "ValueIO refund success. Refund ID: "+resp.Payment.ID); err != nil {
		return nil, fmt.Errorf("add refund note: %w", err)
	}

	observability.RecordPaymentFlow(observability.FlowRefund, observability.OutcomeSuccess)
	observability.RecordTransactedAmount(observability.FlowRefund, order.Currency, req.Amount.Shift(2).IntPart())

	return &RefundOutcome{RefundID: resp.Payment.ID, Success: true}, nil
}

// transactedPaymentID finds the processor payment of an order, falling back
// to the most recent "Payment ID: " note for orders paid before the id was
// stored as meta.
func (s *Service) transactedPaymentID(ctx context.Context, orderID string) (string, error) {
	id, err := s.orders.GetMeta(ctx, orderID, domain.MetaPaymentID)
	if err != nil {
		return "", fmt.Errorf("read payment id: %w", err)
	}
	if id != "" {
		return id, nil
	}

	notes, err := s.orders.ListNotes(ctx, orderID)
	if err != nil {
		return "", fmt.Errorf("list order notes: %w", err)
	}
	for i := len(notes) - 1; i >= 0; i-- {
		if _, after, ok := strings.Cut(notes[i].Content, paymentIDNotePrefix); ok {
			if id := strings.TrimSpace(after); id != "" {
				return id, nil
			}
		}
	}
	return "", domain.NewNotFoundError("transacted payment", orderID)
}
