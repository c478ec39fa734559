package payment

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/pkg/observability"
)

// ChargeSubscription bills a renewal against the card pinned to the order.
// A zero amount charges the order total. Failures are expected here: they
// are noted on the order, reported to the subscription manager and
// returned in the result, never as an error.
func (s *Service) ChargeSubscription(ctx context.Context, amount decimal.Decimal, orderID string) domain.ChargeResult {
	result := domain.ChargeResult{OrderID: orderID}

	// A misconfigured gateway is not the shopper's fault: no order note and
	// the subscription is not put on hold.
	if err := s.ready(true); err != nil {
		result.Err = err
		s.reportChargeFailure(ctx, nil, orderID, "", err)
		return result
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		result.Err = err
		s.reportChargeFailure(ctx, nil, orderID, "", err)
		return result
	}

	cardID, err := s.orders.GetMeta(ctx, orderID, domain.MetaVaultID)
	if err == nil && cardID == "" {
		err = domain.NewValidationError("no stored card is pinned to the subscription order")
	}
	if err != nil {
		result.Err = err
		s.reportChargeFailure(ctx, order, "Error while processing scheduled subscription payment: "+domain.MessageOf(err), "", err)
		return result
	}

	charged := *order
	if !amount.IsZero() {
		charged.Total = amount
	}

	req := s.paymentRequest(&charged, true)
	req.CreditCardID = cardID

	raw, callErr := s.processor.Post(ctx, "payments", EncodeForm(req))
	resp, err := interpret(raw, callErr, interpretOptions{write: true, returnFailures: true})
	if err != nil {
		result.Err = err
		s.reportChargeFailure(ctx, order, "Error while processing scheduled subscription payment: "+domain.MessageOf(err), "", err)
		return result
	}
	result.Body = resp.RawBody

	if resp.Failed {
		result.Err = domain.NewProcessorError(resp.StatusCode, resp.RawBody)
		s.reportChargeFailure(ctx, order, "ValueIO scheduled subscription payment failed: "+resp.RawBody, resp.RawBody, result.Err)
		return result
	}

	if err := verifyAgainstOrder(resp, &charged); err != nil {
		result.Err = err
		s.reportChargeFailure(ctx, order, "Error while processing scheduled subscription payment: "+domain.MessageOf(err), resp.RawBody, err)
		return result
	}
	if !resp.Transacted() {
		result.Err = domain.NewProcessorError(resp.StatusCode, "payment was not transacted")
		s.reportChargeFailure(ctx, order, "ValueIO scheduled subscription payment failed: payment was not transacted", resp.RawBody, result.Err)
		return result
	}

	result.PaymentID = resp.Payment.ID

	s.backfillCard(ctx, resp)
	s.vaultCard(ctx, order, resp.CreditCard)

	if err := s.recordChargeSuccess(ctx, &charged, resp.Payment.ID); err != nil {
		// the processor has taken the money; report success but surface the bookkeeping error
		s.logger.Error("Failed to record subscription payment",
			zap.String("order_id", orderID),
			zap.String("payment_id", resp.Payment.ID),
			zap.Error(err),
		)
		result.Err = err
	}
	result.Success = true
	return result
}

func (s *Service) recordChargeSuccess(ctx context.Context, order *domain.Order, paymentID string) error {
	if err := s.orders.AddNote(ctx, order.ID, "ValueIO scheduled subscription payment success. Payment ID: "+paymentID); err != nil {
		return err
	}
	if err := s.orders.SetMeta(ctx, order.ID, domain.MetaPaymentID, paymentID); err != nil {
		return err
	}
	if _, err := s.orders.MarkPaid(ctx, order.ID, s.now().UTC()); err != nil {
		return err
	}
	if err := s.subs.RecordPaymentSuccess(ctx, order.ID); err != nil {
		return err
	}

	observability.RecordPaymentFlow(observability.FlowSubscription, observability.OutcomeSuccess)
	observability.RecordTransactedAmount(observability.FlowSubscription, order.Currency, order.Total.Shift(2).IntPart())

	s.logger.Info("Subscription payment transacted",
		zap.String("order_id", order.ID),
		zap.String("payment_id", paymentID),
		zap.String("amount", order.Total.StringFixed(2)),
	)
	return nil
}

// reportChargeFailure notes the failure when the order is known and tells
// the subscription manager about it
func (s *Service) reportChargeFailure(ctx context.Context, order *domain.Order, note, body string, cause error) {
	orderID := ""
	if order != nil {
		orderID = order.ID
		if err := s.orders.AddNote(ctx, orderID, note); err != nil {
			s.logger.Error("Failed to add subscription failure note", zap.String("order_id", orderID), zap.Error(err))
		}
		if err := s.subs.RecordPaymentFailure(ctx, orderID); err != nil {
			s.logger.Error("Failed to record subscription payment failure", zap.String("order_id", orderID), zap.Error(err))
		}
	}

	observability.RecordPaymentFlow(observability.FlowSubscription, observability.OutcomeFailure)

	s.logger.Warn("Subscription payment failed",
		zap.String("order_id", orderID),
		zap.String("error_code", string(domain.GetErrorCode(cause))),
		zap.String("body", body),
		zap.Error(cause),
	)
}
