package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/pkg/observability"
)

// CheckoutRequest is the shopper's choice on the checkout form
type CheckoutRequest struct {
	// UseStored charges the vaulted card at MethodIndex right away.
	// Otherwise the shopper is sent to the pay page to enter a card.
	UseStored   bool
	MethodIndex int
}

// ProcessPayment handles checkout form submission for an order
func (s *Service) ProcessPayment(ctx context.Context, orderID string, req CheckoutRequest) (*Outcome, error) {
	if err := s.ready(true); err != nil {
		return nil, err
	}

	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	if order.IsPaid() {
		return &Outcome{
			State:       domain.OrderStateTransacted,
			Result:      ResultSuccess,
			RedirectURL: s.links.Return(order),
		}, nil
	}

	if !req.UseStored {
		observability.RecordPaymentFlow(observability.FlowCheckout, observability.OutcomeRedirected)
		return &Outcome{
			State:       domain.OrderStatePendingAuth,
			Result:      ResultSuccess,
			RedirectURL: s.links.Pay(order),
		}, nil
	}

	cardID, err := s.selectStoredCard(ctx, order, req.MethodIndex)
	if err != nil {
		return nil, err
	}

	payment := s.paymentRequest(order, true)
	payment.CreditCardID = cardID

	s.logger.Info("Charging stored card",
		zap.String("order_id", order.ID),
		zap.String("credit_card_id", cardID),
	)

	resp, err := s.createPayment(ctx, order, payment)
	if err != nil {
		return s.fail(ctx, order, "Error while processing payment: ", err, observability.FlowCheckout)
	}
	if !resp.Transacted() {
		return s.fail(ctx, order, "Error while processing payment: ",
			domain.NewProcessorError(resp.StatusCode, "payment was not transacted"), observability.FlowCheckout)
	}

	// the stored card was chosen explicitly, so it is the one to pin
	if resp.Payment.CreditCardID == "" {
		resp.Payment.CreditCardID = cardID
	}
	return s.settle(ctx, order, resp, observability.FlowCheckout)
}
