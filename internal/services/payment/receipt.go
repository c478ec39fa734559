package payment

import (
	"context"
	"fmt"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/widget"
	"github.com/kevin07696/valueio-gateway/pkg/observability"
)

// Receipt drives the pay page of the hosted-form flow.
//
// Without a paymentID an untransacted payment is created and the widget
// configuration is returned so the shopper can enter a card. The widget
// reloads the page with the payment id, and the second call confirms the
// payment with the processor before the order is completed.
func (s *Service) Receipt(ctx context.Context, orderID, paymentID string) (*Outcome, error) {
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

	if paymentID == "" {
		return s.startHostedPayment(ctx, order)
	}

	resp, err := s.fetchPayment(ctx, order, paymentID)
	if err != nil {
		return s.fail(ctx, order, "Error while transacting payment: ", err, observability.FlowReceipt)
	}
	if !resp.Transacted() {
		return s.fail(ctx, order, "Error while transacting payment: ",
			domain.NewProcessorError(resp.StatusCode, "Error creating payment: payment was not transacted."),
			observability.FlowReceipt)
	}
	return s.settle(ctx, order, resp, observability.FlowReceipt)
}

func (s *Service) startHostedPayment(ctx context.Context, order *domain.Order) (*Outcome, error) {
	resp, err := s.createPayment(ctx, order, s.paymentRequest(order, false))
	if err != nil {
		return s.fail(ctx, order, "Error while creating untransacted order: ", err, observability.FlowReceipt)
	}
	if resp.Transacted() {
		return s.settle(ctx, order, resp, observability.FlowReceipt)
	}
	if resp.Payment.ID == "" {
		return s.fail(ctx, order, "Error while creating untransacted order: ",
			domain.NewInvalidResponseError("payment identifier is missing", nil), observability.FlowReceipt)
	}

	hasSub, err := s.subs.OrderHasSubscription(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("check order subscription: %w", err)
	}

	params := s.widgetParams(order, widget.ResourcePayments, widget.VaultMode(s.cfg.VaultEnabled, hasSub))
	params.Amount = order.Total.StringFixed(2)
	params.PaymentID = resp.Payment.ID

	observability.RecordPaymentFlow(observability.FlowReceipt, observability.OutcomePending)

	return &Outcome{
		State:     domain.OrderStatePendingAuth,
		Result:    ResultSuccess,
		PaymentID: resp.Payment.ID,
		Widget:    &params,
	}, nil
}

func (s *Service) widgetParams(order *domain.Order, resource widget.Resource, vault string) widget.Params {
	return widget.Params{
		BaseURL:        s.cfg.BaseURL(),
		Account:        s.cfg.AccountID,
		WriteOnlyToken: s.cfg.WriteToken,
		FirstName:      order.Billing.FirstName,
		LastName:       order.Billing.LastName,
		Vault:          vault,
		Resource:       resource,
		Title:          s.cfg.Title,
		Description:    s.cfg.Description,
		CheckoutURL:    s.links.Checkout(),
	}
}
