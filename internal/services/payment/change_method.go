package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/widget"
	"github.com/kevin07696/valueio-gateway/pkg/observability"
)

// ChangeRequest is a request to switch the card a subscription bills
type ChangeRequest struct {
	// PaymentMethod is empty until the shopper has picked a gateway
	PaymentMethod string
	UseStored     bool
	MethodIndex   int
	// CardToken is the card id the hosted form returned for a new card
	CardToken string
}

// ChangePaymentMethod pins a new card to a subscription order. Without a
// chosen method it returns the card-collection widget configuration. A
// switch to another gateway leaves the order untouched.
func (s *Service) ChangePaymentMethod(ctx context.Context, orderID string, req ChangeRequest) (*Outcome, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	if req.PaymentMethod != "" && req.PaymentMethod != GatewayID {
		s.logger.Info("Subscription moved to another gateway",
			zap.String("order_id", order.ID),
			zap.String("payment_method", req.PaymentMethod),
		)
		return &Outcome{
			Result:      ResultSuccess,
			RedirectURL: s.links.Return(order),
		}, nil
	}

	if err := s.ready(true); err != nil {
		return nil, err
	}

	if req.PaymentMethod == "" {
		params := s.widgetParams(order, widget.ResourceCreditCards, widget.VaultOn)
		params.Amount = "0.00"
		params.FormSelector = "#order_review"
		return &Outcome{
			State:  domain.OrderStatePendingAuth,
			Result: ResultSuccess,
			Widget: &params,
		}, nil
	}

	var cardID string
	if req.UseStored {
		cardID, err = s.selectStoredCard(ctx, order, req.MethodIndex)
		if err != nil {
			return nil, err
		}
	} else {
		if req.CardToken == "" {
			return nil, domain.NewDomainError(domain.ErrorCodeValidationMissingField, "valueio_token is required")
		}
		card, err := s.cards.Fetch(ctx, req.CardToken)
		if err != nil {
			return s.fail(ctx, order, "Error while changing payment method: ", err, observability.FlowChangeMethod)
		}
		s.vaultCard(ctx, order, card)
		cardID = card.ID
	}

	if err := s.orders.SetMeta(ctx, order.ID, domain.MetaVaultID, cardID); err != nil {
		return nil, fmt.Errorf("pin card to subscription order: %w", err)
	}

	s.logger.Info("Subscription payment method changed",
		zap.String("order_id", order.ID),
		zap.String("credit_card_id", cardID),
	)
	observability.RecordPaymentFlow(observability.FlowChangeMethod, observability.OutcomeSuccess)

	return &Outcome{
		Result:      ResultSuccess,
		RedirectURL: s.links.Return(order),
	}, nil
}
