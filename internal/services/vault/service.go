// Package vault manages the processor card ids stored for each customer.
package vault

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
	"github.com/kevin07696/valueio-gateway/internal/services/notice"
	"github.com/kevin07696/valueio-gateway/pkg/observability"
)

// CardFetcher reads card display fields from the processor
type CardFetcher interface {
	Fetch(ctx context.Context, cardID string) (*domain.CreditCard, error)
}

// Service implements vault operations on top of a VaultRepository
type Service struct {
	repo      ports.VaultRepository
	orders    ports.OrderRepository
	subs      ports.SubscriptionManager
	processor ports.ProcessorClient
	cards     CardFetcher
	logger    *zap.Logger
}

// NewService creates a vault service
func NewService(
	repo ports.VaultRepository,
	orders ports.OrderRepository,
	subs ports.SubscriptionManager,
	processor ports.ProcessorClient,
	cards CardFetcher,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:      repo,
		orders:    orders,
		subs:      subs,
		processor: processor,
		cards:     cards,
		logger:    logger,
	}
}

// List returns the customer's card ids in the order they were stored
func (s *Service) List(ctx context.Context, customerID string) ([]string, error) {
	if isGuest(customerID) {
		return nil, nil
	}
	ids, err := s.repo.ListVaultIDs(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list vault ids: %w", err)
	}
	return ids, nil
}

// Append stores cardID for the customer unless it is already stored
func (s *Service) Append(ctx context.Context, customerID, cardID string) error {
	if isGuest(customerID) || cardID == "" {
		return nil
	}
	changed, err := s.repo.AppendVaultID(ctx, customerID, cardID)
	if err != nil {
		return fmt.Errorf("append vault id: %w", err)
	}
	if changed {
		observability.RecordVaultMutation("append")
		s.logger.Info("Card vaulted",
			zap.String("customer_id", customerID),
			zap.String("credit_card_id", cardID),
		)
	}
	return nil
}

// Remove drops the entry at index and cancels every subscription that
// renews with the removed card. Later entries shift down by one.
func (s *Service) Remove(ctx context.Context, customerID string, index int) (removedID string, cancelled []string, err error) {
	cardID, err := s.at(ctx, customerID, index)
	if err != nil {
		return "", nil, err
	}

	if err := s.repo.RemoveVaultID(ctx, customerID, index, cardID); err != nil {
		return "", nil, fmt.Errorf("remove vault id: %w", err)
	}
	observability.RecordVaultMutation("remove")

	// Subscriptions are only touched once the card is out of the vault.
	cancelled, err = s.cancelPinnedSubscriptions(ctx, customerID, cardID)
	if err != nil {
		return cardID, cancelled, err
	}
	return cardID, cancelled, nil
}

// DeleteOutcome reports a stored card deletion to the account page
type DeleteOutcome struct {
	Err                    error
	CardID                 string
	Notice                 string
	CancelledSubscriptions []string
	Success                bool
}

// DeletePaymentMethod deletes the card at index with the processor and then
// removes it from the vault. A card the processor no longer knows is
// treated as deleted.
func (s *Service) DeletePaymentMethod(ctx context.Context, customerID string, index int) (*DeleteOutcome, error) {
	cardID, err := s.at(ctx, customerID, index)
	if err != nil {
		return nil, err
	}

	if err := s.deleteAtProcessor(ctx, cardID); err != nil {
		if !domain.IsProcessorSide(err) {
			return nil, err
		}
		s.logger.Warn("Processor refused card deletion",
			zap.String("customer_id", customerID),
			zap.String("credit_card_id", cardID),
			zap.Error(err),
		)
		observability.RecordPaymentFlow(observability.FlowDeleteMethod, observability.OutcomeFailure)
		return &DeleteOutcome{
			Err:    err,
			CardID: cardID,
			Notice: notice.ForError("Error while deleting payment method: " + domain.MessageOf(err)),
		}, nil
	}

	removed, cancelled, err := s.Remove(ctx, customerID, index)
	if err != nil {
		return nil, err
	}

	observability.RecordPaymentFlow(observability.FlowDeleteMethod, observability.OutcomeSuccess)
	s.logger.Info("Payment method deleted",
		zap.String("customer_id", customerID),
		zap.String("credit_card_id", removed),
		zap.Strings("cancelled_subscriptions", cancelled),
	)

	return &DeleteOutcome{
		CardID:                 removed,
		Notice:                 notice.DeletedPaymentMethod,
		CancelledSubscriptions: cancelled,
		Success:                true,
	}, nil
}

// ListPaymentMethods returns display details of every stored card. Cards
// the processor cannot describe are skipped.
func (s *Service) ListPaymentMethods(ctx context.Context, customerID string) ([]domain.StoredCard, error) {
	ids, err := s.List(ctx, customerID)
	if err != nil {
		return nil, err
	}

	methods := make([]domain.StoredCard, 0, len(ids))
	for i, id := range ids {
		card, err := s.cards.Fetch(ctx, id)
		if err != nil {
			if !domain.IsProcessorSide(err) {
				return nil, err
			}
			s.logger.Warn("Failed to load stored card",
				zap.String("customer_id", customerID),
				zap.String("credit_card_id", id),
				zap.Error(err),
			)
			continue
		}
		methods = append(methods, domain.StoredCard{
			ID:           id,
			NumberMasked: card.NumberMasked,
			Month:        card.Month,
			Year:         card.Year,
			Index:        i,
		})
	}
	return methods, nil
}

func (s *Service) at(ctx context.Context, customerID string, index int) (string, error) {
	if isGuest(customerID) {
		return "", domain.NewValidationError("stored payment methods require a customer account")
	}
	ids, err := s.List(ctx, customerID)
	if err != nil {
		return "", err
	}
	if index < 0 || index >= len(ids) {
		return "", domain.NewValidationError("invalid stored payment method").WithDetail("index", index)
	}
	return ids[index], nil
}

func (s *Service) deleteAtProcessor(ctx context.Context, cardID string) error {
	raw, err := s.processor.Delete(ctx, "credit_cards/"+url.PathEscape(cardID), nil)
	if err != nil {
		return err
	}
	switch {
	case raw.IsSuccess():
		return nil
	case raw.StatusCode == http.StatusNotFound:
		s.logger.Info("Card already gone at processor", zap.String("credit_card_id", cardID))
		return nil
	default:
		return domain.NewProcessorError(raw.StatusCode,
			"Error response received from Value.IO.  Status: "+fmt.Sprint(raw.StatusCode)+" "+string(raw.Body))
	}
}

func (s *Service) cancelPinnedSubscriptions(ctx context.Context, customerID, cardID string) ([]string, error) {
	subs, err := s.subs.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	var cancelled []string
	for _, sub := range subs {
		if sub.IsCancelled() {
			continue
		}
		pinned, err := s.orders.GetMeta(ctx, sub.OrderID, domain.MetaVaultID)
		if err != nil {
			return cancelled, fmt.Errorf("read pinned card: %w", err)
		}
		if pinned != cardID {
			continue
		}
		if err := s.orders.DeleteMeta(ctx, sub.OrderID, domain.MetaVaultID); err != nil {
			return cancelled, fmt.Errorf("clear pinned card: %w", err)
		}
		if err := s.subs.Cancel(ctx, sub.ID); err != nil {
			return cancelled, fmt.Errorf("cancel subscription %s: %w", sub.ID, err)
		}
		cancelled = append(cancelled, sub.ID)
	}
	return cancelled, nil
}

func isGuest(customerID string) bool {
	return customerID == "" || customerID == "0"
}
