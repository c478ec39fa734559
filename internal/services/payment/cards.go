package payment

import (
	"context"
	"net/url"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
)

// CardReader looks up stored cards at the processor
type CardReader struct {
	processor ports.ProcessorClient
}

// NewCardReader creates a CardReader
func NewCardReader(processor ports.ProcessorClient) *CardReader {
	return &CardReader{processor: processor}
}

// Fetch returns the display fields of a stored card
func (r *CardReader) Fetch(ctx context.Context, cardID string) (*domain.CreditCard, error) {
	raw, callErr := r.processor.Get(ctx, "credit_cards/"+url.PathEscape(cardID))
	resp, err := interpret(raw, callErr, interpretOptions{})
	if err != nil {
		return nil, err
	}
	if resp.CreditCard == nil {
		return nil, domain.NewInvalidResponseError("response is missing the credit card object", nil)
	}
	return resp.CreditCard, nil
}
