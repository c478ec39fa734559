package payment

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kevin07696/valueio-gateway/internal/domain"
)

// interpretOptions controls how a processor answer is judged
type interpretOptions struct {
	// write marks POST and DELETE calls
	write bool
	// returnFailures turns a failed write into a PaymentResponse with
	// Failed set instead of an error
	returnFailures bool
}

// interpret turns one transport result into a PaymentResponse.
//
//   - a failed call or non-2xx write is a PROCESSOR_ERROR (or the caller's
//     transport error) unless returnFailures is set
//   - a non-2xx read is a PROCESSOR_ERROR
//   - a body that is not a JSON object is INVALID_RESPONSE
func interpret(raw *domain.RawResponse, callErr error, opts interpretOptions) (*domain.PaymentResponse, error) {
	if callErr != nil {
		if opts.write && opts.returnFailures {
			return &domain.PaymentResponse{Failed: true, RawBody: callErr.Error()}, nil
		}
		return nil, callErr
	}

	body := string(raw.Body)

	if !isAccepted(raw.StatusCode) {
		if opts.write && opts.returnFailures {
			return &domain.PaymentResponse{Failed: true, StatusCode: raw.StatusCode, RawBody: body}, nil
		}
		return nil, domain.NewProcessorError(raw.StatusCode,
			"Error response received from Value.IO.  Status: "+strconv.Itoa(raw.StatusCode)+" "+body)
	}

	payment, card, err := decodeEnvelope(raw.Body)
	if err != nil {
		if opts.write && opts.returnFailures {
			return &domain.PaymentResponse{Failed: true, StatusCode: raw.StatusCode, RawBody: body}, nil
		}
		return nil, err
	}

	return &domain.PaymentResponse{
		StatusCode: raw.StatusCode,
		Payment:    payment,
		CreditCard: card,
		RawBody:    body,
	}, nil
}

func isAccepted(status int) bool {
	return status >= 200 && status < 300
}

// verifyAgainstOrder enforces that a payment answer belongs to order
func verifyAgainstOrder(resp *domain.PaymentResponse, order *domain.Order) error {
	if resp.Payment == nil {
		return domain.NewInvalidResponseError("response is missing the payment object", nil)
	}
	if !resp.Payment.Amount.Equal(order.Total) {
		return domain.NewPaymentMismatchError("amount", order.Total.StringFixed(2), resp.Payment.Amount.String())
	}
	if resp.Payment.OrderID != order.ID {
		return domain.NewPaymentMismatchError("order_id", order.ID, resp.Payment.OrderID)
	}
	return nil
}

type envelope struct {
	Data *struct {
		Payment    *wirePayment `json:"payment"`
		CreditCard *wireCard    `json:"credit_card"`
	} `json:"data"`
}

type wirePayment struct {
	Identifier   looseString `json:"identifier"`
	Amount       looseString `json:"amount"`
	OrderID      looseString `json:"order_id"`
	CreditCardID looseString `json:"credit_card_id"`
	Transacted   looseBool   `json:"transacted"`
}

type wireCard struct {
	Identifier looseString `json:"identifier"`
	Number     looseString `json:"number"`
	Month      looseString `json:"month"`
	Year       looseString `json:"year"`
	Vaulted    looseBool   `json:"vaulted"`
}

func decodeEnvelope(body []byte) (*domain.Payment, *domain.CreditCard, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, nil, domain.NewInvalidResponseError("response body is not json. "+string(body), nil)
	}

	var env envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, nil, domain.NewInvalidResponseError("response body is not json. "+string(body), err)
	}
	if env.Data == nil {
		return nil, nil, domain.NewInvalidResponseError("response body has no data envelope", nil)
	}

	var payment *domain.Payment
	if p := env.Data.Payment; p != nil {
		amount := decimal.Zero
		if p.Amount != "" {
			parsed, err := decimal.NewFromString(string(p.Amount))
			if err != nil {
				return nil, nil, domain.NewInvalidResponseError("payment amount is not a number", err)
			}
			amount = parsed
		}
		payment = &domain.Payment{
			ID:           string(p.Identifier),
			Amount:       amount,
			OrderID:      string(p.OrderID),
			CreditCardID: string(p.CreditCardID),
			Transacted:   bool(p.Transacted),
		}
	}

	var card *domain.CreditCard
	if c := env.Data.CreditCard; c != nil && c.Identifier != "" {
		card = &domain.CreditCard{
			ID:           string(c.Identifier),
			NumberMasked: string(c.Number),
			Month:        string(c.Month),
			Year:         string(c.Year),
			Vaulted:      bool(c.Vaulted),
		}
	}

	return payment, card, nil
}

// looseString accepts JSON strings, numbers and null
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return err
		}
		*s = looseString(str)
		return nil
	}
	*s = looseString(data)
	return nil
}

// looseBool accepts true/false, "true"/"false", 1/0 and null
type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(strings.TrimSpace(string(data)), `"`) {
	case "true", "1":
		*b = true
	default:
		*b = false
	}
	return nil
}
