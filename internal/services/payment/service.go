package payment

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/config"
	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
	"github.com/kevin07696/valueio-gateway/internal/services/notice"
	"github.com/kevin07696/valueio-gateway/internal/widget"
	"github.com/kevin07696/valueio-gateway/pkg/observability"
)

// Result values returned to the storefront
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// GatewayID is the storefront payment_method value that selects this gateway
const GatewayID = "valueio"

// CardVault is the part of the vault service the payment flows need
type CardVault interface {
	List(ctx context.Context, customerID string) ([]string, error)
	Append(ctx context.Context, customerID, cardID string) error
}

// Dependencies wires a Service
type Dependencies struct {
	Config        config.GatewayConfig
	Processor     ports.ProcessorClient
	Orders        ports.OrderRepository
	Subscriptions ports.SubscriptionManager
	Carts         ports.CartService
	Vault         CardVault
	Links         Links
	Logger        *zap.Logger
	// Now defaults to time.Now
	Now func() time.Time
}

// Service runs the checkout, receipt, refund, subscription and
// payment-method flows against the processor
type Service struct {
	cfg       config.GatewayConfig
	processor ports.ProcessorClient
	orders    ports.OrderRepository
	subs      ports.SubscriptionManager
	carts     ports.CartService
	vault     CardVault
	cards     *CardReader
	links     Links
	logger    *zap.Logger
	now       func() time.Time
}

// NewService creates a payment service
func NewService(deps Dependencies) *Service {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		cfg:       deps.Config,
		processor: deps.Processor,
		orders:    deps.Orders,
		subs:      deps.Subscriptions,
		carts:     deps.Carts,
		vault:     deps.Vault,
		cards:     NewCardReader(deps.Processor),
		links:     deps.Links,
		logger:    logger,
		now:       now,
	}
}

// Outcome is what an interactive flow hands back to the storefront.
// Processor-side failures are reported here with State FAILED and Err set;
// local errors are returned as errors instead.
type Outcome struct {
	State       domain.OrderState
	Result      string
	RedirectURL string
	Notice      string
	PaymentID   string
	// Widget is set when the shopper still has to enter card data
	Widget *widget.Params
	Err    error
}

// Failed reports whether the flow ended in FAILED
func (o *Outcome) Failed() bool {
	return o.State == domain.OrderStateFailed
}

// Available reports whether the gateway can be offered at checkout
func (s *Service) Available() bool {
	return s.cfg.IsAvailable()
}

// Check runs the admin configuration checks
func (s *Service) Check() error {
	return s.cfg.Check()
}

// ready fails with CONFIGURATION_ERROR while the gateway cannot be used.
// Flows that move money also require the gateway to be available.
func (s *Service) ready(charging bool) error {
	if err := s.cfg.Check(); err != nil {
		return err
	}
	if charging && !s.cfg.IsAvailable() {
		return domain.NewConfigurationError("ValueIO is disabled or the store currency is not USD")
	}
	return nil
}

// createPayment posts a payment for order and verifies the answer belongs to it
func (s *Service) createPayment(ctx context.Context, order *domain.Order, req domain.PaymentRequest) (*domain.PaymentResponse, error) {
	raw, callErr := s.processor.Post(ctx, "payments", EncodeForm(req))
	resp, err := interpret(raw, callErr, interpretOptions{write: true})
	if err != nil {
		return nil, err
	}
	if err := verifyAgainstOrder(resp, order); err != nil {
		return nil, err
	}
	return resp, nil
}

// fetchPayment reads an existing payment and verifies it belongs to order
func (s *Service) fetchPayment(ctx context.Context, order *domain.Order, paymentID string) (*domain.PaymentResponse, error) {
	raw, callErr := s.processor.Get(ctx, "payments/"+url.PathEscape(paymentID))
	resp, err := interpret(raw, callErr, interpretOptions{})
	if err != nil {
		return nil, err
	}
	if err := verifyAgainstOrder(resp, order); err != nil {
		return nil, err
	}
	return resp, nil
}

// backfillCard fills in card details that the payment answer only
// referenced by id. Failures are logged and leave the response unchanged.
func (s *Service) backfillCard(ctx context.Context, resp *domain.PaymentResponse) {
	if resp.CreditCard != nil || resp.Payment == nil || resp.Payment.CreditCardID == "" {
		return
	}
	card, err := s.cards.Fetch(ctx, resp.Payment.CreditCardID)
	if err != nil {
		s.logger.Warn("Failed to backfill card details",
			zap.String("payment_id", resp.Payment.ID),
			zap.String("credit_card_id", resp.Payment.CreditCardID),
			zap.Error(err),
		)
		return
	}
	resp.CreditCard = card
}

// vaultCard keeps a vaulted card for the order's customer
func (s *Service) vaultCard(ctx context.Context, order *domain.Order, card *domain.CreditCard) {
	if card == nil || !card.Vaulted || order.IsGuest() {
		return
	}
	if err := s.vault.Append(ctx, order.CustomerID, card.ID); err != nil {
		s.logger.Error("Failed to vault card",
			zap.String("order_id", order.ID),
			zap.String("customer_id", order.CustomerID),
			zap.Error(err),
		)
	}
}

// settle runs the steps after a transacted payment: card backfill, vault
// insert and order completion
func (s *Service) settle(ctx context.Context, order *domain.Order, resp *domain.PaymentResponse, flow string) (*Outcome, error) {
	s.backfillCard(ctx, resp)
	s.vaultCard(ctx, order, resp.CreditCard)

	cardID := resp.Payment.CreditCardID
	if resp.CreditCard != nil {
		cardID = resp.CreditCard.ID
	}
	if err := s.completeOrder(ctx, order, resp.Payment.ID, cardID, flow); err != nil {
		return nil, err
	}

	return &Outcome{
		State:       domain.OrderStateTransacted,
		Result:      ResultSuccess,
		RedirectURL: s.links.Return(order),
		PaymentID:   resp.Payment.ID,
	}, nil
}

// completeOrder records a transacted payment. The order is marked paid and
// the cart emptied at most once.
func (s *Service) completeOrder(ctx context.Context, order *domain.Order, paymentID, cardID, flow string) error {
	if err := s.orders.AddNote(ctx, order.ID, "ValueIO payment success. Payment ID: "+paymentID); err != nil {
		return fmt.Errorf("add payment note: %w", err)
	}
	if err := s.orders.SetMeta(ctx, order.ID, domain.MetaPaymentID, paymentID); err != nil {
		return fmt.Errorf("store payment id: %w", err)
	}
	if err := s.pinCardIfSubscription(ctx, order, cardID); err != nil {
		return err
	}

	changed, err := s.orders.MarkPaid(ctx, order.ID, s.now().UTC())
	if err != nil {
		return fmt.Errorf("mark order paid: %w", err)
	}
	if !changed {
		s.logger.Info("Order already paid",
			zap.String("order_id", order.ID),
			zap.String("payment_id", paymentID),
		)
		return nil
	}

	if err := s.carts.EmptyCart(ctx, order.CustomerID); err != nil {
		s.logger.Warn("Failed to empty cart",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	observability.RecordPaymentFlow(flow, observability.OutcomeSuccess)
	observability.RecordTransactedAmount(flow, order.Currency, order.Total.Shift(2).IntPart())

	s.logger.Info("Payment transacted",
		zap.String("order_id", order.ID),
		zap.String("payment_id", paymentID),
		zap.String("amount", order.Total.StringFixed(2)),
		zap.String("flow", flow),
	)
	return nil
}

func (s *Service) pinCardIfSubscription(ctx context.Context, order *domain.Order, cardID string) error {
	if cardID == "" {
		return nil
	}
	hasSub, err := s.subs.OrderHasSubscription(ctx, order.ID)
	if err != nil {
		return fmt.Errorf("check order subscription: %w", err)
	}
	if !hasSub {
		return nil
	}
	if err := s.orders.SetMeta(ctx, order.ID, domain.MetaVaultID, cardID); err != nil {
		return fmt.Errorf("pin card to subscription order: %w", err)
	}
	return nil
}

// fail turns a processor-side error into a FAILED outcome: the message is
// noted on the order and the shopper gets a sanitized notice. Any other
// error is returned unchanged.
func (s *Service) fail(ctx context.Context, order *domain.Order, prefix string, err error, flow string) (*Outcome, error) {
	if !domain.IsProcessorSide(err) {
		return nil, err
	}

	msg := prefix + domain.MessageOf(err)
	if noteErr := s.orders.AddNote(ctx, order.ID, msg); noteErr != nil {
		s.logger.Error("Failed to add failure note",
			zap.String("order_id", order.ID),
			zap.Error(noteErr),
		)
	}

	s.logger.Warn("Payment flow failed",
		zap.String("order_id", order.ID),
		zap.String("flow", flow),
		zap.String("error_code", string(domain.GetErrorCode(err))),
		zap.Error(err),
	)
	observability.RecordPaymentFlow(flow, observability.OutcomeFailure)

	return &Outcome{
		State:       domain.OrderStateFailed,
		Result:      ResultFailure,
		RedirectURL: s.links.Checkout(),
		Notice:      notice.ForError(msg),
		Err:         err,
	}, nil
}

// selectStoredCard resolves a vault index for a customer
func (s *Service) selectStoredCard(ctx context.Context, order *domain.Order, index int) (string, error) {
	if order.IsGuest() {
		return "", domain.NewValidationError("stored payment methods require a customer account")
	}
	cards, err := s.vault.List(ctx, order.CustomerID)
	if err != nil {
		return "", fmt.Errorf("list stored cards: %w", err)
	}
	if index < 0 || index >= len(cards) {
		return "", domain.NewValidationError("invalid stored payment method").
			WithDetail("index", index)
	}
	return cards[index], nil
}

func (s *Service) paymentRequest(order *domain.Order, transact bool) domain.PaymentRequest {
	req := BuildPaymentRequest(order, s.cfg)
	req.Transact = transact
	req.Destination = s.cfg.PaymentDestination
	return req
}
