// Package checkout serves the storefront endpoints of the payment flow:
// checkout submission, the hosted payment page, refunds and switching the
// card a subscription bills.
package checkout

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/handlers/respond"
	"github.com/kevin07696/valueio-gateway/internal/services/payment"
)

// Form fields posted by the storefront
const (
	FieldUseStored     = "valueio-use-stored-payment-info"
	FieldMethodIndex   = "valueio-payment-method"
	FieldPaymentMethod = "payment_method"
	FieldCardToken     = "valueio_token"
)

// InternalSecretHeader authenticates calls from the store back office
const InternalSecretHeader = "X-Internal-Secret"

// PaymentService is the payment flow the handler drives
type PaymentService interface {
	ProcessPayment(ctx context.Context, orderID string, req payment.CheckoutRequest) (*payment.Outcome, error)
	Receipt(ctx context.Context, orderID, paymentID string) (*payment.Outcome, error)
	Refund(ctx context.Context, orderID string, amount *decimal.Decimal, reason string) (*payment.RefundOutcome, error)
	ChangePaymentMethod(ctx context.Context, orderID string, req payment.ChangeRequest) (*payment.Outcome, error)
}

// Handler serves the order payment endpoints
type Handler struct {
	payments       PaymentService
	logger         *zap.Logger
	internalSecret string
	title          string
}

// NewHandler creates a checkout handler. internalSecret guards the refund
// endpoint; when empty, refunds over HTTP are refused.
func NewHandler(payments PaymentService, logger *zap.Logger, internalSecret, title string) *Handler {
	return &Handler{
		payments:       payments,
		logger:         logger,
		internalSecret: internalSecret,
		title:          title,
	}
}

// RegisterRoutes mounts the handler on mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders/{orderID}/checkout", h.Checkout)
	mux.HandleFunc("GET /orders/{orderID}/pay", h.Pay)
	mux.HandleFunc("POST /orders/{orderID}/refund", h.Refund)
	mux.HandleFunc("GET /orders/{orderID}/payment-method", h.ChangePaymentMethod)
	mux.HandleFunc("POST /orders/{orderID}/payment-method", h.ChangePaymentMethod)
}

// CheckoutResponse mirrors what the storefront checkout script expects
type CheckoutResponse struct {
	Result   string `json:"result"`
	Redirect string `json:"redirect,omitempty"`
	Notice   string `json:"notice,omitempty"`
	State    string `json:"state,omitempty"`
}

// Checkout handles POST /orders/{orderID}/checkout
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")

	if err := r.ParseForm(); err != nil {
		respond.Message(w, h.logger, http.StatusBadRequest, "invalid form body")
		return
	}

	req := payment.CheckoutRequest{UseStored: r.PostFormValue(FieldUseStored) == "yes"}
	if req.UseStored {
		index, err := strconv.Atoi(r.PostFormValue(FieldMethodIndex))
		if err != nil {
			respond.Message(w, h.logger, http.StatusBadRequest, "invalid stored payment method")
			return
		}
		req.MethodIndex = index
	}

	outcome, err := h.payments.ProcessPayment(r.Context(), orderID, req)
	if err != nil {
		h.logger.Warn("Checkout failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, toCheckoutResponse(outcome))
}

// Pay handles GET /orders/{orderID}/pay. Without payment_id it shows the
// hosted form; with it, the payment is confirmed and the shopper redirected.
func (h *Handler) Pay(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")
	paymentID := r.URL.Query().Get("payment_id")

	outcome, err := h.payments.Receipt(r.Context(), orderID, paymentID)
	if err != nil {
		h.logger.Warn("Receipt page failed",
			zap.String("order_id", orderID),
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		statusCode, message := respond.Status(err)
		http.Error(w, message, statusCode)
		return
	}

	renderOutcome(w, h.logger, h.title, outcome)
}

// RefundRequest is the body of POST /orders/{orderID}/refund
type RefundRequest struct {
	Amount *decimal.Decimal `json:"amount"`
	Reason string           `json:"reason"`
}

// RefundResponse reports a refund attempt
type RefundResponse struct {
	Success  bool   `json:"success"`
	RefundID string `json:"refund_id,omitempty"`
	Notice   string `json:"notice,omitempty"`
}

// Refund handles POST /orders/{orderID}/refund
func (h *Handler) Refund(w http.ResponseWriter, r *http.Request) {
	if !h.authenticateInternal(r) {
		h.logger.Warn("Unauthorized refund request", zap.String("remote_addr", r.RemoteAddr))
		respond.Message(w, h.logger, http.StatusUnauthorized, "unauthorized")
		return
	}

	orderID := r.PathValue("orderID")

	var req RefundRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.Message(w, h.logger, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	outcome, err := h.payments.Refund(r.Context(), orderID, req.Amount, req.Reason)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	statusCode := http.StatusOK
	if !outcome.Success {
		statusCode = http.StatusBadGateway
	}
	respond.JSON(w, h.logger, statusCode, RefundResponse{
		Success:  outcome.Success,
		RefundID: outcome.RefundID,
		Notice:   outcome.Notice,
	})
}

// ChangePaymentMethod handles GET and POST /orders/{orderID}/payment-method.
// Until a method is posted it shows the card collection form.
func (h *Handler) ChangePaymentMethod(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("orderID")

	var req payment.ChangeRequest
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			respond.Message(w, h.logger, http.StatusBadRequest, "invalid form body")
			return
		}
		req.PaymentMethod = r.PostFormValue(FieldPaymentMethod)
		req.CardToken = r.PostFormValue(FieldCardToken)
		req.UseStored = r.PostFormValue(FieldUseStored) == "yes"
		if req.UseStored {
			index, err := strconv.Atoi(r.PostFormValue(FieldMethodIndex))
			if err != nil {
				respond.Message(w, h.logger, http.StatusBadRequest, "invalid stored payment method")
				return
			}
			req.MethodIndex = index
		}
	}

	outcome, err := h.payments.ChangePaymentMethod(r.Context(), orderID, req)
	if err != nil {
		h.logger.Warn("Change payment method failed",
			zap.String("order_id", orderID),
			zap.Error(err),
		)
		respond.Error(w, h.logger, err)
		return
	}

	if outcome.Widget != nil {
		renderOutcome(w, h.logger, h.title, outcome)
		return
	}
	respond.JSON(w, h.logger, http.StatusOK, toCheckoutResponse(outcome))
}

func (h *Handler) authenticateInternal(r *http.Request) bool {
	if h.internalSecret == "" {
		return false
	}
	given := r.Header.Get(InternalSecretHeader)
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.internalSecret)) == 1
}

func toCheckoutResponse(outcome *payment.Outcome) CheckoutResponse {
	return CheckoutResponse{
		Result:   outcome.Result,
		Redirect: outcome.RedirectURL,
		Notice:   outcome.Notice,
		State:    string(outcome.State),
	}
}
