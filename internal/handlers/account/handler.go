// Package account serves the customer "payment methods" endpoints.
package account

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/handlers/respond"
	"github.com/kevin07696/valueio-gateway/internal/services/vault"
)

// InternalSecretHeader authenticates calls from the storefront backend
const InternalSecretHeader = "X-Internal-Secret"

// VaultService lists and deletes a customer's stored cards
type VaultService interface {
	ListPaymentMethods(ctx context.Context, customerID string) ([]domain.StoredCard, error)
	DeletePaymentMethod(ctx context.Context, customerID string, index int) (*vault.DeleteOutcome, error)
}

// Handler serves stored payment method endpoints
type Handler struct {
	vault          VaultService
	logger         *zap.Logger
	internalSecret string
}

// NewHandler creates an account handler. Every request must carry
// internalSecret in the X-Internal-Secret header.
func NewHandler(vault VaultService, logger *zap.Logger, internalSecret string) *Handler {
	return &Handler{
		vault:          vault,
		logger:         logger,
		internalSecret: internalSecret,
	}
}

// RegisterRoutes mounts the handler on mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /customers/{customerID}/payment-methods", h.authenticated(h.List))
	mux.HandleFunc("DELETE /customers/{customerID}/payment-methods/{index}", h.authenticated(h.Delete))
}

// ListResponse is the body of GET /customers/{customerID}/payment-methods
type ListResponse struct {
	PaymentMethods []domain.StoredCard `json:"payment_methods"`
}

// List handles GET /customers/{customerID}/payment-methods
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerID")

	methods, err := h.vault.ListPaymentMethods(r.Context(), customerID)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	respond.JSON(w, h.logger, http.StatusOK, ListResponse{PaymentMethods: methods})
}

// DeleteResponse reports a stored card deletion
type DeleteResponse struct {
	Success                bool     `json:"success"`
	Notice                 string   `json:"notice"`
	CancelledSubscriptions []string `json:"cancelled_subscriptions,omitempty"`
}

// Delete handles DELETE /customers/{customerID}/payment-methods/{index}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	customerID := r.PathValue("customerID")
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		respond.Message(w, h.logger, http.StatusBadRequest, "index must be a number")
		return
	}

	outcome, err := h.vault.DeletePaymentMethod(r.Context(), customerID, index)
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}

	statusCode := http.StatusOK
	if !outcome.Success {
		statusCode = http.StatusBadGateway
	}
	respond.JSON(w, h.logger, statusCode, DeleteResponse{
		Success:                outcome.Success,
		Notice:                 outcome.Notice,
		CancelledSubscriptions: outcome.CancelledSubscriptions,
	})
}

func (h *Handler) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		given := r.Header.Get(InternalSecretHeader)
		if h.internalSecret == "" || subtle.ConstantTimeCompare([]byte(given), []byte(h.internalSecret)) != 1 {
			h.logger.Warn("Unauthorized account request",
				zap.String("path", r.URL.Path),
				zap.String("remote_addr", r.RemoteAddr),
			)
			respond.Message(w, h.logger, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}
