package cron

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/services/subscription"
	"github.com/kevin07696/valueio-gateway/pkg/resilience"
	"github.com/kevin07696/valueio-gateway/pkg/timeutil"
)

// DueBiller runs one billing batch
type DueBiller interface {
	ProcessDue(ctx context.Context, asOf time.Time, batchSize int) (*subscription.BillingBatchResult, error)
}

// BillingHandler handles cron job endpoints for subscription billing
type BillingHandler struct {
	biller           DueBiller
	logger           *zap.Logger
	cronSecret       string
	defaultBatchSize int
	timeouts         *resilience.TimeoutConfig
	now              func() time.Time
}

// NewBillingHandler creates a new billing cron handler
func NewBillingHandler(
	biller DueBiller,
	logger *zap.Logger,
	cronSecret string,
	defaultBatchSize int,
	timeouts *resilience.TimeoutConfig,
) *BillingHandler {
	return &BillingHandler{
		biller:           biller,
		logger:           logger,
		cronSecret:       cronSecret,
		defaultBatchSize: defaultBatchSize,
		timeouts:         timeouts,
		now:              timeutil.Now,
	}
}

// RegisterRoutes mounts the cron endpoints on mux
func (h *BillingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /cron/process-billing", h.ProcessBilling)
	mux.HandleFunc("GET /cron/health", h.HealthCheck)
}

// ProcessBillingRequest represents the request body for manual billing processing
type ProcessBillingRequest struct {
	AsOfDate  *string `json:"as_of_date"` // Optional: ISO date string, defaults to now
	BatchSize *int    `json:"batch_size"` // Optional: defaults to the configured batch size
}

// ProcessBillingResponse represents the response from billing processing
type ProcessBillingResponse struct {
	Success      bool                        `json:"success"`
	Processed    int                         `json:"processed"`
	SuccessCount int                         `json:"success_count"`
	FailureCount int                         `json:"failure_count"`
	Errors       []subscription.BillingError `json:"errors,omitempty"`
	ProcessedAt  string                      `json:"processed_at"`
}

// ProcessBilling handles the POST /cron/process-billing endpoint
func (h *BillingHandler) ProcessBilling(w http.ResponseWriter, r *http.Request) {
	h.logger.Info("Billing cron job triggered",
		zap.String("remote_addr", r.RemoteAddr),
		zap.String("user_agent", r.UserAgent()),
	)

	if !h.authenticateRequest(r) {
		h.logger.Warn("Unauthorized cron request",
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ProcessBillingRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.respondError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	var day string
	if req.AsOfDate != nil {
		day = *req.AsOfDate
	}
	asOf, err := timeutil.BillingCutoff(day, h.now())
	if err != nil {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid as_of_date format: %v", err))
		return
	}

	batchSize := h.defaultBatchSize
	if req.BatchSize != nil {
		if *req.BatchSize < 1 || *req.BatchSize > 1000 {
			h.respondError(w, http.StatusBadRequest, "batch_size must be between 1 and 1000")
			return
		}
		batchSize = *req.BatchSize
	}

	// Renewals keep running if the scheduler disconnects.
	ctx, cancel := h.timeouts.CronContext(context.WithoutCancel(r.Context()))
	defer cancel()

	result, err := h.biller.ProcessDue(ctx, asOf, batchSize)
	if err != nil && result == nil {
		h.logger.Error("Billing batch failed", zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, "billing batch failed")
		return
	}

	resp := ProcessBillingResponse{
		Success:      err == nil && result.FailedCount == 0,
		Processed:    result.ProcessedCount,
		SuccessCount: result.SuccessCount,
		FailureCount: result.FailedCount,
		Errors:       result.Errors,
		ProcessedAt:  h.now().Format(time.RFC3339),
	}

	h.logger.Info("Billing processing completed",
		zap.Int("processed", resp.Processed),
		zap.Int("success", resp.SuccessCount),
		zap.Int("failed", resp.FailureCount),
		zap.NamedError("interrupted", err),
	)

	w.Header().Set("Content-Type", "application/json")
	if resp.Success {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusPartialContent) // 206 indicates partial success
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}

// authenticateRequest accepts the cron secret in X-Cron-Secret or as a
// bearer token
func (h *BillingHandler) authenticateRequest(r *http.Request) bool {
	if h.cronSecret == "" {
		return false
	}

	if secretMatches(r.Header.Get("X-Cron-Secret"), h.cronSecret) {
		return true
	}
	return secretMatches(r.Header.Get("Authorization"), "Bearer "+h.cronSecret)
}

func secretMatches(given, want string) bool {
	return subtle.ConstantTimeCompare([]byte(given), []byte(want)) == 1
}

// respondError sends an error response
func (h *BillingHandler) respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	resp := map[string]interface{}{
		"success": false,
		"error":   message,
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// HealthCheck handles GET /cron/health for monitoring
func (h *BillingHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	resp := map[string]interface{}{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Failed to encode health response", zap.Error(err))
	}
}
