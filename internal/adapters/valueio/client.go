package valueio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/config"
	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/internal/domain/ports"
	"github.com/kevin07696/valueio-gateway/pkg/observability"
	"github.com/kevin07696/valueio-gateway/pkg/resilience"
)

const maxResponseBytes = 1 << 20

// Config contains the settings the transport needs from GatewayConfig
type Config struct {
	APIURL        string
	AccountID     string
	AdminToken    string
	MaxGetRetries int
	UserAgent     string
}

// ConfigFromGateway derives transport settings from the gateway configuration
func ConfigFromGateway(g config.GatewayConfig) Config {
	return Config{
		APIURL:        g.APIURL(),
		AccountID:     g.AccountID,
		AdminToken:    g.AdminToken,
		MaxGetRetries: g.MaxGetRetries,
		UserAgent:     "valueio-gateway/1.0",
	}
}

// Client implements ports.ProcessorClient over the ValueIO REST API
type Client struct {
	config         Config
	httpClient     ports.HTTPClient
	logger         *zap.Logger
	circuitBreaker *CircuitBreaker
	backoff        resilience.BackoffStrategy
}

// Option customizes a Client
type Option func(*Client)

// WithBackoff overrides the delay between GET retries
func WithBackoff(b resilience.BackoffStrategy) Option {
	return func(c *Client) { c.backoff = b }
}

// WithCircuitBreaker overrides the processor circuit breaker
func WithCircuitBreaker(cb *CircuitBreaker) Option {
	return func(c *Client) { c.circuitBreaker = cb }
}

// NewClient creates a processor client
func NewClient(cfg Config, httpClient ports.HTTPClient, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		config:         cfg,
		httpClient:     httpClient,
		logger:         logger,
		circuitBreaker: NewCircuitBreaker(DefaultCircuitBreakerConfig()),
		backoff:        resilience.ProcessorBackoff(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get reads a resource. Reads are idempotent and retried on network
// failures, timeouts and 5xx answers.
func (c *Client) Get(ctx context.Context, resource string) (*domain.RawResponse, error) {
	return c.do(ctx, http.MethodGet, resource, nil, c.config.MaxGetRetries)
}

// Post creates a resource from form parameters. Never retried.
func (c *Client) Post(ctx context.Context, resource string, params url.Values) (*domain.RawResponse, error) {
	return c.do(ctx, http.MethodPost, resource, params, 0)
}

// Delete removes a resource. Never retried.
func (c *Client) Delete(ctx context.Context, resource string, params url.Values) (*domain.RawResponse, error) {
	return c.do(ctx, http.MethodDelete, resource, params, 0)
}

// CircuitState exposes the breaker state for health reporting
func (c *Client) CircuitState() CircuitState {
	return c.circuitBreaker.State()
}

func (c *Client) do(ctx context.Context, method, resource string, params url.Values, maxRetries int) (*domain.RawResponse, error) {
	requestID := uuid.NewString()

	var (
		raw     *domain.RawResponse
		lastErr error
	)

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff.NextDelay(attempt - 1)
			c.logger.Info("Retrying ValueIO request",
				zap.String("method", method),
				zap.String("resource", resource),
				zap.Int("attempt", attempt),
				zap.Duration("delay", delay),
			)
			observability.RecordProcessorRetry(resource)
			if err := resilience.Wait(ctx, delay); err != nil {
				return nil, domain.NewTransportError(resource, err)
			}
		}

		raw, lastErr = c.send(ctx, method, resource, params, requestID)
		if lastErr == nil && raw.StatusCode < http.StatusInternalServerError {
			return raw, nil
		}
		if lastErr != nil && errors.Is(lastErr, ErrCircuitOpen) {
			break
		}
	}

	if lastErr != nil {
		return nil, lastErr
	}
	// retries exhausted on 5xx answers; hand back the last one
	return raw, nil
}

func (c *Client) send(ctx context.Context, method, resource string, params url.Values, requestID string) (*domain.RawResponse, error) {
	endpoint := c.config.APIURL + strings.TrimLeft(resource, "/")

	var body io.Reader
	if len(params) > 0 {
		body = bytes.NewBufferString(params.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, domain.WrapError(domain.ErrorCodeInternalError, "build processor request", err)
	}
	req.SetBasicAuth(c.config.AccountID, c.config.AdminToken)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	var raw *domain.RawResponse
	start := time.Now()

	callErr := c.circuitBreaker.Call(func() error {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return fmt.Errorf("read response body: %w", err)
		}

		raw = &domain.RawResponse{
			Method:     method,
			Resource:   resource,
			StatusCode: resp.StatusCode,
			Body:       data,
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return fmt.Errorf("processor returned status %d", resp.StatusCode)
		}
		return nil
	})

	elapsed := time.Since(start)
	statusCode := 0
	if raw != nil {
		statusCode = raw.StatusCode
	}
	observability.RecordProcessorRequest(method, resource, statusCode, elapsed)

	if raw != nil {
		c.logger.Debug("ValueIO request completed",
			zap.String("method", method),
			zap.String("resource", resource),
			zap.Int("status_code", raw.StatusCode),
			zap.Duration("elapsed", elapsed),
			zap.String("request_id", requestID),
		)
		return raw, nil
	}

	c.logger.Warn("ValueIO request failed",
		zap.String("method", method),
		zap.String("resource", resource),
		zap.Duration("elapsed", elapsed),
		zap.String("request_id", requestID),
		zap.Error(callErr),
	)

	if isTimeout(callErr) {
		perr := domain.NewProcessorError(0, "processor request timed out")
		perr.Err = callErr
		perr.Retryable = true
		return nil, perr.WithDetail("resource", resource)
	}
	return nil, domain.NewTransportError(resource, callErr)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
