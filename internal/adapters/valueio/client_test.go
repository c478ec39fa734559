package valueio

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kevin07696/valueio-gateway/internal/config"
	"github.com/kevin07696/valueio-gateway/internal/domain"
	"github.com/kevin07696/valueio-gateway/pkg/resilience"
)

func setupClientTest(t *testing.T, handler http.HandlerFunc, httpClient *http.Client) (*Client, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	if httpClient == nil {
		httpClient = server.Client()
	}

	cfg := ConfigFromGateway(config.GatewayConfig{
		AccountID:     "acme",
		AdminToken:    "admin-secret",
		APIBaseURL:    server.URL,
		MaxGetRetries: 2,
	})

	client := NewClient(cfg, httpClient, zap.NewNop(),
		WithBackoff(&resilience.FixedBackoff{Delay: time.Millisecond}),
	)
	return client, server
}

func TestClient_PostSendsAuthAndForm(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payments", r.URL.Path)

		expected := "Basic " + base64.StdEncoding.EncodeToString([]byte("acme:admin-secret"))
		assert.Equal(t, expected, r.Header.Get("Authorization"))
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		assert.NotEmpty(t, r.Header.Get("X-Request-Id"))

		require.NoError(t, r.ParseForm())
		assert.Equal(t, "10.00", r.PostForm.Get("payment[amount]"))
		assert.Equal(t, "Austin", r.PostForm.Get("payment[data][shipping_city]"))

		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"data":{}}`))
	}
	client, _ := setupClientTest(t, handler, nil)

	params := url.Values{}
	params.Set("payment[amount]", "10.00")
	params.Set("payment[data][shipping_city]", "Austin")

	raw, err := client.Post(context.Background(), "payments", params)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, raw.StatusCode)
	assert.Equal(t, `{"data":{}}`, string(raw.Body))
	assert.Equal(t, http.MethodPost, raw.Method)
	assert.Equal(t, "payments", raw.Resource)
}

func TestClient_NonSuccessStatusIsReturnedNotRaised(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`Card declined {"error":"declined"}`))
	}
	client, _ := setupClientTest(t, handler, nil)

	raw, err := client.Post(context.Background(), "payments", url.Values{"payment[amount]": {"1.00"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, raw.StatusCode)
	assert.False(t, raw.IsSuccess())
}

func TestClient_DeleteUsesMethodAndPath(t *testing.T) {
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/v1/credit_cards/cc_1", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.Empty(t, body)
		w.WriteHeader(http.StatusOK)
	}
	client, _ := setupClientTest(t, handler, nil)

	raw, err := client.Delete(context.Background(), "credit_cards/cc_1", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, raw.StatusCode)
}

func TestClient_GetRetriesServerErrors(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"payment":{"identifier":"p1"}}}`))
	}
	client, _ := setupClientTest(t, handler, nil)

	raw, err := client.Get(context.Background(), "payments/p1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, raw.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_GetReturnsLastServerErrorWhenRetriesExhausted(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadGateway)
	}
	client, _ := setupClientTest(t, handler, nil)

	raw, err := client.Get(context.Background(), "payments/p1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, raw.StatusCode)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestClient_PostIsNeverRetried(t *testing.T) {
	var calls int32
	handler := func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}
	client, _ := setupClientTest(t, handler, nil)

	raw, err := client.Post(context.Background(), "payments", url.Values{"a": {"b"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, raw.StatusCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestClient_TimeoutIsRetryableProcessorError(t *testing.T) {
	release := make(chan struct{})
	handler := func(w http.ResponseWriter, r *http.Request) {
		// the server only notices the client hanging up once the body is consumed
		_, _ = io.Copy(io.Discard, r.Body)
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}

	client, _ := setupClientTest(t, handler, &http.Client{Timeout: 20 * time.Millisecond})
	// registered after server.Close so it runs first and unblocks the handler
	t.Cleanup(func() { close(release) })

	_, err := client.Post(context.Background(), "payments", url.Values{"a": {"b"}})
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeProcessor))
	assert.True(t, domain.IsRetryable(err))
}

type failingHTTPClient struct {
	err   error
	calls int
}

func (f *failingHTTPClient) Do(req *http.Request) (*http.Response, error) {
	f.calls++
	return nil, f.err
}

func TestClient_NetworkFailureIsTransportError(t *testing.T) {
	httpClient := &failingHTTPClient{err: errors.New("connection refused")}
	client := NewClient(Config{APIURL: "http://processor.invalid/v1/", MaxGetRetries: 1}, httpClient, zap.NewNop(),
		WithBackoff(&resilience.FixedBackoff{Delay: time.Millisecond}),
	)

	_, err := client.Get(context.Background(), "credit_cards/cc_1")
	require.Error(t, err)
	assert.True(t, domain.IsDomainError(err, domain.ErrorCodeTransport))
	assert.False(t, domain.IsRetryable(err))
	assert.Equal(t, 2, httpClient.calls)
}

func TestClient_OpenCircuitStopsCalls(t *testing.T) {
	httpClient := &failingHTTPClient{err: errors.New("connection reset")}
	breaker := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1, Cooldown: time.Hour, MaxProbes: 1})
	client := NewClient(Config{APIURL: "http://processor.invalid/v1/"}, httpClient, zap.NewNop(),
		WithCircuitBreaker(breaker),
	)

	_, err := client.Post(context.Background(), "payments", nil)
	require.Error(t, err)
	assert.Equal(t, StateOpen, client.CircuitState())

	_, err = client.Post(context.Background(), "payments", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 1, httpClient.calls)
}
