package ports

import (
	"context"
	"net/url"

	"github.com/kevin07696/valueio-gateway/internal/domain"
)

// ProcessorClient performs authenticated calls against the processor REST API.
//
// Resources are relative to the versioned API root, e.g. "payments",
// "payments/{id}" or "credit_cards/{id}". Implementations return the raw
// status and body for every answer the processor gives; only failures to
// obtain an answer are reported as errors:
//   - TRANSPORT_ERROR when the network call fails
//   - PROCESSOR_ERROR (retryable) when the call timed out
type ProcessorClient interface {
	Get(ctx context.Context, resource string) (*domain.RawResponse, error)
	Post(ctx context.Context, resource string, params url.Values) (*domain.RawResponse, error)
	Delete(ctx context.Context, resource string, params url.Values) (*domain.RawResponse, error)
}
