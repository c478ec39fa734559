package ports

import (
	"net/http"
)

// HTTPClient is the outbound HTTP surface used by the processor transport.
// *http.Client satisfies it; tests substitute recording fakes.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}
