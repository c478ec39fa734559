package observability

import (
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Processor REST call metrics
	processorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valueio_processor_requests_total",
			Help: "Total number of ValueIO API requests",
		},
		[]string{"method", "resource", "status"},
	)

	processorRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "valueio_processor_request_duration_seconds",
			Help:    "Duration of ValueIO API requests in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "resource"},
	)

	processorRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "valueio_processor_retries_total",
			Help: "Total number of retried ValueIO API reads",
		},
		[]string{"resource"},
	)
)

// ResourceLabel collapses identifiers out of a resource path so the metric
// stays low-cardinality: "payments/abc123" becomes "payments/:id".
func ResourceLabel(resource string) string {
	resource = strings.Trim(resource, "/")
	if i := strings.IndexByte(resource, '?'); i >= 0 {
		resource = resource[:i]
	}
	head, rest, found := strings.Cut(resource, "/")
	if !found || rest == "" {
		return head
	}
	return head + "/:id"
}

// RecordProcessorRequest records one processor round trip. statusCode 0
// means no answer was received.
func RecordProcessorRequest(method, resource string, statusCode int, duration time.Duration) {
	label := ResourceLabel(resource)
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	processorRequestsTotal.WithLabelValues(method, label, status).Inc()
	processorRequestDuration.WithLabelValues(method, label).Observe(duration.Seconds())
}

// RecordProcessorRetry counts a retried read
func RecordProcessorRetry(resource string) {
	processorRetriesTotal.WithLabelValues(ResourceLabel(resource)).Inc()
}
