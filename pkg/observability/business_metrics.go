package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Flow names used as metric labels
const (
	FlowCheckout      = "checkout"
	FlowReceipt       = "receipt"
	FlowRefund        = "refund"
	FlowSubscription  = "subscription"
	FlowChangeMethod  = "change_payment_method"
	FlowDeleteMethod  = "delete_payment_method"
	OutcomeSuccess    = "success"
	OutcomeFailure    = "failure"
	OutcomePending    = "pending"
	OutcomeRedirected = "redirected"
)

var (
	paymentFlowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valueio_payment_flows_total",
		Help: "Total gateway flows by outcome",
	}, []string{
		"flow",    // checkout, receipt, refund, subscription, ...
		"outcome", // success, failure, pending, redirected
	})

	paymentAmountCents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valueio_payment_amount_cents_total",
		Help: "Total transacted amount in cents",
	}, []string{"flow", "currency"})

	vaultMutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "valueio_vault_mutations_total",
		Help: "Total customer vault changes",
	}, []string{"operation"}) // append, remove

	billingBatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "valueio_billing_batch_duration_seconds",
		Help:    "Time to run one scheduled subscription billing batch",
		Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300},
	})
)

// RecordPaymentFlow records the outcome of one gateway flow
func RecordPaymentFlow(flow, outcome string) {
	paymentFlowsTotal.WithLabelValues(flow, outcome).Inc()
}

// RecordTransactedAmount adds a transacted amount to the revenue counter
func RecordTransactedAmount(flow, currency string, amountCents int64) {
	if amountCents <= 0 {
		return
	}
	paymentAmountCents.WithLabelValues(flow, currency).Add(float64(amountCents))
}

// RecordVaultMutation counts a change to a customer's vault list
func RecordVaultMutation(operation string) {
	vaultMutationsTotal.WithLabelValues(operation).Inc()
}

// ObserveBillingBatch records how long a billing batch took
func ObserveBillingBatch(d time.Duration) {
	billingBatchDuration.Observe(d.Seconds())
}
