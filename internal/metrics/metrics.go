package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the payment flow
var (
	PaymentInitiationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_initiations_total",
			Help: "Total number of payment initiation requests signed",
		},
	)

	PaymentVerificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_verifications_total",
			Help: "Total number of payment verification attempts by outcome",
		},
		[]string{"outcome"},
	)

	PaymentVerificationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "payment_verification_duration_seconds",
			Help:    "Duration of payment verification including the order update",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// Verification outcome label values.
const (
	OutcomeSuccess           = "success"
	OutcomeMalformedPayload  = "malformed_payload"
	OutcomeIncomplete        = "incomplete"
	OutcomeSignatureMismatch = "signature_mismatch"
	OutcomeOrderNotFound     = "order_not_found"
	OutcomeAlreadyPaid       = "already_paid"
	OutcomeError             = "error"
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(PaymentInitiationsTotal)
	prometheus.MustRegister(PaymentVerificationsTotal)
	prometheus.MustRegister(PaymentVerificationDuration)
}
