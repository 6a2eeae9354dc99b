package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var stageBuckets = []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1}

// --- Requests ---

var Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bolt_relay_requests_total",
	Help: "Total number of constraints API requests by method and outcome",
}, []string{"method", "outcome"})

var StageDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "bolt_relay_request_stage_duration_seconds",
	Help:    "Time spent in each stage of a constraints API request",
	Buckets: stageBuckets,
}, []string{"method", "stage"})

var DecodeFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "bolt_relay_decode_fallback_total",
	Help: "Requests declared as SSZ that were decoded as JSON",
})

// --- Constraints ---

var ConstraintsSaved = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "bolt_relay_constraints_saved_total",
	Help: "Constraint batches handed to the auctioneer",
})

var BackgroundWriteFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bolt_relay_background_write_failures_total",
	Help: "Delegation and revocation writes that failed after the request returned",
}, []string{"method"})

// --- Proofs ---

var ProofVerifications = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "bolt_relay_proof_verifications_total",
	Help: "Inclusion proof verifications by result",
}, []string{"result"})

func init() {
	prometheus.MustRegister(
		Requests,
		StageDuration,
		DecodeFallbacks,
		ConstraintsSaved,
		BackgroundWriteFailures,
		ProofVerifications,
	)
}

// ObserveStage records the duration between two unix nanosecond stamps.
func ObserveStage(method, stage string, fromNs, toNs uint64) {
	if toNs < fromNs {
		return
	}
	StageDuration.WithLabelValues(method, stage).Observe(time.Duration(toNs - fromNs).Seconds())
}
