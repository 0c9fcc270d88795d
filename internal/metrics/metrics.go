package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Scan results
const (
	ScanAdmitted = "admitted"
	ScanDenied   = "denied"
	ScanError    = "error"
)

var (
	ticketsIssued = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickets_issued_total",
			Help: "Total tickets issued",
		},
		[]string{"parent_kind"},
	)

	issuanceFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_issuance_failures_total",
			Help: "Total bookings whose tickets could not be created",
		},
	)

	numberCollisions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_number_collisions_total",
			Help: "Total ticket number candidates rejected as already taken",
		},
	)

	numberFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticket_number_fallbacks_total",
			Help: "Total ticket numbers generated with the wide fallback after repeated collisions",
		},
	)

	entryScans = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "entry_scans_total",
			Help: "Total entry scans by result and denial reason",
		},
		[]string{"result", "reason"},
	)

	verificationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "entry_verification_duration_seconds",
			Help:    "Duration of entry verification",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"result"},
	)

	outboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_published_total",
			Help: "Total outbox messages relayed to the broker",
		},
		[]string{"status"},
	)
)

// RecordTicketsIssued counts tickets created for one booking
func RecordTicketsIssued(parentKind string, n int) {
	ticketsIssued.WithLabelValues(parentKind).Add(float64(n))
}

// RecordIssuanceFailure counts a booking that needs manual reconciliation
func RecordIssuanceFailure() {
	issuanceFailures.Inc()
}

// RecordNumberCollision counts a rejected ticket number candidate
func RecordNumberCollision() {
	numberCollisions.Inc()
}

// RecordNumberFallback counts a wide fallback ticket number
func RecordNumberFallback() {
	numberFallbacks.Inc()
}

// RecordScan counts one verification and its latency. reason is empty for admits.
func RecordScan(result, reason string, elapsed time.Duration) {
	entryScans.WithLabelValues(result, reason).Inc()
	verificationDuration.WithLabelValues(result).Observe(elapsed.Seconds())
}

// RecordOutboxPublished counts relayed messages by status (published, failed)
func RecordOutboxPublished(status string, n int) {
	outboxPublished.WithLabelValues(status).Add(float64(n))
}
