// Package metrics exposes Prometheus counters and histograms for the
// safe-verify CLI host. pkg/verify and every subsystem package remain
// free of any dependency on this package; the CLI wires Metrics.Observe*
// calls around its own call into pkg/verify.Verify.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds every counter/histogram the CLI host records.
type Metrics struct {
	registry               *prometheus.Registry
	verificationsTotal     *prometheus.CounterVec
	signaturesCheckedTotal *prometheus.CounterVec
	mptProofsTotal         *prometheus.CounterVec
	verificationDuration   prometheus.Histogram
}

// New constructs and registers every metric on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{registry: reg}

	m.verificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_verify_verifications_total",
		Help: "Total number of evidence packages verified, labeled by outcome.",
	}, []string{"outcome"})

	m.signaturesCheckedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_verify_signatures_checked_total",
		Help: "Total number of confirmation signatures checked, labeled by status.",
	}, []string{"status"})

	m.mptProofsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "safe_verify_mpt_proofs_total",
		Help: "Total number of Merkle-Patricia Trie proofs verified, labeled by proof kind and outcome.",
	}, []string{"kind", "outcome"})

	m.verificationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "safe_verify_verification_duration_seconds",
		Help:    "Wall-clock duration of a full package verification.",
		Buckets: prometheus.DefBuckets,
	})

	reg.MustRegister(
		m.verificationsTotal,
		m.signaturesCheckedTotal,
		m.mptProofsTotal,
		m.verificationDuration,
	)

	return m
}

// ObserveVerification records one completed package verification.
func (m *Metrics) ObserveVerification(outcome string, duration time.Duration) {
	m.verificationsTotal.WithLabelValues(outcome).Inc()
	m.verificationDuration.Observe(duration.Seconds())
}

// ObserveSignature records one confirmation signature check.
func (m *Metrics) ObserveSignature(status string) {
	m.signaturesCheckedTotal.WithLabelValues(status).Inc()
}

// ObserveMPTProof records one MPT proof verification.
func (m *Metrics) ObserveMPTProof(kind, outcome string) {
	m.mptProofsTotal.WithLabelValues(kind, outcome).Inc()
}

// Handler returns the http.Handler the CLI host mounts at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
