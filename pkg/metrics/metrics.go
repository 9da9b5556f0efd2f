package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds the Store's metric collectors for one Session. Each
// Session owns its own prometheus.Registry rather than registering onto
// prometheus.DefaultRegisterer, so constructing several sessions within
// one process (tests, notably) never panics on a duplicate registration.
type Registry struct {
	reg *prometheus.Registry

	LockAcquisitions  *prometheus.CounterVec
	LockContentions   *prometheus.CounterVec
	LockStaleReclaims *prometheus.CounterVec

	CollectionOpDuration *prometheus.HistogramVec
	DecryptCalls         *prometheus.CounterVec
}

// NewRegistry constructs and registers a fresh metric set.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),
		LockAcquisitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultstore_lock_acquisitions_total",
				Help: "Total number of successful lock acquisitions by lock id",
			},
			[]string{"lock_id"},
		),
		LockContentions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultstore_lock_contentions_total",
				Help: "Total number of acquire attempts that found the lock already held",
			},
			[]string{"lock_id"},
		),
		LockStaleReclaims: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultstore_lock_stale_reclaims_total",
				Help: "Total number of stale lock directories reclaimed",
			},
			[]string{"lock_id"},
		),
		CollectionOpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vaultstore_collection_op_duration_seconds",
				Help:    "Duration of collection engine operations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"collection", "op"},
		),
		DecryptCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vaultstore_payload_decrypt_calls_total",
				Help: "Total number of payload decryption calls by collection",
			},
			[]string{"collection"},
		),
	}
	r.reg.MustRegister(
		r.LockAcquisitions,
		r.LockContentions,
		r.LockStaleReclaims,
		r.CollectionOpDuration,
		r.DecryptCalls,
	)
	return r
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
