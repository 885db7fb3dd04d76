package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReservationMetrics tracks the inventory ledger's reserve/release outcomes.
type ReservationMetrics struct {
	reserves      *prometheus.CounterVec
	releases      *prometheus.CounterVec
	compensations prometheus.Counter
	duration      *prometheus.HistogramVec
}

// Reserve outcome labels.
const (
	OutcomeSuccess      = "success"
	OutcomeInsufficient = "insufficient"
	OutcomeNotFound     = "not_found"
	OutcomeError        = "error"
)

// NewReservationMetrics registers the reservation metrics on the provided registerer.
func NewReservationMetrics(reg prometheus.Registerer) *ReservationMetrics {
	if reg == nil {
		return &ReservationMetrics{}
	}
	reserves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_reserve_total",
		Help: "Reserve attempts against the inventory ledger, labeled by outcome.",
	}, []string{"outcome"})
	releases := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventory_release_total",
		Help: "Release operations against the inventory ledger, labeled by outcome.",
	}, []string{"outcome"})
	compensations := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "booking_compensation_total",
		Help: "Compensating releases issued after a booking failed to persist.",
	})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventory_op_duration_seconds",
		Help:    "Latency of ledger operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})
	reg.MustRegister(reserves, releases, compensations, duration)
	return &ReservationMetrics{
		reserves:      reserves,
		releases:      releases,
		compensations: compensations,
		duration:      duration,
	}
}

// ObserveReserve records one reserve attempt.
func (r *ReservationMetrics) ObserveReserve(outcome string, elapsed time.Duration) {
	if r == nil || r.reserves == nil {
		return
	}
	r.reserves.WithLabelValues(normalizeLabel(outcome)).Inc()
	r.duration.WithLabelValues("reserve").Observe(elapsed.Seconds())
}

// ObserveRelease records one release operation.
func (r *ReservationMetrics) ObserveRelease(outcome string, elapsed time.Duration) {
	if r == nil || r.releases == nil {
		return
	}
	r.releases.WithLabelValues(normalizeLabel(outcome)).Inc()
	r.duration.WithLabelValues("release").Observe(elapsed.Seconds())
}

// IncCompensation increments the compensating-release counter.
func (r *ReservationMetrics) IncCompensation() {
	if r == nil || r.compensations == nil {
		return
	}
	r.compensations.Inc()
}
