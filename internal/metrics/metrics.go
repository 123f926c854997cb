package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReserveDuration tracks reserve latency by outcome.
	ReserveDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flashsale_reserve_duration_seconds",
			Help:    "Duration of stock reserve attempts in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
		},
		[]string{"outcome"},
	)

	// ReserveRejections counts capacity and validation rejections by reason.
	ReserveRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flashsale_reserve_rejections_total",
			Help: "Rejected reserve attempts by reason",
		},
		[]string{"reason"},
	)

	// ReservationsReleased counts reservations reclaimed by the cleanup sweep.
	ReservationsReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "flashsale_reservations_released_total",
			Help: "Reservations released back to available stock",
		},
	)
)

// ObserveReserve records one reserve attempt.
func ObserveReserve(outcome string, seconds float64) {
	ReserveDuration.WithLabelValues(outcome).Observe(seconds)
}

// CountRejection records one rejected reserve attempt.
func CountRejection(reason string) {
	ReserveRejections.WithLabelValues(reason).Inc()
}
