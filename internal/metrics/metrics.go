package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "recruitment"

var (
	once sync.Once

	bookingAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_attempts_total",
			Help:      "Interview slot booking attempts by track and outcome.",
		},
		[]string{"track", "outcome"},
	)

	slotsReleased = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slots_released_total",
			Help:      "Slots cleared by admin conflict resolution.",
		},
		[]string{"track"},
	)

	conflictGroups = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conflict_groups",
			Help:      "Slots held by more than one applicant at the last audit.",
		},
		[]string{"track"},
	)

	tasksFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "post_commit_task_failures_total",
			Help:      "Failed notification and calendar tasks.",
		},
		[]string{"task"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_requests_total",
			Help:      "Requests rejected by the rate limiter.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingAttempts, slotsReleased, conflictGroups, tasksFailed, rateLimited)
	})
}

func IncBooking(track, outcome string) {
	bookingAttempts.WithLabelValues(track, outcome).Inc()
}

func IncSlotReleased(track string) {
	slotsReleased.WithLabelValues(track).Inc()
}

func SetConflictGroups(track string, n int) {
	conflictGroups.WithLabelValues(track).Set(float64(n))
}

func IncTaskFailed(task string) {
	tasksFailed.WithLabelValues(task).Inc()
}

func IncRateLimited() {
	rateLimited.Inc()
}

// ConflictGroups exposes the audit gauge for tests.
func ConflictGroups() *prometheus.GaugeVec {
	return conflictGroups
}

// SlotsReleased exposes the release counter for tests.
func SlotsReleased() *prometheus.CounterVec {
	return slotsReleased
}
