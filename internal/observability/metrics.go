package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsCommitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "workouts",
		Name:      "committed_total",
		Help:      "Workouts added through the form, by kind.",
	}, []string{"kind"})
	validationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "form",
		Name:      "validation_failures_total",
		Help:      "Form submissions rejected by input validation.",
	})
	persistFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "storage",
		Name:      "failures_total",
		Help:      "Storage operations that returned an error, by operation.",
	}, []string{"op"})
	restoreSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "storage",
		Name:      "restore_skipped_total",
		Help:      "Stored entries dropped during restore.",
	})
	collectionSize = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "workouts",
		Name:      "in_collection",
		Help:      "Workouts currently held in memory.",
	})
)

func init() {
	prometheus.MustRegister(workoutsCommitted, validationFailures, persistFailures, restoreSkipped, collectionSize)
}

// RecordCommit counts a workout added through the form.
func RecordCommit(kind string) {
	workoutsCommitted.WithLabelValues(kind).Inc()
}

// RecordValidationFailure counts a rejected submission.
func RecordValidationFailure() {
	validationFailures.Inc()
}

// RecordStorageFailure counts a failed load, save or clear.
func RecordStorageFailure(op string) {
	persistFailures.WithLabelValues(op).Inc()
}

// RecordRestoreSkipped counts stored entries that could not be restored.
func RecordRestoreSkipped(n int) {
	if n <= 0 {
		return
	}
	restoreSkipped.Add(float64(n))
}

// SetCollectionSize updates the in-memory workout gauge.
func SetCollectionSize(n int) {
	collectionSize.Set(float64(n))
}
