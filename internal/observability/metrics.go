// Package observability holds the prometheus collectors shared by the service.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	operationCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enrollment_service",
		Subsystem: "roster",
		Name:      "operations_total",
		Help:      "Sign-up and unregister calls grouped by operation and outcome.",
	}, []string{"operation", "outcome"})

	rosterSizeGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "enrollment_service",
		Subsystem: "roster",
		Name:      "participants",
		Help:      "Current number of participants enrolled per activity.",
	}, []string{"activity"})

	rosterCapacityGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "enrollment_service",
		Subsystem: "roster",
		Name:      "capacity",
		Help:      "Maximum number of participants per activity.",
	}, []string{"activity"})

	publishFailureCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "enrollment_service",
		Subsystem: "notifications",
		Name:      "enqueue_failures_total",
		Help:      "Roster changes whose notification could not be queued for delivery.",
	})
)

func init() {
	prometheus.MustRegister(operationCounter, rosterSizeGauge, rosterCapacityGauge, publishFailureCounter)
}

// RecordOperation counts a finished enrollment operation.
func RecordOperation(operation, outcome string) {
	operationCounter.WithLabelValues(operation, outcome).Inc()
}

// RecordRoster updates the occupancy gauges for an activity.
func RecordRoster(activity string, size, capacity int) {
	if activity == "" {
		return
	}
	rosterSizeGauge.WithLabelValues(activity).Set(float64(size))
	rosterCapacityGauge.WithLabelValues(activity).Set(float64(capacity))
}

// RecordPublishFailure counts a notification that was dropped before delivery.
func RecordPublishFailure() {
	publishFailureCounter.Inc()
}
