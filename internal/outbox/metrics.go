package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "enrollment_service",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Roster change events published to Kafka.",
	})

	failedBatchCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "enrollment_service",
		Subsystem: "outbox",
		Name:      "batches_failed_total",
		Help:      "Delivery attempts that returned an error from Kafka.",
	})

	droppedCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "enrollment_service",
		Subsystem: "outbox",
		Name:      "events_dropped_total",
		Help:      "Events discarded without delivery, labeled by reason.",
	}, []string{"reason"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "enrollment_service",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent delivering one outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	})

	queueDepthGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "enrollment_service",
		Subsystem: "outbox",
		Name:      "queue_depth",
		Help:      "Events waiting in memory for delivery.",
	})
)

func init() {
	prometheus.MustRegister(deliveredCounter, failedBatchCounter, droppedCounter, batchDuration, queueDepthGauge)
}
