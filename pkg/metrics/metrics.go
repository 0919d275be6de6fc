package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all delivery-pipeline metrics
type Metrics struct {
	NotificationsCreated    *prometheus.CounterVec
	NotificationsSuppressed *prometheus.CounterVec
	TasksEnqueued           *prometheus.CounterVec
	TasksSent               *prometheus.CounterVec
	TasksFailed             *prometheus.CounterVec
	TasksRetried            *prometheus.CounterVec
	QueueDepth              *prometheus.GaugeVec
	SendLatency             *prometheus.HistogramVec
	ClaimBatchSize          *prometheus.HistogramVec
	RealtimePublished       prometheus.Counter
	RealtimePublishErrors   prometheus.Counter
	DatabaseOperations      *prometheus.CounterVec
}

// New creates and registers all pipeline metrics on the default registry.
func New(namespace string) *Metrics {
	return NewWith(namespace, prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on a caller-supplied registry; tests use
// this to avoid duplicate registration on the global one.
func NewWith(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		NotificationsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_created_total",
			Help:      "Total number of notifications written to the store",
		}, []string{"type"}),
		NotificationsSuppressed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_suppressed_total",
			Help:      "Total number of notifications suppressed before creation",
		}, []string{"reason"}),
		TasksEnqueued: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_tasks_enqueued_total",
			Help:      "Total number of delivery tasks enqueued",
		}, []string{"channel"}),
		TasksSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_tasks_sent_total",
			Help:      "Total number of delivery tasks sent successfully",
		}, []string{"channel"}),
		TasksFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_tasks_failed_total",
			Help:      "Total number of delivery tasks that failed terminally",
		}, []string{"channel", "reason"}),
		TasksRetried: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "delivery_tasks_retried_total",
			Help:      "Total number of delivery task retry reschedules",
		}, []string{"channel"}),
		QueueDepth: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "delivery_queue_depth",
			Help:      "Current number of pending delivery tasks",
		}, []string{"channel"}),
		SendLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_send_duration_seconds",
			Help:      "Duration of transport send calls",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"channel"}),
		ClaimBatchSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "delivery_claim_batch_size",
			Help:      "Number of tasks claimed per worker tick",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 50},
		}, []string{"channel"}),
		RealtimePublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_published_total",
			Help:      "Total number of realtime fan-out publishes",
		}),
		RealtimePublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "realtime_publish_errors_total",
			Help:      "Total number of failed realtime publishes",
		}),
		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
