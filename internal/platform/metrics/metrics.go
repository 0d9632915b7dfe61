package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Queue and sweep instrumentation. Registered on the default registry and
// served by promhttp from the worker and API processes.
var (
	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_engine",
		Subsystem: "queue",
		Name:      "tasks_processed_total",
		Help:      "Completed queue tasks by type.",
	}, []string{"task_type"})

	TasksFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_engine",
		Subsystem: "queue",
		Name:      "tasks_failed_total",
		Help:      "Failed task attempts by type and disposition (retried or terminal).",
	}, []string{"task_type", "disposition"})

	TasksReaped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credit_engine",
		Subsystem: "queue",
		Name:      "tasks_reaped_total",
		Help:      "Tasks recovered from expired leases.",
	})

	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "credit_engine",
		Subsystem: "queue",
		Name:      "task_duration_seconds",
		Help:      "Wall time of one task attempt by type.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"task_type"})

	SweepMatched = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credit_engine",
		Subsystem: "sweep",
		Name:      "orders_matched_total",
		Help:      "Charge orders matched by the deposit sweep.",
	})

	SweepExpired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "credit_engine",
		Subsystem: "sweep",
		Name:      "orders_expired_total",
		Help:      "Charge orders expired by the deposit sweep.",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "credit_engine",
		Subsystem: "sweep",
		Name:      "duration_seconds",
		Help:      "Wall time of one sweep pass.",
		Buckets:   prometheus.DefBuckets,
	})

	WebhooksReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "credit_engine",
		Subsystem: "webhook",
		Name:      "events_received_total",
		Help:      "Inbound webhook events by type.",
	}, []string{"event_type"})
)
