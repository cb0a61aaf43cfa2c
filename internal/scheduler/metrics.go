package scheduler

import "github.com/prometheus/client_golang/prometheus"

var (
	ticksCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "productivy",
		Subsystem: "scheduler",
		Name:      "ticks_total",
		Help:      "Number of heartbeat ticks executed.",
	})

	usersProcessedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "productivy",
		Subsystem: "scheduler",
		Name:      "users_processed_total",
		Help:      "Number of online users accrued a minute across all ticks.",
	})

	usersSkippedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "productivy",
		Subsystem: "scheduler",
		Name:      "users_skipped_total",
		Help:      "Number of users skipped because their last heartbeat was stale.",
	})

	userErrorCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "productivy",
		Subsystem: "scheduler",
		Name:      "user_errors_total",
		Help:      "Number of per-user accrual failures isolated from the batch.",
	})

	samplesPrunedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "productivy",
		Subsystem: "scheduler",
		Name:      "samples_pruned_total",
		Help:      "Number of expired activity samples removed by retention pruning.",
	})
)

func init() {
	prometheus.MustRegister(ticksCounter, usersProcessedCounter, usersSkippedCounter, userErrorCounter, samplesPrunedCounter)
}
