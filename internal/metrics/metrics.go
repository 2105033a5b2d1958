// Package metrics declares the process-wide prometheus collectors exposed
// at /metrics. Components record into these vars directly; there is no
// indirection layer, matching how the rest of the retrieval pack's services
// wire a single package-level registry.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// AdmissionTotal counts every Submit outcome, labelled by task kind
	// (screenshot/recording/mix) and the resolved AdmissionResult.
	AdmissionTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediasrv",
		Name:      "admission_total",
		Help:      "Total task admission decisions by kind and result.",
	}, []string{"kind", "result"})

	// ActiveTasks and QueuedTasks mirror taskmanager.Manager's current
	// active/queue sizes, labelled by kind.
	ActiveTasks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mediasrv",
		Name:      "active_tasks",
		Help:      "Number of tasks currently executing, by kind.",
	}, []string{"kind"})

	QueuedTasks = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "mediasrv",
		Name:      "queued_tasks",
		Help:      "Number of tasks waiting for a free worker slot, by kind.",
	}, []string{"kind"})

	// SessionDuration records how long a task's Execute ran, labelled by
	// kind and whether it completed, failed or was cancelled.
	SessionDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mediasrv",
		Name:      "session_duration_seconds",
		Help:      "Task execution duration in seconds, by kind and outcome.",
		Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 300, 900, 3600},
	}, []string{"kind", "outcome"})

	// InterruptAbortsTotal counts decode/encode loops killed by the stall
	// watchdog's InterruptFunc, labelled by kind.
	InterruptAbortsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mediasrv",
		Name:      "interrupt_aborts_total",
		Help:      "Total sessions aborted by the stall watchdog, by kind.",
	}, []string{"kind"})
)

// Register adds every collector declared in this package to reg. Called
// once at startup by cmd/mediasrv with the registry /metrics serves.
func Register(reg prometheus.Registerer) {
	reg.MustRegister(AdmissionTotal, ActiveTasks, QueuedTasks, SessionDuration, InterruptAbortsTotal)
}
