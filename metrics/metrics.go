package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Periodic task, shared resource and output counters, partitioned by task
// tag or resource label.

var (
	// Tasks
	TaskActivations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravimeter",
		Subsystem: "task",
		Name:      "activations_total",
		Help:      "Total periodic task activations",
	}, []string{"task"})

	TaskCycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gravimeter",
		Subsystem: "task",
		Name:      "cycle_duration_seconds",
		Help:      "Work time of one task activation",
		Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
	}, []string{"task"})

	TaskOverruns = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravimeter",
		Subsystem: "task",
		Name:      "overruns_total",
		Help:      "Activations that started after their scheduled release time had already passed a full period",
	}, []string{"task"})

	TaskAborts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravimeter",
		Subsystem: "task",
		Name:      "aborts_total",
		Help:      "Tasks that left their loop after a fatal resource failure",
	}, []string{"task"})

	TaskActive = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravimeter",
		Subsystem: "task",
		Name:      "active",
		Help:      "1 while the task loop is running",
	}, []string{"task"})

	// Queues
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravimeter",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Samples currently held by a bounded queue",
	}, []string{"queue"})

	QueueRejects = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravimeter",
		Subsystem: "queue",
		Name:      "rejects_total",
		Help:      "Samples discarded on push, by reason",
	}, []string{"queue", "reason"})

	QueueClears = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravimeter",
		Subsystem: "queue",
		Name:      "cleared_samples_total",
		Help:      "Stale samples discarded by Clear",
	}, []string{"queue"})

	// Locks
	LockTimeouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravimeter",
		Subsystem: "lock",
		Name:      "timeouts_total",
		Help:      "Guard acquisitions that exceeded the wait budget",
	}, []string{"resource"})

	// Emergency
	EmergencyEdges = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravimeter",
		Subsystem: "emergency",
		Name:      "edges_total",
		Help:      "Emergency edges seen per source",
	}, []string{"source"})

	EmergencyISRDrops = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gravimeter",
		Subsystem: "emergency",
		Name:      "isr_drops_total",
		Help:      "Edge notifications dropped because the hand-off queue was full",
	})

	EmergencyActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gravimeter",
		Subsystem: "emergency",
		Name:      "active",
		Help:      "1 while the emergency latch is set",
	})

	// Outputs
	ConsumptionRate = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "gravimeter",
		Subsystem: "consumption",
		Name:      "last_rate",
		Help:      "Last consumption rate computed, by destination queue",
	}, []string{"queue"})

	AnalogVolts = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "gravimeter",
		Subsystem: "remote",
		Name:      "analog_volts",
		Help:      "Last voltage driven on the remote analog output",
	})

	TankTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravimeter",
		Subsystem: "tank",
		Name:      "transitions_total",
		Help:      "Tank controller transitions taken",
	}, []string{"from", "to"})

	CommandsHandled = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gravimeter",
		Subsystem: "console",
		Name:      "commands_total",
		Help:      "Operator commands seen, by kind and outcome",
	}, []string{"kind", "outcome"})

	CommandsOverwritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "gravimeter",
		Subsystem: "console",
		Name:      "commands_overwritten_total",
		Help:      "Operator commands replaced before the command task read them",
	})
)
