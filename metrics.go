package hostctx

import "github.com/prometheus/client_golang/prometheus"

// Metric names follow the <namespace>_<subsystem>_<unit> convention used
// throughout the corpus's Prometheus instrumentation.
var (
	liveBytesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostctx_allocator_live_bytes",
			Help: "Bytes currently tracked as allocated by HostContext allocators.",
		},
	)

	activeContexts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostctx_active_contexts",
			Help: "Number of live HostContext instances in this process.",
		},
	)

	liveAsyncValues = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hostctx_live_async_values",
			Help: "Number of AsyncValues with at least one outstanding reference.",
		},
	)

	cancellationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hostctx_cancellations_total",
			Help: "Total number of HostContext.Cancel calls, split by whether they installed the cancel value.",
		},
		[]string{"outcome"},
	)

	sharedContextsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hostctx_shared_contexts_created_total",
			Help: "Total number of shared-context singletons constructed across all HostContexts.",
		},
	)

	workQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hostctx_work_queue_depth",
			Help: "Outstanding tasks in a HostContext's work queue, split by kind.",
		},
		[]string{"host_id", "kind"},
	)
)

func init() {
	prometheus.MustRegister(
		liveBytesGauge,
		activeContexts,
		liveAsyncValues,
		cancellationsTotal,
		sharedContextsCreated,
		workQueueDepth,
	)
}

func notifyAsyncValueFreed(ownerIndex int32) {
	liveAsyncValues.Dec()
}
