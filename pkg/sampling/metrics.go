package sampling

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	lvMemo   = "memo"
	lvHit    = "hit"
	lvMiss   = "miss"
	lvFailed = "failed"
)

// Metrics are the counters of a sampling session.
type Metrics struct {
	passes          prometheus.Counter
	threadsCaptured prometheus.Counter
	captureFailures prometheus.Counter
	enumFailures    prometheus.Counter
	symbolRequests  *prometheus.CounterVec
	modulesAdded    prometheus.Counter
}

// NewMetrics creates the sampling counters and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		passes: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "stackflow_sampling_passes_total",
			Help: "Total number of completed sampling passes.",
		}),
		threadsCaptured: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "stackflow_threads_captured_total",
			Help: "Total number of thread stacks captured.",
		}),
		captureFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "stackflow_thread_capture_failures_total",
			Help: "Total number of thread stack captures that failed and were omitted.",
		}),
		enumFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "stackflow_thread_enumeration_failures_total",
			Help: "Total number of passes whose thread enumeration failed.",
		}),
		symbolRequests: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "stackflow_symbol_requests_total",
			Help: "Total number of frame symbol resolutions by result.",
		}, []string{"result"}),
		modulesAdded: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "stackflow_modules_added_total",
			Help: "Total number of modules registered in the module repository.",
		}),
	}
	for _, lv := range []string{lvMemo, lvHit, lvMiss, lvFailed} {
		m.symbolRequests.WithLabelValues(lv)
	}

	return m
}
