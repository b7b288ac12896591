package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the notice engine.
type Metrics struct {
	NoticesAdvanced      *prometheus.CounterVec
	SuspensionsApplied   *prometheus.CounterVec
	Revivals             prometheus.Counter
	AutoSuspensions      *prometheus.CounterVec
	ParameterFallbacks   *prometheus.CounterVec
	ReplicaSyncFailures  prometheus.Counter
	ReplicaSyncSuccesses prometheus.Counter
	BatchItemErrors      *prometheus.CounterVec
}

// New creates and registers all metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the metrics on reg. Tests pass a fresh registry so suites
// can construct metrics independently.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		NoticesAdvanced: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "noticeflow_notices_advanced_total",
			Help: "Notices advanced to a processing stage, by stage.",
		}, []string{"stage"}),
		SuspensionsApplied: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "noticeflow_suspensions_applied_total",
			Help: "Suspensions applied, by type and reason.",
		}, []string{"type", "reason"}),
		Revivals: factory.NewCounter(prometheus.CounterOpts{
			Name: "noticeflow_revivals_total",
			Help: "Suspensions lifted.",
		}),
		AutoSuspensions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "noticeflow_auto_suspensions_total",
			Help: "Eligibility-gate auto suspensions, by cause.",
		}, []string{"cause"}),
		ParameterFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "noticeflow_parameter_fallbacks_total",
			Help: "Configuration lookups that degraded to a fallback constant.",
		}, []string{"parameter"}),
		ReplicaSyncFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "noticeflow_replica_sync_failures_total",
			Help: "Replica sync attempts that exhausted retries and left a dirty flag.",
		}),
		ReplicaSyncSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "noticeflow_replica_sync_successes_total",
			Help: "Replica sync attempts that completed.",
		}),
		BatchItemErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "noticeflow_batch_item_errors_total",
			Help: "Per-notice batch failures, by error code.",
		}, []string{"code"}),
	}
}
