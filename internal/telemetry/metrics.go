package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTPRequestDuration tracks HTTP request latency.
var HTTPRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "daybook",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "path", "status"},
)

// TenantResolutionsTotal counts tenant resolutions by source (token, session,
// user, none).
var TenantResolutionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "daybook",
		Subsystem: "tenant",
		Name:      "resolutions_total",
		Help:      "Tenant resolutions by source.",
	},
	[]string{"source"},
)

// TenantRejectionsTotal counts rejected requests by reason (missing,
// not_found, suspended, pending_deletion, internal).
var TenantRejectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "daybook",
		Subsystem: "tenant",
		Name:      "rejections_total",
		Help:      "Requests rejected before dispatch, by reason.",
	},
	[]string{"reason"},
)

// TenantBypassTotal counts platform-admin bypass regions entered.
var TenantBypassTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "daybook",
		Subsystem: "tenant",
		Name:      "bypass_total",
		Help:      "Platform-admin bypass regions entered.",
	},
)

// TenantConnsPoisonedTotal counts connections destroyed after an invariant
// violation instead of being returned to the pool.
var TenantConnsPoisonedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Namespace: "daybook",
		Subsystem: "tenant",
		Name:      "conns_poisoned_total",
		Help:      "Database connections destroyed due to unsafe security state.",
	},
)

// NewMetricsRegistry creates a Prometheus registry with default and custom collectors.
func NewMetricsRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestDuration,
		TenantResolutionsTotal,
		TenantRejectionsTotal,
		TenantBypassTotal,
		TenantConnsPoisonedTotal,
	)
	return reg
}
