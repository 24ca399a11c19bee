package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "booking"

type Collector struct {
	RequestDuration *prometheus.HistogramVec

	CacheOps     *prometheus.CounterVec
	Decisions    *prometheus.CounterVec
	LedgerWrites *prometheus.CounterVec
	LeaseResults *prometheus.CounterVec
	HandOffs     *prometheus.CounterVec

	breakerOpen *prometheus.GaugeVec
}

// NewCollector registers all collectors on reg. Tests pass a fresh
// prometheus.NewRegistry() so repeated construction does not panic.
func NewCollector(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)

	return &Collector{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency distribution.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"method", "route", "status"}),

		CacheOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "operations_total",
			Help:      "Cache operations by key family, operation and result (hit, miss, error, ok).",
		}, []string{"family", "op", "result"}),

		Decisions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "availability",
			Name:      "decisions_total",
			Help:      "Availability decisions by outcome.",
		}, []string{"outcome"}),

		LedgerWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "writes_total",
			Help:      "Ledger writes by mode and outcome.",
		}, []string{"mode", "outcome"}),

		LeaseResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lease",
			Name:      "acquisitions_total",
			Help:      "Calendar lease acquisitions by result (acquired, busy, unavailable).",
		}, []string{"result"}),

		HandOffs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "messages_total",
			Help:      "Notification hand-off messages by message type and result.",
		}, []string{"type", "result"}),

		breakerOpen: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "breaker_open",
			Help:      "1 while the cache circuit breaker is open.",
		}, []string{"name"}),
	}
}

// BreakerState records whether the named breaker is currently open.
func (c *Collector) BreakerState(name string, open bool) {
	v := 0.0
	if open {
		v = 1
	}
	c.breakerOpen.WithLabelValues(name).Set(v)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
