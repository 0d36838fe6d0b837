// ABOUTME: Prometheus instrumentation for tool dispatch
// ABOUTME: Counts calls by outcome and observes handler latency per tool

package packs

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for fpl_tool_calls_total.
const (
	outcomeOK      = "ok"
	outcomeError   = "error"
	outcomeUnknown = "unknown_tool"
	outcomePanic   = "panic"

	// unknownToolLabel replaces the tool label for unregistered names so
	// model-supplied strings cannot grow the series count.
	unknownToolLabel = "unknown"
)

// Metrics holds the dispatcher's collectors. A nil *Metrics records nothing.
type Metrics struct {
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the dispatcher collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fpl_tool_calls_total",
			Help: "Tool invocations by tool and outcome.",
		}, []string{"tool", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fpl_tool_call_duration_seconds",
			Help:    "Tool handler latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"tool"}),
	}
	if reg != nil {
		reg.MustRegister(m.calls, m.duration)
	}
	return m
}

func (m *Metrics) observe(tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(tool, outcome).Inc()
	if outcome != outcomeUnknown {
		m.duration.WithLabelValues(tool).Observe(elapsed.Seconds())
	}
}
