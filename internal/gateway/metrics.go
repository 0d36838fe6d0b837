// ABOUTME: Prometheus collectors for the chat endpoint
// ABOUTME: Counts requests by final status and tracks open streams

package gateway

import "github.com/prometheus/client_golang/prometheus"

// Status labels for fpl_chat_requests_total.
const (
	statusOK         = "ok"
	statusInvalid    = "invalid"
	statusModelError = "model_error"
	statusAborted    = "aborted"
)

type metrics struct {
	requests      *prometheus.CounterVec
	activeStreams prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fpl_chat_requests_total",
			Help: "Chat requests by final status.",
		}, []string{"status"}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "fpl_chat_active_streams",
			Help: "Chat responses currently streaming.",
		}),
	}
	reg.MustRegister(m.requests, m.activeStreams)
	return m
}
