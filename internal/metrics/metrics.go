package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Flow outcomes recorded on connector_flow_requests_total.
const (
	OutcomeMapped       = "mapped"
	OutcomeErrorMapped  = "error_mapped"
	OutcomeNotSupported = "not_supported"
	OutcomeBuildFailed  = "build_failed"
	OutcomeUnknown      = "unknown"
	OutcomeNotSent      = "not_sent"
	OutcomeHandleFailed = "handle_failed"
)

// Recorder owns the switch's prometheus collectors.
type Recorder struct {
	flowRequests    *prometheus.CounterVec
	flowDuration    *prometheus.HistogramVec
	webhookEvents   *prometheus.CounterVec
	webhookFailures *prometheus.CounterVec
}

// NewRecorder creates the collectors and registers them with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		flowRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "connector_flow_requests_total",
			Help: "Connector flow invocations by outcome.",
		}, []string{"connector", "flow", "outcome"}),
		flowDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "connector_flow_duration_seconds",
			Help:    "Round-trip latency of connector calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"connector", "flow"}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Classified incoming webhooks.",
		}, []string{"connector", "event", "verified"}),
		webhookFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "webhook_failures_total",
			Help: "Webhooks rejected by the pipeline, by error kind.",
		}, []string{"connector", "kind"}),
	}
	if reg != nil {
		reg.MustRegister(r.flowRequests, r.flowDuration, r.webhookEvents, r.webhookFailures)
	}
	return r
}

// FlowCompleted counts one flow invocation and observes its latency.
func (r *Recorder) FlowCompleted(connector, flow, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.flowRequests.WithLabelValues(connector, flow, outcome).Inc()
	if elapsed > 0 {
		r.flowDuration.WithLabelValues(connector, flow).Observe(elapsed.Seconds())
	}
}

func (r *Recorder) WebhookClassified(connector, event string, verified bool) {
	if r == nil {
		return
	}
	v := "false"
	if verified {
		v = "true"
	}
	r.webhookEvents.WithLabelValues(connector, event, v).Inc()
}

// WebhookRejected counts a callback the pipeline refused, by error kind.
func (r *Recorder) WebhookRejected(connector, kind string) {
	if r == nil {
		return
	}
	r.webhookFailures.WithLabelValues(connector, kind).Inc()
}
