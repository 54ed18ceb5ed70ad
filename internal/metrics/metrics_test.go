package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder(prometheus.NewRegistry())

	r.FlowCompleted("stripe", "authorize", OutcomeMapped, 20*time.Millisecond)
	r.FlowCompleted("stripe", "authorize", OutcomeMapped, 0)
	r.WebhookClassified("stripe", "refund_success", true)
	r.WebhookRejected("stripe", "webhook_signature_not_found")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.flowRequests.WithLabelValues("stripe", "authorize", OutcomeMapped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.webhookEvents.WithLabelValues("stripe", "refund_success", "true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.webhookFailures.WithLabelValues("stripe", "webhook_signature_not_found")))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.FlowCompleted("x", "y", OutcomeMapped, time.Second)
	r.WebhookClassified("x", "y", false)
	r.WebhookRejected("x", "y")
}
