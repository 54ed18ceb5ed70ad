package connectors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/connector-switch/internal/config"
	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

func TestNewRegistry(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"airwallex", "fiserv", "paystack", "stripe", "worldpay"}, reg.Names())

	meta := map[string]connector.Metadata{}
	for _, m := range reg.Metadata() {
		meta[m.Name] = m
	}
	assert.Equal(t, connector.GenerationV2, meta["stripe"].Generation)
	assert.Equal(t, connector.GenerationV2, meta["paystack"].Generation)
	assert.Equal(t, connector.GenerationV1, meta["worldpay"].Generation)
	assert.NotContains(t, meta["worldpay"].Flows, models.FlowVoid)
	assert.NotContains(t, meta["paystack"].Flows, models.FlowCapture)
	assert.Contains(t, meta["airwallex"].Flows, models.FlowVoid)
}

func TestWebhookCapability(t *testing.T) {
	reg, err := NewRegistry(nil)
	require.NoError(t, err)

	for _, name := range []string{"airwallex", "paystack", "stripe", "worldpay"} {
		c, ok := reg.Get(name)
		require.True(t, ok)
		_, hooks := c.(webhook.IncomingWebhook)
		assert.True(t, hooks, name)
	}
	c, _ := reg.Get("fiserv")
	_, hooks := c.(webhook.IncomingWebhook)
	assert.False(t, hooks)
}

func TestBaseURLOverride(t *testing.T) {
	reg, err := NewRegistry(config.Connectors{"stripe": {BaseURL: "http://localhost:12111/"}})
	require.NoError(t, err)

	integration, err := connector.Resolve[models.PSync, models.PaymentsSyncData, models.PaymentsResponseData](reg, "stripe")
	require.NoError(t, err)

	rd := &models.RouterData[models.PSync, models.PaymentsSyncData, models.PaymentsResponseData]{
		Connector:         "stripe",
		PaymentID:         "pay_1",
		ConnectorAuthType: models.HeaderKey("sk_test"),
		Request:           models.PaymentsSyncData{ConnectorTransactionID: models.ConnectorTransactionID("pi_1")},
	}
	req, err := integration.BuildRequest(rd)
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "http://localhost:12111/v1/payment_intents/pi_1", req.URL)
}
