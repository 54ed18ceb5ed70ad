package fiserv

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

func fixedFiserv() *Fiserv {
	f := New("https://fiserv.test/")
	f.now = func() time.Time { return time.UnixMilli(1700000000123) }
	f.requestID = func() string { return "crid-1" }
	return f
}

func auth() models.ConnectorAuthType {
	return models.SignatureKey("api_key_1", "merchant_1", "secret_1")
}

func authorizeEnvelope() *models.PaymentsAuthorizeRouterData {
	return &models.PaymentsAuthorizeRouterData{
		PaymentID:                   "pay_1",
		ConnectorRequestReferenceID: "req_1",
		ConnectorAuthType:           auth(),
		Request: models.PaymentsAuthorizeData{
			Amount:   1999,
			Currency: "USD",
			PaymentMethodData: models.PaymentMethodData{
				Kind: models.PaymentMethodCard,
				Card: &models.Card{
					Number:   models.NewSecret("4005550000000019"),
					ExpMonth: models.NewSecret("02"),
					ExpYear:  models.NewSecret("2035"),
					CVC:      models.NewSecret("123"),
				},
			},
			CaptureMethod: models.CaptureManual,
		},
	}
}

func resolve[F models.Flow, Req any, Resp any](t *testing.T) connector.BoxedIntegration[F, Req, Resp] {
	t.Helper()
	reg, err := connector.NewRegistry(fixedFiserv())
	require.NoError(t, err)
	b, err := connector.Resolve[F, Req, Resp](reg, Name)
	require.NoError(t, err)
	return b
}

func TestAuthorizeIsSigned(t *testing.T) {
	b := resolve[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](t)
	req, err := b.BuildRequest(authorizeEnvelope())
	require.NoError(t, err)
	assert.Equal(t, "https://fiserv.test/ch/payments/v1/charges", req.URL)

	ts, _ := req.Header(headerTimestamp)
	assert.Equal(t, "1700000000123", ts.Expose())
	id, _ := req.Header(headerClientRequestID)
	assert.Equal(t, "crid-1", id.Expose())
	sig, ok := req.Header(connector.HeaderAuthorization)
	require.True(t, ok)
	assert.True(t, sig.IsMasked())

	want := signature(models.NewSecret("api_key_1"), models.NewSecret("secret_1"), "crid-1", "1700000000123", req.Body.Bytes())
	assert.Equal(t, want, sig.Expose())

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body.Bytes(), &body))
	assert.Equal(t, 19.99, body["amount"].(map[string]any)["total"])
	assert.Equal(t, false, body["transactionDetails"].(map[string]any)["captureFlag"])
	assert.Equal(t, "merchant_1", body["merchantDetails"].(map[string]any)["merchantId"])
}

func TestSignatureCoversBody(t *testing.T) {
	key, secret := models.NewSecret("k"), models.NewSecret("s")
	a := signature(key, secret, "id", "1", []byte(`{"a":1}`))
	b := signature(key, secret, "id", "1", []byte(`{"a":2}`))
	assert.NotEqual(t, a, b)
}

func TestAuthorizeRejectsHeaderKey(t *testing.T) {
	b := resolve[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](t)
	rd := authorizeEnvelope()
	rd.ConnectorAuthType = models.HeaderKey("k")
	_, err := b.BuildRequest(rd)
	assert.ErrorIs(t, err, models.ErrFailedToObtainAuthType)
}

func TestAuthorizeResponse(t *testing.T) {
	b := resolve[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](t)
	body := `{"gatewayResponse":{"transactionType":"CHARGE","transactionState":"AUTHORIZED","transactionProcessingDetails":{"orderId":"ord_1","transactionId":"txn_1"}}}`
	out, err := b.HandleResponse(authorizeEnvelope(), connector.Response{StatusCode: 201, Body: []byte(body)}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptAuthorized, out.Status)
	id, err := out.Response.ResourceID.TransactionID()
	require.NoError(t, err)
	assert.Equal(t, "txn_1", id)
	assert.Equal(t, "ord_1", out.Response.ConnectorResponseReferenceID)

	_, err = b.HandleResponse(authorizeEnvelope(), connector.Response{StatusCode: 201, Body: []byte(`{"gatewayResponse":{}}`)}, nil)
	assert.ErrorIs(t, err, models.ErrMissingConnectorTransactionID)
}

func TestSyncInquiry(t *testing.T) {
	b := resolve[models.PSync, models.PaymentsSyncData, models.PaymentsResponseData](t)
	rd := &models.PaymentsSyncRouterData{
		ConnectorAuthType: auth(),
		Status:            models.AttemptAuthorized,
		Request:           models.PaymentsSyncData{ConnectorTransactionID: models.ConnectorTransactionID("txn_1")},
	}
	req, err := b.BuildRequest(rd)
	require.NoError(t, err)
	assert.Equal(t, connector.MethodPost, req.Method)
	assert.JSONEq(t, `{"merchantDetails":{"merchantId":"merchant_1"},"referenceTransactionDetails":{"referenceTransactionId":"txn_1"}}`, string(req.Body.Bytes()))

	body := `[{"gatewayResponse":{"transactionState":"CAPTURED","transactionProcessingDetails":{"transactionId":"txn_1"}}}]`
	out, err := b.HandleResponse(rd, connector.Response{StatusCode: 200, Body: []byte(body)}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptCharged, out.Status)

	_, err = b.HandleResponse(rd, connector.Response{StatusCode: 200, Body: []byte(`[]`)}, nil)
	assert.ErrorIs(t, err, models.ErrUnexpectedResponseError)

	rd.Request.ConnectorTransactionID = models.NoResponseID()
	_, err = b.BuildRequest(rd)
	assert.ErrorIs(t, err, models.ErrMissingConnectorTransactionID)
}

func TestRefundFlows(t *testing.T) {
	b := resolve[models.Execute, models.RefundsData, models.RefundsResponseData](t)
	rd := &models.RefundsExecuteRouterData{
		ConnectorAuthType: auth(),
		Request:           models.RefundsData{RefundID: "ref_1", ConnectorTransactionID: "txn_1", RefundAmount: 500, Currency: "KWD"},
	}
	req, err := b.BuildRequest(rd)
	require.NoError(t, err)
	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body.Bytes(), &body))
	assert.Equal(t, 0.5, body["amount"].(map[string]any)["total"])

	out, err := b.HandleResponse(rd, connector.Response{StatusCode: 200, Body: []byte(`{"gatewayResponse":{"transactionState":"CAPTURED","transactionProcessingDetails":{"transactionId":"rtx_1"}}}`)}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RefundSuccess, out.Response.RefundStatus)
	assert.Equal(t, "rtx_1", out.Response.ConnectorRefundID)

	sync := resolve[models.RSync, models.RefundsData, models.RefundsResponseData](t)
	_, err = sync.BuildRequest(&models.RefundsSyncRouterData{ConnectorAuthType: auth()})
	assert.ErrorIs(t, err, models.ErrMissingConnectorRefundID)
}

func TestErrorResponse(t *testing.T) {
	b := resolve[models.Void, models.PaymentsCancelData, models.PaymentsResponseData](t)
	er := b.ErrorResponse(connector.Response{StatusCode: 400, Body: []byte(`{"error":[{"type":"GATEWAY","code":"104","field":"amount.total","message":"Invalid amount"}]}`)})
	assert.Equal(t, models.ErrorResponse{StatusCode: 400, Code: "104", Message: "Invalid amount", Reason: "amount.total"}, er)

	er = b.ErrorResponse(connector.Response{StatusCode: 500, Body: []byte(`{"error":[]}`)})
	assert.Equal(t, models.FallbackErrorResponse(500), er)
}

func TestNoWebhooks(t *testing.T) {
	var c connector.Connector = New("")
	_, ok := c.(webhook.IncomingWebhook)
	assert.False(t, ok)
	assert.Empty(t, c.Metadata().WebhookFlows)
}
