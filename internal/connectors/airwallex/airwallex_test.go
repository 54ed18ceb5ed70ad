package airwallex

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

func testCard() models.PaymentMethodData {
	return models.PaymentMethodData{
		Kind: models.PaymentMethodCard,
		Card: &models.Card{
			Number:   models.NewSecret("4035501000000008"),
			ExpMonth: models.NewSecret("3"),
			ExpYear:  models.NewSecret("30"),
			CVC:      models.NewSecret("737"),
		},
	}
}

func authorizeData(status models.AttemptStatus) *models.PaymentsAuthorizeRouterData {
	return &models.PaymentsAuthorizeRouterData{
		MerchantID:                  "m1",
		Connector:                   Name,
		PaymentID:                   "pay_1",
		ConnectorRequestReferenceID: "req_1",
		ConnectorAuthType:           models.BodyKey("api_key_1", "client_1"),
		Status:                      status,
		Request: models.PaymentsAuthorizeData{
			Amount:            1050,
			Currency:          "USD",
			PaymentMethodData: testCard(),
			CaptureMethod:     models.CaptureManual,
		},
	}
}

func resolveAuthorize(t *testing.T) connector.BoxedIntegration[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData] {
	t.Helper()
	reg, err := connector.NewRegistry(New("https://airwallex.test/"))
	require.NoError(t, err)
	b, err := connector.Resolve[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](reg, Name)
	require.NoError(t, err)
	return b
}

func TestAuthorizeRequest(t *testing.T) {
	req, err := resolveAuthorize(t).BuildRequest(authorizeData(""))
	require.NoError(t, err)
	require.NotNil(t, req)

	assert.Equal(t, connector.MethodPost, req.Method)
	assert.Equal(t, "https://airwallex.test/api/v1/pa/payment_intents/create", req.URL)
	key, ok := req.Header("x-api-key")
	require.True(t, ok)
	assert.True(t, key.IsMasked())
	assert.Equal(t, "api_key_1", key.Expose())
	client, _ := req.Header("x-client-id")
	assert.Equal(t, "client_1", client.Expose())

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body.Bytes(), &body))
	assert.Equal(t, "10.50", body["amount"])
	assert.Equal(t, "req_1", body["request_id"])
	assert.Equal(t, "pay_1", body["merchant_order_id"])
	pm := body["payment_method"].(map[string]any)["card"].(map[string]any)
	assert.Equal(t, "03", pm["expiry_month"])
	assert.Equal(t, "2030", pm["expiry_year"])
	opts := body["payment_method_options"].(map[string]any)["card"].(map[string]any)
	assert.Equal(t, false, opts["auto_capture"])
}

func TestAuthorizeRejectsWallet(t *testing.T) {
	rd := authorizeData("")
	rd.Request.PaymentMethodData = models.PaymentMethodData{Kind: models.PaymentMethodWallet, Wallet: &models.Wallet{Type: "apple_pay"}}
	_, err := resolveAuthorize(t).BuildRequest(rd)
	assert.ErrorIs(t, err, models.ErrNotImplemented)
	assert.ErrorContains(t, err, "wallet:apple_pay")
}

func TestAuthorizeRejectsWrongAuth(t *testing.T) {
	rd := authorizeData("")
	rd.ConnectorAuthType = models.HeaderKey("sk")
	_, err := resolveAuthorize(t).BuildRequest(rd)
	assert.ErrorIs(t, err, models.ErrFailedToObtainAuthType)
}

func TestAuthorizeStatusMapping(t *testing.T) {
	cases := []struct {
		status string
		want   models.AttemptStatus
	}{
		{"SUCCEEDED", models.AttemptCharged},
		{"REQUIRES_CAPTURE", models.AttemptAuthorized},
		{"FAILED", models.AttemptFailure},
		{"CANCELLED", models.AttemptVoided},
		{"SOMETHING_NEW", models.AttemptPending},
	}
	b := resolveAuthorize(t)
	for _, tc := range cases {
		res := connector.Response{StatusCode: 200, Body: []byte(`{"id":"int_1","status":"` + tc.status + `"}`)}
		out, err := b.HandleResponse(authorizeData(""), res, zap.NewNop())
		require.NoError(t, err, tc.status)
		assert.Equal(t, tc.want, out.Status, tc.status)
		id, err := out.Response.ResourceID.TransactionID()
		require.NoError(t, err)
		assert.Equal(t, "int_1", id)
	}
}

func TestDeviceDataCollectionLoop(t *testing.T) {
	b := resolveAuthorize(t)
	body := []byte(`{"id":"int_1","status":"REQUIRES_CUSTOMER_ACTION","next_action":{"type":"render_qrcode","stage":"WAITING_DEVICE_DATA_COLLECTION"}}`)

	out, err := b.HandleResponse(authorizeData(""), connector.Response{StatusCode: 200, Body: body}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptDeviceDataCollectionPending, out.Status)

	out, err = b.HandleResponse(authorizeData(out.Status), connector.Response{StatusCode: 200, Body: body}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptAuthenticationFailed, out.Status)
}

func TestRedirectNextAction(t *testing.T) {
	body := []byte(`{"id":"int_1","status":"REQUIRES_CUSTOMER_ACTION","next_action":{"type":"redirect","url":"https://3ds.test/acs","method":"POST","data":{"PaReq":"x"}}}`)
	out, err := resolveAuthorize(t).HandleResponse(authorizeData(""), connector.Response{StatusCode: 200, Body: body}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptAuthenticationPending, out.Status)
	require.NotNil(t, out.Response.Redirection)
	assert.Equal(t, "https://3ds.test/acs", out.Response.Redirection.Endpoint)
	assert.Equal(t, "x", out.Response.Redirection.FormFields["PaReq"])
}

func TestErrorResponse(t *testing.T) {
	b := resolveAuthorize(t)
	er := b.ErrorResponse(connector.Response{StatusCode: 400, Body: []byte(`{"code":"invalid_argument","message":"amount invalid","source":"amount"}`)})
	assert.Equal(t, models.ErrorResponse{StatusCode: 400, Code: "invalid_argument", Message: "amount invalid", Reason: "amount"}, er)

	er = b.ErrorResponse(connector.Response{StatusCode: 502, Body: []byte(`<html>bad gateway</html>`)})
	assert.Equal(t, models.FallbackErrorResponse(502), er)
}

func TestCaptureAndRefund(t *testing.T) {
	reg, err := connector.NewRegistry(New(""))
	require.NoError(t, err)

	capture, err := connector.Resolve[models.Capture, models.PaymentsCaptureData, models.PaymentsResponseData](reg, Name)
	require.NoError(t, err)
	method, err := capture.MultipleCaptureSyncMethod()
	require.NoError(t, err)
	assert.Equal(t, models.CaptureSyncIndividual, method)

	_, err = capture.BuildRequest(&models.PaymentsCaptureRouterData{ConnectorAuthType: models.BodyKey("k", "c")})
	assert.ErrorIs(t, err, models.ErrMissingConnectorTransactionID)

	refund, err := connector.Resolve[models.Execute, models.RefundsData, models.RefundsResponseData](reg, Name)
	require.NoError(t, err)
	rd := &models.RefundsExecuteRouterData{
		ConnectorAuthType: models.BodyKey("k", "c"),
		Request:           models.RefundsData{RefundID: "ref_1", ConnectorTransactionID: "int_1", RefundAmount: 500, Currency: "USD"},
	}
	req, err := refund.BuildRequest(rd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"request_id":"","payment_intent_id":"int_1","amount":"5.00"}`, string(req.Body.Bytes()))

	out, err := refund.HandleResponse(rd, connector.Response{StatusCode: 201, Body: []byte(`{"id":"rf_1","status":"RECEIVED"}`)}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RefundPending, out.Response.RefundStatus)
	assert.Equal(t, "rf_1", out.Response.ConnectorRefundID)
}

type secrets map[string]string

func (s secrets) WebhookSecret(_ context.Context, merchantID, name string) (models.Secret, error) {
	return models.NewSecret(s[merchantID+"/"+name]), nil
}

func signed(t *testing.T, secret, body string) *webhook.Request {
	t.Helper()
	sig, err := webhook.Sign(webhook.HmacSha256, []byte(secret), []byte("1700000000"+body))
	require.NoError(t, err)
	h := http.Header{}
	h.Set(headerTimestamp, "1700000000")
	h.Set(headerSignature, hex.EncodeToString(sig))
	return &webhook.Request{Method: http.MethodPost, Headers: h, Body: []byte(body)}
}

func TestWebhookPipeline(t *testing.T) {
	reg, err := connector.NewRegistry(New(""))
	require.NoError(t, err)
	p := webhook.NewPipeline(reg, secrets{"m1/airwallex": "whsec"}, nil)

	out, err := p.Process(context.Background(), "m1", Name,
		signed(t, "whsec", `{"id":"evt_1","name":"refund.settled","data":{"object":{"id":"rf_1","payment_intent_id":"int_1","status":"SETTLED"}}}`))
	require.NoError(t, err)
	assert.True(t, out.Verified)
	assert.Equal(t, models.EventRefundSuccess, out.Event)
	assert.Equal(t, models.RefundReference(models.RefConnectorRefundID, "rf_1", "int_1"), *out.Reference)

	out, err = p.Process(context.Background(), "m1", Name,
		signed(t, "whsec", `{"id":"evt_2","name":"payment_dispute.requires_response","data":{"object":{"id":"dsp_1","payment_intent_id":"int_1","stage":"RFI","amount":10.5,"currency":"usd"}}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventDisputeOpened, out.Event)
	require.NotNil(t, out.Dispute)
	assert.Equal(t, models.DisputeStagePreDispute, out.Dispute.Stage)
	assert.EqualValues(t, 1050, out.Dispute.Amount)

	out, err = p.Process(context.Background(), "m1", Name,
		signed(t, "whsec", `{"id":"evt_3","name":"customer.created","data":{"object":{}}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventNotSupported, out.Event)

	req := signed(t, "whsec", `{"id":"evt_4","name":"payment_intent.succeeded","data":{"object":{"id":"int_1"}}}`)
	req.Headers.Set(headerTimestamp, "1700000001")
	_, err = p.Process(context.Background(), "m1", Name, req)
	assert.ErrorIs(t, err, models.ErrWebhookSourceVerificationFailed)
}

func TestFlowsRegistersEveryOperation(t *testing.T) {
	flows := New("https://airwallex.test/").Flows()
	assert.ElementsMatch(t, []models.FlowName{
		models.FlowAuthorize, models.FlowCapture, models.FlowVoid,
		models.FlowPSync, models.FlowExecute, models.FlowRSync,
	}, flows.Names())

	cancel, ok := flows[models.FlowVoid].(connector.BoxedIntegration[models.Void, models.PaymentsCancelData, models.PaymentsResponseData])
	require.True(t, ok)
	req, err := cancel.BuildRequest(&models.PaymentsCancelRouterData{
		MerchantID:        "m1",
		Connector:         Name,
		ConnectorAuthType: models.BodyKey("api_key_1", "client_1"),
		Request:           models.PaymentsCancelData{ConnectorTransactionID: "int_1"},
	})
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "https://airwallex.test/api/v1/pa/payment_intents/int_1/cancel", req.URL)
}
