package paystack

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

func registry(t *testing.T) *connector.Registry {
	t.Helper()
	reg, err := connector.NewRegistry(New("https://paystack.test/"))
	require.NoError(t, err)
	return reg
}

func authorizeEnvelope(status models.AttemptStatus) *models.PaymentsAuthorizeRouterData {
	return &models.PaymentsAuthorizeRouterData{
		PaymentID:                   "pay_1",
		AttemptID:                   "att_1",
		ConnectorRequestReferenceID: "ref_abc",
		ConnectorAuthType:           models.HeaderKey("sk_test_ps"),
		Status:                      status,
		Request: models.PaymentsAuthorizeData{
			Amount:   500000,
			Currency: "NGN",
			Email:    models.NewSecret("buyer@example.com"),
			PaymentMethodData: models.PaymentMethodData{
				Kind: models.PaymentMethodCard,
				Card: &models.Card{
					Number:   models.NewSecret("5078505078505078"),
					ExpMonth: models.NewSecret("9"),
					ExpYear:  models.NewSecret("31"),
					CVC:      models.NewSecret("081"),
				},
			},
		},
	}
}

func resolveAuthorize(t *testing.T) connector.BoxedIntegration[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData] {
	t.Helper()
	b, err := connector.Resolve[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](registry(t), Name)
	require.NoError(t, err)
	return b
}

func TestChargeRequest(t *testing.T) {
	req, err := resolveAuthorize(t).BuildRequest(authorizeEnvelope(""))
	require.NoError(t, err)
	assert.Equal(t, "https://paystack.test/charge", req.URL)
	auth, _ := req.Header(connector.HeaderAuthorization)
	assert.Equal(t, "Bearer sk_test_ps", auth.Expose())

	var body map[string]any
	require.NoError(t, json.Unmarshal(req.Body.Bytes(), &body))
	assert.EqualValues(t, 500000, body["amount"])
	assert.Equal(t, "NGN", body["currency"])
	assert.Equal(t, "ref_abc", body["reference"])
	assert.Equal(t, "2031", body["card"].(map[string]any)["expiry_year"])
	assert.NotContains(t, body, "bank_transfer")
}

func TestChargeValidation(t *testing.T) {
	b := resolveAuthorize(t)

	rd := authorizeEnvelope("")
	rd.Request.Email = models.Secret{}
	_, err := b.BuildRequest(rd)
	assert.ErrorIs(t, err, models.ErrMissingRequiredField)

	rd = authorizeEnvelope("")
	rd.Request.CaptureMethod = models.CaptureManual
	_, err = b.BuildRequest(rd)
	assert.ErrorIs(t, err, models.ErrCaptureMethodNotSupported)

	rd = authorizeEnvelope("")
	rd.Request.PaymentMethodData = models.PaymentMethodData{Kind: models.PaymentMethodBankTransfer, BankTransfer: &models.BankTransfer{}}
	req, err := b.BuildRequest(rd)
	require.NoError(t, err)
	assert.Contains(t, string(req.Body.Bytes()), `"bank_transfer":{}`)
}

func TestChargeStatuses(t *testing.T) {
	b := resolveAuthorize(t)
	cases := []struct {
		current models.AttemptStatus
		status  string
		want    models.AttemptStatus
	}{
		{"", "success", models.AttemptCharged},
		{"", "failed", models.AttemptFailure},
		{"", "send_otp", models.AttemptAuthenticationPending},
		{models.AttemptAuthenticationPending, "send_otp", models.AttemptAuthenticationFailed},
		{"", "unheard_of", models.AttemptPending},
	}
	for _, tc := range cases {
		body := `{"status":true,"message":"Charge attempted","data":{"id":123,"reference":"ref_abc","status":"` + tc.status + `"}}`
		out, err := b.HandleResponse(authorizeEnvelope(tc.current), connector.Response{StatusCode: 200, Body: []byte(body)}, nil)
		require.NoError(t, err, tc.status)
		assert.Equal(t, tc.want, out.Status, tc.status)
		assert.Equal(t, "123", out.Response.ConnectorResponseReferenceID)
	}

	body := `{"status":true,"data":{"id":5,"reference":"ref_abc","status":"open_url","url":"https://checkout.paystack.test/3ds"}}`
	out, err := b.HandleResponse(authorizeEnvelope(""), connector.Response{StatusCode: 200, Body: []byte(body)}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.AttemptAuthenticationPending, out.Status)
	require.NotNil(t, out.Response.Redirection)
	assert.Equal(t, "https://checkout.paystack.test/3ds", out.Response.Redirection.Endpoint)
}

func TestCaptureAndVoidAreNotSupported(t *testing.T) {
	reg := registry(t)
	capture, err := connector.Resolve[models.Capture, models.PaymentsCaptureData, models.PaymentsResponseData](reg, Name)
	require.NoError(t, err)
	req, err := capture.BuildRequest(&models.PaymentsCaptureRouterData{ConnectorAuthType: models.HeaderKey("sk")})
	require.NoError(t, err)
	assert.Nil(t, req)

	void, err := connector.Resolve[models.Void, models.PaymentsCancelData, models.PaymentsResponseData](reg, Name)
	require.NoError(t, err)
	req, err = void.BuildRequest(&models.PaymentsCancelRouterData{ConnectorAuthType: models.HeaderKey("sk")})
	require.NoError(t, err)
	assert.Nil(t, req)
}

func TestRefundAndSync(t *testing.T) {
	reg := registry(t)
	refund, err := connector.Resolve[models.Execute, models.RefundsData, models.RefundsResponseData](reg, Name)
	require.NoError(t, err)
	rd := &models.RefundsExecuteRouterData{
		RefundID:          "rf_local",
		ConnectorAuthType: models.HeaderKey("sk"),
		Request:           models.RefundsData{RefundID: "rf_local", ConnectorTransactionID: "ref_abc", RefundAmount: 1000, Currency: "NGN"},
	}
	req, err := refund.BuildRequest(rd)
	require.NoError(t, err)
	assert.JSONEq(t, `{"transaction":"ref_abc","amount":1000,"currency":"NGN"}`, string(req.Body.Bytes()))

	out, err := refund.HandleResponse(rd, connector.Response{StatusCode: 200, Body: []byte(`{"status":true,"data":{"id":9001,"status":"pending"}}`)}, nil)
	require.NoError(t, err)
	assert.Equal(t, "9001", out.Response.ConnectorRefundID)
	assert.Equal(t, models.RefundPending, out.Response.RefundStatus)

	rsync, err := connector.Resolve[models.RSync, models.RefundsData, models.RefundsResponseData](reg, Name)
	require.NoError(t, err)
	sd := &models.RefundsSyncRouterData{
		RefundID:          "rf_local",
		ConnectorAuthType: models.HeaderKey("sk"),
		Request:           models.RefundsData{RefundID: "rf_local", ConnectorRefundID: "9001", RefundStatus: models.RefundSuccess},
	}
	req, err = rsync.BuildRequest(sd)
	require.NoError(t, err)
	assert.Equal(t, "https://paystack.test/refund/9001", req.URL)

	got, err := rsync.HandleResponse(sd, connector.Response{StatusCode: 200, Body: []byte(`{"status":true,"data":{"id":9001,"status":"failed"}}`)}, nil)
	require.NoError(t, err)
	assert.Equal(t, models.RefundSuccess, got.Response.RefundStatus)
}

func TestErrorResponse(t *testing.T) {
	er := resolveAuthorize(t).ErrorResponse(connector.Response{StatusCode: 400, Body: []byte(`{"status":false,"message":"Invalid key","meta":{"nextStep":"Use a valid secret key"}}`)})
	assert.Equal(t, models.ErrorResponse{StatusCode: 400, Code: models.NoErrorCode, Message: "Invalid key", Reason: "Use a valid secret key"}, er)
}

type secrets map[string]string

func (s secrets) WebhookSecret(_ context.Context, merchantID, name string) (models.Secret, error) {
	return models.NewSecret(s[merchantID+"/"+name]), nil
}

func signed(t *testing.T, secret, body string) *webhook.Request {
	t.Helper()
	sig, err := webhook.Sign(webhook.HmacSha512, []byte(secret), []byte(body))
	require.NoError(t, err)
	h := http.Header{}
	h.Set(headerSignature, hex.EncodeToString(sig))
	return &webhook.Request{Method: http.MethodPost, Headers: h, Body: []byte(body)}
}

const chargeSuccess = `{"event":"charge.success","data":{"id":302961,"reference":"ref_abc","status":"success","amount":500000,"currency":"NGN","customer":{"email":"buyer@example.com"}}}`

func TestWebhookVerifiedWithSecret(t *testing.T) {
	p := webhook.NewPipeline(registry(t), secrets{"m1/paystack": "sk_live_hook"}, nil)
	out, err := p.Process(context.Background(), "m1", Name, signed(t, "sk_live_hook", chargeSuccess))
	require.NoError(t, err)
	assert.True(t, out.Verified)
	assert.Equal(t, webhook.HmacSha512, out.Algorithm)
	assert.Equal(t, models.EventPaymentIntentSuccess, out.Event)
	assert.Equal(t, models.PaymentReference(models.RefConnectorTransactionID, "ref_abc"), *out.Reference)

	var resource map[string]any
	require.NoError(t, json.Unmarshal(out.Resource, &resource))
	email := resource["customer"].(map[string]any)["email"]
	assert.NotEqual(t, "buyer@example.com", email)
}

func TestWebhookOptionalVerification(t *testing.T) {
	p := webhook.NewPipeline(registry(t), secrets{"m1/paystack": "sk_live_hook"}, nil)

	out, err := p.Process(context.Background(), "m1", Name, signed(t, "wrong", chargeSuccess))
	require.NoError(t, err)
	assert.False(t, out.Verified)
	assert.Equal(t, models.EventPaymentIntentSuccess, out.Event)

	out, err = p.Process(context.Background(), "m2", Name, signed(t, "whatever", chargeSuccess))
	require.NoError(t, err)
	assert.False(t, out.Verified)
}

func TestWebhookRefundsAndDisputes(t *testing.T) {
	p := webhook.NewPipeline(registry(t), secrets{"m1/paystack": "k"}, nil)

	out, err := p.Process(context.Background(), "m1", Name, signed(t, "k",
		`{"event":"refund.processed","data":{"id":9001,"status":"processed","transaction_reference":"ref_abc","amount":1000,"currency":"NGN"}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventRefundSuccess, out.Event)
	assert.Equal(t, models.RefundReference(models.RefConnectorRefundID, "9001", "ref_abc"), *out.Reference)

	out, err = p.Process(context.Background(), "m1", Name, signed(t, "k",
		`{"event":"charge.dispute.resolve","data":{"id":77,"resolution":"declined","category":"chargeback","refund_amount":0,"amount":500000,"currency":"NGN","transaction":{"reference":"ref_abc"}}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventDisputeWon, out.Event)
	assert.Equal(t, models.DisputeReference("77", "ref_abc"), *out.Reference)
	require.NotNil(t, out.Dispute)
	assert.Equal(t, models.DisputeStageDispute, out.Dispute.Stage)
	assert.EqualValues(t, 500000, out.Dispute.Amount)

	out, err = p.Process(context.Background(), "m1", Name, signed(t, "k", `{"event":"subscription.create","data":{"id":1}}`))
	require.NoError(t, err)
	assert.Equal(t, models.EventNotSupported, out.Event)
	assert.Nil(t, out.Reference)
}
