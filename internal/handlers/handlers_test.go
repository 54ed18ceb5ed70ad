package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/repository"
	"github.com/akylbek/payment-system/connector-switch/internal/service"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

type fakeRunner struct {
	flow    string
	call    service.PaymentCall
	data    any
	result  *service.FlowResult
	err     error
	invoked int
}

func (f *fakeRunner) record(flow string, pc service.PaymentCall, data any) (*service.FlowResult, error) {
	f.invoked++
	f.flow = flow
	f.call = pc
	f.data = data
	return f.result, f.err
}

func (f *fakeRunner) Authorize(_ context.Context, pc service.PaymentCall, data models.PaymentsAuthorizeData) (*service.FlowResult, error) {
	return f.record("authorize", pc, data)
}

func (f *fakeRunner) Capture(_ context.Context, pc service.PaymentCall, data models.PaymentsCaptureData) (*service.FlowResult, error) {
	return f.record("capture", pc, data)
}

func (f *fakeRunner) Void(_ context.Context, pc service.PaymentCall, data models.PaymentsCancelData) (*service.FlowResult, error) {
	return f.record("void", pc, data)
}

func (f *fakeRunner) Sync(_ context.Context, pc service.PaymentCall, data models.PaymentsSyncData) (*service.FlowResult, error) {
	return f.record("psync", pc, data)
}

func (f *fakeRunner) Refund(_ context.Context, pc service.PaymentCall, data models.RefundsData) (*service.FlowResult, error) {
	return f.record("refund", pc, data)
}

func (f *fakeRunner) RefundSync(_ context.Context, pc service.PaymentCall, data models.RefundsData) (*service.FlowResult, error) {
	return f.record("rsync", pc, data)
}

type fakeIngester struct {
	merchantID string
	connector  string
	req        *webhook.Request
	result     *service.WebhookResult
	err        error
}

func (f *fakeIngester) Ingest(_ context.Context, merchantID, connectorName string, req *webhook.Request) (*service.WebhookResult, error) {
	f.merchantID = merchantID
	f.connector = connectorName
	f.req = req
	return f.result, f.err
}

type fakeStates struct {
	state *models.ObjectState
	ref   models.ObjectReferenceID
	err   error
}

func (f *fakeStates) InsertInitialState(context.Context, models.ObjectState) error { return nil }

func (f *fakeStates) TransitionState(context.Context, string, models.ReferenceKind, string, string, string) (int64, error) {
	return 0, nil
}

func (f *fakeStates) FindState(_ context.Context, _ string, ref models.ObjectReferenceID) (*models.ObjectState, error) {
	f.ref = ref
	return f.state, f.err
}

func init() {
	gin.SetMode(gin.TestMode)
}

func flowEngine(runner FlowRunner) *gin.Engine {
	r := gin.New()
	h := NewPaymentHandler(runner)
	r.POST("/connectors/:connector/payments/:flow", h.RunPaymentFlow)
	r.POST("/connectors/:connector/refunds/:flow", h.RunRefundFlow)
	return r
}

func post(r http.Handler, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRunPaymentFlowAuthorize(t *testing.T) {
	runner := &fakeRunner{result: &service.FlowResult{
		Connector: "stripe",
		Flow:      models.FlowAuthorize,
		CallState: models.CallMapped,
		Status:    string(models.AttemptCharged),
	}}
	body := `{"merchant_id":"m_1","payment_id":"pay_1","attempt_id":"att_1",
		"data":{"amount":1000,"currency":"USD","capture_method":"automatic",
		"payment_method_data":{"kind":"card","card":{"number":"4242424242424242","exp_month":"12","exp_year":"30","cvc":"123"}}}}`

	w := post(flowEngine(runner), "/connectors/stripe/payments/authorize", body)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "authorize", runner.flow)
	assert.Equal(t, "stripe", runner.call.Connector)
	assert.Equal(t, "m_1", runner.call.MerchantID)
	data := runner.data.(models.PaymentsAuthorizeData)
	assert.Equal(t, models.MinorUnit(1000), data.Amount)
	assert.Equal(t, "4242424242424242", data.PaymentMethodData.Card.Number.Expose())

	var res service.FlowResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, string(models.AttemptCharged), res.Status)
}

func TestRunPaymentFlowValidation(t *testing.T) {
	runner := &fakeRunner{}
	r := flowEngine(runner)

	w := post(r, "/connectors/stripe/payments/authorize", `{"payment_id":"pay_1","data":{}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/connectors/stripe/payments/authorize", `{"merchant_id":"m_1","payment_id":"pay_1","data":{"amount":"ten"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/connectors/stripe/payments/settle", `{"merchant_id":"m_1","payment_id":"pay_1","data":{}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	assert.Zero(t, runner.invoked)
}

func TestRunPaymentFlowNotSupported(t *testing.T) {
	runner := &fakeRunner{result: &service.FlowResult{Connector: "worldpay", Flow: models.FlowVoid, NotSupported: true}}

	w := post(flowEngine(runner), "/connectors/worldpay/payments/void",
		`{"merchant_id":"m_1","payment_id":"pay_1","data":{"connector_transaction_id":"ord_1"}}`)

	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, "void", runner.flow)
	assert.Contains(t, w.Body.String(), `"not_supported":true`)
}

func TestRunPaymentFlowErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"unknown connector", fmt.Errorf("%w: acme", connector.ErrUnknownConnector), http.StatusNotFound},
		{"no account", fmt.Errorf("load account: %w", repository.ErrNotFound), http.StatusNotFound},
		{"disabled", service.ErrConnectorDisabled, http.StatusForbidden},
		{"missing field", models.MissingRequiredField("email"), http.StatusBadRequest},
		{"capture method", models.CaptureMethodNotSupported(models.CaptureManual), http.StatusBadRequest},
		{"bad auth", models.ErrFailedToObtainAuthType, http.StatusUnprocessableEntity},
		{"bad reply", models.NewError(models.ErrKindResponseDeserializationFailed, nil), http.StatusBadGateway},
		{"concurrent", service.ErrConcurrentTransition, http.StatusConflict},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{err: tc.err}
			w := post(flowEngine(runner), "/connectors/stripe/payments/capture",
				`{"merchant_id":"m_1","payment_id":"pay_1","data":{"amount_to_capture":500,"connector_transaction_id":"pi_1"}}`)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestRunPaymentFlowOutcomeUnknown(t *testing.T) {
	runner := &fakeRunner{
		result: &service.FlowResult{Connector: "stripe", Flow: models.FlowCapture, CallState: models.CallSent, OutcomeUnknown: true},
		err:    fmt.Errorf("%w: connection reset", service.ErrOutcomeUnknown),
	}

	w := post(flowEngine(runner), "/connectors/stripe/payments/capture",
		`{"merchant_id":"m_1","payment_id":"pay_1","data":{"amount_to_capture":500,"connector_transaction_id":"pi_1"}}`)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome_unknown":true`)
}

func TestRunRefundFlow(t *testing.T) {
	runner := &fakeRunner{result: &service.FlowResult{Connector: "paystack", Flow: models.FlowExecute, Status: string(models.RefundPending)}}
	r := flowEngine(runner)

	w := post(r, "/connectors/paystack/refunds/execute",
		`{"merchant_id":"m_1","payment_id":"pay_1","data":{"refund_id":"ref_1","connector_transaction_id":"T1","refund_amount":500,"currency":"NGN"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "refund", runner.flow)
	assert.Equal(t, "ref_1", runner.data.(models.RefundsData).RefundID)

	w = post(r, "/connectors/paystack/refunds/sync",
		`{"merchant_id":"m_1","payment_id":"pay_1","data":{"refund_id":"ref_1","connector_refund_id":"R1"}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "rsync", runner.flow)

	w = post(r, "/connectors/paystack/refunds/sync",
		`{"merchant_id":"m_1","payment_id":"pay_1","data":{"connector_refund_id":"R1"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, "/connectors/paystack/refunds/cancel",
		`{"merchant_id":"m_1","payment_id":"pay_1","data":{"refund_id":"ref_1"}}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 2, runner.invoked)
}

func webhookEngine(ingester WebhookIngester) *gin.Engine {
	r := gin.New()
	r.POST("/webhooks/:merchant_id/:connector", NewWebhookHandler(ingester).Receive)
	return r
}

func TestReceiveWebhook(t *testing.T) {
	ref := models.PaymentReference(models.RefConnectorTransactionID, "pi_1")
	ingester := &fakeIngester{result: &service.WebhookResult{
		ID:        "evt_1",
		Event:     models.EventPaymentIntentSuccess,
		Verified:  true,
		Reference: &ref,
	}}
	body := `{"id":"evt_1","type":"payment_intent.succeeded"}`

	w := post(webhookEngine(ingester), "/webhooks/m_1/stripe?mode=live", body, "Stripe-Signature", "t=1,v1=abc")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "m_1", ingester.merchantID)
	assert.Equal(t, "stripe", ingester.connector)
	assert.Equal(t, []byte(body), ingester.req.Body)
	assert.Equal(t, "t=1,v1=abc", ingester.req.Header("Stripe-Signature"))
	assert.Equal(t, "live", ingester.req.Query.Get("mode"))
	assert.Contains(t, w.Body.String(), `"verified":true`)
}

func TestReceiveWebhookErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"duplicate", service.ErrDuplicateWebhook, http.StatusOK},
		{"unknown connector", fmt.Errorf("%w: acme", connector.ErrUnknownConnector), http.StatusNotFound},
		{"no webhooks", models.NotImplemented("webhooks"), http.StatusNotImplemented},
		{"no signature", models.ErrWebhookSignatureNotFound, http.StatusUnauthorized},
		{"bad signature", models.ErrWebhookSourceVerificationFailed, http.StatusUnauthorized},
		{"no reference", models.ErrWebhookReferenceIDNotFound, http.StatusBadRequest},
		{"no event", models.ErrWebhookEventTypeNotFound, http.StatusBadRequest},
		{"store down", fmt.Errorf("store webhook: %w", fmt.Errorf("connection refused")), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := post(webhookEngine(&fakeIngester{err: tc.err}), "/webhooks/m_1/stripe", `{}`)
			assert.Equal(t, tc.want, w.Code)
		})
	}
}

func TestGetState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	states := &fakeStates{state: &models.ObjectState{
		Connector:     "stripe",
		Kind:          models.ReferenceRefund,
		ObjectID:      "re_1",
		InternalID:    "ref_1",
		State:         string(models.RefundSuccess),
		PreviousState: string(models.RefundPending),
		CreatedAt:     now,
		UpdatedAt:     now,
	}}
	r := gin.New()
	r.GET("/connectors/:connector/states/:kind/:id", NewPaymentStateHandler(states).GetState)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/connectors/stripe/states/refund/ref_1?by=internal", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.RefRefundID, states.ref.IDType)
	assert.Contains(t, w.Body.String(), `"previous_state":"pending"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/connectors/stripe/states/mandate/x", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	states.state, states.err = nil, repository.ErrNotFound
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/connectors/stripe/states/payment/pi_1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.RefConnectorTransactionID, states.ref.IDType)
}

func TestListConnectors(t *testing.T) {
	reg, err := connector.NewRegistry()
	require.NoError(t, err)
	r := gin.New()
	r.GET("/connectors", NewConnectorsHandler(reg).List)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/connectors", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"connectors":[]}`, w.Body.String())
}
