package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/metrics"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

func airwallexCapture(status models.AttemptStatus) *models.PaymentsCaptureRouterData {
	return &models.PaymentsCaptureRouterData{
		Connector:                   "airwallex",
		PaymentID:                   "pay_1",
		ConnectorRequestReferenceID: "req_1",
		ConnectorAuthType:           models.BodyKey("api_key", "client_id"),
		Status:                      status,
		Request: models.PaymentsCaptureData{
			AmountToCapture:        1050,
			Currency:               "USD",
			ConnectorTransactionID: "int_1",
		},
	}
}

func TestExecuteMapped(t *testing.T) {
	transport := (&fakeTransport{}).reply(200, `{"id":"int_1","status":"SUCCEEDED"}`)
	reg := prometheus.NewRegistry()
	e := NewExecutor(testRegistry(t), transport, metrics.NewRecorder(reg))

	rd := airwallexCapture(models.AttemptAuthorized)
	call, err := Execute(context.Background(), e, rd)
	require.NoError(t, err)

	assert.Equal(t, models.CallMapped, call.State)
	assert.Equal(t, connector.GenerationV1, call.Generation)
	assert.Equal(t, models.AttemptCharged, call.Data.Status)
	assert.Equal(t, models.AttemptAuthorized, rd.Status, "input envelope must not change")
	require.Len(t, transport.requests, 1)
	assert.Equal(t, "https://airwallex.test/api/v1/pa/payment_intents/int_1/capture", transport.requests[0].URL)

	count, err := testutil.GatherAndCount(reg, "connector_flow_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestExecuteKeepsTerminalStatus(t *testing.T) {
	transport := (&fakeTransport{}).reply(200, `{"id":"int_1","status":"REQUIRES_CAPTURE"}`)
	e := NewExecutor(testRegistry(t), transport, nil)

	call, err := Execute(context.Background(), e, airwallexCapture(models.AttemptCharged))
	require.NoError(t, err)
	assert.Equal(t, models.AttemptCharged, call.Data.Status)
}

func TestExecuteErrorMapped(t *testing.T) {
	transport := (&fakeTransport{}).reply(400, `{"code":"invalid_argument","message":"amount invalid","source":"amount"}`)
	e := NewExecutor(testRegistry(t), transport, nil)

	rd := airwallexCapture(models.AttemptAuthorized)
	call, err := Execute(context.Background(), e, rd)
	require.NoError(t, err)

	assert.Equal(t, models.CallErrorMapped, call.State)
	require.NotNil(t, call.Data.ErrorResponse)
	assert.Equal(t, "invalid_argument", call.Data.ErrorResponse.Code)
	assert.Equal(t, 400, call.Data.ErrorResponse.StatusCode)
	assert.Equal(t, models.AttemptAuthorized, call.Data.Status)
	assert.Nil(t, call.Data.Response)
	assert.Nil(t, rd.ErrorResponse)
}

func TestExecuteTransportFailureIsOutcomeUnknown(t *testing.T) {
	transport := (&fakeTransport{}).fail(errors.New("connection reset by peer"))
	e := NewExecutor(testRegistry(t), transport, nil)

	call, err := Execute(context.Background(), e, airwallexCapture(models.AttemptAuthorized))
	require.ErrorIs(t, err, ErrOutcomeUnknown)
	assert.Equal(t, models.CallSent, call.State)
	assert.NotNil(t, call.Request)
	assert.Nil(t, call.Response)
}

func TestExecuteUnsentRequestIsDefinitive(t *testing.T) {
	transport := (&fakeTransport{}).fail(fmt.Errorf("%w: invalid client certificate", connector.ErrNotSent))
	e := NewExecutor(testRegistry(t), transport, nil)

	call, err := Execute(context.Background(), e, airwallexCapture(models.AttemptAuthorized))
	require.ErrorIs(t, err, connector.ErrNotSent)
	assert.NotErrorIs(t, err, ErrOutcomeUnknown)
	assert.Equal(t, models.CallRequestBuilt, call.State)
}

func TestExecuteUnsupportedFlow(t *testing.T) {
	transport := &fakeTransport{}
	e := NewExecutor(testRegistry(t), transport, nil)

	rd := &models.PaymentsCaptureRouterData{
		Connector:         "paystack",
		PaymentID:         "pay_1",
		ConnectorAuthType: models.HeaderKey("sk_test"),
		Request:           models.PaymentsCaptureData{AmountToCapture: 100, Currency: "NGN", ConnectorTransactionID: "T1"},
	}
	call, err := Execute(context.Background(), e, rd)
	require.NoError(t, err)
	assert.True(t, call.NotSupported)
	assert.Equal(t, models.CallCreated, call.State)
	assert.Empty(t, transport.requests)
}

func TestExecuteBuildFailure(t *testing.T) {
	transport := &fakeTransport{}
	e := NewExecutor(testRegistry(t), transport, nil)

	rd := airwallexCapture(models.AttemptAuthorized)
	rd.ConnectorAuthType = models.HeaderKey("only_one_key")
	call, err := Execute(context.Background(), e, rd)
	require.ErrorIs(t, err, models.ErrFailedToObtainAuthType)
	assert.Equal(t, models.CallCreated, call.State)
	assert.Empty(t, transport.requests)
}

func TestExecuteUnknownConnector(t *testing.T) {
	e := NewExecutor(testRegistry(t), &fakeTransport{}, nil)
	rd := airwallexCapture("")
	rd.Connector = "acme"
	_, err := Execute(context.Background(), e, rd)
	assert.ErrorIs(t, err, connector.ErrUnknownConnector)
}
