package connector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

type oldAuthorize struct {
	Defaults[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData]
}

func (oldAuthorize) URL(*models.PaymentsAuthorizeRouterData) (string, error) {
	return "https://old.example/pay", nil
}

func (o oldAuthorize) BuildRequest(rd *models.PaymentsAuthorizeRouterData) (*Request, error) {
	return Build[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](o, MethodPost, rd)
}

func (oldAuthorize) HandleResponse(rd *models.PaymentsAuthorizeRouterData, _ Response, _ *zap.Logger) (*models.PaymentsAuthorizeRouterData, error) {
	out := rd.Clone()
	out.Status = models.AttemptCharged
	out.Response = &models.PaymentsResponseData{ResourceID: models.ConnectorTransactionID("old_1")}
	return out, nil
}

type newAuthorize struct {
	DefaultsV2[models.Authorize, models.PaymentFlowData, models.PaymentsAuthorizeData, models.PaymentsResponseData]
	PaymentFlowShape[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData]
	status models.AttemptStatus
}

type newAuthorizeData = models.RouterDataV2[models.Authorize, models.PaymentFlowData, models.PaymentsAuthorizeData, models.PaymentsResponseData]

func (newAuthorize) URL(rd *newAuthorizeData) (string, error) {
	return "https://new.example/pay/" + rd.ResourceCommonData.ConnectorRequestReferenceID, nil
}

func (n newAuthorize) BuildRequest(rd *newAuthorizeData) (*Request, error) {
	return BuildV2[models.Authorize, models.PaymentFlowData, models.PaymentsAuthorizeData, models.PaymentsResponseData](n, MethodPost, rd)
}

func (n newAuthorize) HandleResponse(rd *newAuthorizeData, _ Response, _ *zap.Logger) (*newAuthorizeData, error) {
	out := *rd
	out.ResourceCommonData.Status = n.status
	out.Response = &models.PaymentsResponseData{ResourceID: models.ConnectorTransactionID("new_1")}
	return &out, nil
}

func authorizeEnvelope() *models.PaymentsAuthorizeRouterData {
	return &models.PaymentsAuthorizeRouterData{
		MerchantID:                  "merchant_1",
		Connector:                   "test",
		PaymentID:                   "pay_1",
		AttemptID:                   "att_1",
		ConnectorRequestReferenceID: "ref_1",
		Status:                      models.AttemptPending,
		Request:                     models.PaymentsAuthorizeData{Amount: 1050, Currency: "USD"},
	}
}

func TestBoxedOldGenerationDelegates(t *testing.T) {
	b := V1[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](oldAuthorize{})
	assert.Equal(t, GenerationV1, b.Generation())

	req, err := b.BuildRequest(authorizeEnvelope())
	require.NoError(t, err)
	require.NotNil(t, req)
	assert.Equal(t, "https://old.example/pay", req.URL)

	out, err := b.HandleResponse(authorizeEnvelope(), Response{StatusCode: 200}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, models.AttemptCharged, out.Status)
}

func TestBoxedNewGenerationConvertsShapes(t *testing.T) {
	b := V2[models.Authorize, models.PaymentFlowData, models.PaymentsAuthorizeData, models.PaymentsResponseData](newAuthorize{status: models.AttemptAuthorized})
	assert.Equal(t, GenerationV2, b.Generation())

	rd := authorizeEnvelope()
	req, err := b.BuildRequest(rd)
	require.NoError(t, err)
	assert.Equal(t, "https://new.example/pay/ref_1", req.URL)

	out, err := b.HandleResponse(rd, Response{StatusCode: 200}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, models.AttemptAuthorized, out.Status)
	assert.Equal(t, "pay_1", out.PaymentID)
	id, err := out.Response.ResourceID.TransactionID()
	require.NoError(t, err)
	assert.Equal(t, "new_1", id)

	assert.Equal(t, models.AttemptPending, rd.Status, "input envelope must not be mutated")
}

func TestBoxedNewGenerationRejectsUnknownStatus(t *testing.T) {
	b := V2[models.Authorize, models.PaymentFlowData, models.PaymentsAuthorizeData, models.PaymentsResponseData](newAuthorize{status: "bogus"})

	_, err := b.HandleResponse(authorizeEnvelope(), Response{StatusCode: 200}, zap.NewNop())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrResponseHandlingFailed))
}

type newRefund struct {
	DefaultsV2[models.Execute, models.RefundFlowData, models.RefundsData, models.RefundsResponseData]
	RefundFlowShape[models.Execute, models.RefundsData, models.RefundsResponseData]
}

func (newRefund) URL(*models.RouterDataV2[models.Execute, models.RefundFlowData, models.RefundsData, models.RefundsResponseData]) (string, error) {
	return "https://new.example/refunds", nil
}

func TestRefundShapeRequiresRefundID(t *testing.T) {
	b := V2[models.Execute, models.RefundFlowData, models.RefundsData, models.RefundsResponseData](newRefund{})

	_, err := b.URL(&models.RefundsExecuteRouterData{Connector: "test"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrResponseHandlingFailed))

	url, err := b.URL(&models.RefundsExecuteRouterData{Connector: "test", RefundID: "ref_1"})
	require.NoError(t, err)
	assert.Equal(t, "https://new.example/refunds", url)
}

func TestZeroBoxedIsUnsupported(t *testing.T) {
	var b BoxedIntegration[models.Void, models.PaymentsCancelData, models.PaymentsResponseData]
	for i := 0; i < 5; i++ {
		req, err := b.BuildRequest(&models.PaymentsCancelRouterData{})
		require.NoError(t, err)
		assert.Nil(t, req)
	}
}

func TestDefaultErrorResponseFallsBack(t *testing.T) {
	b := V1[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](oldAuthorize{})
	got := b.ErrorResponse(Response{StatusCode: 500, Body: []byte("<html>bad gateway</html>")})
	assert.Equal(t, models.ErrorResponse{StatusCode: 500, Code: models.NoErrorCode, Message: models.NoErrorMessage}, got)
}
