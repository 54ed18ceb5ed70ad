package connector

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

type fakeConnector struct {
	id string
}

func (f fakeConnector) ID() string                                           { return f.id }
func (fakeConnector) BaseURL() string                                        { return "https://fake.example" }
func (fakeConnector) CommonContentType() string                              { return ContentTypeJSON }
func (fakeConnector) AuthHeaders(models.ConnectorAuthType) ([]Header, error) { return nil, nil }
func (fakeConnector) BuildErrorResponse(res Response) models.ErrorResponse {
	return models.FallbackErrorResponse(res.StatusCode)
}

func (f fakeConnector) Metadata() Metadata {
	return Metadata{DisplayName: "Fake", Generation: GenerationV1}
}

func (f fakeConnector) Flows() FlowSet {
	set := FlowSet{}
	Register(set, V1[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](oldAuthorize{}))
	return set
}

func TestRegistryResolve(t *testing.T) {
	reg, err := NewRegistry(fakeConnector{id: "Fake"})
	require.NoError(t, err)

	b, err := Resolve[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](reg, "fake")
	require.NoError(t, err)
	assert.Equal(t, GenerationV1, b.Generation())

	meta := reg.Metadata()
	require.Len(t, meta, 1)
	assert.Equal(t, "fake", meta[0].Name)
	assert.Equal(t, []models.FlowName{models.FlowAuthorize}, meta[0].Flows)
}

func TestRegistryMissingFlowIsCapabilityGap(t *testing.T) {
	reg, err := NewRegistry(fakeConnector{id: "fake"})
	require.NoError(t, err)

	b, err := Resolve[models.Void, models.PaymentsCancelData, models.PaymentsResponseData](reg, "fake")
	require.NoError(t, err)
	req, err := b.BuildRequest(&models.PaymentsCancelRouterData{})
	require.NoError(t, err)
	assert.Nil(t, req)
}

func TestRegistryUnknownConnector(t *testing.T) {
	reg, err := NewRegistry(fakeConnector{id: "fake"})
	require.NoError(t, err)

	_, err = Resolve[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](reg, "nope")
	assert.True(t, errors.Is(err, ErrUnknownConnector))
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(fakeConnector{id: "fake"}, fakeConnector{id: "FAKE"})
	assert.True(t, errors.Is(err, ErrDuplicateConnector))
}

type testErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func TestParseErrorResponse(t *testing.T) {
	toErr := func(b testErrorBody) models.ErrorResponse {
		return models.ErrorResponse{Code: b.Code, Message: b.Message}
	}

	got := ParseErrorResponse(Response{StatusCode: 400, Body: []byte(`{"code":"invalid","message":"bad card"}`)}, DecodeJSON[testErrorBody], toErr)
	assert.Equal(t, models.ErrorResponse{StatusCode: 400, Code: "invalid", Message: "bad card"}, got)

	got = ParseErrorResponse(Response{StatusCode: 500, Body: []byte("not json")}, DecodeJSON[testErrorBody], toErr)
	assert.Equal(t, models.FallbackErrorResponse(500), got)

	got = ParseErrorResponse(Response{StatusCode: 502, Body: []byte(`{}`)}, DecodeJSON[testErrorBody], toErr)
	assert.Equal(t, models.FallbackErrorResponse(502), got)
}
