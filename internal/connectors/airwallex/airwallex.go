// Package airwallex integrates the Airwallex payment acceptance API.
package airwallex

import (
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

const (
	Name           = "airwallex"
	DefaultBaseURL = "https://api-demo.airwallex.com/"
)

// Airwallex talks to the Airwallex payment acceptance API.
type Airwallex struct {
	baseURL string
}

// New returns an Airwallex connector rooted at baseURL, or at the sandbox when empty.
func New(baseURL string) *Airwallex {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Airwallex{baseURL: baseURL}
}

func (a *Airwallex) ID() string                { return Name }
func (a *Airwallex) BaseURL() string           { return a.baseURL }
func (a *Airwallex) CommonContentType() string { return connector.ContentTypeJSON }

func (a *Airwallex) AuthHeaders(auth models.ConnectorAuthType) ([]connector.Header, error) {
	apiKey, clientID, err := auth.AsBodyKey()
	if err != nil {
		return nil, err
	}
	return []connector.Header{
		connector.PlainHeader("x-client-id", clientID.Expose()),
		connector.MaskedHeader("x-api-key", apiKey.Expose()),
	}, nil
}

func (a *Airwallex) BuildErrorResponse(res connector.Response) models.ErrorResponse {
	return connector.ParseErrorResponse(res, connector.DecodeJSON[errorResponse], func(e errorResponse) models.ErrorResponse {
		return models.ErrorResponse{Code: e.Code, Message: e.Message, Reason: e.Source}
	})
}

func (a *Airwallex) Metadata() connector.Metadata {
	return connector.Metadata{
		DisplayName:    "Airwallex",
		Generation:     connector.GenerationV1,
		PaymentMethods: []models.PaymentMethodKind{models.PaymentMethodCard},
		CaptureMethods: []models.CaptureMethod{models.CaptureAutomatic, models.CaptureManual},
		WebhookFlows:   []models.WebhookFlow{models.WebhookFlowPayment, models.WebhookFlowRefund, models.WebhookFlowDispute},
	}
}

func (a *Airwallex) Flows() connector.FlowSet {
	set := connector.FlowSet{}
	connector.Register(set, connector.V1[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](authorize{a: a}))
	connector.Register(set, connector.V1[models.Capture, models.PaymentsCaptureData, models.PaymentsResponseData](capture{a: a}))
	connector.Register(set, connector.V1[models.Void, models.PaymentsCancelData, models.PaymentsResponseData](void{a: a}))
	connector.Register(set, connector.V1[models.PSync, models.PaymentsSyncData, models.PaymentsResponseData](psync{a: a}))
	connector.Register(set, connector.V1[models.Execute, models.RefundsData, models.RefundsResponseData](refund{a: a}))
	connector.Register(set, connector.V1[models.RSync, models.RefundsData, models.RefundsResponseData](rsync{a: a}))
	return set
}

func (a *Airwallex) headers(auth models.ConnectorAuthType) ([]connector.Header, error) {
	headers, err := a.AuthHeaders(auth)
	if err != nil {
		return nil, err
	}
	return append(headers, connector.PlainHeader(connector.HeaderContentType, connector.ContentTypeJSON)), nil
}

type authorize struct {
	connector.Defaults[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData]
	a *Airwallex
}

func (i authorize) Headers(rd *models.PaymentsAuthorizeRouterData) ([]connector.Header, error) {
	return i.a.headers(rd.ConnectorAuthType)
}

func (i authorize) URL(*models.PaymentsAuthorizeRouterData) (string, error) {
	return i.a.baseURL + "api/v1/pa/payment_intents/create", nil
}

func (i authorize) RequestBody(rd *models.PaymentsAuthorizeRouterData) (*connector.RequestContent, error) {
	req, err := newPaymentIntentRequest(rd)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(req)
}

func (i authorize) BuildRequest(rd *models.PaymentsAuthorizeRouterData) (*connector.Request, error) {
	return connector.Build[models.Authorize](i, connector.MethodPost, rd)
}

func (i authorize) HandleResponse(rd *models.PaymentsAuthorizeRouterData, res connector.Response, log *zap.Logger) (*models.PaymentsAuthorizeRouterData, error) {
	return handlePaymentIntent(rd, res, log)
}

func (i authorize) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.a.BuildErrorResponse(res)
}

type capture struct {
	connector.Defaults[models.Capture, models.PaymentsCaptureData, models.PaymentsResponseData]
	a *Airwallex
}

func (i capture) Headers(rd *models.PaymentsCaptureRouterData) ([]connector.Header, error) {
	return i.a.headers(rd.ConnectorAuthType)
}

func (i capture) URL(rd *models.PaymentsCaptureRouterData) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", models.ErrMissingConnectorTransactionID
	}
	return i.a.baseURL + "api/v1/pa/payment_intents/" + rd.Request.ConnectorTransactionID + "/capture", nil
}

func (i capture) RequestBody(rd *models.PaymentsCaptureRouterData) (*connector.RequestContent, error) {
	req, err := newCaptureRequest(rd)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(req)
}

func (i capture) BuildRequest(rd *models.PaymentsCaptureRouterData) (*connector.Request, error) {
	return connector.Build[models.Capture](i, connector.MethodPost, rd)
}

func (i capture) HandleResponse(rd *models.PaymentsCaptureRouterData, res connector.Response, log *zap.Logger) (*models.PaymentsCaptureRouterData, error) {
	return handlePaymentIntent(rd, res, log)
}

func (i capture) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.a.BuildErrorResponse(res)
}

func (capture) MultipleCaptureSyncMethod() (models.CaptureSyncMethod, error) {
	return models.CaptureSyncIndividual, nil
}

type void struct {
	connector.Defaults[models.Void, models.PaymentsCancelData, models.PaymentsResponseData]
	a *Airwallex
}

func (i void) Headers(rd *models.PaymentsCancelRouterData) ([]connector.Header, error) {
	return i.a.headers(rd.ConnectorAuthType)
}

func (i void) URL(rd *models.PaymentsCancelRouterData) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", models.ErrMissingConnectorTransactionID
	}
	return i.a.baseURL + "api/v1/pa/payment_intents/" + rd.Request.ConnectorTransactionID + "/cancel", nil
}

func (i void) RequestBody(rd *models.PaymentsCancelRouterData) (*connector.RequestContent, error) {
	return connector.JSONContent(cancelRequest{
		RequestID:          rd.ConnectorRequestReferenceID,
		CancellationReason: rd.Request.CancellationReason,
	})
}

func (i void) BuildRequest(rd *models.PaymentsCancelRouterData) (*connector.Request, error) {
	return connector.Build[models.Void](i, connector.MethodPost, rd)
}

func (i void) HandleResponse(rd *models.PaymentsCancelRouterData, res connector.Response, log *zap.Logger) (*models.PaymentsCancelRouterData, error) {
	return handlePaymentIntent(rd, res, log)
}

func (i void) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.a.BuildErrorResponse(res)
}

type psync struct {
	connector.Defaults[models.PSync, models.PaymentsSyncData, models.PaymentsResponseData]
	a *Airwallex
}

func (i psync) Headers(rd *models.PaymentsSyncRouterData) ([]connector.Header, error) {
	return i.a.headers(rd.ConnectorAuthType)
}

func (i psync) URL(rd *models.PaymentsSyncRouterData) (string, error) {
	id, err := rd.Request.ConnectorTransactionID.TransactionID()
	if err != nil {
		return "", err
	}
	return i.a.baseURL + "api/v1/pa/payment_intents/" + id, nil
}

func (i psync) BuildRequest(rd *models.PaymentsSyncRouterData) (*connector.Request, error) {
	return connector.Build[models.PSync](i, connector.MethodGet, rd)
}

func (i psync) HandleResponse(rd *models.PaymentsSyncRouterData, res connector.Response, log *zap.Logger) (*models.PaymentsSyncRouterData, error) {
	return handlePaymentIntent(rd, res, log)
}

func (i psync) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.a.BuildErrorResponse(res)
}

type refund struct {
	connector.Defaults[models.Execute, models.RefundsData, models.RefundsResponseData]
	a *Airwallex
}

func (i refund) Headers(rd *models.RefundsExecuteRouterData) ([]connector.Header, error) {
	return i.a.headers(rd.ConnectorAuthType)
}

func (i refund) URL(*models.RefundsExecuteRouterData) (string, error) {
	return i.a.baseURL + "api/v1/pa/refunds/create", nil
}

func (i refund) RequestBody(rd *models.RefundsExecuteRouterData) (*connector.RequestContent, error) {
	req, err := newRefundRequest(rd)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(req)
}

func (i refund) BuildRequest(rd *models.RefundsExecuteRouterData) (*connector.Request, error) {
	return connector.Build[models.Execute](i, connector.MethodPost, rd)
}

func (i refund) HandleResponse(rd *models.RefundsExecuteRouterData, res connector.Response, log *zap.Logger) (*models.RefundsExecuteRouterData, error) {
	return handleRefund(rd, res, log)
}

func (i refund) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.a.BuildErrorResponse(res)
}

type rsync struct {
	connector.Defaults[models.RSync, models.RefundsData, models.RefundsResponseData]
	a *Airwallex
}

func (i rsync) Headers(rd *models.RefundsSyncRouterData) ([]connector.Header, error) {
	return i.a.headers(rd.ConnectorAuthType)
}

func (i rsync) URL(rd *models.RefundsSyncRouterData) (string, error) {
	if rd.Request.ConnectorRefundID == "" {
		return "", models.ErrMissingConnectorRefundID
	}
	return i.a.baseURL + "api/v1/pa/refunds/" + rd.Request.ConnectorRefundID, nil
}

func (i rsync) BuildRequest(rd *models.RefundsSyncRouterData) (*connector.Request, error) {
	return connector.Build[models.RSync](i, connector.MethodGet, rd)
}

func (i rsync) HandleResponse(rd *models.RefundsSyncRouterData, res connector.Response, log *zap.Logger) (*models.RefundsSyncRouterData, error) {
	return handleRefund(rd, res, log)
}

func (i rsync) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.a.BuildErrorResponse(res)
}
