// Package worldpay integrates the Worldpay XML payment service. Worldpay
// order notifications carry no signature, so they only ever trigger a sync.
package worldpay

import (
	"encoding/base64"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

const (
	Name           = "worldpay"
	DefaultBaseURL = "https://secure-test.worldpay.com/"

	doctype = `<!DOCTYPE paymentService PUBLIC "-//Worldpay//DTD Worldpay PaymentService v1//EN" "http://dtd.worldpay.com/paymentService_v1.dtd">`
)

// Worldpay speaks the Worldpay XML order API.
type Worldpay struct {
	baseURL string
}

// New returns a Worldpay connector rooted at baseURL, or at the sandbox when empty.
func New(baseURL string) *Worldpay {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Worldpay{baseURL: baseURL}
}

func (w *Worldpay) ID() string                { return Name }
func (w *Worldpay) BaseURL() string           { return w.baseURL }
func (w *Worldpay) CommonContentType() string { return connector.ContentTypeXML }

// AuthHeaders uses key1 as the XML username and api_key as its password.
func (w *Worldpay) AuthHeaders(auth models.ConnectorAuthType) ([]connector.Header, error) {
	password, username, err := auth.AsBodyKey()
	if err != nil {
		return nil, err
	}
	token := base64.StdEncoding.EncodeToString([]byte(username.Expose() + ":" + password.Expose()))
	return []connector.Header{connector.MaskedHeader(connector.HeaderAuthorization, "Basic "+token)}, nil
}

func (w *Worldpay) BuildErrorResponse(res connector.Response) models.ErrorResponse {
	return connector.ParseErrorResponse(res, connector.DecodeXML[paymentService], func(p paymentService) models.ErrorResponse {
		if p.Reply == nil || p.Reply.Error == nil {
			return models.ErrorResponse{}
		}
		return p.Reply.Error.canonical()
	})
}

func (w *Worldpay) Metadata() connector.Metadata {
	return connector.Metadata{
		DisplayName:    "Worldpay",
		Generation:     connector.GenerationV1,
		PaymentMethods: []models.PaymentMethodKind{models.PaymentMethodCard},
		CaptureMethods: []models.CaptureMethod{models.CaptureAutomatic, models.CaptureManual},
		WebhookFlows:   []models.WebhookFlow{models.WebhookFlowPayment, models.WebhookFlowRefund, models.WebhookFlowDispute},
	}
}

// Flows leaves void unregistered; Worldpay cancels through order
// modification only for orders that were never authorised.
func (w *Worldpay) Flows() connector.FlowSet {
	set := connector.FlowSet{}
	connector.Register(set, connector.V1[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](authorize{w: w}))
	connector.Register(set, connector.V1[models.Capture, models.PaymentsCaptureData, models.PaymentsResponseData](capture{w: w}))
	connector.Register(set, connector.V1[models.PSync, models.PaymentsSyncData, models.PaymentsResponseData](psync{w: w}))
	connector.Register(set, connector.V1[models.Execute, models.RefundsData, models.RefundsResponseData](refund{w: w}))
	connector.Register(set, connector.V1[models.RSync, models.RefundsData, models.RefundsResponseData](rsync{w: w}))
	return set
}

func (w *Worldpay) headers(auth models.ConnectorAuthType) ([]connector.Header, error) {
	headers, err := w.AuthHeaders(auth)
	if err != nil {
		return nil, err
	}
	return append(headers, connector.PlainHeader(connector.HeaderContentType, connector.ContentTypeXML)), nil
}

func (w *Worldpay) url() string {
	return w.baseURL + "jsp/merchant/xml/paymentService.jsp"
}

func xmlBody(p *paymentService, err error) (*connector.RequestContent, error) {
	if err != nil {
		return nil, err
	}
	return connector.XMLContent(p, doctype)
}

type authorize struct {
	connector.Defaults[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData]
	w *Worldpay
}

func (i authorize) Headers(rd *models.PaymentsAuthorizeRouterData) ([]connector.Header, error) {
	return i.w.headers(rd.ConnectorAuthType)
}

func (i authorize) URL(*models.PaymentsAuthorizeRouterData) (string, error) { return i.w.url(), nil }

func (i authorize) RequestBody(rd *models.PaymentsAuthorizeRouterData) (*connector.RequestContent, error) {
	return xmlBody(newSubmitOrder(rd))
}

func (i authorize) BuildRequest(rd *models.PaymentsAuthorizeRouterData) (*connector.Request, error) {
	return connector.Build[models.Authorize](i, connector.MethodPost, rd)
}

func (i authorize) HandleResponse(rd *models.PaymentsAuthorizeRouterData, res connector.Response, log *zap.Logger) (*models.PaymentsAuthorizeRouterData, error) {
	return handleOrderReply(rd, rd.ConnectorRequestReferenceID, res, log)
}

func (i authorize) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.w.BuildErrorResponse(res)
}

type capture struct {
	connector.Defaults[models.Capture, models.PaymentsCaptureData, models.PaymentsResponseData]
	w *Worldpay
}

func (i capture) Headers(rd *models.PaymentsCaptureRouterData) ([]connector.Header, error) {
	return i.w.headers(rd.ConnectorAuthType)
}

func (i capture) URL(*models.PaymentsCaptureRouterData) (string, error) { return i.w.url(), nil }

func (i capture) RequestBody(rd *models.PaymentsCaptureRouterData) (*connector.RequestContent, error) {
	return xmlBody(newCaptureModification(rd))
}

func (i capture) BuildRequest(rd *models.PaymentsCaptureRouterData) (*connector.Request, error) {
	return connector.Build[models.Capture](i, connector.MethodPost, rd)
}

func (i capture) HandleResponse(rd *models.PaymentsCaptureRouterData, res connector.Response, log *zap.Logger) (*models.PaymentsCaptureRouterData, error) {
	return handleOrderReply(rd, rd.Request.ConnectorTransactionID, res, log)
}

func (i capture) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.w.BuildErrorResponse(res)
}

// MultipleCaptureSyncMethod reports that an order inquiry returns the
// captured total rather than each capture.
func (capture) MultipleCaptureSyncMethod() (models.CaptureSyncMethod, error) {
	return models.CaptureSyncAggregated, nil
}

type psync struct {
	connector.Defaults[models.PSync, models.PaymentsSyncData, models.PaymentsResponseData]
	w *Worldpay
}

func (i psync) Headers(rd *models.PaymentsSyncRouterData) ([]connector.Header, error) {
	return i.w.headers(rd.ConnectorAuthType)
}

func (i psync) URL(*models.PaymentsSyncRouterData) (string, error) { return i.w.url(), nil }

func (i psync) RequestBody(rd *models.PaymentsSyncRouterData) (*connector.RequestContent, error) {
	orderCode, err := rd.Request.ConnectorTransactionID.TransactionID()
	if err != nil {
		return nil, err
	}
	return xmlBody(newOrderInquiry(rd.ConnectorAuthType, orderCode))
}

func (i psync) BuildRequest(rd *models.PaymentsSyncRouterData) (*connector.Request, error) {
	return connector.Build[models.PSync](i, connector.MethodPost, rd)
}

func (i psync) HandleResponse(rd *models.PaymentsSyncRouterData, res connector.Response, log *zap.Logger) (*models.PaymentsSyncRouterData, error) {
	orderCode, _ := rd.Request.ConnectorTransactionID.TransactionID()
	return handleOrderReply(rd, orderCode, res, log)
}

func (i psync) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.w.BuildErrorResponse(res)
}

type refund struct {
	connector.Defaults[models.Execute, models.RefundsData, models.RefundsResponseData]
	w *Worldpay
}

func (i refund) Headers(rd *models.RefundsExecuteRouterData) ([]connector.Header, error) {
	return i.w.headers(rd.ConnectorAuthType)
}

func (i refund) URL(*models.RefundsExecuteRouterData) (string, error) { return i.w.url(), nil }

func (i refund) RequestBody(rd *models.RefundsExecuteRouterData) (*connector.RequestContent, error) {
	return xmlBody(newRefundModification(rd))
}

func (i refund) BuildRequest(rd *models.RefundsExecuteRouterData) (*connector.Request, error) {
	return connector.Build[models.Execute](i, connector.MethodPost, rd)
}

func (i refund) HandleResponse(rd *models.RefundsExecuteRouterData, res connector.Response, log *zap.Logger) (*models.RefundsExecuteRouterData, error) {
	return handleRefundReply(rd, res, log)
}

func (i refund) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.w.BuildErrorResponse(res)
}

type rsync struct {
	connector.Defaults[models.RSync, models.RefundsData, models.RefundsResponseData]
	w *Worldpay
}

func (i rsync) Headers(rd *models.RefundsSyncRouterData) ([]connector.Header, error) {
	return i.w.headers(rd.ConnectorAuthType)
}

func (i rsync) URL(*models.RefundsSyncRouterData) (string, error) { return i.w.url(), nil }

// RequestBody inquires on the parent order; refunds have no order of their own.
func (i rsync) RequestBody(rd *models.RefundsSyncRouterData) (*connector.RequestContent, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}
	return xmlBody(newOrderInquiry(rd.ConnectorAuthType, rd.Request.ConnectorTransactionID))
}

func (i rsync) BuildRequest(rd *models.RefundsSyncRouterData) (*connector.Request, error) {
	return connector.Build[models.RSync](i, connector.MethodPost, rd)
}

func (i rsync) HandleResponse(rd *models.RefundsSyncRouterData, res connector.Response, log *zap.Logger) (*models.RefundsSyncRouterData, error) {
	return handleRefundReply(rd, res, log)
}

func (i rsync) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.w.BuildErrorResponse(res)
}
