// Package paystack integrates Paystack charges through the new-generation
// contract. Paystack captures on authorisation, so capture and void are not
// offered.
package paystack

import (
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

const (
	Name           = "paystack"
	DefaultBaseURL = "https://api.paystack.co/"
)

// Paystack is a new-generation connector for the Paystack API.
type Paystack struct {
	baseURL string
}

// New returns a Paystack connector rooted at baseURL, or at the public API when empty.
func New(baseURL string) *Paystack {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Paystack{baseURL: baseURL}
}

func (p *Paystack) ID() string                { return Name }
func (p *Paystack) BaseURL() string           { return p.baseURL }
func (p *Paystack) CommonContentType() string { return connector.ContentTypeJSON }

func (p *Paystack) AuthHeaders(auth models.ConnectorAuthType) ([]connector.Header, error) {
	key, err := auth.AsHeaderKey()
	if err != nil {
		return nil, err
	}
	return []connector.Header{connector.MaskedHeader(connector.HeaderAuthorization, "Bearer "+key.Expose())}, nil
}

func (p *Paystack) BuildErrorResponse(res connector.Response) models.ErrorResponse {
	return connector.ParseErrorResponse(res, connector.DecodeJSON[errorResponse], func(e errorResponse) models.ErrorResponse {
		return models.ErrorResponse{Code: e.Code, Message: e.Message, Reason: e.Meta.NextStep}
	})
}

func (p *Paystack) Metadata() connector.Metadata {
	return connector.Metadata{
		DisplayName:    "Paystack",
		Generation:     connector.GenerationV2,
		PaymentMethods: []models.PaymentMethodKind{models.PaymentMethodCard, models.PaymentMethodBankTransfer},
		CaptureMethods: []models.CaptureMethod{models.CaptureAutomatic},
		WebhookFlows:   []models.WebhookFlow{models.WebhookFlowPayment, models.WebhookFlowRefund, models.WebhookFlowDispute},
	}
}

func (p *Paystack) Flows() connector.FlowSet {
	set := connector.FlowSet{}
	connector.Register(set, connector.V2[models.Authorize, models.PaymentFlowData, models.PaymentsAuthorizeData, models.PaymentsResponseData](authorize{p: p}))
	connector.Register(set, connector.V2[models.PSync, models.PaymentFlowData, models.PaymentsSyncData, models.PaymentsResponseData](psync{p: p}))
	connector.Register(set, connector.V2[models.Execute, models.RefundFlowData, models.RefundsData, models.RefundsResponseData](refund{p: p}))
	connector.Register(set, connector.V2[models.RSync, models.RefundFlowData, models.RefundsData, models.RefundsResponseData](rsync{p: p}))
	return set
}

func (p *Paystack) headers(auth models.ConnectorAuthType) ([]connector.Header, error) {
	headers, err := p.AuthHeaders(auth)
	if err != nil {
		return nil, err
	}
	return append(headers, connector.PlainHeader(connector.HeaderContentType, connector.ContentTypeJSON)), nil
}

type (
	authorizeData = models.RouterDataV2[models.Authorize, models.PaymentFlowData, models.PaymentsAuthorizeData, models.PaymentsResponseData]
	psyncData     = models.RouterDataV2[models.PSync, models.PaymentFlowData, models.PaymentsSyncData, models.PaymentsResponseData]
	refundData    = models.RouterDataV2[models.Execute, models.RefundFlowData, models.RefundsData, models.RefundsResponseData]
	rsyncData     = models.RouterDataV2[models.RSync, models.RefundFlowData, models.RefundsData, models.RefundsResponseData]
)

type authorize struct {
	connector.DefaultsV2[models.Authorize, models.PaymentFlowData, models.PaymentsAuthorizeData, models.PaymentsResponseData]
	connector.PaymentFlowShape[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData]
	p *Paystack
}

func (i authorize) Headers(rd *authorizeData) ([]connector.Header, error) {
	return i.p.headers(rd.ConnectorAuthType)
}

func (i authorize) ContentType() string { return connector.ContentTypeJSON }

func (i authorize) URL(*authorizeData) (string, error) {
	return i.p.baseURL + "charge", nil
}

func (i authorize) RequestBody(rd *authorizeData) (*connector.RequestContent, error) {
	req, err := newChargeRequest(rd)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(req)
}

func (i authorize) BuildRequest(rd *authorizeData) (*connector.Request, error) {
	return connector.BuildV2[models.Authorize, models.PaymentFlowData](i, connector.MethodPost, rd)
}

func (i authorize) HandleResponse(rd *authorizeData, res connector.Response, log *zap.Logger) (*authorizeData, error) {
	return handleCharge(rd, res, log)
}

func (i authorize) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.p.BuildErrorResponse(res)
}

type psync struct {
	connector.DefaultsV2[models.PSync, models.PaymentFlowData, models.PaymentsSyncData, models.PaymentsResponseData]
	connector.PaymentFlowShape[models.PSync, models.PaymentsSyncData, models.PaymentsResponseData]
	p *Paystack
}

func (i psync) Headers(rd *psyncData) ([]connector.Header, error) {
	return i.p.headers(rd.ConnectorAuthType)
}

func (i psync) URL(rd *psyncData) (string, error) {
	reference, err := rd.Request.ConnectorTransactionID.TransactionID()
	if err != nil {
		return "", err
	}
	return i.p.baseURL + "transaction/verify/" + reference, nil
}

func (i psync) BuildRequest(rd *psyncData) (*connector.Request, error) {
	return connector.BuildV2[models.PSync, models.PaymentFlowData](i, connector.MethodGet, rd)
}

func (i psync) HandleResponse(rd *psyncData, res connector.Response, log *zap.Logger) (*psyncData, error) {
	return handleCharge(rd, res, log)
}

func (i psync) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.p.BuildErrorResponse(res)
}

type refund struct {
	connector.DefaultsV2[models.Execute, models.RefundFlowData, models.RefundsData, models.RefundsResponseData]
	connector.RefundFlowShape[models.Execute, models.RefundsData, models.RefundsResponseData]
	p *Paystack
}

func (i refund) Headers(rd *refundData) ([]connector.Header, error) {
	return i.p.headers(rd.ConnectorAuthType)
}

func (i refund) ContentType() string { return connector.ContentTypeJSON }

func (i refund) URL(*refundData) (string, error) {
	return i.p.baseURL + "refund", nil
}

func (i refund) RequestBody(rd *refundData) (*connector.RequestContent, error) {
	req, err := newRefundRequest(rd)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(req)
}

func (i refund) BuildRequest(rd *refundData) (*connector.Request, error) {
	return connector.BuildV2[models.Execute, models.RefundFlowData](i, connector.MethodPost, rd)
}

func (i refund) HandleResponse(rd *refundData, res connector.Response, log *zap.Logger) (*refundData, error) {
	return handleRefund(rd, res, log)
}

func (i refund) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.p.BuildErrorResponse(res)
}

type rsync struct {
	connector.DefaultsV2[models.RSync, models.RefundFlowData, models.RefundsData, models.RefundsResponseData]
	connector.RefundFlowShape[models.RSync, models.RefundsData, models.RefundsResponseData]
	p *Paystack
}

func (i rsync) Headers(rd *rsyncData) ([]connector.Header, error) {
	return i.p.headers(rd.ConnectorAuthType)
}

func (i rsync) URL(rd *rsyncData) (string, error) {
	if rd.Request.ConnectorRefundID == "" {
		return "", models.ErrMissingConnectorRefundID
	}
	return i.p.baseURL + "refund/" + rd.Request.ConnectorRefundID, nil
}

func (i rsync) BuildRequest(rd *rsyncData) (*connector.Request, error) {
	return connector.BuildV2[models.RSync, models.RefundFlowData](i, connector.MethodGet, rd)
}

func (i rsync) HandleResponse(rd *rsyncData, res connector.Response, log *zap.Logger) (*rsyncData, error) {
	return handleRefund(rd, res, log)
}

func (i rsync) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.p.BuildErrorResponse(res)
}
