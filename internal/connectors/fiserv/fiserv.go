// Package fiserv integrates the Fiserv Commerce Hub card API. Every request
// is signed with the merchant's api secret.
package fiserv

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

const (
	Name           = "fiserv"
	DefaultBaseURL = "https://cert.api.fiservapps.com/"

	headerAPIKey          = "Api-Key"
	headerClientRequestID = "Client-Request-Id"
	headerTimestamp       = "Timestamp"
	headerAuthTokenType   = "Auth-Token-Type"
)

// Fiserv talks to the Fiserv Commerce Hub API. Every request is HMAC signed.
type Fiserv struct {
	baseURL   string
	now       func() time.Time
	requestID func() string
}

// New returns a Fiserv connector rooted at baseURL, or at the sandbox when empty.
func New(baseURL string) *Fiserv {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Fiserv{
		baseURL:   baseURL,
		now:       time.Now,
		requestID: func() string { return uuid.NewString() },
	}
}

func (f *Fiserv) ID() string                { return Name }
func (f *Fiserv) BaseURL() string           { return f.baseURL }
func (f *Fiserv) CommonContentType() string { return connector.ContentTypeJSON }

// AuthHeaders returns the static part of the credentials. The signature
// depends on the body and is added per request.
func (f *Fiserv) AuthHeaders(auth models.ConnectorAuthType) ([]connector.Header, error) {
	apiKey, _, _, err := auth.AsSignatureKey()
	if err != nil {
		return nil, err
	}
	return []connector.Header{connector.MaskedHeader(headerAPIKey, apiKey.Expose())}, nil
}

func (f *Fiserv) BuildErrorResponse(res connector.Response) models.ErrorResponse {
	return connector.ParseErrorResponse(res, connector.DecodeJSON[errorResponse], func(e errorResponse) models.ErrorResponse {
		if len(e.Error) == 0 {
			return models.ErrorResponse{}
		}
		first := e.Error[0]
		return models.ErrorResponse{Code: first.Code, Message: first.Message, Reason: first.Field}
	})
}

func (f *Fiserv) Metadata() connector.Metadata {
	return connector.Metadata{
		DisplayName:    "Fiserv",
		Generation:     connector.GenerationV1,
		PaymentMethods: []models.PaymentMethodKind{models.PaymentMethodCard},
		CaptureMethods: []models.CaptureMethod{models.CaptureAutomatic, models.CaptureManual},
	}
}

func (f *Fiserv) Flows() connector.FlowSet {
	set := connector.FlowSet{}
	connector.Register(set, connector.V1[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData](authorize{f: f}))
	connector.Register(set, connector.V1[models.Capture, models.PaymentsCaptureData, models.PaymentsResponseData](capture{f: f}))
	connector.Register(set, connector.V1[models.Void, models.PaymentsCancelData, models.PaymentsResponseData](void{f: f}))
	connector.Register(set, connector.V1[models.PSync, models.PaymentsSyncData, models.PaymentsResponseData](psync{f: f}))
	connector.Register(set, connector.V1[models.Execute, models.RefundsData, models.RefundsResponseData](refund{f: f}))
	connector.Register(set, connector.V1[models.RSync, models.RefundsData, models.RefundsResponseData](rsync{f: f}))
	return set
}

// signature is base64(HMAC-SHA256(api_secret, api_key + request id + timestamp + body)).
func signature(apiKey, apiSecret models.Secret, requestID, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(apiSecret.Expose()))
	mac.Write([]byte(apiKey.Expose()))
	mac.Write([]byte(requestID))
	mac.Write([]byte(timestamp))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// signedHeaders encodes content to sign it, so it is called with the same
// body RequestBody will later produce.
func (f *Fiserv) signedHeaders(auth models.ConnectorAuthType, content *connector.RequestContent) ([]connector.Header, error) {
	apiKey, _, apiSecret, err := auth.AsSignatureKey()
	if err != nil {
		return nil, err
	}
	requestID := f.requestID()
	timestamp := strconv.FormatInt(f.now().UnixMilli(), 10)
	return []connector.Header{
		connector.PlainHeader(connector.HeaderContentType, connector.ContentTypeJSON),
		connector.PlainHeader(headerClientRequestID, requestID),
		connector.PlainHeader(headerTimestamp, timestamp),
		connector.PlainHeader(headerAuthTokenType, "HMAC"),
		connector.MaskedHeader(headerAPIKey, apiKey.Expose()),
		connector.MaskedHeader(connector.HeaderAuthorization, signature(apiKey, apiSecret, requestID, timestamp, content.Bytes())),
	}, nil
}

type authorize struct {
	connector.Defaults[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData]
	f *Fiserv
}

func (i authorize) Headers(rd *models.PaymentsAuthorizeRouterData) ([]connector.Header, error) {
	body, err := i.RequestBody(rd)
	if err != nil {
		return nil, err
	}
	return i.f.signedHeaders(rd.ConnectorAuthType, body)
}

func (i authorize) URL(*models.PaymentsAuthorizeRouterData) (string, error) {
	return i.f.baseURL + "ch/payments/v1/charges", nil
}

func (i authorize) RequestBody(rd *models.PaymentsAuthorizeRouterData) (*connector.RequestContent, error) {
	req, err := newChargeRequest(rd)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(req)
}

func (i authorize) BuildRequest(rd *models.PaymentsAuthorizeRouterData) (*connector.Request, error) {
	return connector.Build[models.Authorize](i, connector.MethodPost, rd)
}

func (i authorize) HandleResponse(rd *models.PaymentsAuthorizeRouterData, res connector.Response, log *zap.Logger) (*models.PaymentsAuthorizeRouterData, error) {
	return handlePayment(rd, res, log)
}

func (i authorize) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.f.BuildErrorResponse(res)
}

type capture struct {
	connector.Defaults[models.Capture, models.PaymentsCaptureData, models.PaymentsResponseData]
	f *Fiserv
}

func (i capture) Headers(rd *models.PaymentsCaptureRouterData) ([]connector.Header, error) {
	body, err := i.RequestBody(rd)
	if err != nil {
		return nil, err
	}
	return i.f.signedHeaders(rd.ConnectorAuthType, body)
}

func (i capture) URL(*models.PaymentsCaptureRouterData) (string, error) {
	return i.f.baseURL + "ch/payments/v1/charges", nil
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
	return handlePayment(rd, res, log)
}

func (i capture) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.f.BuildErrorResponse(res)
}

type void struct {
	connector.Defaults[models.Void, models.PaymentsCancelData, models.PaymentsResponseData]
	f *Fiserv
}

func (i void) Headers(rd *models.PaymentsCancelRouterData) ([]connector.Header, error) {
	body, err := i.RequestBody(rd)
	if err != nil {
		return nil, err
	}
	return i.f.signedHeaders(rd.ConnectorAuthType, body)
}

func (i void) URL(*models.PaymentsCancelRouterData) (string, error) {
	return i.f.baseURL + "ch/payments/v1/cancels", nil
}

func (i void) RequestBody(rd *models.PaymentsCancelRouterData) (*connector.RequestContent, error) {
	req, err := newCancelRequest(rd)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(req)
}

func (i void) BuildRequest(rd *models.PaymentsCancelRouterData) (*connector.Request, error) {
	return connector.Build[models.Void](i, connector.MethodPost, rd)
}

func (i void) HandleResponse(rd *models.PaymentsCancelRouterData, res connector.Response, log *zap.Logger) (*models.PaymentsCancelRouterData, error) {
	return handlePayment(rd, res, log)
}

func (i void) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.f.BuildErrorResponse(res)
}

type psync struct {
	connector.Defaults[models.PSync, models.PaymentsSyncData, models.PaymentsResponseData]
	f *Fiserv
}

func (i psync) Headers(rd *models.PaymentsSyncRouterData) ([]connector.Header, error) {
	body, err := i.RequestBody(rd)
	if err != nil {
		return nil, err
	}
	return i.f.signedHeaders(rd.ConnectorAuthType, body)
}

func (i psync) URL(*models.PaymentsSyncRouterData) (string, error) {
	return i.f.baseURL + "ch/payments/v1/transaction-inquiry", nil
}

func (i psync) RequestBody(rd *models.PaymentsSyncRouterData) (*connector.RequestContent, error) {
	id, err := rd.Request.ConnectorTransactionID.TransactionID()
	if err != nil {
		return nil, err
	}
	req, err := newInquiryRequest(rd.ConnectorAuthType, id)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(req)
}

// BuildRequest posts the inquiry since the processor takes its reference in
// a signed body.
func (i psync) BuildRequest(rd *models.PaymentsSyncRouterData) (*connector.Request, error) {
	return connector.Build[models.PSync](i, connector.MethodPost, rd)
}

func (i psync) HandleResponse(rd *models.PaymentsSyncRouterData, res connector.Response, log *zap.Logger) (*models.PaymentsSyncRouterData, error) {
	return handleInquiry(rd, res, log)
}

func (i psync) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.f.BuildErrorResponse(res)
}

type refund struct {
	connector.Defaults[models.Execute, models.RefundsData, models.RefundsResponseData]
	f *Fiserv
}

func (i refund) Headers(rd *models.RefundsExecuteRouterData) ([]connector.Header, error) {
	body, err := i.RequestBody(rd)
	if err != nil {
		return nil, err
	}
	return i.f.signedHeaders(rd.ConnectorAuthType, body)
}

func (i refund) URL(*models.RefundsExecuteRouterData) (string, error) {
	return i.f.baseURL + "ch/payments/v1/refunds", nil
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
	return i.f.BuildErrorResponse(res)
}

type rsync struct {
	connector.Defaults[models.RSync, models.RefundsData, models.RefundsResponseData]
	f *Fiserv
}

func (i rsync) Headers(rd *models.RefundsSyncRouterData) ([]connector.Header, error) {
	body, err := i.RequestBody(rd)
	if err != nil {
		return nil, err
	}
	return i.f.signedHeaders(rd.ConnectorAuthType, body)
}

func (i rsync) URL(*models.RefundsSyncRouterData) (string, error) {
	return i.f.baseURL + "ch/payments/v1/transaction-inquiry", nil
}

func (i rsync) RequestBody(rd *models.RefundsSyncRouterData) (*connector.RequestContent, error) {
	if rd.Request.ConnectorRefundID == "" {
		return nil, models.ErrMissingConnectorRefundID
	}
	req, err := newInquiryRequest(rd.ConnectorAuthType, rd.Request.ConnectorRefundID)
	if err != nil {
		return nil, err
	}
	return connector.JSONContent(req)
}

func (i rsync) BuildRequest(rd *models.RefundsSyncRouterData) (*connector.Request, error) {
	return connector.Build[models.RSync](i, connector.MethodPost, rd)
}

func (i rsync) HandleResponse(rd *models.RefundsSyncRouterData, res connector.Response, log *zap.Logger) (*models.RefundsSyncRouterData, error) {
	return handleRefundInquiry(rd, res, log)
}

func (i rsync) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.f.BuildErrorResponse(res)
}
