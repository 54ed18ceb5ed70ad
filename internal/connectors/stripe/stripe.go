// Package stripe integrates Stripe PaymentIntents through the
// new-generation contract.
package stripe

import (
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

const (
	Name           = "stripe"
	DefaultBaseURL = "https://api.stripe.com/"
)

// Stripe is a new-generation connector for the Stripe PaymentIntents API.
type Stripe struct {
	baseURL string
}

// New returns a Stripe connector rooted at baseURL, or at the public API when empty.
func New(baseURL string) *Stripe {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Stripe{baseURL: baseURL}
}

func (s *Stripe) ID() string                { return Name }
func (s *Stripe) BaseURL() string           { return s.baseURL }
func (s *Stripe) CommonContentType() string { return connector.ContentTypeForm }

func (s *Stripe) AuthHeaders(auth models.ConnectorAuthType) ([]connector.Header, error) {
	key, err := auth.AsHeaderKey()
	if err != nil {
		return nil, err
	}
	return []connector.Header{connector.MaskedHeader(connector.HeaderAuthorization, "Bearer "+key.Expose())}, nil
}

func (s *Stripe) BuildErrorResponse(res connector.Response) models.ErrorResponse {
	return connector.ParseErrorResponse(res, connector.DecodeJSON[errorResponse], func(e errorResponse) models.ErrorResponse {
		out := models.ErrorResponse{Code: e.Error.Code, Message: e.Error.Message, Reason: e.Error.DeclineCode}
		if e.Error.PaymentIntent != nil {
			out.ConnectorTransactionID = e.Error.PaymentIntent.ID
		}
		return out
	})
}

func (s *Stripe) Metadata() connector.Metadata {
	return connector.Metadata{
		DisplayName:    "Stripe",
		Generation:     connector.GenerationV2,
		PaymentMethods: []models.PaymentMethodKind{models.PaymentMethodCard, models.PaymentMethodWallet},
		CaptureMethods: []models.CaptureMethod{models.CaptureAutomatic, models.CaptureManual},
		WebhookFlows: []models.WebhookFlow{
			models.WebhookFlowPayment, models.WebhookFlowRefund,
			models.WebhookFlowDispute, models.WebhookFlowRecovery,
		},
	}
}

func (s *Stripe) Flows() connector.FlowSet {
	set := connector.FlowSet{}
	connector.Register(set, connector.V2[models.Authorize, models.PaymentFlowData, models.PaymentsAuthorizeData, models.PaymentsResponseData](authorize{s: s}))
	connector.Register(set, connector.V2[models.Capture, models.PaymentFlowData, models.PaymentsCaptureData, models.PaymentsResponseData](capture{s: s}))
	connector.Register(set, connector.V2[models.Void, models.PaymentFlowData, models.PaymentsCancelData, models.PaymentsResponseData](void{s: s}))
	connector.Register(set, connector.V2[models.PSync, models.PaymentFlowData, models.PaymentsSyncData, models.PaymentsResponseData](psync{s: s}))
	connector.Register(set, connector.V2[models.Execute, models.RefundFlowData, models.RefundsData, models.RefundsResponseData](refund{s: s}))
	connector.Register(set, connector.V2[models.RSync, models.RefundFlowData, models.RefundsData, models.RefundsResponseData](rsync{s: s}))
	return set
}

// headers adds the idempotency key for calls that change processor state.
func (s *Stripe) headers(auth models.ConnectorAuthType, flow models.FlowName, reference string) ([]connector.Header, error) {
	headers, err := s.AuthHeaders(auth)
	if err != nil {
		return nil, err
	}
	headers = append(headers, connector.PlainHeader(connector.HeaderContentType, connector.ContentTypeForm))
	if flow.MutatesProcessorState() && reference != "" {
		headers = append(headers, connector.PlainHeader(connector.HeaderIdempotencyKey, reference))
	}
	return headers, nil
}

type (
	authorizeData = models.RouterDataV2[models.Authorize, models.PaymentFlowData, models.PaymentsAuthorizeData, models.PaymentsResponseData]
	captureData   = models.RouterDataV2[models.Capture, models.PaymentFlowData, models.PaymentsCaptureData, models.PaymentsResponseData]
	voidData      = models.RouterDataV2[models.Void, models.PaymentFlowData, models.PaymentsCancelData, models.PaymentsResponseData]
	psyncData     = models.RouterDataV2[models.PSync, models.PaymentFlowData, models.PaymentsSyncData, models.PaymentsResponseData]
	refundData    = models.RouterDataV2[models.Execute, models.RefundFlowData, models.RefundsData, models.RefundsResponseData]
	rsyncData     = models.RouterDataV2[models.RSync, models.RefundFlowData, models.RefundsData, models.RefundsResponseData]
)

type authorize struct {
	connector.DefaultsV2[models.Authorize, models.PaymentFlowData, models.PaymentsAuthorizeData, models.PaymentsResponseData]
	connector.PaymentFlowShape[models.Authorize, models.PaymentsAuthorizeData, models.PaymentsResponseData]
	s *Stripe
}

func (i authorize) Headers(rd *authorizeData) ([]connector.Header, error) {
	return i.s.headers(rd.ConnectorAuthType, rd.FlowName(), rd.ResourceCommonData.ConnectorRequestReferenceID)
}

func (i authorize) ContentType() string { return connector.ContentTypeForm }

func (i authorize) URL(*authorizeData) (string, error) {
	return i.s.baseURL + "v1/payment_intents", nil
}

func (i authorize) RequestBody(rd *authorizeData) (*connector.RequestContent, error) {
	form, err := paymentIntentForm(rd)
	if err != nil {
		return nil, err
	}
	return connector.FormContent(form), nil
}

func (i authorize) BuildRequest(rd *authorizeData) (*connector.Request, error) {
	return connector.BuildV2[models.Authorize, models.PaymentFlowData](i, connector.MethodPost, rd)
}

func (i authorize) HandleResponse(rd *authorizeData, res connector.Response, log *zap.Logger) (*authorizeData, error) {
	return handlePaymentIntent(rd, res, log)
}

func (i authorize) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.s.BuildErrorResponse(res)
}

type capture struct {
	connector.DefaultsV2[models.Capture, models.PaymentFlowData, models.PaymentsCaptureData, models.PaymentsResponseData]
	connector.PaymentFlowShape[models.Capture, models.PaymentsCaptureData, models.PaymentsResponseData]
	s *Stripe
}

func (i capture) Headers(rd *captureData) ([]connector.Header, error) {
	return i.s.headers(rd.ConnectorAuthType, rd.FlowName(), rd.ResourceCommonData.ConnectorRequestReferenceID)
}

func (i capture) ContentType() string { return connector.ContentTypeForm }

func (i capture) URL(rd *captureData) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", models.ErrMissingConnectorTransactionID
	}
	return i.s.baseURL + "v1/payment_intents/" + rd.Request.ConnectorTransactionID + "/capture", nil
}

func (i capture) RequestBody(rd *captureData) (*connector.RequestContent, error) {
	form, err := captureForm(rd)
	if err != nil {
		return nil, err
	}
	return connector.FormContent(form), nil
}

func (i capture) BuildRequest(rd *captureData) (*connector.Request, error) {
	return connector.BuildV2[models.Capture, models.PaymentFlowData](i, connector.MethodPost, rd)
}

func (i capture) HandleResponse(rd *captureData, res connector.Response, log *zap.Logger) (*captureData, error) {
	return handlePaymentIntent(rd, res, log)
}

func (i capture) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.s.BuildErrorResponse(res)
}

type void struct {
	connector.DefaultsV2[models.Void, models.PaymentFlowData, models.PaymentsCancelData, models.PaymentsResponseData]
	connector.PaymentFlowShape[models.Void, models.PaymentsCancelData, models.PaymentsResponseData]
	s *Stripe
}

func (i void) Headers(rd *voidData) ([]connector.Header, error) {
	return i.s.headers(rd.ConnectorAuthType, rd.FlowName(), rd.ResourceCommonData.ConnectorRequestReferenceID)
}

func (i void) ContentType() string { return connector.ContentTypeForm }

func (i void) URL(rd *voidData) (string, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return "", models.ErrMissingConnectorTransactionID
	}
	return i.s.baseURL + "v1/payment_intents/" + rd.Request.ConnectorTransactionID + "/cancel", nil
}

func (i void) RequestBody(rd *voidData) (*connector.RequestContent, error) {
	return connector.FormContent(cancelForm(rd.Request.CancellationReason)), nil
}

func (i void) BuildRequest(rd *voidData) (*connector.Request, error) {
	return connector.BuildV2[models.Void, models.PaymentFlowData](i, connector.MethodPost, rd)
}

func (i void) HandleResponse(rd *voidData, res connector.Response, log *zap.Logger) (*voidData, error) {
	return handlePaymentIntent(rd, res, log)
}

func (i void) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.s.BuildErrorResponse(res)
}

type psync struct {
	connector.DefaultsV2[models.PSync, models.PaymentFlowData, models.PaymentsSyncData, models.PaymentsResponseData]
	connector.PaymentFlowShape[models.PSync, models.PaymentsSyncData, models.PaymentsResponseData]
	s *Stripe
}

func (i psync) Headers(rd *psyncData) ([]connector.Header, error) {
	return i.s.headers(rd.ConnectorAuthType, rd.FlowName(), "")
}

func (i psync) URL(rd *psyncData) (string, error) {
	id, err := rd.Request.ConnectorTransactionID.TransactionID()
	if err != nil {
		return "", err
	}
	return i.s.baseURL + "v1/payment_intents/" + id, nil
}

func (i psync) BuildRequest(rd *psyncData) (*connector.Request, error) {
	return connector.BuildV2[models.PSync, models.PaymentFlowData](i, connector.MethodGet, rd)
}

func (i psync) HandleResponse(rd *psyncData, res connector.Response, log *zap.Logger) (*psyncData, error) {
	return handlePaymentIntent(rd, res, log)
}

func (i psync) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.s.BuildErrorResponse(res)
}

type refund struct {
	connector.DefaultsV2[models.Execute, models.RefundFlowData, models.RefundsData, models.RefundsResponseData]
	connector.RefundFlowShape[models.Execute, models.RefundsData, models.RefundsResponseData]
	s *Stripe
}

func (i refund) Headers(rd *refundData) ([]connector.Header, error) {
	return i.s.headers(rd.ConnectorAuthType, rd.FlowName(), rd.ResourceCommonData.ConnectorRequestReferenceID)
}

func (i refund) ContentType() string { return connector.ContentTypeForm }

func (i refund) URL(*refundData) (string, error) {
	return i.s.baseURL + "v1/refunds", nil
}

func (i refund) RequestBody(rd *refundData) (*connector.RequestContent, error) {
	form, err := refundForm(rd)
	if err != nil {
		return nil, err
	}
	return connector.FormContent(form), nil
}

func (i refund) BuildRequest(rd *refundData) (*connector.Request, error) {
	return connector.BuildV2[models.Execute, models.RefundFlowData](i, connector.MethodPost, rd)
}

func (i refund) HandleResponse(rd *refundData, res connector.Response, log *zap.Logger) (*refundData, error) {
	return handleRefund(rd, res, log)
}

func (i refund) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.s.BuildErrorResponse(res)
}

type rsync struct {
	connector.DefaultsV2[models.RSync, models.RefundFlowData, models.RefundsData, models.RefundsResponseData]
	connector.RefundFlowShape[models.RSync, models.RefundsData, models.RefundsResponseData]
	s *Stripe
}

func (i rsync) Headers(rd *rsyncData) ([]connector.Header, error) {
	return i.s.headers(rd.ConnectorAuthType, rd.FlowName(), "")
}

func (i rsync) URL(rd *rsyncData) (string, error) {
	if rd.Request.ConnectorRefundID == "" {
		return "", models.ErrMissingConnectorRefundID
	}
	return i.s.baseURL + "v1/refunds/" + rd.Request.ConnectorRefundID, nil
}

func (i rsync) BuildRequest(rd *rsyncData) (*connector.Request, error) {
	return connector.BuildV2[models.RSync, models.RefundFlowData](i, connector.MethodGet, rd)
}

func (i rsync) HandleResponse(rd *rsyncData, res connector.Response, log *zap.Logger) (*rsyncData, error) {
	return handleRefund(rd, res, log)
}

func (i rsync) ErrorResponse(res connector.Response) models.ErrorResponse {
	return i.s.BuildErrorResponse(res)
}
