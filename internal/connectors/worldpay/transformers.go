package worldpay

import (
	"encoding/xml"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/amount"
	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

const serviceVersion = "1.4"

var attemptStatuses = lifecycle.NewAttemptStatusMapper(map[string]models.AttemptStatus{
	"SENT_FOR_AUTHORISATION": models.AttemptAuthorizing,
	"AUTHORISED":             models.AttemptAuthorized,
	"CAPTURE_RECEIVED":       models.AttemptPending,
	"CAPTURED":               models.AttemptCharged,
	"SETTLED":                models.AttemptCharged,
	"SETTLED_BY_MERCHANT":    models.AttemptCharged,
	"SENT_FOR_REFUND":        models.AttemptCharged,
	"REFUNDED":               models.AttemptCharged,
	"REFUNDED_BY_MERCHANT":   models.AttemptCharged,
	"REFUND_FAILED":          models.AttemptCharged,
	"CHARGED_BACK":           models.AttemptCharged,
	"CHARGEBACK_REVERSED":    models.AttemptCharged,
	"INFORMATION_REQUESTED":  models.AttemptCharged,
	"REFUSED":                models.AttemptAuthorizationFailed,
	"CANCELLED":              models.AttemptVoided,
	"ERROR":                  models.AttemptFailure,
	"EXPIRED":                models.AttemptFailure,
}, lifecycle.FallbackPending)

var refundStatuses = lifecycle.NewRefundStatusMapper(map[string]models.RefundStatus{
	"REFUND_RECEIVED":      models.RefundPending,
	"SENT_FOR_REFUND":      models.RefundPending,
	"REFUNDED":             models.RefundSuccess,
	"REFUNDED_BY_MERCHANT": models.RefundSuccess,
	"REFUND_FAILED":        models.RefundFailure,
}, lifecycle.FallbackPending)

// paymentService is the single envelope for requests, replies and
// notifications.
type paymentService struct {
	XMLName      xml.Name `xml:"paymentService"`
	Version      string   `xml:"version,attr"`
	MerchantCode string   `xml:"merchantCode,attr"`
	Submit       *submit  `xml:"submit,omitempty"`
	Modify       *modify  `xml:"modify,omitempty"`
	Inquiry      *inquiry `xml:"inquiry,omitempty"`
	Reply        *reply   `xml:"reply,omitempty"`
	Notify       *notify  `xml:"notify,omitempty"`
}

type xmlAmount struct {
	Value                amount.StringMinorUnit `xml:"value,attr"`
	CurrencyCode         string                 `xml:"currencyCode,attr"`
	Exponent             string                 `xml:"exponent,attr"`
	DebitCreditIndicator string                 `xml:"debitCreditIndicator,attr,omitempty"`
}

func newAmount(value models.MinorUnit, currency models.Currency) (xmlAmount, error) {
	minor, err := amount.StringMinorUnitForConnector.Convert(value, currency)
	if err != nil {
		return xmlAmount{}, err
	}
	return xmlAmount{
		Value:        minor,
		CurrencyCode: currency.Upper(),
		Exponent:     strconv.Itoa(int(currency.Exponent())),
	}, nil
}

type submit struct {
	Order order `xml:"order"`
}

type order struct {
	OrderCode      string         `xml:"orderCode,attr"`
	CaptureDelay   string         `xml:"captureDelay,attr"`
	Description    string         `xml:"description"`
	Amount         xmlAmount      `xml:"amount"`
	PaymentDetails paymentDetails `xml:"paymentDetails"`
	Shopper        *shopper       `xml:"shopper,omitempty"`
}

type paymentDetails struct {
	Card cardSSL `xml:"CARD-SSL"`
}

// cardSSL holds exposed values and exists only inside a request body.
type cardSSL struct {
	CardNumber     string     `xml:"cardNumber"`
	ExpiryDate     expiryDate `xml:"expiryDate"`
	CardHolderName string     `xml:"cardHolderName"`
	CVC            string     `xml:"cvc"`
}

type expiryDate struct {
	Date struct {
		Month string `xml:"month,attr"`
		Year  string `xml:"year,attr"`
	} `xml:"date"`
}

type shopper struct {
	Email string `xml:"shopperEmailAddress"`
}

type modify struct {
	OrderModification orderModification `xml:"orderModification"`
}

type orderModification struct {
	OrderCode string     `xml:"orderCode,attr"`
	Capture   *modAmount `xml:"capture,omitempty"`
	Refund    *modAmount `xml:"refund,omitempty"`
}

type modAmount struct {
	Reference string    `xml:"reference,attr,omitempty"`
	Amount    xmlAmount `xml:"amount"`
}

type inquiry struct {
	OrderInquiry struct {
		OrderCode string `xml:"orderCode,attr"`
	} `xml:"orderInquiry"`
}

func merchantCode(auth models.ConnectorAuthType) (string, error) {
	_, username, err := auth.AsBodyKey()
	if err != nil {
		return "", err
	}
	return username.Expose(), nil
}

func envelope(auth models.ConnectorAuthType) (*paymentService, error) {
	code, err := merchantCode(auth)
	if err != nil {
		return nil, err
	}
	return &paymentService{Version: serviceVersion, MerchantCode: code}, nil
}

func newSubmitOrder(rd *models.PaymentsAuthorizeRouterData) (*paymentService, error) {
	data := rd.Request
	pm := data.PaymentMethodData
	if pm.Kind != models.PaymentMethodCard || pm.Card == nil {
		return nil, models.NotImplemented(pm.Capability())
	}
	var delay string
	switch data.CaptureMethod {
	case "", models.CaptureAutomatic:
		delay = "0"
	case models.CaptureManual:
		delay = "OFF"
	default:
		return nil, models.CaptureMethodNotSupported(data.CaptureMethod)
	}
	if rd.ConnectorRequestReferenceID == "" {
		return nil, models.MissingRequiredField("connector_request_reference_id")
	}
	total, err := newAmount(data.Amount, data.Currency)
	if err != nil {
		return nil, err
	}
	p, err := envelope(rd.ConnectorAuthType)
	if err != nil {
		return nil, err
	}
	description := data.Description
	if description == "" {
		description = rd.PaymentID
	}
	o := order{
		OrderCode:    rd.ConnectorRequestReferenceID,
		CaptureDelay: delay,
		Description:  description,
		Amount:       total,
		PaymentDetails: paymentDetails{Card: cardSSL{
			CardNumber:     pm.Card.Number.Expose(),
			CardHolderName: pm.Card.HolderName.Expose(),
			CVC:            pm.Card.CVC.Expose(),
		}},
	}
	o.PaymentDetails.Card.ExpiryDate.Date.Month = pm.Card.ExpMonth2()
	o.PaymentDetails.Card.ExpiryDate.Date.Year = pm.Card.ExpYear4()
	if email := data.Email.Expose(); email != "" {
		o.Shopper = &shopper{Email: email}
	}
	p.Submit = &submit{Order: o}
	return p, nil
}

func newCaptureModification(rd *models.PaymentsCaptureRouterData) (*paymentService, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}
	total, err := newAmount(rd.Request.AmountToCapture, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	p, err := envelope(rd.ConnectorAuthType)
	if err != nil {
		return nil, err
	}
	p.Modify = &modify{OrderModification: orderModification{
		OrderCode: rd.Request.ConnectorTransactionID,
		Capture:   &modAmount{Reference: rd.ConnectorRequestReferenceID, Amount: total},
	}}
	return p, nil
}

func newRefundModification(rd *models.RefundsExecuteRouterData) (*paymentService, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}
	total, err := newAmount(rd.Request.RefundAmount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	p, err := envelope(rd.ConnectorAuthType)
	if err != nil {
		return nil, err
	}
	p.Modify = &modify{OrderModification: orderModification{
		OrderCode: rd.Request.ConnectorTransactionID,
		Refund:    &modAmount{Reference: rd.Request.RefundID, Amount: total},
	}}
	return p, nil
}

func newOrderInquiry(auth models.ConnectorAuthType, orderCode string) (*paymentService, error) {
	p, err := envelope(auth)
	if err != nil {
		return nil, err
	}
	p.Inquiry = &inquiry{}
	p.Inquiry.OrderInquiry.OrderCode = orderCode
	return p, nil
}

type reply struct {
	OrderStatus *orderStatus `xml:"orderStatus"`
	Ok          *ok          `xml:"ok"`
	Error       *replyError  `xml:"error"`
}

type orderStatus struct {
	OrderCode   string       `xml:"orderCode,attr"`
	Payment     *payment     `xml:"payment"`
	RequestInfo *requestInfo `xml:"requestInfo"`
	Error       *replyError  `xml:"error"`
}

type payment struct {
	PaymentMethod string    `xml:"paymentMethod"`
	Amount        xmlAmount `xml:"amount"`
	LastEvent     string    `xml:"lastEvent"`
}

type requestInfo struct {
	Request3DSecure *struct {
		PaRequest string `xml:"paRequest"`
		IssuerURL string `xml:"issuerURL"`
	} `xml:"request3DSecure"`
}

func (r *requestInfo) redirection(termURL string) *models.RedirectForm {
	if r == nil || r.Request3DSecure == nil || r.Request3DSecure.IssuerURL == "" {
		return nil
	}
	fields := map[string]string{"PaReq": r.Request3DSecure.PaRequest}
	if termURL != "" {
		fields["TermUrl"] = termURL
	}
	return &models.RedirectForm{Endpoint: r.Request3DSecure.IssuerURL, Method: "POST", FormFields: fields}
}

type ok struct {
	CaptureReceived *received `xml:"captureReceived"`
	RefundReceived  *received `xml:"refundReceived"`
}

type received struct {
	OrderCode string    `xml:"orderCode,attr"`
	Amount    xmlAmount `xml:"amount"`
}

type replyError struct {
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

func (e *replyError) canonical() models.ErrorResponse {
	return models.ErrorResponse{Code: e.Code, Message: strings.TrimSpace(e.Message)}
}

func decodeReply(res connector.Response) (*reply, error) {
	parsed, err := connector.DecodeXML[paymentService](res.Body)
	if err != nil {
		return nil, err
	}
	if parsed.Reply == nil {
		return nil, connector.UnexpectedStatus(Name, "reply element missing")
	}
	return parsed.Reply, nil
}

// replyFailure returns the error Worldpay embeds in a 200 reply, if any.
func replyFailure(r *reply, statusCode int) *models.ErrorResponse {
	var e *replyError
	var orderCode string
	switch {
	case r.Error != nil:
		e = r.Error
	case r.OrderStatus != nil && r.OrderStatus.Error != nil:
		e, orderCode = r.OrderStatus.Error, r.OrderStatus.OrderCode
	default:
		return nil
	}
	out := e.canonical()
	out.StatusCode = statusCode
	out.ConnectorTransactionID = orderCode
	if out.Code == "" {
		out.Code = models.NoErrorCode
	}
	if out.Message == "" {
		out.Message = models.NoErrorMessage
	}
	return &out
}

// returnURL is only known to the authorize flow.
func returnURL(req any) string {
	if data, ok := req.(models.PaymentsAuthorizeData); ok {
		return data.ReturnURL
	}
	return ""
}

func handleOrderReply[F models.Flow, Req any](rd *models.RouterData[F, Req, models.PaymentsResponseData], orderCode string, res connector.Response, log *zap.Logger) (*models.RouterData[F, Req, models.PaymentsResponseData], error) {
	r, err := decodeReply(res)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), r)

	out := rd.Clone()
	if failure := replyFailure(r, res.StatusCode); failure != nil {
		out.Response = nil
		out.ErrorResponse = failure
		return out, nil
	}

	var (
		processorStatus string
		redirect        *models.RedirectForm
	)
	switch {
	case r.OrderStatus != nil:
		if r.OrderStatus.OrderCode != "" {
			orderCode = r.OrderStatus.OrderCode
		}
		redirect = r.OrderStatus.RequestInfo.redirection(returnURL(rd.Request))
		if r.OrderStatus.Payment != nil {
			processorStatus = r.OrderStatus.Payment.LastEvent
		} else if redirect == nil {
			return nil, connector.UnexpectedStatus(Name, "order status without payment")
		}
	case r.Ok != nil && r.Ok.CaptureReceived != nil:
		processorStatus = "CAPTURE_RECEIVED"
	default:
		return nil, connector.UnexpectedStatus(Name, "unrecognised reply")
	}
	if orderCode == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}

	next := models.NextActionNone
	if redirect != nil {
		next = models.NextActionRedirectToURL
	}
	out.Status = attemptStatuses.Map(rd.Status, processorStatus, next)
	out.Response = &models.PaymentsResponseData{
		ResourceID:                   models.ConnectorTransactionID(orderCode),
		Redirection:                  redirect,
		ConnectorResponseReferenceID: orderCode,
	}
	out.ErrorResponse = nil
	return out, nil
}

func handleRefundReply[F models.Flow](rd *models.RouterData[F, models.RefundsData, models.RefundsResponseData], res connector.Response, log *zap.Logger) (*models.RouterData[F, models.RefundsData, models.RefundsResponseData], error) {
	r, err := decodeReply(res)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), r)

	out := rd.Clone()
	if failure := replyFailure(r, res.StatusCode); failure != nil {
		out.Response = nil
		out.ErrorResponse = failure
		return out, nil
	}

	var processorStatus string
	switch {
	case r.Ok != nil && r.Ok.RefundReceived != nil:
		processorStatus = "REFUND_RECEIVED"
	case r.OrderStatus != nil && r.OrderStatus.Payment != nil:
		processorStatus = r.OrderStatus.Payment.LastEvent
	default:
		return nil, connector.UnexpectedStatus(Name, "unrecognised refund reply")
	}

	// Worldpay has no refund id; the refund reference sent with the
	// modification identifies it.
	refundID := rd.Request.ConnectorRefundID
	if refundID == "" {
		refundID = rd.Request.RefundID
	}
	if refundID == "" {
		return nil, models.ErrMissingConnectorRefundID
	}
	out.Response = &models.RefundsResponseData{
		ConnectorRefundID: refundID,
		RefundStatus:      refundStatuses.Map(rd.Request.RefundStatus, processorStatus),
	}
	out.ErrorResponse = nil
	return out, nil
}
