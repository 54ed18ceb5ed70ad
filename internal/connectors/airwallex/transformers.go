package airwallex

import (
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/amount"
	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

var attemptStatuses = lifecycle.NewAttemptStatusMapper(map[string]models.AttemptStatus{
	"SUCCEEDED":                models.AttemptCharged,
	"REQUIRES_CAPTURE":         models.AttemptAuthorized,
	"REQUIRES_PAYMENT_METHOD":  models.AttemptPaymentMethodAwaited,
	"REQUIRES_CUSTOMER_ACTION": models.AttemptAuthenticationPending,
	"PENDING":                  models.AttemptPending,
	"CANCELLED":                models.AttemptVoided,
	"FAILED":                   models.AttemptFailure,
}, lifecycle.FallbackPending)

var refundStatuses = lifecycle.NewRefundStatusMapper(map[string]models.RefundStatus{
	"RECEIVED": models.RefundPending,
	"ACCEPTED": models.RefundPending,
	"SETTLED":  models.RefundSuccess,
	"FAILED":   models.RefundFailure,
}, lifecycle.FallbackPending)

type paymentIntentRequest struct {
	RequestID            string                 `json:"request_id"`
	Amount               amount.StringMajorUnit `json:"amount"`
	Currency             string                 `json:"currency"`
	MerchantOrderID      string                 `json:"merchant_order_id"`
	PaymentMethod        paymentMethod          `json:"payment_method"`
	PaymentMethodOptions paymentMethodOptions   `json:"payment_method_options"`
	ReturnURL            string                 `json:"return_url,omitempty"`
	Descriptor           string                 `json:"descriptor,omitempty"`
}

type paymentMethod struct {
	Type string `json:"type"`
	Card card   `json:"card"`
}

// card holds exposed values and exists only inside a request body.
type card struct {
	Number      string `json:"number"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
	CVC         string `json:"cvc"`
	Name        string `json:"name,omitempty"`
}

type paymentMethodOptions struct {
	Card cardOptions `json:"card"`
}

type cardOptions struct {
	AutoCapture bool `json:"auto_capture"`
}

func newPaymentIntentRequest(rd *models.PaymentsAuthorizeRouterData) (*paymentIntentRequest, error) {
	data := rd.Request
	pm := data.PaymentMethodData
	if pm.Kind != models.PaymentMethodCard || pm.Card == nil {
		return nil, models.NotImplemented(pm.Capability())
	}
	autoCapture := true
	switch data.CaptureMethod {
	case "", models.CaptureAutomatic:
	case models.CaptureManual:
		autoCapture = false
	default:
		return nil, models.CaptureMethodNotSupported(data.CaptureMethod)
	}
	value, err := amount.StringMajorUnitForConnector.Convert(data.Amount, data.Currency)
	if err != nil {
		return nil, err
	}
	if rd.ConnectorRequestReferenceID == "" {
		return nil, models.MissingRequiredField("connector_request_reference_id")
	}
	return &paymentIntentRequest{
		RequestID:       rd.ConnectorRequestReferenceID,
		Amount:          value,
		Currency:        data.Currency.Upper(),
		MerchantOrderID: rd.PaymentID,
		PaymentMethod: paymentMethod{
			Type: "card",
			Card: card{
				Number:      pm.Card.Number.Expose(),
				ExpiryMonth: pm.Card.ExpMonth2(),
				ExpiryYear:  pm.Card.ExpYear4(),
				CVC:         pm.Card.CVC.Expose(),
				Name:        pm.Card.HolderName.Expose(),
			},
		},
		PaymentMethodOptions: paymentMethodOptions{Card: cardOptions{AutoCapture: autoCapture}},
		ReturnURL:            data.ReturnURL,
		Descriptor:           data.Description,
	}, nil
}

type captureRequest struct {
	RequestID string                 `json:"request_id"`
	Amount    amount.StringMajorUnit `json:"amount"`
}

func newCaptureRequest(rd *models.PaymentsCaptureRouterData) (*captureRequest, error) {
	value, err := amount.StringMajorUnitForConnector.Convert(rd.Request.AmountToCapture, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return &captureRequest{RequestID: rd.ConnectorRequestReferenceID, Amount: value}, nil
}

type cancelRequest struct {
	RequestID          string `json:"request_id"`
	CancellationReason string `json:"cancellation_reason,omitempty"`
}

type refundRequest struct {
	RequestID       string                 `json:"request_id"`
	PaymentIntentID string                 `json:"payment_intent_id"`
	Amount          amount.StringMajorUnit `json:"amount"`
	Reason          string                 `json:"reason,omitempty"`
}

func newRefundRequest(rd *models.RefundsExecuteRouterData) (*refundRequest, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}
	value, err := amount.StringMajorUnitForConnector.Convert(rd.Request.RefundAmount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return &refundRequest{
		RequestID:       rd.ConnectorRequestReferenceID,
		PaymentIntentID: rd.Request.ConnectorTransactionID,
		Amount:          value,
		Reason:          rd.Request.Reason,
	}, nil
}

type paymentIntentResponse struct {
	ID                   string      `json:"id"`
	Status               string      `json:"status"`
	Amount               float64     `json:"amount"`
	Currency             string      `json:"currency"`
	NextAction           *nextAction `json:"next_action,omitempty"`
	LatestPaymentAttempt *struct {
		ID                    string `json:"id"`
		AuthenticationData    any    `json:"authentication_data,omitempty"`
		ProviderTransactionID string `json:"provider_transaction_id,omitempty"`
	} `json:"latest_payment_attempt,omitempty"`
}

type nextAction struct {
	Type   string            `json:"type"`
	Stage  string            `json:"stage,omitempty"`
	URL    string            `json:"url,omitempty"`
	Method string            `json:"method,omitempty"`
	Data   map[string]string `json:"data,omitempty"`
}

// canonical maps the processor's next action onto the switch's.
func (n *nextAction) canonical() models.NextAction {
	if n == nil {
		return models.NextActionNone
	}
	switch n.Stage {
	case "WAITING_DEVICE_DATA_COLLECTION":
		return models.NextActionWaitingDeviceDataCollection
	case "WAITING_USER_INFO_INPUT":
		return models.NextActionRequiresCustomerAction
	}
	if n.Type == "redirect" && n.URL != "" {
		return models.NextActionRedirectToURL
	}
	return models.NextActionNone
}

func (n *nextAction) redirection() *models.RedirectForm {
	if n == nil || n.URL == "" {
		return nil
	}
	method := n.Method
	if method == "" {
		method = "GET"
	}
	return &models.RedirectForm{Endpoint: n.URL, Method: method, FormFields: n.Data}
}

func handlePaymentIntent[F models.Flow, Req any](rd *models.RouterData[F, Req, models.PaymentsResponseData], res connector.Response, log *zap.Logger) (*models.RouterData[F, Req, models.PaymentsResponseData], error) {
	parsed, err := connector.DecodeJSON[paymentIntentResponse](res.Body)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), parsed)
	if parsed.ID == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}

	out := rd.Clone()
	out.Status = attemptStatuses.Map(rd.Status, parsed.Status, parsed.NextAction.canonical())
	resp := models.PaymentsResponseData{
		ResourceID:                   models.ConnectorTransactionID(parsed.ID),
		Redirection:                  parsed.NextAction.redirection(),
		ConnectorResponseReferenceID: parsed.ID,
	}
	if parsed.LatestPaymentAttempt != nil {
		resp.NetworkTxnID = parsed.LatestPaymentAttempt.ProviderTransactionID
	}
	out.Response = &resp
	out.ErrorResponse = nil
	return out, nil
}

type refundResponse struct {
	ID              string  `json:"id"`
	PaymentIntentID string  `json:"payment_intent_id"`
	Status          string  `json:"status"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
}

func handleRefund[F models.Flow](rd *models.RouterData[F, models.RefundsData, models.RefundsResponseData], res connector.Response, log *zap.Logger) (*models.RouterData[F, models.RefundsData, models.RefundsResponseData], error) {
	parsed, err := connector.DecodeJSON[refundResponse](res.Body)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), parsed)
	if parsed.ID == "" {
		return nil, models.ErrMissingConnectorRefundID
	}
	out := rd.Clone()
	out.Response = &models.RefundsResponseData{
		ConnectorRefundID: parsed.ID,
		RefundStatus:      refundStatuses.Map(rd.Request.RefundStatus, parsed.Status),
	}
	out.ErrorResponse = nil
	return out, nil
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Source  string `json:"source,omitempty"`
}
