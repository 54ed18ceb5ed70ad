package paystack

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/amount"
	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

var attemptStatuses = lifecycle.NewAttemptStatusMapper(map[string]models.AttemptStatus{
	"success":       models.AttemptCharged,
	"failed":        models.AttemptFailure,
	"abandoned":     models.AttemptFailure,
	"reversed":      models.AttemptVoided,
	"ongoing":       models.AttemptAuthorizing,
	"processing":    models.AttemptAuthorizing,
	"pending":       models.AttemptPending,
	"pay_offline":   models.AttemptPending,
	"queued":        models.AttemptPending,
	"send_pin":      models.AttemptAuthenticationPending,
	"send_otp":      models.AttemptAuthenticationPending,
	"send_phone":    models.AttemptAuthenticationPending,
	"send_birthday": models.AttemptAuthenticationPending,
	"send_address":  models.AttemptAuthenticationPending,
	"open_url":      models.AttemptAuthenticationPending,
}, lifecycle.FallbackPending)

var refundStatuses = lifecycle.NewRefundStatusMapper(map[string]models.RefundStatus{
	"pending":         models.RefundPending,
	"processing":      models.RefundPending,
	"needs-attention": models.RefundPending,
	"processed":       models.RefundSuccess,
	"failed":          models.RefundFailure,
}, lifecycle.FallbackPending)

// customerActions are the statuses where Paystack waits on the shopper.
var customerActions = map[string]bool{
	"send_pin":      true,
	"send_otp":      true,
	"send_phone":    true,
	"send_birthday": true,
	"send_address":  true,
}

type chargeRequest struct {
	Email        string            `json:"email"`
	Amount       models.MinorUnit  `json:"amount"`
	Currency     string            `json:"currency"`
	Reference    string            `json:"reference"`
	Card         *card             `json:"card,omitempty"`
	BankTransfer *struct{}         `json:"bank_transfer,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// card holds exposed values and exists only inside a request body.
type card struct {
	Number      string `json:"number"`
	CVV         string `json:"cvv"`
	ExpiryMonth string `json:"expiry_month"`
	ExpiryYear  string `json:"expiry_year"`
}

func newChargeRequest(rd *authorizeData) (*chargeRequest, error) {
	data := rd.Request
	switch data.CaptureMethod {
	case "", models.CaptureAutomatic:
	default:
		return nil, models.CaptureMethodNotSupported(data.CaptureMethod)
	}
	email := data.Email.Expose()
	if email == "" {
		return nil, models.MissingRequiredField("email")
	}
	reference := rd.ResourceCommonData.ConnectorRequestReferenceID
	if reference == "" {
		return nil, models.MissingRequiredField("connector_request_reference_id")
	}
	value, err := amount.MinorUnitForConnector.Convert(data.Amount, data.Currency)
	if err != nil {
		return nil, err
	}
	req := &chargeRequest{
		Email:     email,
		Amount:    value,
		Currency:  data.Currency.Upper(),
		Reference: reference,
		Metadata: map[string]string{
			"payment_id": rd.ResourceCommonData.PaymentID,
			"attempt_id": rd.ResourceCommonData.AttemptID,
		},
	}
	pm := data.PaymentMethodData
	switch {
	case pm.Kind == models.PaymentMethodCard && pm.Card != nil:
		req.Card = &card{
			Number:      pm.Card.Number.Expose(),
			CVV:         pm.Card.CVC.Expose(),
			ExpiryMonth: pm.Card.ExpMonth2(),
			ExpiryYear:  pm.Card.ExpYear4(),
		}
	case pm.Kind == models.PaymentMethodBankTransfer:
		req.BankTransfer = &struct{}{}
	default:
		return nil, models.NotImplemented(pm.Capability())
	}
	return req, nil
}

type refundRequest struct {
	Transaction  string           `json:"transaction"`
	Amount       models.MinorUnit `json:"amount"`
	Currency     string           `json:"currency"`
	MerchantNote string           `json:"merchant_note,omitempty"`
}

func newRefundRequest(rd *refundData) (*refundRequest, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}
	value, err := amount.MinorUnitForConnector.Convert(rd.Request.RefundAmount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return &refundRequest{
		Transaction:  rd.Request.ConnectorTransactionID,
		Amount:       value,
		Currency:     rd.Request.Currency.Upper(),
		MerchantNote: rd.Request.Reason,
	}, nil
}

type chargeResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID          json.Number `json:"id"`
		Reference   string      `json:"reference"`
		Status      string      `json:"status"`
		URL         string      `json:"url,omitempty"`
		DisplayText string      `json:"display_text,omitempty"`
		GatewayResp string      `json:"gateway_response,omitempty"`
	} `json:"data"`
}

func (c chargeResponse) nextAction() models.NextAction {
	switch {
	case c.Data.Status == "open_url" && c.Data.URL != "":
		return models.NextActionRedirectToURL
	case customerActions[c.Data.Status]:
		return models.NextActionRequiresCustomerAction
	}
	return models.NextActionNone
}

func handleCharge[F models.Flow, Req any](rd *models.RouterDataV2[F, models.PaymentFlowData, Req, models.PaymentsResponseData], res connector.Response, log *zap.Logger) (*models.RouterDataV2[F, models.PaymentFlowData, Req, models.PaymentsResponseData], error) {
	parsed, err := connector.DecodeJSON[chargeResponse](res.Body)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), parsed)
	if parsed.Data.Reference == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}

	out := *rd
	out.ResourceCommonData.Status = attemptStatuses.Map(rd.ResourceCommonData.Status, parsed.Data.Status, parsed.nextAction())
	resp := &models.PaymentsResponseData{
		ResourceID:                   models.ConnectorTransactionID(parsed.Data.Reference),
		ConnectorResponseReferenceID: parsed.Data.ID.String(),
	}
	if parsed.nextAction() == models.NextActionRedirectToURL {
		resp.Redirection = &models.RedirectForm{Endpoint: parsed.Data.URL, Method: "GET"}
	}
	out.Response = resp
	out.ErrorResponse = nil
	return &out, nil
}

type refundResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID          json.Number `json:"id"`
		Status      string      `json:"status"`
		Amount      int64       `json:"amount"`
		Currency    string      `json:"currency"`
		Transaction struct {
			Reference string `json:"reference"`
		} `json:"transaction"`
	} `json:"data"`
}

func handleRefund[F models.Flow](rd *models.RouterDataV2[F, models.RefundFlowData, models.RefundsData, models.RefundsResponseData], res connector.Response, log *zap.Logger) (*models.RouterDataV2[F, models.RefundFlowData, models.RefundsData, models.RefundsResponseData], error) {
	parsed, err := connector.DecodeJSON[refundResponse](res.Body)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), parsed)
	id := parsed.Data.ID.String()
	if id == "" {
		return nil, models.ErrMissingConnectorRefundID
	}
	out := *rd
	out.Response = &models.RefundsResponseData{
		ConnectorRefundID: id,
		RefundStatus:      refundStatuses.Map(rd.Request.RefundStatus, parsed.Data.Status),
	}
	out.ErrorResponse = nil
	return &out, nil
}

type errorResponse struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Meta    struct {
		NextStep string `json:"nextStep,omitempty"`
	} `json:"meta"`
}
