package stripe

import (
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/amount"
	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

var attemptStatuses = lifecycle.NewAttemptStatusMapper(map[string]models.AttemptStatus{
	"succeeded":               models.AttemptCharged,
	"requires_capture":        models.AttemptAuthorized,
	"requires_payment_method": models.AttemptPaymentMethodAwaited,
	"requires_confirmation":   models.AttemptPending,
	"requires_action":         models.AttemptAuthenticationPending,
	"processing":              models.AttemptAuthorizing,
	"canceled":                models.AttemptVoided,
}, lifecycle.FallbackPending)

var refundStatuses = lifecycle.NewRefundStatusMapper(map[string]models.RefundStatus{
	"pending":         models.RefundPending,
	"requires_action": models.RefundPending,
	"succeeded":       models.RefundSuccess,
	"failed":          models.RefundFailure,
	"canceled":        models.RefundFailure,
}, lifecycle.FallbackPending)

func minorString(value models.MinorUnit, currency models.Currency) (string, error) {
	minor, err := amount.MinorUnitForConnector.Convert(value, currency)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(int64(minor), 10), nil
}

func paymentIntentForm(rd *authorizeData) (url.Values, error) {
	data := rd.Request
	pm := data.PaymentMethodData
	form := url.Values{}
	switch {
	case pm.Kind == models.PaymentMethodCard && pm.Card != nil:
		form.Set("payment_method_data[type]", "card")
		form.Set("payment_method_data[card][number]", pm.Card.Number.Expose())
		form.Set("payment_method_data[card][exp_month]", pm.Card.ExpMonth2())
		form.Set("payment_method_data[card][exp_year]", pm.Card.ExpYear4())
		form.Set("payment_method_data[card][cvc]", pm.Card.CVC.Expose())
		if name := pm.Card.HolderName.Expose(); name != "" {
			form.Set("payment_method_data[billing_details][name]", name)
		}
	case pm.Kind == models.PaymentMethodWallet && pm.Wallet != nil && pm.Wallet.Token.Expose() != "":
		form.Set("payment_method_data[type]", "card")
		form.Set("payment_method_data[card][token]", pm.Wallet.Token.Expose())
	default:
		return nil, models.NotImplemented(pm.Capability())
	}

	switch data.CaptureMethod {
	case "", models.CaptureAutomatic:
		form.Set("capture_method", "automatic")
	case models.CaptureManual:
		form.Set("capture_method", "manual")
	default:
		return nil, models.CaptureMethodNotSupported(data.CaptureMethod)
	}

	value, err := minorString(data.Amount, data.Currency)
	if err != nil {
		return nil, err
	}
	form.Set("amount", value)
	form.Set("currency", data.Currency.Lower())
	form.Set("confirm", "true")
	form.Set("metadata[order_id]", rd.ResourceCommonData.PaymentID)
	form.Set("metadata[attempt_id]", rd.ResourceCommonData.AttemptID)
	if data.ReturnURL != "" {
		form.Set("return_url", data.ReturnURL)
	}
	if data.Description != "" {
		form.Set("description", data.Description)
	}
	if email := data.Email.Expose(); email != "" {
		form.Set("receipt_email", email)
	}
	return form, nil
}

func captureForm(rd *captureData) (url.Values, error) {
	value, err := minorString(rd.Request.AmountToCapture, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	return url.Values{"amount_to_capture": {value}}, nil
}

var cancellationReasons = map[string]bool{
	"duplicate":             true,
	"fraudulent":            true,
	"requested_by_customer": true,
	"abandoned":             true,
}

// cancelForm only forwards reasons the processor accepts.
func cancelForm(reason string) url.Values {
	form := url.Values{}
	if cancellationReasons[reason] {
		form.Set("cancellation_reason", reason)
	}
	return form
}

func refundForm(rd *refundData) (url.Values, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}
	value, err := minorString(rd.Request.RefundAmount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	form := url.Values{}
	form.Set("payment_intent", rd.Request.ConnectorTransactionID)
	form.Set("amount", value)
	form.Set("metadata[refund_id]", rd.ResourceCommonData.RefundID)
	form.Set("metadata[order_id]", rd.ResourceCommonData.PaymentID)
	return form, nil
}

type paymentIntentResponse struct {
	ID             string      `json:"id"`
	Object         string      `json:"object"`
	Status         string      `json:"status"`
	Amount         int64       `json:"amount"`
	Currency       string      `json:"currency"`
	LatestCharge   string      `json:"latest_charge,omitempty"`
	NextAction     *nextAction `json:"next_action,omitempty"`
	LastPaymentErr *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"last_payment_error,omitempty"`
}

type nextAction struct {
	Type          string `json:"type"`
	RedirectToURL *struct {
		URL       string `json:"url"`
		ReturnURL string `json:"return_url"`
	} `json:"redirect_to_url,omitempty"`
}

func (n *nextAction) canonical() models.NextAction {
	if n == nil {
		return models.NextActionNone
	}
	switch n.Type {
	case "redirect_to_url":
		if n.RedirectToURL != nil && n.RedirectToURL.URL != "" {
			return models.NextActionRedirectToURL
		}
	case "use_stripe_sdk":
		return models.NextActionRequiresCustomerAction
	}
	return models.NextActionNone
}

func (n *nextAction) redirection() *models.RedirectForm {
	if n == nil || n.RedirectToURL == nil || n.RedirectToURL.URL == "" {
		return nil
	}
	return &models.RedirectForm{Endpoint: n.RedirectToURL.URL, Method: "GET"}
}

func handlePaymentIntent[F models.Flow, Req any](rd *models.RouterDataV2[F, models.PaymentFlowData, Req, models.PaymentsResponseData], res connector.Response, log *zap.Logger) (*models.RouterDataV2[F, models.PaymentFlowData, Req, models.PaymentsResponseData], error) {
	parsed, err := connector.DecodeJSON[paymentIntentResponse](res.Body)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), parsed)
	if parsed.ID == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}

	out := *rd
	current := rd.ResourceCommonData.Status
	out.ResourceCommonData.Status = attemptStatuses.Map(current, parsed.Status, parsed.NextAction.canonical())
	out.Response = &models.PaymentsResponseData{
		ResourceID:                   models.ConnectorTransactionID(parsed.ID),
		Redirection:                  parsed.NextAction.redirection(),
		NetworkTxnID:                 parsed.LatestCharge,
		ConnectorResponseReferenceID: parsed.ID,
	}
	out.ErrorResponse = nil
	if parsed.LastPaymentErr != nil && out.ResourceCommonData.Status == models.AttemptPaymentMethodAwaited {
		out.ErrorResponse = &models.ErrorResponse{
			StatusCode:             res.StatusCode,
			Code:                   parsed.LastPaymentErr.Code,
			Message:                parsed.LastPaymentErr.Message,
			ConnectorTransactionID: parsed.ID,
		}
	}
	return &out, nil
}

type refundResponse struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	PaymentIntent string `json:"payment_intent"`
	Status        string `json:"status"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	FailureReason string `json:"failure_reason,omitempty"`
	Metadata      struct {
		RefundID string `json:"refund_id,omitempty"`
	} `json:"metadata"`
}

func handleRefund[F models.Flow](rd *models.RouterDataV2[F, models.RefundFlowData, models.RefundsData, models.RefundsResponseData], res connector.Response, log *zap.Logger) (*models.RouterDataV2[F, models.RefundFlowData, models.RefundsData, models.RefundsResponseData], error) {
	parsed, err := connector.DecodeJSON[refundResponse](res.Body)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), parsed)
	if parsed.ID == "" {
		return nil, models.ErrMissingConnectorRefundID
	}
	out := *rd
	out.Response = &models.RefundsResponseData{
		ConnectorRefundID: parsed.ID,
		RefundStatus:      refundStatuses.Map(rd.Request.RefundStatus, parsed.Status),
	}
	out.ErrorResponse = nil
	return &out, nil
}

type errorResponse struct {
	Error struct {
		Type          string `json:"type"`
		Code          string `json:"code"`
		Message       string `json:"message"`
		DeclineCode   string `json:"decline_code,omitempty"`
		PaymentIntent *struct {
			ID string `json:"id"`
		} `json:"payment_intent,omitempty"`
	} `json:"error"`
}
