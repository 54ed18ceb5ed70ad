package fiserv

import (
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/amount"
	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

var attemptStatuses = lifecycle.NewAttemptStatusMapper(map[string]models.AttemptStatus{
	"AUTHORIZED": models.AttemptAuthorized,
	"CAPTURED":   models.AttemptCharged,
	"SETTLED":    models.AttemptCharged,
	"DECLINED":   models.AttemptFailure,
	"REJECTED":   models.AttemptFailure,
	"VOIDED":     models.AttemptVoided,
	"CANCELLED":  models.AttemptVoided,
	"PENDING":    models.AttemptPending,
	"WAITING":    models.AttemptPending,
}, lifecycle.FallbackPending)

var refundStatuses = lifecycle.NewRefundStatusMapper(map[string]models.RefundStatus{
	"CAPTURED": models.RefundSuccess,
	"SETTLED":  models.RefundSuccess,
	"DECLINED": models.RefundFailure,
	"REJECTED": models.RefundFailure,
	"PENDING":  models.RefundPending,
	"WAITING":  models.RefundPending,
}, lifecycle.FallbackPending)

type amountDetails struct {
	Total    amount.FloatMajorUnit `json:"total"`
	Currency string                `json:"currency"`
}

type merchantDetails struct {
	MerchantID string `json:"merchantId"`
}

type source struct {
	SourceType string `json:"sourceType"`
	Card       card   `json:"card"`
}

// card holds exposed values and exists only inside a request body.
type card struct {
	CardData        string `json:"cardData"`
	ExpirationMonth string `json:"expirationMonth"`
	ExpirationYear  string `json:"expirationYear"`
	SecurityCode    string `json:"securityCode"`
}

type transactionDetails struct {
	CaptureFlag           bool   `json:"captureFlag"`
	MerchantTransactionID string `json:"merchantTransactionId,omitempty"`
	MerchantOrderID       string `json:"merchantOrderId,omitempty"`
	ReversalReasonCode    string `json:"reversalReasonCode,omitempty"`
}

type referenceTransactionDetails struct {
	ReferenceTransactionID string `json:"referenceTransactionId"`
}

type chargeRequest struct {
	Amount             amountDetails      `json:"amount"`
	Source             source             `json:"source"`
	TransactionDetails transactionDetails `json:"transactionDetails"`
	MerchantDetails    merchantDetails    `json:"merchantDetails"`
}

func merchantOf(auth models.ConnectorAuthType) (merchantDetails, error) {
	_, merchantID, _, err := auth.AsSignatureKey()
	if err != nil {
		return merchantDetails{}, err
	}
	return merchantDetails{MerchantID: merchantID.Expose()}, nil
}

func amountOf(value models.MinorUnit, currency models.Currency) (amountDetails, error) {
	major, err := amount.FloatMajorUnitForConnector.Convert(value, currency)
	if err != nil {
		return amountDetails{}, err
	}
	return amountDetails{Total: major, Currency: currency.Upper()}, nil
}

func newChargeRequest(rd *models.PaymentsAuthorizeRouterData) (*chargeRequest, error) {
	data := rd.Request
	pm := data.PaymentMethodData
	if pm.Kind != models.PaymentMethodCard || pm.Card == nil {
		return nil, models.NotImplemented(pm.Capability())
	}
	captureFlag := true
	switch data.CaptureMethod {
	case "", models.CaptureAutomatic:
	case models.CaptureManual:
		captureFlag = false
	default:
		return nil, models.CaptureMethodNotSupported(data.CaptureMethod)
	}
	total, err := amountOf(data.Amount, data.Currency)
	if err != nil {
		return nil, err
	}
	merchant, err := merchantOf(rd.ConnectorAuthType)
	if err != nil {
		return nil, err
	}
	return &chargeRequest{
		Amount: total,
		Source: source{
			SourceType: "PaymentCard",
			Card: card{
				CardData:        pm.Card.Number.Expose(),
				ExpirationMonth: pm.Card.ExpMonth2(),
				ExpirationYear:  pm.Card.ExpYear4(),
				SecurityCode:    pm.Card.CVC.Expose(),
			},
		},
		TransactionDetails: transactionDetails{
			CaptureFlag:           captureFlag,
			MerchantTransactionID: rd.ConnectorRequestReferenceID,
			MerchantOrderID:       rd.PaymentID,
		},
		MerchantDetails: merchant,
	}, nil
}

type captureRequest struct {
	Amount                      amountDetails               `json:"amount"`
	TransactionDetails          transactionDetails          `json:"transactionDetails"`
	MerchantDetails             merchantDetails             `json:"merchantDetails"`
	ReferenceTransactionDetails referenceTransactionDetails `json:"referenceTransactionDetails"`
}

func newCaptureRequest(rd *models.PaymentsCaptureRouterData) (*captureRequest, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}
	total, err := amountOf(rd.Request.AmountToCapture, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	merchant, err := merchantOf(rd.ConnectorAuthType)
	if err != nil {
		return nil, err
	}
	return &captureRequest{
		Amount:                      total,
		TransactionDetails:          transactionDetails{CaptureFlag: true, MerchantTransactionID: rd.ConnectorRequestReferenceID},
		MerchantDetails:             merchant,
		ReferenceTransactionDetails: referenceTransactionDetails{ReferenceTransactionID: rd.Request.ConnectorTransactionID},
	}, nil
}

type cancelRequest struct {
	TransactionDetails          transactionDetails          `json:"transactionDetails"`
	MerchantDetails             merchantDetails             `json:"merchantDetails"`
	ReferenceTransactionDetails referenceTransactionDetails `json:"referenceTransactionDetails"`
}

func newCancelRequest(rd *models.PaymentsCancelRouterData) (*cancelRequest, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}
	merchant, err := merchantOf(rd.ConnectorAuthType)
	if err != nil {
		return nil, err
	}
	reason := rd.Request.CancellationReason
	if reason == "" {
		reason = "VOID"
	}
	return &cancelRequest{
		TransactionDetails:          transactionDetails{ReversalReasonCode: reason, MerchantTransactionID: rd.ConnectorRequestReferenceID},
		MerchantDetails:             merchant,
		ReferenceTransactionDetails: referenceTransactionDetails{ReferenceTransactionID: rd.Request.ConnectorTransactionID},
	}, nil
}

type refundRequest struct {
	Amount                      amountDetails               `json:"amount"`
	TransactionDetails          transactionDetails          `json:"transactionDetails"`
	MerchantDetails             merchantDetails             `json:"merchantDetails"`
	ReferenceTransactionDetails referenceTransactionDetails `json:"referenceTransactionDetails"`
}

func newRefundRequest(rd *models.RefundsExecuteRouterData) (*refundRequest, error) {
	if rd.Request.ConnectorTransactionID == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}
	total, err := amountOf(rd.Request.RefundAmount, rd.Request.Currency)
	if err != nil {
		return nil, err
	}
	merchant, err := merchantOf(rd.ConnectorAuthType)
	if err != nil {
		return nil, err
	}
	return &refundRequest{
		Amount:                      total,
		TransactionDetails:          transactionDetails{MerchantTransactionID: rd.Request.RefundID},
		MerchantDetails:             merchant,
		ReferenceTransactionDetails: referenceTransactionDetails{ReferenceTransactionID: rd.Request.ConnectorTransactionID},
	}, nil
}

type inquiryRequest struct {
	MerchantDetails             merchantDetails             `json:"merchantDetails"`
	ReferenceTransactionDetails referenceTransactionDetails `json:"referenceTransactionDetails"`
}

func newInquiryRequest(auth models.ConnectorAuthType, transactionID string) (*inquiryRequest, error) {
	merchant, err := merchantOf(auth)
	if err != nil {
		return nil, err
	}
	return &inquiryRequest{
		MerchantDetails:             merchant,
		ReferenceTransactionDetails: referenceTransactionDetails{ReferenceTransactionID: transactionID},
	}, nil
}

type gatewayResponse struct {
	GatewayResponse struct {
		TransactionType              string `json:"transactionType"`
		TransactionState             string `json:"transactionState"`
		TransactionProcessingDetails struct {
			OrderID       string `json:"orderId"`
			TransactionID string `json:"transactionId"`
		} `json:"transactionProcessingDetails"`
	} `json:"gatewayResponse"`
	PaymentReceipt struct {
		ProcessorResponseDetails struct {
			ApprovalCode string `json:"approvalCode,omitempty"`
			HostResponse string `json:"hostResponseCode,omitempty"`
		} `json:"processorResponseDetails"`
	} `json:"paymentReceipt"`
}

func (g gatewayResponse) transactionID() string {
	return g.GatewayResponse.TransactionProcessingDetails.TransactionID
}

func (g gatewayResponse) state() string {
	return g.GatewayResponse.TransactionState
}

func applyPayment[F models.Flow, Req any](rd *models.RouterData[F, Req, models.PaymentsResponseData], parsed gatewayResponse) (*models.RouterData[F, Req, models.PaymentsResponseData], error) {
	id := parsed.transactionID()
	if id == "" {
		return nil, models.ErrMissingConnectorTransactionID
	}
	out := rd.Clone()
	out.Status = attemptStatuses.Map(rd.Status, parsed.state(), models.NextActionNone)
	out.Response = &models.PaymentsResponseData{
		ResourceID:                   models.ConnectorTransactionID(id),
		ConnectorResponseReferenceID: parsed.GatewayResponse.TransactionProcessingDetails.OrderID,
		NetworkTxnID:                 parsed.PaymentReceipt.ProcessorResponseDetails.ApprovalCode,
	}
	out.ErrorResponse = nil
	return out, nil
}

func handlePayment[F models.Flow, Req any](rd *models.RouterData[F, Req, models.PaymentsResponseData], res connector.Response, log *zap.Logger) (*models.RouterData[F, Req, models.PaymentsResponseData], error) {
	parsed, err := connector.DecodeJSON[gatewayResponse](res.Body)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), parsed)
	return applyPayment(rd, parsed)
}

// Transaction inquiry answers with a list; the first entry is the latest.
func firstInquiry(res connector.Response) (gatewayResponse, error) {
	list, err := connector.DecodeJSON[[]gatewayResponse](res.Body)
	if err != nil {
		return gatewayResponse{}, err
	}
	if len(list) == 0 {
		return gatewayResponse{}, models.UnexpectedResponse("empty transaction inquiry")
	}
	return list[0], nil
}

func handleInquiry(rd *models.PaymentsSyncRouterData, res connector.Response, log *zap.Logger) (*models.PaymentsSyncRouterData, error) {
	parsed, err := firstInquiry(res)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), parsed)
	return applyPayment(rd, parsed)
}

func applyRefund[F models.Flow](rd *models.RouterData[F, models.RefundsData, models.RefundsResponseData], parsed gatewayResponse) (*models.RouterData[F, models.RefundsData, models.RefundsResponseData], error) {
	id := parsed.transactionID()
	if id == "" {
		return nil, models.ErrMissingConnectorRefundID
	}
	out := rd.Clone()
	out.Response = &models.RefundsResponseData{
		ConnectorRefundID: id,
		RefundStatus:      refundStatuses.Map(rd.Request.RefundStatus, parsed.state()),
	}
	out.ErrorResponse = nil
	return out, nil
}

func handleRefund(rd *models.RefundsExecuteRouterData, res connector.Response, log *zap.Logger) (*models.RefundsExecuteRouterData, error) {
	parsed, err := connector.DecodeJSON[gatewayResponse](res.Body)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), parsed)
	return applyRefund(rd, parsed)
}

func handleRefundInquiry(rd *models.RefundsSyncRouterData, res connector.Response, log *zap.Logger) (*models.RefundsSyncRouterData, error) {
	parsed, err := firstInquiry(res)
	if err != nil {
		return nil, err
	}
	connector.LogResponse(log, Name, rd.FlowName(), parsed)
	return applyRefund(rd, parsed)
}

type errorResponse struct {
	Error []struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Field   string `json:"field,omitempty"`
		Message string `json:"message"`
	} `json:"error"`
}
