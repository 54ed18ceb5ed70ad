package models

// PaymentsAuthorizeData is the request half of an authorize call.
type PaymentsAuthorizeData struct {
	Amount            MinorUnit         `json:"amount"`
	Currency          Currency          `json:"currency"`
	PaymentMethodData PaymentMethodData `json:"payment_method_data"`
	CaptureMethod     CaptureMethod     `json:"capture_method"`
	Email             Secret            `json:"email"`
	Description       string            `json:"description,omitempty"`
	ReturnURL         string            `json:"return_url,omitempty"`
}

// PaymentsCaptureData is the request half of a capture call.
type PaymentsCaptureData struct {
	AmountToCapture        MinorUnit `json:"amount_to_capture"`
	Currency               Currency  `json:"currency"`
	ConnectorTransactionID string    `json:"connector_transaction_id"`
}

// PaymentsCancelData is the request half of a void call.
type PaymentsCancelData struct {
	ConnectorTransactionID string    `json:"connector_transaction_id"`
	CancellationReason     string    `json:"cancellation_reason,omitempty"`
	Amount                 MinorUnit `json:"amount,omitempty"`
	Currency               Currency  `json:"currency,omitempty"`
}

// PaymentsSyncData is the request half of a psync call.
type PaymentsSyncData struct {
	ConnectorTransactionID ResponseID    `json:"connector_transaction_id"`
	CaptureMethod          CaptureMethod `json:"capture_method,omitempty"`
	Currency               Currency      `json:"currency,omitempty"`
}

// RefundsData carries both refund execute and refund sync requests.
type RefundsData struct {
	RefundID               string       `json:"refund_id"`
	ConnectorTransactionID string       `json:"connector_transaction_id"`
	ConnectorRefundID      string       `json:"connector_refund_id,omitempty"`
	RefundAmount           MinorUnit    `json:"refund_amount"`
	PaymentAmount          MinorUnit    `json:"payment_amount"`
	Currency               Currency     `json:"currency"`
	Reason                 string       `json:"reason,omitempty"`
	RefundStatus           RefundStatus `json:"refund_status,omitempty"`
}

// PaymentsResponseData is the canonical result of a payment flow.
type PaymentsResponseData struct {
	ResourceID                   ResponseID    `json:"resource_id"`
	Redirection                  *RedirectForm `json:"redirection,omitempty"`
	NetworkTxnID                 string        `json:"network_txn_id,omitempty"`
	ConnectorResponseReferenceID string        `json:"connector_response_reference_id,omitempty"`
}

// RefundsResponseData is the canonical result of a refund flow.
type RefundsResponseData struct {
	ConnectorRefundID string       `json:"connector_refund_id"`
	RefundStatus      RefundStatus `json:"refund_status"`
}

// RedirectForm describes where the customer must be sent to continue.
type RedirectForm struct {
	Endpoint   string            `json:"endpoint"`
	Method     string            `json:"method"`
	FormFields map[string]string `json:"form_fields,omitempty"`
}

type responseIDKind string

const (
	responseIDConnectorTransaction responseIDKind = "connector_transaction_id"
	responseIDEncodedData          responseIDKind = "encoded_data"
	responseIDNone                 responseIDKind = "no_response_id"
)

// ResponseID identifies the processor-side resource produced by a flow.
type ResponseID struct {
	Kind responseIDKind `json:"kind"`
	ID   string         `json:"id,omitempty"`
}

// ConnectorTransactionID is the processor's own id for the payment.
func ConnectorTransactionID(id string) ResponseID {
	return ResponseID{Kind: responseIDConnectorTransaction, ID: id}
}

func EncodedDataID(data string) ResponseID {
	return ResponseID{Kind: responseIDEncodedData, ID: data}
}

func NoResponseID() ResponseID {
	return ResponseID{Kind: responseIDNone}
}

// TransactionID returns the connector transaction id or MissingConnectorTransactionID.
func (r ResponseID) TransactionID() (string, error) {
	if r.Kind != responseIDConnectorTransaction || r.ID == "" {
		return "", ErrMissingConnectorTransactionID
	}
	return r.ID, nil
}
