package models

// IncomingWebhookEvent is the canonical classification of a processor
// callback. Codes without a mapping resolve to EventNotSupported.
type IncomingWebhookEvent string

const (
	EventPaymentIntentSuccess    IncomingWebhookEvent = "payment_intent_success"
	EventPaymentIntentFailure    IncomingWebhookEvent = "payment_intent_failure"
	EventPaymentIntentProcessing IncomingWebhookEvent = "payment_intent_processing"
	EventRefundSuccess           IncomingWebhookEvent = "refund_success"
	EventRefundFailure           IncomingWebhookEvent = "refund_failure"
	EventDisputeOpened           IncomingWebhookEvent = "dispute_opened"
	EventDisputeAccepted         IncomingWebhookEvent = "dispute_accepted"
	EventDisputeChallenged       IncomingWebhookEvent = "dispute_challenged"
	EventDisputeWon              IncomingWebhookEvent = "dispute_won"
	EventDisputeLost             IncomingWebhookEvent = "dispute_lost"
	EventDisputeExpired          IncomingWebhookEvent = "dispute_expired"
	EventRecoveryPaymentSuccess  IncomingWebhookEvent = "recovery_payment_success"
	EventRecoveryPaymentFailure  IncomingWebhookEvent = "recovery_payment_failure"
	EventRecoveryInvoiceCancel   IncomingWebhookEvent = "recovery_invoice_cancel"
	EventNotSupported            IncomingWebhookEvent = "event_not_supported"
)

// WebhookFlow groups events by the resource they concern.
type WebhookFlow string

const (
	WebhookFlowPayment      WebhookFlow = "payment"
	WebhookFlowRefund       WebhookFlow = "refund"
	WebhookFlowDispute      WebhookFlow = "dispute"
	WebhookFlowRecovery     WebhookFlow = "recovery"
	WebhookFlowReturnStatus WebhookFlow = "return_response"
)

// Flow groups the event by the object it concerns.
func (e IncomingWebhookEvent) Flow() WebhookFlow {
	switch e {
	case EventPaymentIntentSuccess, EventPaymentIntentFailure, EventPaymentIntentProcessing:
		return WebhookFlowPayment
	case EventRefundSuccess, EventRefundFailure:
		return WebhookFlowRefund
	case EventDisputeOpened, EventDisputeAccepted, EventDisputeChallenged,
		EventDisputeWon, EventDisputeLost, EventDisputeExpired:
		return WebhookFlowDispute
	case EventRecoveryPaymentSuccess, EventRecoveryPaymentFailure, EventRecoveryInvoiceCancel:
		return WebhookFlowRecovery
	}
	return WebhookFlowReturnStatus
}

// AttemptStatus is the attempt status implied by a payment or recovery
// event, if any.
func (e IncomingWebhookEvent) AttemptStatus() (AttemptStatus, bool) {
	switch e {
	case EventPaymentIntentSuccess, EventRecoveryPaymentSuccess:
		return AttemptCharged, true
	case EventPaymentIntentFailure, EventRecoveryPaymentFailure:
		return AttemptFailure, true
	case EventPaymentIntentProcessing:
		return AttemptPending, true
	}
	return "", false
}

// RefundStatus is the refund status implied by a refund event, if any.
func (e IncomingWebhookEvent) RefundStatus() (RefundStatus, bool) {
	switch e {
	case EventRefundSuccess:
		return RefundSuccess, true
	case EventRefundFailure:
		return RefundFailure, true
	}
	return "", false
}

// ReferenceKind says which resource a webhook correlates to.
type ReferenceKind string

const (
	ReferencePayment ReferenceKind = "payment"
	ReferenceRefund  ReferenceKind = "refund"
	ReferenceDispute ReferenceKind = "dispute"
)

// ReferenceIDType says which identifier namespace ID belongs to.
type ReferenceIDType string

const (
	RefConnectorTransactionID ReferenceIDType = "connector_transaction_id"
	RefPaymentAttemptID       ReferenceIDType = "payment_attempt_id"
	RefConnectorRefundID      ReferenceIDType = "connector_refund_id"
	RefRefundID               ReferenceIDType = "refund_id"
	RefConnectorDisputeID     ReferenceIDType = "connector_dispute_id"
)

// ObjectReferenceID is the discriminated correlation id extracted from a
// webhook body.
type ObjectReferenceID struct {
	Kind   ReferenceKind   `json:"kind"`
	IDType ReferenceIDType `json:"id_type"`
	ID     string          `json:"id"`
	// ParentID is the connector transaction id owning a refund or dispute, when known.
	ParentID string `json:"parent_id,omitempty"`
}

// PaymentReference points at a payment by id type.
func PaymentReference(idType ReferenceIDType, id string) ObjectReferenceID {
	return ObjectReferenceID{Kind: ReferencePayment, IDType: idType, ID: id}
}

// RefundReference points at a refund; parent is the payment it belongs to.
func RefundReference(idType ReferenceIDType, id, parent string) ObjectReferenceID {
	return ObjectReferenceID{Kind: ReferenceRefund, IDType: idType, ID: id, ParentID: parent}
}

func DisputeReference(id, parent string) ObjectReferenceID {
	return ObjectReferenceID{Kind: ReferenceDispute, IDType: RefConnectorDisputeID, ID: id, ParentID: parent}
}
