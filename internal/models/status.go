package models

// AttemptStatus is the canonical lifecycle state of a payment attempt.
type AttemptStatus string

const (
	AttemptPaymentMethodAwaited        AttemptStatus = "payment_method_awaited"
	AttemptAuthenticationPending       AttemptStatus = "authentication_pending"
	AttemptAuthenticationFailed        AttemptStatus = "authentication_failed"
	AttemptDeviceDataCollectionPending AttemptStatus = "device_data_collection_pending"
	AttemptAuthorizing                 AttemptStatus = "authorizing"
	AttemptAuthorized                  AttemptStatus = "authorized"
	AttemptAuthorizationFailed         AttemptStatus = "authorization_failed"
	AttemptCharged                     AttemptStatus = "charged"
	AttemptPending                     AttemptStatus = "pending"
	AttemptFailure                     AttemptStatus = "failure"
	AttemptVoided                      AttemptStatus = "voided"
	AttemptVoidFailed                  AttemptStatus = "void_failed"
	AttemptCancelled                   AttemptStatus = "cancelled"
)

// AllAttemptStatuses lists every attempt status in declaration order.
var AllAttemptStatuses = []AttemptStatus{
	AttemptPaymentMethodAwaited,
	AttemptAuthenticationPending,
	AttemptAuthenticationFailed,
	AttemptDeviceDataCollectionPending,
	AttemptAuthorizing,
	AttemptAuthorized,
	AttemptAuthorizationFailed,
	AttemptCharged,
	AttemptPending,
	AttemptFailure,
	AttemptVoided,
	AttemptVoidFailed,
	AttemptCancelled,
}

// IsTerminal reports whether no connector response may move the attempt
// out of this status.
func (s AttemptStatus) IsTerminal() bool {
	switch s {
	case AttemptCharged, AttemptFailure, AttemptVoided, AttemptAuthenticationFailed:
		return true
	}
	return false
}

// Valid reports whether s is one of the declared attempt statuses.
func (s AttemptStatus) Valid() bool {
	for _, known := range AllAttemptStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// RefundStatus is the canonical state of a refund.
type RefundStatus string

const (
	RefundSuccess RefundStatus = "success"
	RefundFailure RefundStatus = "failure"
	RefundPending RefundStatus = "pending"
)

// IsTerminal reports Success and Failure.
func (s RefundStatus) IsTerminal() bool {
	return s == RefundSuccess || s == RefundFailure
}

// Valid reports whether s is one of the declared refund statuses.
func (s RefundStatus) Valid() bool {
	switch s {
	case RefundSuccess, RefundFailure, RefundPending:
		return true
	}
	return false
}

// DisputeStage orders the phases of a chargeback. Stages only move forward.
type DisputeStage string

const (
	DisputeStagePreDispute     DisputeStage = "pre_dispute"
	DisputeStageDispute        DisputeStage = "dispute"
	DisputeStagePreArbitration DisputeStage = "pre_arbitration"
)

// Rank returns the position of the stage in the dispute progression.
// Unknown stages rank below every known stage.
func (s DisputeStage) Rank() int {
	switch s {
	case DisputeStagePreDispute:
		return 1
	case DisputeStageDispute:
		return 2
	case DisputeStagePreArbitration:
		return 3
	}
	return 0
}

// CaptureMethod selects whether authorization and capture happen together.
type CaptureMethod string

const (
	CaptureAutomatic CaptureMethod = "automatic"
	CaptureManual    CaptureMethod = "manual"
)

// CaptureSyncMethod declares how a connector syncs multiple partial captures.
type CaptureSyncMethod string

const (
	CaptureSyncIndividual CaptureSyncMethod = "individual"
	CaptureSyncAggregated CaptureSyncMethod = "aggregated"
)

// NextAction is the follow-up a connector asks the customer to perform.
type NextAction string

const (
	NextActionNone                        NextAction = ""
	NextActionWaitingDeviceDataCollection NextAction = "waiting_device_data_collection"
	NextActionRequiresCustomerAction      NextAction = "requires_customer_action"
	NextActionRedirectToURL               NextAction = "redirect_to_url"
)

// CallState tracks one flow invocation. Only Sent crosses the process boundary.
type CallState string

const (
	CallCreated          CallState = "created"
	CallRequestBuilt     CallState = "request_built"
	CallSent             CallState = "sent"
	CallResponseReceived CallState = "response_received"
	CallMapped           CallState = "mapped"
	CallErrorMapped      CallState = "error_mapped"
)
