package models

// RouterData is the envelope threaded through one flow invocation. It is
// owned by the caller for the duration of the call and never retained by a
// connector.
type RouterData[F Flow, Req any, Resp any] struct {
	Flow                        F
	MerchantID                  string
	Connector                   string
	PaymentID                   string
	AttemptID                   string
	RefundID                    string
	ConnectorRequestReferenceID string
	ConnectorAuthType           ConnectorAuthType
	Status                      AttemptStatus
	TestMode                    bool
	Request                     Req
	Response                    *Resp
	ErrorResponse               *ErrorResponse
}

// FlowName returns the name of the envelope's flow marker.
func (r *RouterData[F, Req, Resp]) FlowName() FlowName {
	return r.Flow.FlowName()
}

// Clone returns a shallow copy so a handler can return an updated envelope
// without mutating the one it received.
func (r *RouterData[F, Req, Resp]) Clone() *RouterData[F, Req, Resp] {
	c := *r
	return &c
}

// PaymentFlowData is the resource-common data of new-generation payment
// integrations.
type PaymentFlowData struct {
	MerchantID                  string
	PaymentID                   string
	AttemptID                   string
	Connector                   string
	Status                      AttemptStatus
	ConnectorRequestReferenceID string
	TestMode                    bool
}

// RefundFlowData is the resource-common data of new-generation refund
// integrations.
type RefundFlowData struct {
	MerchantID                  string
	PaymentID                   string
	AttemptID                   string
	Connector                   string
	Status                      AttemptStatus
	RefundID                    string
	ConnectorRequestReferenceID string
}

// RouterDataV2 is the reorganised envelope used by new-generation connectors.
type RouterDataV2[F Flow, FlowData any, Req any, Resp any] struct {
	Flow               F
	ResourceCommonData FlowData
	ConnectorAuthType  ConnectorAuthType
	Request            Req
	Response           *Resp
	ErrorResponse      *ErrorResponse
}

func (r *RouterDataV2[F, FlowData, Req, Resp]) FlowName() FlowName {
	return r.Flow.FlowName()
}

// Convenience aliases for the envelopes used by the shipped flows.
type (
	PaymentsAuthorizeRouterData = RouterData[Authorize, PaymentsAuthorizeData, PaymentsResponseData]
	PaymentsCaptureRouterData   = RouterData[Capture, PaymentsCaptureData, PaymentsResponseData]
	PaymentsCancelRouterData    = RouterData[Void, PaymentsCancelData, PaymentsResponseData]
	PaymentsSyncRouterData      = RouterData[PSync, PaymentsSyncData, PaymentsResponseData]
	RefundsExecuteRouterData    = RouterData[Execute, RefundsData, RefundsResponseData]
	RefundsSyncRouterData       = RouterData[RSync, RefundsData, RefundsResponseData]
)
