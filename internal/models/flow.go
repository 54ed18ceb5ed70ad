package models

// FlowName identifies one operation type in the payment lifecycle.
type FlowName string

const (
	FlowAuthorize FlowName = "authorize"
	FlowCapture   FlowName = "capture"
	FlowVoid      FlowName = "void"
	FlowPSync     FlowName = "psync"
	FlowExecute   FlowName = "refund_execute"
	FlowRSync     FlowName = "refund_sync"
)

// Flow is implemented by the zero-size marker types below. The marker is a
// type parameter of the envelope so a flow can only be dispatched to an
// integration written for it.
type Flow interface {
	FlowName() FlowName
}

type (
	Authorize struct{}
	Capture   struct{}
	Void      struct{}
	PSync     struct{}
	Execute   struct{}
	RSync     struct{}
)

func (Authorize) FlowName() FlowName { return FlowAuthorize }
func (Capture) FlowName() FlowName   { return FlowCapture }
func (Void) FlowName() FlowName      { return FlowVoid }
func (PSync) FlowName() FlowName     { return FlowPSync }
func (Execute) FlowName() FlowName   { return FlowExecute }
func (RSync) FlowName() FlowName     { return FlowRSync }

// MutatesProcessorState reports whether the flow changes state on the
// processor side and therefore needs an idempotency key.
func (f FlowName) MutatesProcessorState() bool {
	switch f {
	case FlowAuthorize, FlowCapture, FlowVoid, FlowExecute:
		return true
	}
	return false
}

// IsRefundFlow reports whether the flow carries refund data.
func (f FlowName) IsRefundFlow() bool {
	return f == FlowExecute || f == FlowRSync
}
