package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/interfaces"
	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
)

var ErrConnectorDisabled = errors.New("connector account disabled")

// PaymentCall identifies the payment a flow runs for.
type PaymentCall struct {
	MerchantID  string               `json:"merchant_id" binding:"required"`
	Connector   string               `json:"-"`
	PaymentID   string               `json:"payment_id" binding:"required"`
	AttemptID   string               `json:"attempt_id"`
	ReferenceID string               `json:"reference_id"`
	Status      models.AttemptStatus `json:"status"`
}

// FlowResult is what the orchestrator gets back from any flow.
type FlowResult struct {
	Connector              string                `json:"connector"`
	Flow                   models.FlowName       `json:"flow"`
	CallState              models.CallState      `json:"call_state"`
	NotSupported           bool                  `json:"not_supported,omitempty"`
	OutcomeUnknown         bool                  `json:"outcome_unknown,omitempty"`
	Status                 string                `json:"status,omitempty"`
	ConnectorTransactionID string                `json:"connector_transaction_id,omitempty"`
	ConnectorRefundID      string                `json:"connector_refund_id,omitempty"`
	Redirection            *models.RedirectForm  `json:"redirection,omitempty"`
	Error                  *models.ErrorResponse `json:"error,omitempty"`
}

// Switch is the orchestrator-facing entry point: it loads the merchant's
// connector account, runs the flow, persists the resulting canonical state
// and queues a sync when the outcome is unknown.
type Switch struct {
	executor *Executor
	accounts interfaces.ConnectorAccountRepository
	keeper   *StateKeeper
	syncs    interfaces.SyncRequester
}

// NewSwitch builds a Switch. syncs may be nil, in which case unknown outcomes are only logged.
func NewSwitch(
	executor *Executor,
	accounts interfaces.ConnectorAccountRepository,
	keeper *StateKeeper,
	syncs interfaces.SyncRequester,
) *Switch {
	return &Switch{
		executor: executor,
		accounts: accounts,
		keeper:   keeper,
		syncs:    syncs,
	}
}

// Authorize runs the authorize flow and records the resulting payment state.
func (s *Switch) Authorize(ctx context.Context, pc PaymentCall, data models.PaymentsAuthorizeData) (*FlowResult, error) {
	return runPayment[models.Authorize](ctx, s, pc, data, "")
}

func (s *Switch) Capture(ctx context.Context, pc PaymentCall, data models.PaymentsCaptureData) (*FlowResult, error) {
	return runPayment[models.Capture](ctx, s, pc, data, data.ConnectorTransactionID)
}

func (s *Switch) Void(ctx context.Context, pc PaymentCall, data models.PaymentsCancelData) (*FlowResult, error) {
	return runPayment[models.Void](ctx, s, pc, data, data.ConnectorTransactionID)
}

func (s *Switch) Sync(ctx context.Context, pc PaymentCall, data models.PaymentsSyncData) (*FlowResult, error) {
	txnID, _ := data.ConnectorTransactionID.TransactionID()
	return runPayment[models.PSync](ctx, s, pc, data, txnID)
}

// Refund executes a refund against the processor.
func (s *Switch) Refund(ctx context.Context, pc PaymentCall, data models.RefundsData) (*FlowResult, error) {
	return runRefund[models.Execute](ctx, s, pc, data)
}

func (s *Switch) RefundSync(ctx context.Context, pc PaymentCall, data models.RefundsData) (*FlowResult, error) {
	return runRefund[models.RSync](ctx, s, pc, data)
}

// HandleSyncRequest runs the sync flow a queued request asks for.
func (s *Switch) HandleSyncRequest(ctx context.Context, req models.SyncRequest) error {
	pc := PaymentCall{
		MerchantID:  req.MerchantID,
		Connector:   req.Connector,
		PaymentID:   req.PaymentID,
		AttemptID:   req.AttemptID,
		ReferenceID: req.ReferenceID,
	}
	var err error
	switch req.Flow {
	case models.FlowExecute, models.FlowRSync:
		if req.ConnectorRefundID == "" && req.RefundID == "" {
			return fmt.Errorf("sync request for %s carries no refund id", req.PaymentID)
		}
		refundID := req.RefundID
		if refundID == "" {
			refundID = req.ConnectorRefundID
		}
		_, err = s.RefundSync(ctx, pc, models.RefundsData{
			RefundID:               refundID,
			ConnectorTransactionID: req.ConnectorTransactionID,
			ConnectorRefundID:      req.ConnectorRefundID,
		})
	default:
		if req.ConnectorTransactionID == "" {
			telemetry.Logger.Warn("Sync request without connector transaction id needs manual reconciliation",
				zap.String("payment_id", req.PaymentID),
				zap.String("connector", req.Connector),
			)
			return nil
		}
		_, err = s.Sync(ctx, pc, models.PaymentsSyncData{
			ConnectorTransactionID: models.ConnectorTransactionID(req.ConnectorTransactionID),
		})
	}
	return err
}

func (s *Switch) loadAccount(ctx context.Context, pc PaymentCall) (*models.ConnectorAccount, error) {
	acc, err := s.accounts.GetAccount(ctx, pc.MerchantID, pc.Connector)
	if err != nil {
		return nil, fmt.Errorf("load %s account for %s: %w", pc.Connector, pc.MerchantID, err)
	}
	if acc.Disabled {
		return nil, fmt.Errorf("%w: %s", ErrConnectorDisabled, pc.Connector)
	}
	return acc, nil
}

func referenceID(pc PaymentCall) string {
	if pc.ReferenceID != "" {
		return pc.ReferenceID
	}
	return uuid.NewString()
}

func runPayment[F models.Flow, Req any](ctx context.Context, s *Switch, pc PaymentCall, data Req, txnID string) (*FlowResult, error) {
	acc, err := s.loadAccount(ctx, pc)
	if err != nil {
		return nil, err
	}

	status := pc.Status
	if status == "" && txnID != "" {
		stored, err := s.keeper.Current(ctx, pc.Connector, models.PaymentReference(models.RefConnectorTransactionID, txnID))
		if err != nil {
			return nil, err
		}
		status = models.AttemptStatus(stored)
	}

	rd := &models.RouterData[F, Req, models.PaymentsResponseData]{
		MerchantID:                  pc.MerchantID,
		Connector:                   pc.Connector,
		PaymentID:                   pc.PaymentID,
		AttemptID:                   pc.AttemptID,
		ConnectorRequestReferenceID: referenceID(pc),
		ConnectorAuthType:           acc.Auth,
		Status:                      status,
		TestMode:                    acc.TestMode,
		Request:                     data,
	}

	call, err := Execute(ctx, s.executor, rd)
	res := &FlowResult{Connector: pc.Connector, Flow: rd.FlowName(), CallState: call.State, NotSupported: call.NotSupported}
	if errors.Is(err, ErrOutcomeUnknown) {
		res.OutcomeUnknown = true
		res.ConnectorTransactionID = txnID
		s.requestSync(ctx, models.SyncRequest{
			MerchantID:             pc.MerchantID,
			Connector:              pc.Connector,
			Flow:                   models.FlowPSync,
			PaymentID:              pc.PaymentID,
			AttemptID:              pc.AttemptID,
			ConnectorTransactionID: txnID,
			ReferenceID:            rd.ConnectorRequestReferenceID,
		})
		return res, err
	}
	if err != nil || call.NotSupported {
		return res, err
	}

	out := call.Data
	if out.ErrorResponse != nil {
		res.Error = out.ErrorResponse
		res.Status = string(out.Status)
		res.ConnectorTransactionID = txnID
		return res, nil
	}

	res.Status = string(out.Status)
	if out.Response != nil {
		res.Redirection = out.Response.Redirection
		if id, err := out.Response.ResourceID.TransactionID(); err == nil {
			txnID = id
		}
	}
	res.ConnectorTransactionID = txnID

	if txnID != "" {
		t, err := s.keeper.Advance(ctx, models.ObjectState{
			Connector:  pc.Connector,
			Kind:       models.ReferencePayment,
			ObjectID:   txnID,
			InternalID: pc.AttemptID,
			MerchantID: pc.MerchantID,
			State:      string(out.Status),
		}, string(rd.FlowName()))
		if err != nil {
			return res, err
		}
		if t != nil {
			res.Status = t.To
		}
	}
	return res, nil
}

func runRefund[F models.Flow](ctx context.Context, s *Switch, pc PaymentCall, data models.RefundsData) (*FlowResult, error) {
	acc, err := s.loadAccount(ctx, pc)
	if err != nil {
		return nil, err
	}

	if data.RefundStatus == "" && data.ConnectorRefundID != "" {
		stored, err := s.keeper.Current(ctx, pc.Connector, models.RefundReference(models.RefConnectorRefundID, data.ConnectorRefundID, ""))
		if err != nil {
			return nil, err
		}
		data.RefundStatus = models.RefundStatus(stored)
	}

	rd := &models.RouterData[F, models.RefundsData, models.RefundsResponseData]{
		MerchantID:                  pc.MerchantID,
		Connector:                   pc.Connector,
		PaymentID:                   pc.PaymentID,
		AttemptID:                   pc.AttemptID,
		RefundID:                    data.RefundID,
		ConnectorRequestReferenceID: referenceID(pc),
		ConnectorAuthType:           acc.Auth,
		Status:                      pc.Status,
		TestMode:                    acc.TestMode,
		Request:                     data,
	}

	call, err := Execute(ctx, s.executor, rd)
	res := &FlowResult{Connector: pc.Connector, Flow: rd.FlowName(), CallState: call.State, NotSupported: call.NotSupported}
	res.ConnectorTransactionID = data.ConnectorTransactionID
	if errors.Is(err, ErrOutcomeUnknown) {
		res.OutcomeUnknown = true
		s.requestSync(ctx, models.SyncRequest{
			MerchantID:             pc.MerchantID,
			Connector:              pc.Connector,
			Flow:                   models.FlowRSync,
			PaymentID:              pc.PaymentID,
			AttemptID:              pc.AttemptID,
			RefundID:               data.RefundID,
			ConnectorTransactionID: data.ConnectorTransactionID,
			ConnectorRefundID:      data.ConnectorRefundID,
			ReferenceID:            rd.ConnectorRequestReferenceID,
		})
		return res, err
	}
	if err != nil || call.NotSupported {
		return res, err
	}

	out := call.Data
	if out.ErrorResponse != nil {
		res.Error = out.ErrorResponse
		res.ConnectorRefundID = data.ConnectorRefundID
		return res, nil
	}
	if out.Response == nil {
		return res, models.NewError(models.ErrKindResponseHandlingFailed, errors.New("refund response missing"))
	}

	refund := *out.Response
	refund.RefundStatus = lifecycle.AdvanceRefund(data.RefundStatus, refund.RefundStatus)
	res.ConnectorRefundID = refund.ConnectorRefundID
	res.Status = string(refund.RefundStatus)
	if refund.ConnectorRefundID == "" {
		return res, models.ErrMissingConnectorRefundID
	}

	t, err := s.keeper.Advance(ctx, models.ObjectState{
		Connector:  pc.Connector,
		Kind:       models.ReferenceRefund,
		ObjectID:   refund.ConnectorRefundID,
		InternalID: data.RefundID,
		MerchantID: pc.MerchantID,
		State:      string(refund.RefundStatus),
	}, string(rd.FlowName()))
	if err != nil {
		return res, err
	}
	if t != nil {
		res.Status = t.To
	}
	return res, nil
}

func (s *Switch) requestSync(ctx context.Context, req models.SyncRequest) {
	if s.syncs == nil {
		return
	}
	req.RequestedAt = time.Now().UTC()
	if err := s.syncs.RequestSync(ctx, req); err != nil {
		telemetry.Logger.Error("Failed to queue sync request",
			zap.String("payment_id", req.PaymentID),
			zap.Error(err),
		)
	}
}
