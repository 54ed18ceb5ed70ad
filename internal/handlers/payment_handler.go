package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/repository"
	"github.com/akylbek/payment-system/connector-switch/internal/service"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
)

// FlowRunner is the part of service.Switch the flow API drives.
type FlowRunner interface {
	Authorize(ctx context.Context, pc service.PaymentCall, data models.PaymentsAuthorizeData) (*service.FlowResult, error)
	Capture(ctx context.Context, pc service.PaymentCall, data models.PaymentsCaptureData) (*service.FlowResult, error)
	Void(ctx context.Context, pc service.PaymentCall, data models.PaymentsCancelData) (*service.FlowResult, error)
	Sync(ctx context.Context, pc service.PaymentCall, data models.PaymentsSyncData) (*service.FlowResult, error)
	Refund(ctx context.Context, pc service.PaymentCall, data models.RefundsData) (*service.FlowResult, error)
	RefundSync(ctx context.Context, pc service.PaymentCall, data models.RefundsData) (*service.FlowResult, error)
}

// flowRequest is the body of every flow call: who the call is for plus
// the flow-specific payload.
type flowRequest struct {
	service.PaymentCall
	Data json.RawMessage `json:"data" binding:"required"`
}

// PaymentHandler runs payment and refund flows over HTTP.
type PaymentHandler struct {
	runner FlowRunner
}

func NewPaymentHandler(runner FlowRunner) *PaymentHandler {
	return &PaymentHandler{runner: runner}
}

// RunPaymentFlow handles POST /connectors/:connector/payments/:flow.
func (h *PaymentHandler) RunPaymentFlow(c *gin.Context) {
	req, ok := bindFlowRequest(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	var (
		res *service.FlowResult
		err error
	)
	switch models.FlowName(c.Param("flow")) {
	case models.FlowAuthorize:
		var data models.PaymentsAuthorizeData
		if !decodeData(c, req.Data, &data) {
			return
		}
		res, err = h.runner.Authorize(ctx, req.PaymentCall, data)
	case models.FlowCapture:
		var data models.PaymentsCaptureData
		if !decodeData(c, req.Data, &data) {
			return
		}
		res, err = h.runner.Capture(ctx, req.PaymentCall, data)
	case models.FlowVoid:
		var data models.PaymentsCancelData
		if !decodeData(c, req.Data, &data) {
			return
		}
		res, err = h.runner.Void(ctx, req.PaymentCall, data)
	case models.FlowPSync:
		var data models.PaymentsSyncData
		if !decodeData(c, req.Data, &data) {
			return
		}
		res, err = h.runner.Sync(ctx, req.PaymentCall, data)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown payment flow", "flow": c.Param("flow")})
		return
	}
	respond(c, req.PaymentCall, res, err)
}

// RunRefundFlow handles POST /connectors/:connector/refunds/:flow where
// flow is execute or sync.
func (h *PaymentHandler) RunRefundFlow(c *gin.Context) {
	req, ok := bindFlowRequest(c)
	if !ok {
		return
	}
	var data models.RefundsData
	if !decodeData(c, req.Data, &data) {
		return
	}
	if data.RefundID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refund_id is required"})
		return
	}

	var (
		res *service.FlowResult
		err error
	)
	switch c.Param("flow") {
	case "execute":
		res, err = h.runner.Refund(c.Request.Context(), req.PaymentCall, data)
	case "sync":
		res, err = h.runner.RefundSync(c.Request.Context(), req.PaymentCall, data)
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown refund flow", "flow": c.Param("flow")})
		return
	}
	respond(c, req.PaymentCall, res, err)
}

func bindFlowRequest(c *gin.Context) (*flowRequest, bool) {
	var req flowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		telemetry.Logger.Error("Error decoding flow request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return nil, false
	}
	req.Connector = c.Param("connector")
	return &req, true
}

func decodeData(c *gin.Context, raw json.RawMessage, v any) bool {
	if err := json.Unmarshal(raw, v); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid flow data"})
		return false
	}
	return true
}

func respond(c *gin.Context, pc service.PaymentCall, res *service.FlowResult, err error) {
	switch {
	case err == nil && res != nil && res.NotSupported:
		c.JSON(http.StatusNotImplemented, res)
	case err == nil:
		c.JSON(http.StatusOK, res)
	case errors.Is(err, service.ErrOutcomeUnknown):
		// a sync has been queued; the caller learns the result later
		c.JSON(http.StatusAccepted, res)
	default:
		status := flowErrorStatus(err)
		if status >= http.StatusInternalServerError {
			telemetry.Logger.Error("Error running connector flow",
				zap.String("connector", pc.Connector),
				zap.String("payment_id", pc.PaymentID),
				zap.Error(err),
			)
		}
		body := gin.H{"error": err.Error(), "payment_id": pc.PaymentID}
		if kind, ok := models.KindOf(err); ok {
			body["kind"] = kind
		}
		c.JSON(status, body)
	}
}

func flowErrorStatus(err error) int {
	switch {
	case errors.Is(err, connector.ErrUnknownConnector), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrConnectorDisabled):
		return http.StatusForbidden
	case errors.Is(err, service.ErrConcurrentTransition):
		return http.StatusConflict
	case errors.Is(err, models.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, models.ErrFailedToObtainAuthType):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrMissingRequiredField),
		errors.Is(err, models.ErrCaptureMethodNotSupported),
		errors.Is(err, models.ErrAmountConversionFailed),
		errors.Is(err, models.ErrRequestEncodingFailed),
		errors.Is(err, models.ErrMissingConnectorTransactionID):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrResponseDeserializationFailed),
		errors.Is(err, models.ErrResponseHandlingFailed),
		errors.Is(err, models.ErrUnexpectedResponseError),
		errors.Is(err, models.ErrMissingConnectorRefundID):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
