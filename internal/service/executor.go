package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/interfaces"
	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/metrics"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
)

// ErrOutcomeUnknown means the request left the process but no response
// came back. The processor may have acted on it; callers must sync rather
// than assume success or failure.
var ErrOutcomeUnknown = errors.New("connector outcome unknown")

// Call records how far one flow invocation got.
type Call[F models.Flow, Req any, Resp any] struct {
	State        models.CallState
	Generation   connector.Generation
	NotSupported bool
	Request      *connector.Request
	Response     *connector.Response
	Data         *models.RouterData[F, Req, Resp]
}

// Executor drives flow invocations against registered connectors.
type Executor struct {
	registry  *connector.Registry
	transport interfaces.ConnectorTransport
	recorder  *metrics.Recorder
}

// NewExecutor builds an Executor. A nil recorder disables metrics.
func NewExecutor(registry *connector.Registry, transport interfaces.ConnectorTransport, recorder *metrics.Recorder) *Executor {
	return &Executor{registry: registry, transport: transport, recorder: recorder}
}

func (e *Executor) Registry() *connector.Registry {
	return e.registry
}

// Execute runs one flow: build the request, send it, then map the reply.
// A connector that does not implement the flow yields a call flagged
// NotSupported and no error. The returned envelope is a copy; rd is not
// modified.
func Execute[F models.Flow, Req any, Resp any](ctx context.Context, e *Executor, rd *models.RouterData[F, Req, Resp]) (*Call[F, Req, Resp], error) {
	flow := string(rd.FlowName())
	call := &Call[F, Req, Resp]{State: models.CallCreated, Data: rd}

	integration, err := connector.Resolve[F, Req, Resp](e.registry, rd.Connector)
	if err != nil {
		return call, err
	}
	call.Generation = integration.Generation()

	ctx, span := telemetry.StartConnectorSpan(ctx, rd.Connector, flow)
	defer span.End()
	span.SetAttributes(attribute.String("connector.generation", string(call.Generation)))
	log := telemetry.FromContext(ctx).With(
		zap.String("connector", rd.Connector),
		zap.String("flow", flow),
		zap.String("payment_id", rd.PaymentID),
	)

	finish := func(outcome string, elapsed time.Duration, err error) {
		e.recorder.FlowCompleted(rd.Connector, flow, outcome, elapsed)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
	}

	req, err := integration.BuildRequest(rd)
	if err != nil {
		finish(metrics.OutcomeBuildFailed, 0, err)
		log.Warn("Failed to build connector request", zap.Error(err))
		return call, err
	}
	if req == nil {
		call.NotSupported = true
		finish(metrics.OutcomeNotSupported, 0, nil)
		log.Info("Flow not supported by connector")
		return call, nil
	}
	call.Request = req
	call.State = models.CallRequestBuilt

	call.State = models.CallSent
	start := time.Now()
	res, err := e.transport.Send(ctx, req)
	elapsed := time.Since(start)
	if errors.Is(err, connector.ErrNotSent) {
		call.State = models.CallRequestBuilt
		finish(metrics.OutcomeNotSent, elapsed, err)
		log.Error("Connector request was not sent", zap.Error(err))
		return call, err
	}
	if err != nil {
		err = fmt.Errorf("%w: %v", ErrOutcomeUnknown, err)
		finish(metrics.OutcomeUnknown, elapsed, err)
		log.Error("Connector call did not complete", zap.Error(err))
		return call, err
	}
	call.Response = &res
	call.State = models.CallResponseReceived
	span.SetAttributes(attribute.Int("http.status_code", res.StatusCode))

	if !res.IsSuccess() {
		errResp := integration.ErrorResponse(res)
		out := rd.Clone()
		out.Response = nil
		out.ErrorResponse = &errResp
		call.Data = out
		call.State = models.CallErrorMapped
		finish(metrics.OutcomeErrorMapped, elapsed, nil)
		log.Info("Connector returned error",
			zap.Int("status", errResp.StatusCode),
			zap.String("code", errResp.Code),
			zap.String("message", errResp.Message),
		)
		return call, nil
	}

	updated, err := integration.HandleResponse(rd, res, log)
	if err != nil {
		finish(metrics.OutcomeHandleFailed, elapsed, err)
		log.Error("Failed to handle connector response", zap.Error(err))
		return call, err
	}
	updated.Status = lifecycle.Advance(rd.Status, updated.Status)
	call.Data = updated
	call.State = models.CallMapped
	finish(metrics.OutcomeMapped, elapsed, nil)
	return call, nil
}
