package connector

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// Generation tells which contract an integration is written against.
type Generation string

const (
	GenerationV1 Generation = "v1"
	GenerationV2 Generation = "v2"
)

// BoxedIntegration is a tagged union over an old-generation integration and
// a bridged new-generation one. It holds only interface values, so copying
// it per call is cheap and needs no synchronisation. The zero value behaves
// as an unsupported flow.
type BoxedIntegration[F models.Flow, Req any, Resp any] struct {
	generation Generation
	old        Integration[F, Req, Resp]
	bridged    Integration[F, Req, Resp]
}

// V1 boxes an old-generation integration.
func V1[F models.Flow, Req any, Resp any](i Integration[F, Req, Resp]) BoxedIntegration[F, Req, Resp] {
	return BoxedIntegration[F, Req, Resp]{generation: GenerationV1, old: i}
}

// V2 boxes a new-generation integration behind the shape conversion.
func V2[F models.Flow, FD any, Req any, Resp any](i NewIntegration[F, FD, Req, Resp]) BoxedIntegration[F, Req, Resp] {
	return BoxedIntegration[F, Req, Resp]{
		generation: GenerationV2,
		bridged:    v2Bridge[F, FD, Req, Resp]{impl: i},
	}
}

// Generation reports which contract shape the boxed integration implements.
func (b BoxedIntegration[F, Req, Resp]) Generation() Generation {
	return b.generation
}

func (b BoxedIntegration[F, Req, Resp]) delegate() Integration[F, Req, Resp] {
	switch b.generation {
	case GenerationV1:
		if b.old != nil {
			return b.old
		}
	case GenerationV2:
		if b.bridged != nil {
			return b.bridged
		}
	}
	return Unsupported[F, Req, Resp]()
}

func (b BoxedIntegration[F, Req, Resp]) Headers(rd *models.RouterData[F, Req, Resp]) ([]Header, error) {
	return b.delegate().Headers(rd)
}

func (b BoxedIntegration[F, Req, Resp]) ContentType() string {
	return b.delegate().ContentType()
}

func (b BoxedIntegration[F, Req, Resp]) URL(rd *models.RouterData[F, Req, Resp]) (string, error) {
	return b.delegate().URL(rd)
}

func (b BoxedIntegration[F, Req, Resp]) RequestBody(rd *models.RouterData[F, Req, Resp]) (*RequestContent, error) {
	return b.delegate().RequestBody(rd)
}

// BuildRequest returns nil when the flow is not supported by the connector.
func (b BoxedIntegration[F, Req, Resp]) BuildRequest(rd *models.RouterData[F, Req, Resp]) (*Request, error) {
	return b.delegate().BuildRequest(rd)
}

func (b BoxedIntegration[F, Req, Resp]) HandleResponse(rd *models.RouterData[F, Req, Resp], res Response, log *zap.Logger) (*models.RouterData[F, Req, Resp], error) {
	return b.delegate().HandleResponse(rd, res, log)
}

func (b BoxedIntegration[F, Req, Resp]) ErrorResponse(res Response) models.ErrorResponse {
	return b.delegate().ErrorResponse(res)
}

func (b BoxedIntegration[F, Req, Resp]) MultipleCaptureSyncMethod() (models.CaptureSyncMethod, error) {
	return b.delegate().MultipleCaptureSyncMethod()
}

// v2Bridge presents a new-generation integration through the old surface,
// converting the envelope on the way in and out.
type v2Bridge[F models.Flow, FD any, Req any, Resp any] struct {
	impl NewIntegration[F, FD, Req, Resp]
}

func shapeError(direction string, err error) error {
	return models.NewError(models.ErrKindResponseHandlingFailed, fmt.Errorf("convert to %s shape: %w", direction, err))
}

func (b v2Bridge[F, FD, Req, Resp]) toNew(rd *models.RouterData[F, Req, Resp]) (*models.RouterDataV2[F, FD, Req, Resp], error) {
	converted, err := b.impl.ToNewShape(rd)
	if err != nil {
		return nil, shapeError("new", err)
	}
	return converted, nil
}

func (b v2Bridge[F, FD, Req, Resp]) Headers(rd *models.RouterData[F, Req, Resp]) ([]Header, error) {
	converted, err := b.toNew(rd)
	if err != nil {
		return nil, err
	}
	return b.impl.Headers(converted)
}

func (b v2Bridge[F, FD, Req, Resp]) ContentType() string {
	return b.impl.ContentType()
}

func (b v2Bridge[F, FD, Req, Resp]) URL(rd *models.RouterData[F, Req, Resp]) (string, error) {
	converted, err := b.toNew(rd)
	if err != nil {
		return "", err
	}
	return b.impl.URL(converted)
}

func (b v2Bridge[F, FD, Req, Resp]) RequestBody(rd *models.RouterData[F, Req, Resp]) (*RequestContent, error) {
	converted, err := b.toNew(rd)
	if err != nil {
		return nil, err
	}
	return b.impl.RequestBody(converted)
}

func (b v2Bridge[F, FD, Req, Resp]) BuildRequest(rd *models.RouterData[F, Req, Resp]) (*Request, error) {
	converted, err := b.toNew(rd)
	if err != nil {
		return nil, err
	}
	return b.impl.BuildRequest(converted)
}

func (b v2Bridge[F, FD, Req, Resp]) HandleResponse(rd *models.RouterData[F, Req, Resp], res Response, log *zap.Logger) (*models.RouterData[F, Req, Resp], error) {
	converted, err := b.toNew(rd)
	if err != nil {
		return nil, err
	}
	updated, err := b.impl.HandleResponse(converted, res, log)
	if err != nil {
		return nil, err
	}
	back, err := b.impl.ToOldShape(updated, rd)
	if err != nil {
		return nil, shapeError("old", err)
	}
	return back, nil
}

func (b v2Bridge[F, FD, Req, Resp]) ErrorResponse(res Response) models.ErrorResponse {
	return b.impl.ErrorResponse(res)
}

func (b v2Bridge[F, FD, Req, Resp]) MultipleCaptureSyncMethod() (models.CaptureSyncMethod, error) {
	return b.impl.MultipleCaptureSyncMethod()
}
