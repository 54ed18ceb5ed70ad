// Package connector defines the plugin contract every {connector, flow}
// pair implements, the bridge that lets old and new integration generations
// share one call surface, and the registry the dispatcher resolves from.
package connector

import (
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// Common is implemented once per connector and shared by all its flows.
type Common interface {
	ID() string
	BaseURL() string
	CommonContentType() string
	AuthHeaders(auth models.ConnectorAuthType) ([]Header, error)
	BuildErrorResponse(res Response) models.ErrorResponse
}

// Integration is the old-generation contract, operating directly on the
// canonical envelope. Calls happen in the order Headers, ContentType, URL,
// RequestBody, BuildRequest, then HandleResponse or ErrorResponse.
// Implementations that sign the body may build it inside Headers.
type Integration[F models.Flow, Req any, Resp any] interface {
	Headers(rd *models.RouterData[F, Req, Resp]) ([]Header, error)
	ContentType() string
	URL(rd *models.RouterData[F, Req, Resp]) (string, error)
	RequestBody(rd *models.RouterData[F, Req, Resp]) (*RequestContent, error)
	// BuildRequest returns a nil request when the connector does not
	// support the flow.
	BuildRequest(rd *models.RouterData[F, Req, Resp]) (*Request, error)
	HandleResponse(rd *models.RouterData[F, Req, Resp], res Response, log *zap.Logger) (*models.RouterData[F, Req, Resp], error)
	// ErrorResponse never fails; unparseable bodies fall back to
	// NO_ERROR_CODE / NO_ERROR_MESSAGE with the original status.
	ErrorResponse(res Response) models.ErrorResponse
	MultipleCaptureSyncMethod() (models.CaptureSyncMethod, error)
}

// IntegrationV2 is the new-generation contract over the reorganised
// per-flow envelope.
type IntegrationV2[F models.Flow, FD any, Req any, Resp any] interface {
	Headers(rd *models.RouterDataV2[F, FD, Req, Resp]) ([]Header, error)
	ContentType() string
	URL(rd *models.RouterDataV2[F, FD, Req, Resp]) (string, error)
	RequestBody(rd *models.RouterDataV2[F, FD, Req, Resp]) (*RequestContent, error)
	BuildRequest(rd *models.RouterDataV2[F, FD, Req, Resp]) (*Request, error)
	HandleResponse(rd *models.RouterDataV2[F, FD, Req, Resp], res Response, log *zap.Logger) (*models.RouterDataV2[F, FD, Req, Resp], error)
	ErrorResponse(res Response) models.ErrorResponse
	MultipleCaptureSyncMethod() (models.CaptureSyncMethod, error)
}

// ShapeConverter moves an envelope between the two generations.
type ShapeConverter[F models.Flow, FD any, Req any, Resp any] interface {
	ToNewShape(old *models.RouterData[F, Req, Resp]) (*models.RouterDataV2[F, FD, Req, Resp], error)
	ToOldShape(updated *models.RouterDataV2[F, FD, Req, Resp], old *models.RouterData[F, Req, Resp]) (*models.RouterData[F, Req, Resp], error)
}

// NewIntegration is what a new-generation connector must provide: the
// contract plus the conversion capability.
type NewIntegration[F models.Flow, FD any, Req any, Resp any] interface {
	IntegrationV2[F, FD, Req, Resp]
	ShapeConverter[F, FD, Req, Resp]
}
