package connector

import (
	"encoding/json"
	"encoding/xml"
	"fmt"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// Defaults supplies the behaviour of a flow a connector does not implement.
// Integrations embed it and override what they support.
type Defaults[F models.Flow, Req any, Resp any] struct{}

func (Defaults[F, Req, Resp]) Headers(*models.RouterData[F, Req, Resp]) ([]Header, error) {
	return nil, nil
}

func (Defaults[F, Req, Resp]) ContentType() string {
	return ContentTypeJSON
}

func (Defaults[F, Req, Resp]) URL(rd *models.RouterData[F, Req, Resp]) (string, error) {
	return "", models.NotImplemented(string(rd.FlowName()))
}

func (Defaults[F, Req, Resp]) RequestBody(*models.RouterData[F, Req, Resp]) (*RequestContent, error) {
	return nil, nil
}

func (Defaults[F, Req, Resp]) BuildRequest(*models.RouterData[F, Req, Resp]) (*Request, error) {
	return nil, nil
}

func (Defaults[F, Req, Resp]) HandleResponse(rd *models.RouterData[F, Req, Resp], _ Response, _ *zap.Logger) (*models.RouterData[F, Req, Resp], error) {
	return nil, models.NotImplemented(string(rd.FlowName()))
}

func (Defaults[F, Req, Resp]) ErrorResponse(res Response) models.ErrorResponse {
	return models.FallbackErrorResponse(res.StatusCode)
}

func (Defaults[F, Req, Resp]) MultipleCaptureSyncMethod() (models.CaptureSyncMethod, error) {
	return "", models.NotImplemented("multiple_capture_sync")
}

// DefaultsV2 is Defaults for new-generation integrations.
type DefaultsV2[F models.Flow, FD any, Req any, Resp any] struct{}

func (DefaultsV2[F, FD, Req, Resp]) Headers(*models.RouterDataV2[F, FD, Req, Resp]) ([]Header, error) {
	return nil, nil
}

func (DefaultsV2[F, FD, Req, Resp]) ContentType() string {
	return ContentTypeJSON
}

func (DefaultsV2[F, FD, Req, Resp]) URL(rd *models.RouterDataV2[F, FD, Req, Resp]) (string, error) {
	return "", models.NotImplemented(string(rd.FlowName()))
}

func (DefaultsV2[F, FD, Req, Resp]) RequestBody(*models.RouterDataV2[F, FD, Req, Resp]) (*RequestContent, error) {
	return nil, nil
}

// BuildRequest reports the flow as unsupported.
func (DefaultsV2[F, FD, Req, Resp]) BuildRequest(*models.RouterDataV2[F, FD, Req, Resp]) (*Request, error) {
	return nil, nil
}

func (DefaultsV2[F, FD, Req, Resp]) HandleResponse(rd *models.RouterDataV2[F, FD, Req, Resp], _ Response, _ *zap.Logger) (*models.RouterDataV2[F, FD, Req, Resp], error) {
	return nil, models.NotImplemented(string(rd.FlowName()))
}

func (DefaultsV2[F, FD, Req, Resp]) ErrorResponse(res Response) models.ErrorResponse {
	return models.FallbackErrorResponse(res.StatusCode)
}

func (DefaultsV2[F, FD, Req, Resp]) MultipleCaptureSyncMethod() (models.CaptureSyncMethod, error) {
	return "", models.NotImplemented("multiple_capture_sync")
}

// Unsupported is the integration used for flows a connector never registered.
func Unsupported[F models.Flow, Req any, Resp any]() Integration[F, Req, Resp] {
	return Defaults[F, Req, Resp]{}
}

// Build composes a request from an integration's parts in contract order.
// GET requests carry no body.
func Build[F models.Flow, Req any, Resp any](i Integration[F, Req, Resp], method Method, rd *models.RouterData[F, Req, Resp]) (*Request, error) {
	headers, err := i.Headers(rd)
	if err != nil {
		return nil, err
	}
	contentType := i.ContentType()
	url, err := i.URL(rd)
	if err != nil {
		return nil, err
	}
	req := &Request{Method: method, URL: url, Headers: headers}
	if method != MethodGet {
		if req.Body, err = i.RequestBody(rd); err != nil {
			return nil, err
		}
		if req.Body != nil && req.Body.ContentType == "" {
			req.Body.ContentType = contentType
		}
	}
	return req, nil
}

// BuildV2 is Build for new-generation integrations.
func BuildV2[F models.Flow, FD any, Req any, Resp any](i IntegrationV2[F, FD, Req, Resp], method Method, rd *models.RouterDataV2[F, FD, Req, Resp]) (*Request, error) {
	headers, err := i.Headers(rd)
	if err != nil {
		return nil, err
	}
	contentType := i.ContentType()
	url, err := i.URL(rd)
	if err != nil {
		return nil, err
	}
	req := &Request{Method: method, URL: url, Headers: headers}
	if method != MethodGet {
		if req.Body, err = i.RequestBody(rd); err != nil {
			return nil, err
		}
		if req.Body != nil && req.Body.ContentType == "" {
			req.Body.ContentType = contentType
		}
	}
	return req, nil
}

// DecodeJSON parses a connector body into its typed response.
func DecodeJSON[T any](body []byte) (T, error) {
	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return out, models.NewError(models.ErrKindResponseDeserializationFailed, err)
	}
	return out, nil
}

// DecodeXML parses an XML connector body into its typed response.
func DecodeXML[T any](body []byte) (T, error) {
	var out T
	if err := xml.Unmarshal(body, &out); err != nil {
		return out, models.NewError(models.ErrKindResponseDeserializationFailed, err)
	}
	return out, nil
}

// ParseErrorResponse decodes a processor error body with decode and maps it
// with toError. Any decode failure, or an empty mapping, falls back to the
// generic response; the HTTP status is always preserved.
func ParseErrorResponse[T any](res Response, decode func([]byte) (T, error), toError func(T) models.ErrorResponse) models.ErrorResponse {
	parsed, err := decode(res.Body)
	if err != nil {
		return models.FallbackErrorResponse(res.StatusCode)
	}
	out := toError(parsed)
	out.StatusCode = res.StatusCode
	if out.Code == "" {
		out.Code = models.NoErrorCode
	}
	if out.Message == "" {
		out.Message = models.NoErrorMessage
	}
	return out
}

// LogResponse records the parsed, typed connector response. Secrets inside
// it are models.Secret values and render masked.
func LogResponse(log *zap.Logger, connectorID string, flow models.FlowName, parsed any) {
	if log == nil {
		return
	}
	log.Info("connector response",
		zap.String("connector", connectorID),
		zap.String("flow", string(flow)),
		zap.Any("connector_response", parsed),
	)
}

// UnexpectedStatus reports a processor status code an integration could not
// place in any mapping branch.
func UnexpectedStatus(connectorID, status string) error {
	return models.UnexpectedResponse(fmt.Sprintf("%s: status %q", connectorID, status))
}
