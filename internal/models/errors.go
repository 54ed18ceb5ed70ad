package models

import (
	"errors"
	"fmt"
)

// ErrorKind is the connector-independent error taxonomy. Every connector
// failure resolves to exactly one kind.
type ErrorKind string

const (
	ErrKindFailedToObtainAuthType          ErrorKind = "failed_to_obtain_auth_type"
	ErrKindMissingRequiredField            ErrorKind = "missing_required_field"
	ErrKindNotImplemented                  ErrorKind = "not_implemented"
	ErrKindCaptureMethodNotSupported       ErrorKind = "capture_method_not_supported"
	ErrKindResponseDeserializationFailed   ErrorKind = "response_deserialization_failed"
	ErrKindResponseHandlingFailed          ErrorKind = "response_handling_failed"
	ErrKindWebhookSignatureNotFound        ErrorKind = "webhook_signature_not_found"
	ErrKindWebhookSourceVerificationFailed ErrorKind = "webhook_source_verification_failed"
	ErrKindWebhookReferenceIDNotFound      ErrorKind = "webhook_reference_id_not_found"
	ErrKindWebhookEventTypeNotFound        ErrorKind = "webhook_event_type_not_found"
	ErrKindWebhookResourceObjectNotFound   ErrorKind = "webhook_resource_object_not_found"
	ErrKindMissingConnectorTransactionID   ErrorKind = "missing_connector_transaction_id"
	ErrKindMissingConnectorRefundID        ErrorKind = "missing_connector_refund_id"
	ErrKindUnexpectedResponseError         ErrorKind = "unexpected_response_error"
	ErrKindRequestEncodingFailed           ErrorKind = "request_encoding_failed"
	ErrKindAmountConversionFailed          ErrorKind = "amount_conversion_failed"
)

// ConnectorError carries a canonical kind plus the processor detail that
// produced it. errors.Is matches on kind alone.
type ConnectorError struct {
	Kind       ErrorKind
	Field      string
	Capability string
	Raw        string
	Err        error
}

func (e *ConnectorError) Error() string {
	msg := string(e.Kind)
	switch {
	case e.Field != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Field)
	case e.Capability != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Capability)
	case e.Raw != "":
		msg = fmt.Sprintf("%s: %s", msg, e.Raw)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *ConnectorError) Unwrap() error {
	return e.Err
}

func (e *ConnectorError) Is(target error) bool {
	var t *ConnectorError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrFailedToObtainAuthType          = &ConnectorError{Kind: ErrKindFailedToObtainAuthType}
	ErrMissingRequiredField            = &ConnectorError{Kind: ErrKindMissingRequiredField}
	ErrNotImplemented                  = &ConnectorError{Kind: ErrKindNotImplemented}
	ErrCaptureMethodNotSupported       = &ConnectorError{Kind: ErrKindCaptureMethodNotSupported}
	ErrResponseDeserializationFailed   = &ConnectorError{Kind: ErrKindResponseDeserializationFailed}
	ErrResponseHandlingFailed          = &ConnectorError{Kind: ErrKindResponseHandlingFailed}
	ErrWebhookSignatureNotFound        = &ConnectorError{Kind: ErrKindWebhookSignatureNotFound}
	ErrWebhookSourceVerificationFailed = &ConnectorError{Kind: ErrKindWebhookSourceVerificationFailed}
	ErrWebhookReferenceIDNotFound      = &ConnectorError{Kind: ErrKindWebhookReferenceIDNotFound}
	ErrWebhookEventTypeNotFound        = &ConnectorError{Kind: ErrKindWebhookEventTypeNotFound}
	ErrWebhookResourceObjectNotFound   = &ConnectorError{Kind: ErrKindWebhookResourceObjectNotFound}
	ErrMissingConnectorTransactionID   = &ConnectorError{Kind: ErrKindMissingConnectorTransactionID}
	ErrMissingConnectorRefundID        = &ConnectorError{Kind: ErrKindMissingConnectorRefundID}
	ErrUnexpectedResponseError         = &ConnectorError{Kind: ErrKindUnexpectedResponseError}
	ErrRequestEncodingFailed           = &ConnectorError{Kind: ErrKindRequestEncodingFailed}
	ErrAmountConversionFailed          = &ConnectorError{Kind: ErrKindAmountConversionFailed}
)

// NewError wraps err under kind.
func NewError(kind ErrorKind, err error) *ConnectorError {
	return &ConnectorError{Kind: kind, Err: err}
}

// MissingRequiredField names the absent field.
func MissingRequiredField(field string) *ConnectorError {
	return &ConnectorError{Kind: ErrKindMissingRequiredField, Field: field}
}

// NotImplemented names the capability the connector lacks.
func NotImplemented(capability string) *ConnectorError {
	return &ConnectorError{Kind: ErrKindNotImplemented, Capability: capability}
}

func CaptureMethodNotSupported(method CaptureMethod) *ConnectorError {
	return &ConnectorError{Kind: ErrKindCaptureMethodNotSupported, Capability: string(method)}
}

// UnexpectedResponse keeps the raw body for diagnosis.
func UnexpectedResponse(raw string) *ConnectorError {
	return &ConnectorError{Kind: ErrKindUnexpectedResponseError, Raw: raw}
}

// KindOf extracts the canonical kind from an error chain.
func KindOf(err error) (ErrorKind, bool) {
	var ce *ConnectorError
	if errors.As(err, &ce) {
		return ce.Kind, true
	}
	return "", false
}

const (
	NoErrorCode    = "NO_ERROR_CODE"
	NoErrorMessage = "NO_ERROR_MESSAGE"
)

// ErrorResponse is the canonical shape of a processor's failure reply.
type ErrorResponse struct {
	StatusCode             int    `json:"status_code"`
	Code                   string `json:"code"`
	Message                string `json:"message"`
	Reason                 string `json:"reason,omitempty"`
	ConnectorTransactionID string `json:"connector_transaction_id,omitempty"`
}

// FallbackErrorResponse is used whenever a processor error body cannot be parsed.
func FallbackErrorResponse(statusCode int) ErrorResponse {
	return ErrorResponse{
		StatusCode: statusCode,
		Code:       NoErrorCode,
		Message:    NoErrorMessage,
	}
}
