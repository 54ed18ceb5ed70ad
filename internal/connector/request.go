package connector

import (
	"encoding/json"
	"encoding/xml"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// ErrNotSent marks a transport failure that happened before any bytes
// reached the processor.
var ErrNotSent = errors.New("request not sent")

// Method is the HTTP verb of an outbound request.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodPatch  Method = http.MethodPatch
	MethodDelete Method = http.MethodDelete
)

// HeaderValue is either a plain string or a masked one. Masked values never
// render through String.
type HeaderValue struct {
	value  string
	masked bool
}

// Plain wraps a header value that may be logged.
func Plain(value string) HeaderValue {
	return HeaderValue{value: value}
}

// Masked wraps a header value that must never be logged.
func Masked(value string) HeaderValue {
	return HeaderValue{value: value, masked: true}
}

// Expose returns the raw value for the wire.
func (v HeaderValue) Expose() string {
	return v.value
}

func (v HeaderValue) IsMasked() bool {
	return v.masked
}

func (v HeaderValue) String() string {
	if v.masked {
		return "*** masked ***"
	}
	return v.value
}

// Header is one outbound header.
type Header struct {
	Name  string
	Value HeaderValue
}

func PlainHeader(name, value string) Header {
	return Header{Name: name, Value: Plain(value)}
}

func MaskedHeader(name, value string) Header {
	return Header{Name: name, Value: Masked(value)}
}

const (
	HeaderContentType    = "Content-Type"
	HeaderAuthorization  = "Authorization"
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderAccept         = "Accept"
)

// ContentKind names the body encoding.
type ContentKind string

const (
	ContentJSON ContentKind = "json"
	ContentForm ContentKind = "form"
	ContentXML  ContentKind = "xml"
	ContentRaw  ContentKind = "raw"
)

const (
	ContentTypeJSON = "application/json"
	ContentTypeForm = "application/x-www-form-urlencoded"
	ContentTypeXML  = "text/xml"
)

// RequestContent is an encoded outgoing body.
type RequestContent struct {
	Kind        ContentKind
	ContentType string
	body        []byte
}

// Bytes returns the encoded body, or nil for an empty one.
func (c *RequestContent) Bytes() []byte {
	if c == nil {
		return nil
	}
	return c.body
}

// JSONContent encodes v as a JSON body.
func JSONContent(v any) (*RequestContent, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, models.NewError(models.ErrKindRequestEncodingFailed, err)
	}
	return &RequestContent{Kind: ContentJSON, ContentType: ContentTypeJSON, body: body}, nil
}

// FormContent encodes values as application/x-www-form-urlencoded.
func FormContent(values url.Values) *RequestContent {
	return &RequestContent{Kind: ContentForm, ContentType: ContentTypeForm, body: []byte(values.Encode())}
}

// XMLContent encodes v with the standard XML declaration and an optional
// DOCTYPE line some processors require.
func XMLContent(v any, doctype string) (*RequestContent, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, models.NewError(models.ErrKindRequestEncodingFailed, err)
	}
	var b strings.Builder
	b.WriteString(xml.Header)
	if doctype != "" {
		b.WriteString(doctype)
		b.WriteString("\n")
	}
	b.Write(body)
	return &RequestContent{Kind: ContentXML, ContentType: ContentTypeXML, body: []byte(b.String())}, nil
}

// RawContent sends body unchanged with the given content type.
func RawContent(body []byte, contentType string) *RequestContent {
	return &RequestContent{Kind: ContentRaw, ContentType: contentType, body: body}
}

// Request is the outgoing HTTP call a connector asks the transport to make.
type Request struct {
	Method  Method
	URL     string
	Headers []Header
	Body    *RequestContent

	// Client certificate material for mutually authenticated connectors.
	Certificate    models.Secret
	CertificateKey models.Secret
	CACertificate  models.Secret
}

// Header returns the first header with the given name, ignoring case.
func (r *Request) Header(name string) (HeaderValue, bool) {
	for _, h := range r.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return HeaderValue{}, false
}

// Response is the raw reply handed back by the transport.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsSuccess reports a 2xx status.
func (r Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}
