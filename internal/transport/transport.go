// Package transport performs the outbound HTTP call between BuildRequest
// and HandleResponse. It is the only place the switch blocks on a
// processor.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
)

const maxResponseBytes = 4 << 20

var (
	ErrInvalidCertificate = errors.New("invalid client certificate")
	ErrResponseTooLarge   = errors.New("response body too large")
)

// HTTPClient sends connector requests over net/http.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// NewHTTPClient returns a client whose calls give up after timeout.
func NewHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  wrap(&http.Client{Timeout: timeout}),
		timeout: timeout,
	}
}

// Send executes req. Errors wrapping connector.ErrNotSent failed before
// dialing; any other error means the processor may or may not have acted
// on the call.
func (c *HTTPClient) Send(ctx context.Context, req *connector.Request) (connector.Response, error) {
	httpReq, err := toHTTPRequest(ctx, req)
	if err != nil {
		return connector.Response{}, fmt.Errorf("%w: %w", connector.ErrNotSent, err)
	}

	client := c.client
	if !req.Certificate.IsEmpty() {
		client, err = c.mutualTLSClient(req)
		if err != nil {
			return connector.Response{}, fmt.Errorf("%w: %w", connector.ErrNotSent, err)
		}
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return connector.Response{}, fmt.Errorf("send %s %s: %w", req.Method, httpReq.URL.Host, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return connector.Response{}, fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxResponseBytes {
		return connector.Response{}, fmt.Errorf("%w: status %d over %d bytes", ErrResponseTooLarge, resp.StatusCode, maxResponseBytes)
	}

	telemetry.FromContext(ctx).Debug("Connector call finished",
		zap.String("method", string(req.Method)),
		zap.String("host", httpReq.URL.Host),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return connector.Response{StatusCode: resp.StatusCode, Headers: resp.Header, Body: body}, nil
}

func toHTTPRequest(ctx context.Context, req *connector.Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body.Bytes())
	}
	httpReq, err := http.NewRequestWithContext(ctx, string(req.Method), req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("build http request: %w", err)
	}
	for _, h := range req.Headers {
		httpReq.Header.Add(h.Name, h.Value.Expose())
	}
	if req.Body != nil && httpReq.Header.Get(connector.HeaderContentType) == "" {
		httpReq.Header.Set(connector.HeaderContentType, req.Body.ContentType)
	}
	return httpReq, nil
}

// mutualTLSClient builds a client for one request; certificate material is
// never cached since it may rotate between calls.
func (c *HTTPClient) mutualTLSClient(req *connector.Request) (*http.Client, error) {
	cert, err := tls.X509KeyPair([]byte(req.Certificate.Expose()), []byte(req.CertificateKey.Expose()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCertificate, err)
	}
	cfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	if !req.CACertificate.IsEmpty() {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM([]byte(req.CACertificate.Expose())) {
			return nil, fmt.Errorf("%w: ca bundle", ErrInvalidCertificate)
		}
		cfg.RootCAs = pool
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSClientConfig = cfg
	return wrap(&http.Client{Timeout: c.timeout, Transport: base}), nil
}

func wrap(client *http.Client) *http.Client {
	base := client.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	client.Transport = &tracingTransport{base: base, tracer: otel.Tracer("connector-switch/http")}
	return client
}

type tracingTransport struct {
	base   http.RoundTripper
	tracer trace.Tracer
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx, span := t.tracer.Start(req.Context(), "HTTP "+strings.ToUpper(req.Method), trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := t.base.RoundTrip(req.WithContext(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "client error")
		return resp, err
	}
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.host", req.URL.Host),
		attribute.Int("http.status_code", resp.StatusCode),
	)
	if resp.StatusCode >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, "server error")
	}
	return resp, nil
}
