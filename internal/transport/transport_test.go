package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

func TestSendPostsBodyAndHeaders(t *testing.T) {
	var gotBody, gotAuth, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		w.Header().Set("X-Request-Id", "req_1")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pi_1"}`))
	}))
	defer srv.Close()

	body, err := connector.JSONContent(map[string]int{"amount": 1050})
	require.NoError(t, err)
	res, err := NewHTTPClient(5*time.Second).Send(context.Background(), &connector.Request{
		Method:  connector.MethodPost,
		URL:     srv.URL + "/v1/payments",
		Headers: []connector.Header{connector.MaskedHeader("Authorization", "Bearer sk_test")},
		Body:    body,
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.Equal(t, `{"id":"pi_1"}`, string(res.Body))
	assert.Equal(t, "req_1", res.Headers.Get("X-Request-Id"))
	assert.Equal(t, `{"amount":1050}`, gotBody)
	assert.Equal(t, "Bearer sk_test", gotAuth)
	assert.Equal(t, connector.ContentTypeJSON, gotType)
}

func TestSendTransportErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewHTTPClient(time.Second).Send(context.Background(), &connector.Request{
		Method: connector.MethodGet,
		URL:    url,
	})
	assert.Error(t, err)
}

func TestSendCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := NewHTTPClient(5*time.Second).Send(ctx, &connector.Request{Method: connector.MethodGet, URL: srv.URL})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSendRejectsBadCertificate(t *testing.T) {
	_, err := NewHTTPClient(time.Second).Send(context.Background(), &connector.Request{
		Method:         connector.MethodGet,
		URL:            "https://localhost",
		Certificate:    models.NewSecret("not a pem"),
		CertificateKey: models.NewSecret("nor this"),
	})
	assert.ErrorIs(t, err, ErrInvalidCertificate)
	assert.ErrorIs(t, err, connector.ErrNotSent)
}

func TestSendMalformedURLIsNotSent(t *testing.T) {
	_, err := NewHTTPClient(time.Second).Send(context.Background(), &connector.Request{
		Method: connector.MethodGet,
		URL:    "http://processor.test/\x7f\n",
	})
	assert.ErrorIs(t, err, connector.ErrNotSent)
}

func TestSendRejectsOversizedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), maxResponseBytes+1))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(5*time.Second).Send(context.Background(), &connector.Request{Method: connector.MethodGet, URL: srv.URL})
	assert.ErrorIs(t, err, ErrResponseTooLarge)
	assert.NotErrorIs(t, err, connector.ErrNotSent)
}

func TestSendAcceptsResponseAtLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("a"), maxResponseBytes))
	}))
	defer srv.Close()

	res, err := NewHTTPClient(5*time.Second).Send(context.Background(), &connector.Request{Method: connector.MethodGet, URL: srv.URL})
	require.NoError(t, err)
	assert.Len(t, res.Body, maxResponseBytes)
}
