package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/service"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

// WebhookIngester processes one inbound callback.
type WebhookIngester interface {
	Ingest(ctx context.Context, merchantID, connectorName string, req *webhook.Request) (*service.WebhookResult, error)
}

// WebhookHandler receives processor callbacks.
type WebhookHandler struct {
	svc WebhookIngester
}

func NewWebhookHandler(svc WebhookIngester) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// Receive handles POST /webhooks/:merchant_id/:connector. The body is
// passed through untouched; signatures are computed over the raw bytes.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	req := &webhook.Request{
		Method:  c.Request.Method,
		Headers: c.Request.Header,
		Query:   c.Request.URL.Query(),
		Body:    body,
	}
	merchantID := c.Param("merchant_id")
	name := c.Param("connector")

	res, err := h.svc.Ingest(c.Request.Context(), merchantID, name, req)
	if errors.Is(err, service.ErrDuplicateWebhook) {
		c.JSON(http.StatusOK, gin.H{"status": "duplicate"})
		return
	}
	if err != nil {
		status := webhookErrorStatus(err)
		if status >= http.StatusInternalServerError {
			telemetry.Logger.Error("Error ingesting webhook",
				zap.String("connector", name),
				zap.String("merchant_id", merchantID),
				zap.Error(err),
			)
		}
		body := gin.H{"error": err.Error()}
		if kind, ok := models.KindOf(err); ok {
			body["kind"] = kind
		}
		c.JSON(status, body)
		return
	}
	c.JSON(http.StatusOK, res)
}

func webhookErrorStatus(err error) int {
	switch {
	case errors.Is(err, connector.ErrUnknownConnector):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, models.ErrWebhookSignatureNotFound),
		errors.Is(err, models.ErrWebhookSourceVerificationFailed):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrWebhookReferenceIDNotFound),
		errors.Is(err, models.ErrWebhookEventTypeNotFound),
		errors.Is(err, models.ErrWebhookResourceObjectNotFound),
		errors.Is(err, models.ErrResponseDeserializationFailed):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
