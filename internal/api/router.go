package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/handlers"
	"github.com/akylbek/payment-system/connector-switch/internal/interfaces"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
)

// NewRouter wires the handlers onto a gin engine with tracing and metrics.
func NewRouter(
	registry *connector.Registry,
	runner handlers.FlowRunner,
	ingester handlers.WebhookIngester,
	states interfaces.ObjectStateRepository,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "connector-switch"})
	})

	// Processor callbacks
	webhookHandler := handlers.NewWebhookHandler(ingester)
	r.POST("/webhooks/:merchant_id/:connector", webhookHandler.Receive)

	// Connector flows
	connectorsHandler := handlers.NewConnectorsHandler(registry)
	paymentHandler := handlers.NewPaymentHandler(runner)
	stateHandler := handlers.NewPaymentStateHandler(states)
	r.GET("/connectors", connectorsHandler.List)
	r.POST("/connectors/:connector/payments/:flow", paymentHandler.RunPaymentFlow)
	r.POST("/connectors/:connector/refunds/:flow", paymentHandler.RunRefundFlow)
	r.GET("/connectors/:connector/states/:kind/:id", stateHandler.GetState)

	return r
}
