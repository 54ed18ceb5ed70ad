package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
)

// ConnectorsHandler exposes the registry metadata.
type ConnectorsHandler struct {
	registry *connector.Registry
}

func NewConnectorsHandler(registry *connector.Registry) *ConnectorsHandler {
	return &ConnectorsHandler{registry: registry}
}

// List returns the metadata of every registered connector.
func (h *ConnectorsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connectors": h.registry.Metadata()})
}
