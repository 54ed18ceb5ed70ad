package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/interfaces"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/repository"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
)

// PaymentStateHandler serves stored object states.
type PaymentStateHandler struct {
	repo interfaces.ObjectStateRepository
}

func NewPaymentStateHandler(repo interfaces.ObjectStateRepository) *PaymentStateHandler {
	return &PaymentStateHandler{repo: repo}
}

// GetState handles GET /connectors/:connector/states/:kind/:id. The id is
// the connector-side id unless ?by=internal asks for the orchestrator's.
func (h *PaymentStateHandler) GetState(c *gin.Context) {
	ref, ok := stateReference(models.ReferenceKind(c.Param("kind")), c.Param("id"), c.Query("by") == "internal")
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown object kind"})
		return
	}

	info, err := h.repo.FindState(c.Request.Context(), c.Param("connector"), ref)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "State not found"})
		return
	}
	if err != nil {
		telemetry.Logger.Error("Failed to fetch object state", zap.String("object_id", ref.ID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch state"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connector":      info.Connector,
		"kind":           info.Kind,
		"object_id":      info.ObjectID,
		"internal_id":    info.InternalID,
		"state":          info.State,
		"previous_state": info.PreviousState,
		"created_at":     info.CreatedAt,
		"updated_at":     info.UpdatedAt,
	})
}

func stateReference(kind models.ReferenceKind, id string, internal bool) (models.ObjectReferenceID, bool) {
	ref := models.ObjectReferenceID{Kind: kind, ID: id}
	switch {
	case kind == models.ReferencePayment && internal:
		ref.IDType = models.RefPaymentAttemptID
	case kind == models.ReferencePayment:
		ref.IDType = models.RefConnectorTransactionID
	case kind == models.ReferenceRefund && internal:
		ref.IDType = models.RefRefundID
	case kind == models.ReferenceRefund:
		ref.IDType = models.RefConnectorRefundID
	case kind == models.ReferenceDispute:
		ref.IDType = models.RefConnectorDisputeID
	default:
		return ref, false
	}
	return ref, true
}
