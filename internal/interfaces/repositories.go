package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// ConnectorAccountRepository defines the contract for merchant connector configuration
type ConnectorAccountRepository interface {
	GetAccount(ctx context.Context, merchantID, connector string) (*models.ConnectorAccount, error)
	UpsertAccount(ctx context.Context, account models.ConnectorAccount) error
}

// ObjectStateRepository defines the contract for stored canonical states
type ObjectStateRepository interface {
	InsertInitialState(ctx context.Context, state models.ObjectState) error
	TransitionState(ctx context.Context, connector string, kind models.ReferenceKind, objectID, from, to string) (int64, error)
	FindState(ctx context.Context, connector string, ref models.ObjectReferenceID) (*models.ObjectState, error)
}

// WebhookEventRepository stores classified webhook snapshots
type WebhookEventRepository interface {
	SaveEvent(ctx context.Context, record models.WebhookEventRecord) error
}
