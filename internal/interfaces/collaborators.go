package interfaces

import (
	"context"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// ConnectorTransport performs the outbound call for a built request
type ConnectorTransport interface {
	Send(ctx context.Context, req *connector.Request) (connector.Response, error)
}

// EventPublisher fans out state transitions and classified webhooks
type EventPublisher interface {
	PublishTransition(ctx context.Context, transition models.StatusTransition) error
	PublishWebhook(ctx context.Context, record models.WebhookEventRecord) error
}

// SyncRequester queues a sync for an object whose last call has an unknown outcome
type SyncRequester interface {
	RequestSync(ctx context.Context, req models.SyncRequest) error
}
