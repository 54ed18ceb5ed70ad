package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// NatsPublisher announces classified webhooks on connector.webhook.<event>
// and transitions on connector.status.<kind>.
type NatsPublisher struct {
	nc Conn
}

// NewNatsPublisher publishes on nc.
func NewNatsPublisher(nc Conn) *NatsPublisher {
	return &NatsPublisher{nc: nc}
}

func (p *NatsPublisher) PublishTransition(_ context.Context, t models.StatusTransition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return p.nc.Publish(fmt.Sprintf("connector.status.%s", t.Kind), payload)
}

func (p *NatsPublisher) PublishWebhook(_ context.Context, rec models.WebhookEventRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return p.nc.Publish(fmt.Sprintf("connector.webhook.%s", rec.Event), payload)
}
