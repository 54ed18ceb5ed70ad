package events

import (
	"context"
	"errors"

	"github.com/akylbek/payment-system/connector-switch/internal/interfaces"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// Fanout publishes to every publisher and joins their errors. A failing
// broker does not stop delivery to the others.
type Fanout []interfaces.EventPublisher

// PublishTransition sends t to every publisher, joining their errors.
func (f Fanout) PublishTransition(ctx context.Context, t models.StatusTransition) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishTransition(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f Fanout) PublishWebhook(ctx context.Context, rec models.WebhookEventRecord) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishWebhook(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
