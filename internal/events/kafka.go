// Package events publishes state transitions and classified webhooks to
// the brokers the rest of the payment system listens on.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
)

const (
	TopicStatusChanged   = "connector.status.changed"
	TopicWebhookReceived = "connector.webhook.received"
	TopicSyncRequested   = "connector.sync.requested"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes transitions and webhooks to their topics. Messages
// are keyed by object id so a payment's events stay ordered in one
// partition.
type KafkaPublisher struct {
	transitions MessageWriter
	webhooks    MessageWriter
}

// NewKafkaPublisher publishes transitions and webhooks on separate writers.
func NewKafkaPublisher(transitions, webhooks MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{transitions: transitions, webhooks: webhooks}
}

// NewKafkaWriter builds a writer for one topic.
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:     kafka.TCP(brokers),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
}

func (p *KafkaPublisher) PublishTransition(ctx context.Context, t models.StatusTransition) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return err
	}
	if err := p.transitions.WriteMessages(ctx, kafka.Message{Key: []byte(t.ObjectID), Value: payload}); err != nil {
		return fmt.Errorf("publish transition: %w", err)
	}
	telemetry.Logger.Info("Connector state transition",
		zap.String("connector", t.Connector),
		zap.String("object_id", t.ObjectID),
		zap.String("from_state", t.From),
		zap.String("to_state", t.To),
	)
	return nil
}

func (p *KafkaPublisher) PublishWebhook(ctx context.Context, rec models.WebhookEventRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := rec.ID
	if rec.Reference != nil {
		key = rec.Reference.ID
	}
	if err := p.webhooks.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: payload}); err != nil {
		return fmt.Errorf("publish webhook: %w", err)
	}
	return nil
}
