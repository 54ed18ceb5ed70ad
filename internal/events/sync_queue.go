package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
)

// SyncQueue carries sync requests for calls that ended without a reply.
type SyncQueue struct {
	writer  MessageWriter
	brokers string
}

// NewSyncQueue produces through writer and consumes from brokers.
func NewSyncQueue(writer MessageWriter, brokers string) *SyncQueue {
	return &SyncQueue{writer: writer, brokers: brokers}
}

// RequestSync enqueues req keyed by payment id so syncs for one payment stay ordered.
func (q *SyncQueue) RequestSync(ctx context.Context, req models.SyncRequest) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if err := q.writer.WriteMessages(ctx, kafka.Message{Key: []byte(req.PaymentID), Value: payload}); err != nil {
		return fmt.Errorf("publish sync request: %w", err)
	}
	return nil
}

// Consume reads sync requests until ctx is cancelled and hands each to
// handle. Handler errors are logged; the message is not retried.
func (q *SyncQueue) Consume(ctx context.Context, handle func(context.Context, models.SyncRequest) error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  []string{q.brokers},
		Topic:    TopicSyncRequested,
		GroupID:  "connector-switch",
		MinBytes: 10e3,
		MaxBytes: 10e6,
	})
	defer reader.Close()

	telemetry.Logger.Info("Started consuming sync requests")

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			telemetry.Logger.Error("Error reading message from Kafka", zap.Error(err))
			continue
		}

		var req models.SyncRequest
		if err := json.Unmarshal(msg.Value, &req); err != nil {
			telemetry.Logger.Error("Error unmarshaling sync request", zap.Error(err))
			continue
		}

		if err := handle(ctx, req); err != nil {
			telemetry.Logger.Error("Error syncing object",
				zap.String("payment_id", req.PaymentID),
				zap.String("connector", req.Connector),
				zap.Error(err),
			)
		}
	}
}
