package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// WebhookEventRepository keeps an audit row per accepted callback.
type WebhookEventRepository struct {
	db *sql.DB
}

func NewWebhookEventRepository(db *sql.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// InitDB creates the tables if they don't exist
func (r *WebhookEventRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS connector_webhook_events (
			id UUID PRIMARY KEY,
			merchant_id VARCHAR(255) NOT NULL,
			connector VARCHAR(64) NOT NULL,
			event VARCHAR(64) NOT NULL,
			verified BOOLEAN NOT NULL,
			reference JSONB,
			resource JSONB NOT NULL,
			received_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_connector_webhook_events_merchant ON connector_webhook_events(merchant_id, connector)`,
	}
	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}
	return nil
}

func (r *WebhookEventRepository) SaveEvent(ctx context.Context, rec models.WebhookEventRecord) error {
	var reference []byte
	if rec.Reference != nil {
		var err error
		if reference, err = json.Marshal(rec.Reference); err != nil {
			return err
		}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO connector_webhook_events (id, merchant_id, connector, event, verified, reference, resource, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.ID, rec.MerchantID, rec.Connector, string(rec.Event), rec.Verified, reference, []byte(rec.Resource), rec.ReceivedAt)
	return err
}
