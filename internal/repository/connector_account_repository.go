package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// ConnectorAccountRepository stores merchant connector accounts in PostgreSQL.
type ConnectorAccountRepository struct {
	db *sql.DB
}

func NewConnectorAccountRepository(db *sql.DB) *ConnectorAccountRepository {
	return &ConnectorAccountRepository{db: db}
}

// InitDB creates the tables if they don't exist
func (r *ConnectorAccountRepository) InitDB() error {
	_, err := r.db.Exec(`CREATE TABLE IF NOT EXISTS merchant_connector_accounts (
		merchant_id VARCHAR(255) NOT NULL,
		connector VARCHAR(64) NOT NULL,
		auth_type VARCHAR(32) NOT NULL,
		api_key TEXT,
		key1 TEXT,
		api_secret TEXT,
		webhook_secret TEXT,
		test_mode BOOLEAN NOT NULL DEFAULT TRUE,
		disabled BOOLEAN NOT NULL DEFAULT FALSE,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (merchant_id, connector)
	)`)
	return err
}

func (r *ConnectorAccountRepository) GetAccount(ctx context.Context, merchantID, connector string) (*models.ConnectorAccount, error) {
	var (
		acc                                    models.ConnectorAccount
		authType                               string
		apiKey, key1, apiSecret, webhookSecret sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT merchant_id, connector, auth_type, api_key, key1, api_secret, webhook_secret, test_mode, disabled, updated_at
		FROM merchant_connector_accounts WHERE merchant_id = $1 AND connector = $2
	`, merchantID, connector).Scan(
		&acc.MerchantID, &acc.Connector, &authType, &apiKey, &key1, &apiSecret,
		&webhookSecret, &acc.TestMode, &acc.Disabled, &acc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	acc.Auth = models.ConnectorAuthType{
		Kind:      models.AuthKind(authType),
		APIKey:    models.NewSecret(apiKey.String),
		Key1:      models.NewSecret(key1.String),
		APISecret: models.NewSecret(apiSecret.String),
	}
	acc.WebhookSecret = models.NewSecret(webhookSecret.String)
	return &acc, nil
}

func (r *ConnectorAccountRepository) UpsertAccount(ctx context.Context, acc models.ConnectorAccount) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO merchant_connector_accounts
			(merchant_id, connector, auth_type, api_key, key1, api_secret, webhook_secret, test_mode, disabled)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (merchant_id, connector) DO UPDATE SET
			auth_type = EXCLUDED.auth_type,
			api_key = EXCLUDED.api_key,
			key1 = EXCLUDED.key1,
			api_secret = EXCLUDED.api_secret,
			webhook_secret = EXCLUDED.webhook_secret,
			test_mode = EXCLUDED.test_mode,
			disabled = EXCLUDED.disabled,
			updated_at = NOW()
	`, acc.MerchantID, acc.Connector, string(acc.Auth.Kind),
		acc.Auth.APIKey.Expose(), acc.Auth.Key1.Expose(), acc.Auth.APISecret.Expose(),
		acc.WebhookSecret.Expose(), acc.TestMode, acc.Disabled)
	return err
}
