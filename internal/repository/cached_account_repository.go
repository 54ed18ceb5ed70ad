package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/interfaces"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
)

// cachedAccount is the redis form of an account. Secret values are kept
// as plain strings because models.Secret masks itself on marshal.
type cachedAccount struct {
	MerchantID    string `json:"merchant_id"`
	Connector     string `json:"connector"`
	AuthType      string `json:"auth_type"`
	APIKey        string `json:"api_key"`
	Key1          string `json:"key1"`
	APISecret     string `json:"api_secret"`
	WebhookSecret string `json:"webhook_secret"`
	TestMode      bool   `json:"test_mode"`
	Disabled      bool   `json:"disabled"`
}

// CachedAccountRepository is a read-through redis cache in front of the
// account store. A short TTL bounds how long a rotated secret stays stale.
type CachedAccountRepository struct {
	next        interfaces.ConnectorAccountRepository
	redisClient *redis.Client
	ttl         time.Duration
}

// NewCachedAccountRepository caches next in redis for ttl.
func NewCachedAccountRepository(next interfaces.ConnectorAccountRepository, redisClient *redis.Client, ttl time.Duration) *CachedAccountRepository {
	return &CachedAccountRepository{next: next, redisClient: redisClient, ttl: ttl}
}

func accountKey(merchantID, connector string) string {
	return fmt.Sprintf("connector_account:%s:%s", merchantID, connector)
}

// GetAccount reads through the cache. A redis failure falls back to next.
func (r *CachedAccountRepository) GetAccount(ctx context.Context, merchantID, connector string) (*models.ConnectorAccount, error) {
	key := accountKey(merchantID, connector)
	raw, err := r.redisClient.Get(ctx, key).Bytes()
	if err == nil {
		var cached cachedAccount
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached.account(), nil
		}
		telemetry.Logger.Warn("Dropping corrupt account cache entry", zap.String("key", key))
	} else if !errors.Is(err, redis.Nil) {
		telemetry.Logger.Warn("Account cache unavailable", zap.Error(err))
	}

	acc, err := r.next.GetAccount(ctx, merchantID, connector)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(toCached(acc)); err == nil {
		if err := r.redisClient.Set(ctx, key, payload, r.ttl).Err(); err != nil {
			telemetry.Logger.Warn("Account cache write failed", zap.Error(err))
		}
	}
	return acc, nil
}

// UpsertAccount writes through and invalidates the cached entry.
func (r *CachedAccountRepository) UpsertAccount(ctx context.Context, acc models.ConnectorAccount) error {
	if err := r.next.UpsertAccount(ctx, acc); err != nil {
		return err
	}
	return r.redisClient.Del(ctx, accountKey(acc.MerchantID, acc.Connector)).Err()
}

// WebhookSecret resolves the merchant's signing secret for a connector.
func (r *CachedAccountRepository) WebhookSecret(ctx context.Context, merchantID, connector string) (models.Secret, error) {
	acc, err := r.GetAccount(ctx, merchantID, connector)
	if err != nil {
		return models.Secret{}, err
	}
	return acc.WebhookSecret, nil
}

func toCached(acc *models.ConnectorAccount) cachedAccount {
	return cachedAccount{
		MerchantID:    acc.MerchantID,
		Connector:     acc.Connector,
		AuthType:      string(acc.Auth.Kind),
		APIKey:        acc.Auth.APIKey.Expose(),
		Key1:          acc.Auth.Key1.Expose(),
		APISecret:     acc.Auth.APISecret.Expose(),
		WebhookSecret: acc.WebhookSecret.Expose(),
		TestMode:      acc.TestMode,
		Disabled:      acc.Disabled,
	}
}

func (c cachedAccount) account() *models.ConnectorAccount {
	return &models.ConnectorAccount{
		MerchantID: c.MerchantID,
		Connector:  c.Connector,
		Auth: models.ConnectorAuthType{
			Kind:      models.AuthKind(c.AuthType),
			APIKey:    models.NewSecret(c.APIKey),
			Key1:      models.NewSecret(c.Key1),
			APISecret: models.NewSecret(c.APISecret),
		},
		WebhookSecret: models.NewSecret(c.WebhookSecret),
		TestMode:      c.TestMode,
		Disabled:      c.Disabled,
	}
}
