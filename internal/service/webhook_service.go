package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/interfaces"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

var ErrDuplicateWebhook = errors.New("webhook already processed")

// WebhookResult is returned to the ingress handler.
type WebhookResult struct {
	ID         string                      `json:"id"`
	Event      models.IncomingWebhookEvent `json:"event"`
	Verified   bool                        `json:"verified"`
	Reference  *models.ObjectReferenceID   `json:"reference,omitempty"`
	Transition *models.StatusTransition    `json:"transition,omitempty"`
}

// WebhookService runs inbound callbacks through the pipeline and applies
// what they say to stored state.
type WebhookService struct {
	pipeline    *webhook.Pipeline
	events      interfaces.WebhookEventRepository
	keeper      *StateKeeper
	publisher   interfaces.EventPublisher
	syncs       interfaces.SyncRequester
	redisClient *redis.Client
	dedupeTTL   time.Duration
}

// NewWebhookService builds a WebhookService. Identical bodies are ignored for dedupeTTL.
func NewWebhookService(
	pipeline *webhook.Pipeline,
	events interfaces.WebhookEventRepository,
	keeper *StateKeeper,
	publisher interfaces.EventPublisher,
	syncs interfaces.SyncRequester,
	redisClient *redis.Client,
	dedupeTTL time.Duration,
) *WebhookService {
	return &WebhookService{
		pipeline:    pipeline,
		events:      events,
		keeper:      keeper,
		publisher:   publisher,
		syncs:       syncs,
		redisClient: redisClient,
		dedupeTTL:   dedupeTTL,
	}
}

func dedupeKey(connector string, body []byte) string {
	sum := sha256.Sum256(body)
	return fmt.Sprintf("webhook_seen:%s:%s", connector, hex.EncodeToString(sum[:]))
}

// Ingest processes one callback. Redelivery of an identical body within
// the dedupe window returns ErrDuplicateWebhook without side effects.
func (s *WebhookService) Ingest(ctx context.Context, merchantID, connectorName string, req *webhook.Request) (*WebhookResult, error) {
	out, err := s.pipeline.Process(ctx, merchantID, connectorName, req)
	if err != nil {
		return nil, err
	}

	key := dedupeKey(out.Connector, req.Body)
	locked, err := s.redisClient.SetNX(ctx, key, "1", s.dedupeTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("dedupe webhook: %w", err)
	}
	if !locked {
		return nil, ErrDuplicateWebhook
	}

	result, rec, err := s.apply(ctx, merchantID, out)
	if err != nil {
		s.release(ctx, key)
		return nil, err
	}

	if err := s.publisher.PublishWebhook(ctx, rec); err != nil {
		telemetry.FromContext(ctx).Error("Failed to publish webhook",
			zap.String("webhook_id", rec.ID),
			zap.Error(err),
		)
	}
	return result, nil
}

// apply stores the audit row and moves stored state. Any error leaves the
// callback eligible for redelivery.
func (s *WebhookService) apply(ctx context.Context, merchantID string, out *webhook.Outcome) (*WebhookResult, models.WebhookEventRecord, error) {
	rec := models.WebhookEventRecord{
		ID:         uuid.NewString(),
		MerchantID: merchantID,
		Connector:  out.Connector,
		Event:      out.Event,
		Verified:   out.Verified,
		Reference:  out.Reference,
		Resource:   out.Resource,
		ReceivedAt: time.Now().UTC(),
	}
	if err := s.events.SaveEvent(ctx, rec); err != nil {
		return nil, rec, fmt.Errorf("store webhook: %w", err)
	}

	result := &WebhookResult{ID: rec.ID, Event: out.Event, Verified: out.Verified, Reference: out.Reference}
	if proposed, ok := proposedState(out); ok {
		proposed.MerchantID = merchantID
		t, err := s.keeper.Advance(ctx, proposed, "webhook")
		if err != nil {
			return nil, rec, fmt.Errorf("apply webhook %s: %w", rec.ID, err)
		}
		result.Transition = t
	} else if !out.Verified && out.Reference != nil {
		s.requestSync(ctx, merchantID, out)
	}
	return result, rec, nil
}

// release drops the dedupe key so the processor's retry is processed again.
func (s *WebhookService) release(ctx context.Context, key string) {
	if err := s.redisClient.Del(context.WithoutCancel(ctx), key).Err(); err != nil {
		telemetry.FromContext(ctx).Error("Failed to release webhook dedupe key",
			zap.String("key", key),
			zap.Error(err),
		)
	}
}

// requestSync asks for an authenticated re-read of the object an
// unverified callback points at.
func (s *WebhookService) requestSync(ctx context.Context, merchantID string, out *webhook.Outcome) {
	if s.syncs == nil {
		return
	}
	ref := out.Reference
	req := models.SyncRequest{MerchantID: merchantID, Connector: out.Connector, RequestedAt: time.Now().UTC()}
	switch {
	case ref.Kind == models.ReferencePayment && ref.IDType == models.RefConnectorTransactionID:
		req.Flow = models.FlowPSync
		req.ConnectorTransactionID = ref.ID
		req.PaymentID = ref.ID
	case ref.Kind == models.ReferenceRefund && ref.IDType == models.RefConnectorRefundID:
		req.Flow = models.FlowRSync
		req.ConnectorRefundID = ref.ID
		req.ConnectorTransactionID = ref.ParentID
		req.PaymentID = ref.ParentID
	default:
		return
	}
	if err := s.syncs.RequestSync(ctx, req); err != nil {
		telemetry.FromContext(ctx).Error("Failed to queue sync for unverified webhook", zap.Error(err))
	}
}

// proposedState turns a classified callback into the state it implies.
// Unverified callbacks never move stored state.
func proposedState(out *webhook.Outcome) (models.ObjectState, bool) {
	if out.Reference == nil || !out.Verified {
		return models.ObjectState{}, false
	}
	ref := out.Reference
	st := models.ObjectState{Connector: out.Connector, Kind: ref.Kind, ObjectID: ref.ID}

	switch ref.Kind {
	case models.ReferencePayment:
		status, ok := out.Event.AttemptStatus()
		if !ok || ref.IDType != models.RefConnectorTransactionID {
			return st, false
		}
		st.State = string(status)
	case models.ReferenceRefund:
		status, ok := out.Event.RefundStatus()
		if !ok || ref.IDType != models.RefConnectorRefundID {
			return st, false
		}
		st.State = string(status)
	case models.ReferenceDispute:
		stage := models.DisputeStageDispute
		if out.Dispute != nil && out.Dispute.Stage != "" {
			stage = out.Dispute.Stage
		}
		st.State = string(stage)
	default:
		return st, false
	}
	return st, true
}
