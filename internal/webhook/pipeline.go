package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/metrics"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
)

// Outcome is a classified callback. Reference is nil only for events the
// switch does not act on.
type Outcome struct {
	Connector  string                      `json:"connector"`
	MerchantID string                      `json:"merchant_id"`
	Verified   bool                        `json:"verified"`
	Algorithm  Algorithm                   `json:"algorithm"`
	Reference  *models.ObjectReferenceID   `json:"reference,omitempty"`
	Event      models.IncomingWebhookEvent `json:"event"`
	Resource   json.RawMessage             `json:"resource"`
	Dispute    *DisputeDetails             `json:"dispute,omitempty"`
}

// Pipeline verifies and classifies inbound callbacks for every registered connector.
type Pipeline struct {
	registry *connector.Registry
	secrets  SecretStore
	recorder *metrics.Recorder
}

// NewPipeline builds a Pipeline. A nil recorder disables metrics.
func NewPipeline(registry *connector.Registry, secrets SecretStore, recorder *metrics.Recorder) *Pipeline {
	return &Pipeline{registry: registry, secrets: secrets, recorder: recorder}
}

// Process runs algorithm selection, signature extraction, message
// reconstruction, verification, reference extraction, classification and
// resource extraction, in that order.
func (p *Pipeline) Process(ctx context.Context, merchantID, connectorName string, req *Request) (*Outcome, error) {
	c, ok := p.registry.Get(connectorName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", connector.ErrUnknownConnector, connectorName)
	}
	hook, ok := c.(IncomingWebhook)
	if !ok {
		return nil, models.NotImplemented("webhooks")
	}

	ctx, span := telemetry.StartWebhookSpan(ctx, c.ID(), merchantID)
	defer span.End()
	log := telemetry.FromContext(ctx).With(
		zap.String("connector", c.ID()),
		zap.String("merchant_id", merchantID),
	)

	out, err := p.run(ctx, log, hook, c.ID(), merchantID, req)
	if err != nil {
		kind, _ := models.KindOf(err)
		p.recorder.WebhookRejected(c.ID(), string(kind))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		log.Warn("Webhook rejected", zap.Error(err))
		return nil, err
	}
	out.Connector = c.ID()
	out.MerchantID = merchantID

	span.SetAttributes(
		attribute.String("webhook.event", string(out.Event)),
		attribute.Bool("webhook.verified", out.Verified),
	)
	p.recorder.WebhookClassified(c.ID(), string(out.Event), out.Verified)
	log.Info("Webhook classified",
		zap.String("event", string(out.Event)),
		zap.Bool("verified", out.Verified),
		zap.Any("headers", telemetry.MaskHeaders(req.Headers)),
	)
	return out, nil
}

func (p *Pipeline) run(ctx context.Context, log *zap.Logger, hook IncomingWebhook, name, merchantID string, req *Request) (*Outcome, error) {
	out := &Outcome{}

	switch policy := hook.VerificationPolicy(); policy {
	case Never:
		out.Algorithm = NoAlgorithm
	default:
		alg, verified, err := p.verify(ctx, hook, name, merchantID, req)
		out.Algorithm = alg
		if err != nil {
			if policy != Optional {
				return nil, err
			}
			log.Warn("Accepting unverified webhook", zap.Error(err))
		}
		out.Verified = verified
	}

	ref, refErr := hook.ObjectReferenceID(req)

	event, err := hook.EventType(req)
	if err != nil {
		if refErr != nil {
			return nil, asKind(models.ErrKindWebhookReferenceIDNotFound, refErr)
		}
		return nil, asKind(models.ErrKindWebhookEventTypeNotFound, err)
	}
	if refErr != nil {
		if event != models.EventNotSupported {
			return nil, asKind(models.ErrKindWebhookReferenceIDNotFound, refErr)
		}
	} else {
		out.Reference = &ref
	}
	out.Event = event

	if event.Flow() == models.WebhookFlowDispute {
		if src, ok := hook.(DisputeSource); ok {
			details, err := src.DisputeDetails(req)
			if err != nil {
				return nil, asKind(models.ErrKindWebhookResourceObjectNotFound, err)
			}
			out.Dispute = &details
		}
	}

	resource, err := hook.ResourceObject(req)
	if err != nil {
		return nil, asKind(models.ErrKindWebhookResourceObjectNotFound, err)
	}
	snapshot, err := Snapshot(resource)
	if err != nil {
		return nil, asKind(models.ErrKindWebhookResourceObjectNotFound, err)
	}
	out.Resource = snapshot
	return out, nil
}

// verify covers algorithm selection through HMAC comparison. An algorithm
// that could not be determined only fails once the message is rebuilt.
func (p *Pipeline) verify(ctx context.Context, hook IncomingWebhook, name, merchantID string, req *Request) (Algorithm, bool, error) {
	alg, algErr := hook.VerificationAlgorithm(req)

	signatures, err := candidateSignatures(hook, req, alg)
	if err != nil {
		return alg, false, asKind(models.ErrKindWebhookSignatureNotFound, err)
	}
	message, err := hook.VerificationMessage(req, merchantID)
	if err != nil {
		return alg, false, asKind(models.ErrKindWebhookSourceVerificationFailed, err)
	}
	if algErr != nil {
		return alg, false, asKind(models.ErrKindWebhookSourceVerificationFailed, algErr)
	}
	if alg == NoAlgorithm {
		return alg, false, models.NewError(models.ErrKindWebhookSourceVerificationFailed, errors.New("connector declares no algorithm"))
	}

	secret, err := p.secrets.WebhookSecret(ctx, merchantID, name)
	if err != nil {
		return alg, false, asKind(models.ErrKindWebhookSourceVerificationFailed, err)
	}
	if secret.IsEmpty() {
		return alg, false, models.NewError(models.ErrKindWebhookSourceVerificationFailed, errors.New("no webhook secret configured"))
	}
	for _, signature := range signatures {
		ok, err := VerifyHMAC(alg, []byte(secret.Expose()), message, signature)
		if err != nil {
			return alg, false, asKind(models.ErrKindWebhookSourceVerificationFailed, err)
		}
		if ok {
			return alg, true, nil
		}
	}
	return alg, false, models.ErrWebhookSourceVerificationFailed
}

func candidateSignatures(hook IncomingWebhook, req *Request, alg Algorithm) ([][]byte, error) {
	if set, ok := hook.(SignatureSetSource); ok {
		signatures, err := set.VerificationSignatures(req, alg)
		if err != nil {
			return nil, err
		}
		if len(signatures) == 0 {
			return nil, models.ErrWebhookSignatureNotFound
		}
		return signatures, nil
	}
	signature, err := hook.VerificationSignature(req, alg)
	if err != nil {
		return nil, err
	}
	return [][]byte{signature}, nil
}

// asKind keeps err when it already carries kind and wraps it otherwise.
func asKind(kind models.ErrorKind, err error) error {
	if k, ok := models.KindOf(err); ok && k == kind {
		return err
	}
	return models.NewError(kind, err)
}

// Snapshot renders a resource object as JSON with sensitive fields masked.
func Snapshot(resource any) (json.RawMessage, error) {
	if resource == nil {
		return nil, errors.New("empty resource object")
	}
	raw, err := json.Marshal(resource)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(telemetry.MaskJSON(generic))
}
