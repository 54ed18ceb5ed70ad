package stripe

import (
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

const headerSignature = "Stripe-Signature"

var webhookEvents = map[string]models.IncomingWebhookEvent{
	"payment_intent.succeeded":       models.EventPaymentIntentSuccess,
	"payment_intent.payment_failed":  models.EventPaymentIntentFailure,
	"payment_intent.processing":      models.EventPaymentIntentProcessing,
	"refund.failed":                  models.EventRefundFailure,
	"charge.dispute.created":         models.EventDisputeOpened,
	"charge.dispute.updated":         models.EventDisputeChallenged,
	"charge.dispute.funds_withdrawn": models.EventDisputeOpened,
	"invoice.payment_succeeded":      models.EventRecoveryPaymentSuccess,
	"invoice.payment_failed":         models.EventRecoveryPaymentFailure,
	"invoice.voided":                 models.EventRecoveryInvoiceCancel,
}

// refundEvents classify by the refund's status rather than the event name.
var refundEvents = map[string]models.IncomingWebhookEvent{
	"succeeded": models.EventRefundSuccess,
	"failed":    models.EventRefundFailure,
	"canceled":  models.EventRefundFailure,
}

var closedDisputeEvents = map[string]models.IncomingWebhookEvent{
	"won":            models.EventDisputeWon,
	"lost":           models.EventDisputeLost,
	"warning_closed": models.EventDisputeExpired,
}

var disputeStages = lifecycle.NewDisputeStageMapper(map[string]models.DisputeStage{
	"warning_needs_response": models.DisputeStagePreDispute,
	"warning_under_review":   models.DisputeStagePreDispute,
	"warning_closed":         models.DisputeStagePreDispute,
	"needs_response":         models.DisputeStageDispute,
	"under_review":           models.DisputeStageDispute,
	"won":                    models.DisputeStageDispute,
	"lost":                   models.DisputeStageDispute,
}, models.DisputeStageDispute)

type event struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Livemode bool   `json:"livemode"`
	Data     struct {
		Object eventObject `json:"object"`
	} `json:"data"`
}

type eventObject struct {
	ID            string `json:"id"`
	Object        string `json:"object"`
	Status        string `json:"status,omitempty"`
	PaymentIntent string `json:"payment_intent,omitempty"`
	Charge        string `json:"charge,omitempty"`
	Amount        int64  `json:"amount,omitempty"`
	Currency      string `json:"currency,omitempty"`
	Reason        string `json:"reason,omitempty"`
	Metadata      struct {
		RefundID string `json:"refund_id,omitempty"`
	} `json:"metadata"`
}

func decodeEvent(req *webhook.Request) (*event, error) {
	var ev event
	if err := json.Unmarshal(req.Body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

func (s *Stripe) VerificationPolicy() webhook.VerificationPolicy {
	return webhook.Mandatory
}

func (s *Stripe) VerificationAlgorithm(*webhook.Request) (webhook.Algorithm, error) {
	return webhook.HmacSha256, nil
}

func (s *Stripe) VerificationSignature(req *webhook.Request, alg webhook.Algorithm) ([]byte, error) {
	sigs, err := s.VerificationSignatures(req, alg)
	if err != nil {
		return nil, err
	}
	return sigs[0], nil
}

// VerificationSignatures returns every v1 entry. Stripe signs with both the
// old and the new secret while a rotation is in progress.
func (s *Stripe) VerificationSignatures(req *webhook.Request, _ webhook.Algorithm) ([][]byte, error) {
	values, err := webhook.ListValues(req, headerSignature, "v1")
	if err != nil {
		return nil, err
	}
	sigs := make([][]byte, 0, len(values))
	for _, value := range values {
		sig, err := hex.DecodeString(value)
		if err != nil {
			return nil, models.NewError(models.ErrKindWebhookSignatureNotFound, err)
		}
		sigs = append(sigs, sig)
	}
	return sigs, nil
}

// VerificationMessage is "<t>.<raw body>" where t comes from the signature header.
func (s *Stripe) VerificationMessage(req *webhook.Request, _ string) ([]byte, error) {
	ts, err := webhook.ListValue(req, headerSignature, "t")
	if err != nil {
		return nil, err
	}
	msg := make([]byte, 0, len(ts)+1+len(req.Body))
	msg = append(msg, ts...)
	msg = append(msg, '.')
	return append(msg, req.Body...), nil
}

func (s *Stripe) ObjectReferenceID(req *webhook.Request) (models.ObjectReferenceID, error) {
	ev, err := decodeEvent(req)
	if err != nil {
		return models.ObjectReferenceID{}, err
	}
	obj := ev.Data.Object
	switch {
	case strings.HasPrefix(ev.Type, "charge.dispute."):
		if obj.ID == "" {
			return models.ObjectReferenceID{}, models.ErrWebhookReferenceIDNotFound
		}
		return models.DisputeReference(obj.ID, obj.PaymentIntent), nil
	case strings.HasPrefix(ev.Type, "refund.") || strings.HasPrefix(ev.Type, "charge.refund."):
		if obj.ID == "" {
			return models.ObjectReferenceID{}, models.ErrWebhookReferenceIDNotFound
		}
		return models.RefundReference(models.RefConnectorRefundID, obj.ID, obj.PaymentIntent), nil
	case strings.HasPrefix(ev.Type, "payment_intent."):
		if obj.ID != "" {
			return models.PaymentReference(models.RefConnectorTransactionID, obj.ID), nil
		}
	case strings.HasPrefix(ev.Type, "invoice."):
		if obj.PaymentIntent != "" {
			return models.PaymentReference(models.RefConnectorTransactionID, obj.PaymentIntent), nil
		}
	}
	return models.ObjectReferenceID{}, models.ErrWebhookReferenceIDNotFound
}

func (s *Stripe) EventType(req *webhook.Request) (models.IncomingWebhookEvent, error) {
	ev, err := decodeEvent(req)
	if err != nil {
		return "", err
	}
	if ev.Type == "" {
		return "", models.ErrWebhookEventTypeNotFound
	}
	switch ev.Type {
	case "refund.updated", "charge.refund.updated":
		if e, ok := refundEvents[ev.Data.Object.Status]; ok {
			return e, nil
		}
		return models.EventNotSupported, nil
	case "charge.dispute.closed":
		if e, ok := closedDisputeEvents[ev.Data.Object.Status]; ok {
			return e, nil
		}
		return models.EventNotSupported, nil
	}
	if e, ok := webhookEvents[ev.Type]; ok {
		return e, nil
	}
	return models.EventNotSupported, nil
}

func (s *Stripe) ResourceObject(req *webhook.Request) (any, error) {
	ev, err := decodeEvent(req)
	if err != nil {
		return nil, err
	}
	return ev.Data.Object, nil
}

func (s *Stripe) DisputeDetails(req *webhook.Request) (webhook.DisputeDetails, error) {
	ev, err := decodeEvent(req)
	if err != nil {
		return webhook.DisputeDetails{}, err
	}
	obj := ev.Data.Object
	return webhook.DisputeDetails{
		Stage:           disputeStages.Lookup(obj.Status),
		ProcessorStatus: obj.Status,
		Amount:          models.MinorUnit(obj.Amount),
		Currency:        models.Currency(strings.ToUpper(obj.Currency)),
		Reason:          obj.Reason,
	}, nil
}
