package airwallex

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/akylbek/payment-system/connector-switch/internal/amount"
	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

const (
	headerTimestamp = "x-timestamp"
	headerSignature = "x-signature"
)

var webhookEvents = map[string]models.IncomingWebhookEvent{
	"payment_intent.succeeded":             models.EventPaymentIntentSuccess,
	"payment_attempt.capture_requested":    models.EventPaymentIntentProcessing,
	"payment_attempt.failed_to_process":    models.EventPaymentIntentFailure,
	"payment_attempt.authorization_failed": models.EventPaymentIntentFailure,
	"refund.settled":                       models.EventRefundSuccess,
	"refund.failed":                        models.EventRefundFailure,
	"payment_dispute.requires_response":    models.EventDisputeOpened,
	"payment_dispute.accepted":             models.EventDisputeAccepted,
	"payment_dispute.challenged":           models.EventDisputeChallenged,
	"payment_dispute.won":                  models.EventDisputeWon,
	"payment_dispute.lost":                 models.EventDisputeLost,
	"payment_dispute.expired":              models.EventDisputeExpired,
}

var disputeStages = lifecycle.NewDisputeStageMapper(map[string]models.DisputeStage{
	"RFI":             models.DisputeStagePreDispute,
	"CHARGEBACK":      models.DisputeStageDispute,
	"PRE_ARBITRATION": models.DisputeStagePreArbitration,
	"ARBITRATION":     models.DisputeStagePreArbitration,
}, models.DisputeStageDispute)

type webhookBody struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Data struct {
		Object webhookObject `json:"object"`
	} `json:"data"`
}

type webhookObject struct {
	ID              string  `json:"id"`
	PaymentIntentID string  `json:"payment_intent_id,omitempty"`
	Status          string  `json:"status,omitempty"`
	Stage           string  `json:"stage,omitempty"`
	Reason          string  `json:"reason,omitempty"`
	Amount          float64 `json:"amount,omitempty"`
	Currency        string  `json:"currency,omitempty"`
}

func decodeWebhook(req *webhook.Request) (*webhookBody, error) {
	var body webhookBody
	if err := json.Unmarshal(req.Body, &body); err != nil {
		return nil, err
	}
	return &body, nil
}

func (a *Airwallex) VerificationPolicy() webhook.VerificationPolicy {
	return webhook.Mandatory
}

func (a *Airwallex) VerificationAlgorithm(*webhook.Request) (webhook.Algorithm, error) {
	return webhook.HmacSha256, nil
}

func (a *Airwallex) VerificationSignature(req *webhook.Request, _ webhook.Algorithm) ([]byte, error) {
	return webhook.HexHeader(req, headerSignature)
}

// VerificationMessage is the timestamp header immediately followed by the
// raw body, with no separator.
func (a *Airwallex) VerificationMessage(req *webhook.Request, _ string) ([]byte, error) {
	ts := req.Header(headerTimestamp)
	if ts == "" {
		return nil, errors.New("missing " + headerTimestamp)
	}
	msg := make([]byte, 0, len(ts)+len(req.Body))
	msg = append(msg, ts...)
	return append(msg, req.Body...), nil
}

func (a *Airwallex) ObjectReferenceID(req *webhook.Request) (models.ObjectReferenceID, error) {
	body, err := decodeWebhook(req)
	if err != nil {
		return models.ObjectReferenceID{}, err
	}
	obj := body.Data.Object
	switch {
	case strings.HasPrefix(body.Name, "refund."):
		if obj.ID == "" {
			return models.ObjectReferenceID{}, models.ErrWebhookReferenceIDNotFound
		}
		return models.RefundReference(models.RefConnectorRefundID, obj.ID, obj.PaymentIntentID), nil
	case strings.HasPrefix(body.Name, "payment_dispute."):
		if obj.ID == "" {
			return models.ObjectReferenceID{}, models.ErrWebhookReferenceIDNotFound
		}
		return models.DisputeReference(obj.ID, obj.PaymentIntentID), nil
	case strings.HasPrefix(body.Name, "payment_intent."):
		if obj.ID != "" {
			return models.PaymentReference(models.RefConnectorTransactionID, obj.ID), nil
		}
	case strings.HasPrefix(body.Name, "payment_attempt."):
		if obj.PaymentIntentID != "" {
			return models.PaymentReference(models.RefConnectorTransactionID, obj.PaymentIntentID), nil
		}
	}
	return models.ObjectReferenceID{}, models.ErrWebhookReferenceIDNotFound
}

func (a *Airwallex) EventType(req *webhook.Request) (models.IncomingWebhookEvent, error) {
	body, err := decodeWebhook(req)
	if err != nil {
		return "", err
	}
	if body.Name == "" {
		return "", models.ErrWebhookEventTypeNotFound
	}
	if event, ok := webhookEvents[body.Name]; ok {
		return event, nil
	}
	return models.EventNotSupported, nil
}

func (a *Airwallex) ResourceObject(req *webhook.Request) (any, error) {
	body, err := decodeWebhook(req)
	if err != nil {
		return nil, err
	}
	return body.Data.Object, nil
}

func (a *Airwallex) DisputeDetails(req *webhook.Request) (webhook.DisputeDetails, error) {
	body, err := decodeWebhook(req)
	if err != nil {
		return webhook.DisputeDetails{}, err
	}
	obj := body.Data.Object
	currency := models.Currency(strings.ToUpper(obj.Currency))
	details := webhook.DisputeDetails{
		Stage:           disputeStages.Lookup(obj.Stage),
		ProcessorStatus: obj.Status,
		Currency:        currency,
		Reason:          obj.Reason,
	}
	if currency.Valid() {
		if minor, err := amount.FloatMajorUnitForConnector.ConvertBack(amount.FloatMajorUnit(obj.Amount), currency); err == nil {
			details.Amount = minor
		}
	}
	return details, nil
}
