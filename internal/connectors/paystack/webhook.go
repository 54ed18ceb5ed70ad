package paystack

import (
	"encoding/json"
	"strings"

	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

const headerSignature = "x-paystack-signature"

var webhookEvents = map[string]models.IncomingWebhookEvent{
	"charge.success":        models.EventPaymentIntentSuccess,
	"refund.processed":      models.EventRefundSuccess,
	"refund.failed":         models.EventRefundFailure,
	"charge.dispute.create": models.EventDisputeOpened,
	"charge.dispute.remind": models.EventDisputeOpened,
}

// resolvedDisputes classify charge.dispute.resolve by its resolution.
var resolvedDisputes = map[string]models.IncomingWebhookEvent{
	"merchant-accepted": models.EventDisputeAccepted,
	"declined":          models.EventDisputeWon,
}

var disputeStages = lifecycle.NewDisputeStageMapper(map[string]models.DisputeStage{
	"fraud-claim": models.DisputeStagePreDispute,
	"chargeback":  models.DisputeStageDispute,
}, models.DisputeStageDispute)

type event struct {
	Event string    `json:"event"`
	Data  eventData `json:"data"`
}

type eventData struct {
	ID                   json.Number `json:"id"`
	Reference            string      `json:"reference,omitempty"`
	Status               string      `json:"status,omitempty"`
	Amount               int64       `json:"amount,omitempty"`
	RefundAmount         int64       `json:"refund_amount,omitempty"`
	Currency             string      `json:"currency,omitempty"`
	Category             string      `json:"category,omitempty"`
	Resolution           string      `json:"resolution,omitempty"`
	TransactionReference string      `json:"transaction_reference,omitempty"`
	Transaction          *struct {
		Reference string `json:"reference"`
	} `json:"transaction,omitempty"`
	Customer *struct {
		Email string `json:"email"`
	} `json:"customer,omitempty"`
}

func (d eventData) parentReference() string {
	if d.TransactionReference != "" {
		return d.TransactionReference
	}
	if d.Transaction != nil {
		return d.Transaction.Reference
	}
	return ""
}

func decodeEvent(req *webhook.Request) (*event, error) {
	var ev event
	if err := json.Unmarshal(req.Body, &ev); err != nil {
		return nil, err
	}
	return &ev, nil
}

// VerificationPolicy is Optional: merchants that never configured a secret
// still get their events, unverified.
func (p *Paystack) VerificationPolicy() webhook.VerificationPolicy {
	return webhook.Optional
}

func (p *Paystack) VerificationAlgorithm(*webhook.Request) (webhook.Algorithm, error) {
	return webhook.HmacSha512, nil
}

func (p *Paystack) VerificationSignature(req *webhook.Request, _ webhook.Algorithm) ([]byte, error) {
	return webhook.HexHeader(req, headerSignature)
}

func (p *Paystack) VerificationMessage(req *webhook.Request, _ string) ([]byte, error) {
	return req.Body, nil
}

func (p *Paystack) ObjectReferenceID(req *webhook.Request) (models.ObjectReferenceID, error) {
	ev, err := decodeEvent(req)
	if err != nil {
		return models.ObjectReferenceID{}, err
	}
	d := ev.Data
	switch {
	case strings.HasPrefix(ev.Event, "charge.dispute."):
		if d.ID.String() == "" {
			return models.ObjectReferenceID{}, models.ErrWebhookReferenceIDNotFound
		}
		return models.DisputeReference(d.ID.String(), d.parentReference()), nil
	case strings.HasPrefix(ev.Event, "refund."):
		if d.ID.String() == "" {
			return models.ObjectReferenceID{}, models.ErrWebhookReferenceIDNotFound
		}
		return models.RefundReference(models.RefConnectorRefundID, d.ID.String(), d.parentReference()), nil
	case strings.HasPrefix(ev.Event, "charge."):
		if d.Reference != "" {
			return models.PaymentReference(models.RefConnectorTransactionID, d.Reference), nil
		}
	}
	return models.ObjectReferenceID{}, models.ErrWebhookReferenceIDNotFound
}

func (p *Paystack) EventType(req *webhook.Request) (models.IncomingWebhookEvent, error) {
	ev, err := decodeEvent(req)
	if err != nil {
		return "", err
	}
	if ev.Event == "" {
		return "", models.ErrWebhookEventTypeNotFound
	}
	if ev.Event == "charge.dispute.resolve" {
		if e, ok := resolvedDisputes[ev.Data.Resolution]; ok {
			return e, nil
		}
		return models.EventNotSupported, nil
	}
	if e, ok := webhookEvents[ev.Event]; ok {
		return e, nil
	}
	return models.EventNotSupported, nil
}

func (p *Paystack) ResourceObject(req *webhook.Request) (any, error) {
	ev, err := decodeEvent(req)
	if err != nil {
		return nil, err
	}
	return ev.Data, nil
}

func (p *Paystack) DisputeDetails(req *webhook.Request) (webhook.DisputeDetails, error) {
	ev, err := decodeEvent(req)
	if err != nil {
		return webhook.DisputeDetails{}, err
	}
	d := ev.Data
	value := d.RefundAmount
	if value == 0 {
		value = d.Amount
	}
	return webhook.DisputeDetails{
		Stage:           disputeStages.Lookup(d.Category),
		ProcessorStatus: d.Status,
		Amount:          models.MinorUnit(value),
		Currency:        models.Currency(strings.ToUpper(d.Currency)),
		Reason:          d.Category,
	}, nil
}
