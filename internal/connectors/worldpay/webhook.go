package worldpay

import (
	"encoding/xml"
	"errors"
	"strings"

	"github.com/akylbek/payment-system/connector-switch/internal/amount"
	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/webhook"
)

var errUnsigned = errors.New("worldpay notifications are not signed")

var webhookEvents = map[string]models.IncomingWebhookEvent{
	"SENT_FOR_AUTHORISATION": models.EventPaymentIntentProcessing,
	"AUTHORISED":             models.EventPaymentIntentProcessing,
	"CAPTURED":               models.EventPaymentIntentSuccess,
	"SETTLED":                models.EventPaymentIntentSuccess,
	"REFUSED":                models.EventPaymentIntentFailure,
	"ERROR":                  models.EventPaymentIntentFailure,
	"EXPIRED":                models.EventPaymentIntentFailure,
	"REFUNDED":               models.EventRefundSuccess,
	"REFUNDED_BY_MERCHANT":   models.EventRefundSuccess,
	"REFUND_FAILED":          models.EventRefundFailure,
	"INFORMATION_REQUESTED":  models.EventDisputeOpened,
	"CHARGED_BACK":           models.EventDisputeOpened,
	"CHARGEBACK_REVERSED":    models.EventDisputeWon,
	"DEFENCE_RECEIVED":       models.EventDisputeChallenged,
}

var disputeStages = lifecycle.NewDisputeStageMapper(map[string]models.DisputeStage{
	"INFORMATION_REQUESTED": models.DisputeStagePreDispute,
	"CHARGED_BACK":          models.DisputeStageDispute,
	"DEFENCE_RECEIVED":      models.DisputeStageDispute,
	"CHARGEBACK_REVERSED":   models.DisputeStageDispute,
}, models.DisputeStageDispute)

type notify struct {
	OrderStatusEvent *orderStatusEvent `xml:"orderStatusEvent"`
}

type orderStatusEvent struct {
	OrderCode string   `xml:"orderCode,attr"`
	Payment   *payment `xml:"payment"`
	Journal   *struct {
		JournalType       string `xml:"journalType,attr"`
		JournalReferences []struct {
			Type      string `xml:"type,attr"`
			Reference string `xml:"reference,attr"`
		} `xml:"journalReference"`
	} `xml:"journal"`
}

// reference returns the journal reference of the given type, e.g. the
// refund reference sent with a refund modification.
func (e *orderStatusEvent) reference(kind string) string {
	if e.Journal == nil {
		return ""
	}
	for _, ref := range e.Journal.JournalReferences {
		if strings.EqualFold(ref.Type, kind) {
			return ref.Reference
		}
	}
	return ""
}

func (e *orderStatusEvent) lastEvent() string {
	if e.Payment == nil {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(e.Payment.LastEvent))
}

func decodeNotification(req *webhook.Request) (*orderStatusEvent, error) {
	var p paymentService
	if err := xml.Unmarshal(req.Body, &p); err != nil {
		return nil, err
	}
	if p.Notify == nil || p.Notify.OrderStatusEvent == nil {
		return nil, errors.New("notify/orderStatusEvent missing")
	}
	return p.Notify.OrderStatusEvent, nil
}

func (w *Worldpay) VerificationPolicy() webhook.VerificationPolicy {
	return webhook.Never
}

func (w *Worldpay) VerificationAlgorithm(*webhook.Request) (webhook.Algorithm, error) {
	return webhook.NoAlgorithm, nil
}

func (w *Worldpay) VerificationSignature(*webhook.Request, webhook.Algorithm) ([]byte, error) {
	return nil, errUnsigned
}

func (w *Worldpay) VerificationMessage(*webhook.Request, string) ([]byte, error) {
	return nil, errUnsigned
}

func (w *Worldpay) ObjectReferenceID(req *webhook.Request) (models.ObjectReferenceID, error) {
	ev, err := decodeNotification(req)
	if err != nil {
		return models.ObjectReferenceID{}, err
	}
	if ev.OrderCode == "" {
		return models.ObjectReferenceID{}, models.ErrWebhookReferenceIDNotFound
	}
	event, ok := webhookEvents[ev.lastEvent()]
	if !ok {
		return models.PaymentReference(models.RefConnectorTransactionID, ev.OrderCode), nil
	}
	switch event.Flow() {
	case models.WebhookFlowRefund:
		ref := ev.reference("refund")
		if ref == "" {
			return models.ObjectReferenceID{}, models.ErrWebhookReferenceIDNotFound
		}
		return models.RefundReference(models.RefRefundID, ref, ev.OrderCode), nil
	case models.WebhookFlowDispute:
		return models.DisputeReference(ev.OrderCode, ev.OrderCode), nil
	}
	return models.PaymentReference(models.RefConnectorTransactionID, ev.OrderCode), nil
}

func (w *Worldpay) EventType(req *webhook.Request) (models.IncomingWebhookEvent, error) {
	ev, err := decodeNotification(req)
	if err != nil {
		return "", err
	}
	last := ev.lastEvent()
	if last == "" {
		return "", models.ErrWebhookEventTypeNotFound
	}
	if event, ok := webhookEvents[last]; ok {
		return event, nil
	}
	return models.EventNotSupported, nil
}

func (w *Worldpay) ResourceObject(req *webhook.Request) (any, error) {
	return decodeNotification(req)
}

func (w *Worldpay) DisputeDetails(req *webhook.Request) (webhook.DisputeDetails, error) {
	ev, err := decodeNotification(req)
	if err != nil {
		return webhook.DisputeDetails{}, err
	}
	last := ev.lastEvent()
	details := webhook.DisputeDetails{
		Stage:           disputeStages.Lookup(last),
		ProcessorStatus: last,
	}
	if ev.Payment != nil {
		currency := models.Currency(ev.Payment.Amount.CurrencyCode)
		details.Currency = currency
		if minor, err := amount.StringMinorUnitForConnector.ConvertBack(ev.Payment.Amount.Value, currency); err == nil {
			details.Amount = minor
		}
	}
	return details, nil
}
