package models

import (
	"encoding/json"
	"time"
)

// ConnectorAccount is a merchant's configuration for one connector.
type ConnectorAccount struct {
	MerchantID    string            `json:"merchant_id"`
	Connector     string            `json:"connector"`
	Auth          ConnectorAuthType `json:"auth"`
	WebhookSecret Secret            `json:"webhook_secret"`
	TestMode      bool              `json:"test_mode"`
	Disabled      bool              `json:"disabled"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// ObjectState is the stored canonical status of a payment, refund or
// dispute as last seen for a connector. ObjectID is the connector-side id;
// InternalID is the orchestrator's id when known.
type ObjectState struct {
	Connector     string        `json:"connector"`
	Kind          ReferenceKind `json:"kind"`
	ObjectID      string        `json:"object_id"`
	InternalID    string        `json:"internal_id,omitempty"`
	MerchantID    string        `json:"merchant_id"`
	State         string        `json:"state"`
	PreviousState string        `json:"previous_state,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// WebhookEventRecord is the audit row written for every classified callback.
type WebhookEventRecord struct {
	ID         string               `json:"id"`
	MerchantID string               `json:"merchant_id"`
	Connector  string               `json:"connector"`
	Event      IncomingWebhookEvent `json:"event"`
	Verified   bool                 `json:"verified"`
	Reference  *ObjectReferenceID   `json:"reference,omitempty"`
	Resource   json.RawMessage      `json:"resource"`
	ReceivedAt time.Time            `json:"received_at"`
}

// StatusTransition is published whenever a stored state moves.
type StatusTransition struct {
	Connector  string        `json:"connector"`
	MerchantID string        `json:"merchant_id"`
	Kind       ReferenceKind `json:"kind"`
	ObjectID   string        `json:"object_id"`
	InternalID string        `json:"internal_id,omitempty"`
	From       string        `json:"from"`
	To         string        `json:"to"`
	Source     string        `json:"source"`
	OccurredAt time.Time     `json:"occurred_at"`
}

// SyncRequest asks the switch to re-read an object whose last call ended
// with an unknown outcome.
type SyncRequest struct {
	MerchantID             string    `json:"merchant_id"`
	Connector              string    `json:"connector"`
	Flow                   FlowName  `json:"flow"`
	PaymentID              string    `json:"payment_id"`
	AttemptID              string    `json:"attempt_id,omitempty"`
	RefundID               string    `json:"refund_id,omitempty"`
	ConnectorTransactionID string    `json:"connector_transaction_id,omitempty"`
	ConnectorRefundID      string    `json:"connector_refund_id,omitempty"`
	ReferenceID            string    `json:"reference_id"`
	RequestedAt            time.Time `json:"requested_at"`
}
