// Package webhook authenticates and classifies inbound processor
// notifications. A connector opts in by implementing IncomingWebhook; the
// Pipeline drives the steps in a fixed order and maps every failure to a
// distinct error kind.
package webhook

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

// Algorithm is the signing scheme a connector uses for its callbacks.
type Algorithm string

const (
	HmacSha256  Algorithm = "hmac_sha256"
	HmacSha512  Algorithm = "hmac_sha512"
	NoAlgorithm Algorithm = "none"
)

// VerificationPolicy controls what happens when a callback cannot be
// authenticated.
type VerificationPolicy string

const (
	// Mandatory aborts the pipeline on any verification failure.
	Mandatory VerificationPolicy = "mandatory"
	// Optional continues with unverified content, flagged as such.
	Optional VerificationPolicy = "optional"
	// Never skips verification; the processor does not sign callbacks.
	Never VerificationPolicy = "never"
)

// Request is the raw inbound callback. Body is never assumed to be JSON.
type Request struct {
	Method  string
	Headers http.Header
	Query   url.Values
	Body    []byte
}

// Header returns the first value of name, trimmed.
func (r *Request) Header(name string) string {
	if r == nil || r.Headers == nil {
		return ""
	}
	return strings.TrimSpace(r.Headers.Get(name))
}

// IncomingWebhook is the per-connector half of the pipeline. Every method
// is a pure function of the request; none may perform I/O.
type IncomingWebhook interface {
	VerificationPolicy() VerificationPolicy
	VerificationAlgorithm(req *Request) (Algorithm, error)
	VerificationSignature(req *Request, alg Algorithm) ([]byte, error)
	// VerificationMessage rebuilds the exact bytes the processor signed.
	VerificationMessage(req *Request, merchantID string) ([]byte, error)
	ObjectReferenceID(req *Request) (models.ObjectReferenceID, error)
	// EventType returns EventNotSupported for codes it does not know.
	EventType(req *Request) (models.IncomingWebhookEvent, error)
	ResourceObject(req *Request) (any, error)
}

// SecretStore resolves the merchant-specific webhook secret. It is asked
// on every callback so rotated secrets take effect immediately.
type SecretStore interface {
	WebhookSecret(ctx context.Context, merchantID, connector string) (models.Secret, error)
}

// DisputeDetails is what a dispute callback says about the chargeback.
type DisputeDetails struct {
	Stage           models.DisputeStage `json:"stage"`
	ProcessorStatus string              `json:"processor_status"`
	Amount          models.MinorUnit    `json:"amount"`
	Currency        models.Currency     `json:"currency"`
	Reason          string              `json:"reason,omitempty"`
}

// DisputeSource is implemented by connectors whose callbacks carry
// dispute details.
type DisputeSource interface {
	DisputeDetails(req *Request) (DisputeDetails, error)
}

// SignatureSetSource is implemented by connectors that send several
// candidate signatures in one callback, as during a secret rotation. The
// callback verifies when any one of them matches.
type SignatureSetSource interface {
	VerificationSignatures(req *Request, alg Algorithm) ([][]byte, error)
}
