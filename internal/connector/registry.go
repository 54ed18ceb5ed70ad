package connector

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

var (
	ErrUnknownConnector   = errors.New("unknown connector")
	ErrDuplicateConnector = errors.New("duplicate connector")
)

// Metadata is immutable, process-wide information about a connector.
type Metadata struct {
	Name           string                     `json:"name"`
	DisplayName    string                     `json:"display_name"`
	Generation     Generation                 `json:"generation"`
	PaymentMethods []models.PaymentMethodKind `json:"payment_methods"`
	CaptureMethods []models.CaptureMethod     `json:"capture_methods"`
	WebhookFlows   []models.WebhookFlow       `json:"webhook_flows"`
	Flows          []models.FlowName          `json:"flows"`
}

// Connector is the capability set a processor plugs in with.
type Connector interface {
	Common
	Metadata() Metadata
	Flows() FlowSet
}

// FlowSet maps each supported flow to its boxed integration.
type FlowSet map[models.FlowName]any

// Register adds a boxed integration under its flow's name.
func Register[F models.Flow, Req any, Resp any](set FlowSet, b BoxedIntegration[F, Req, Resp]) {
	var flow F
	set[flow.FlowName()] = b
}

// Names lists the registered flows in sorted order.
func (s FlowSet) Names() []models.FlowName {
	names := make([]models.FlowName, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

type entry struct {
	connector Connector
	flows     FlowSet
	metadata  Metadata
}

// Registry is built once at startup and only read afterwards.
type Registry struct {
	entries map[string]entry
}

// NewRegistry indexes connectors by lower-cased ID. Duplicate IDs are rejected.
func NewRegistry(connectors ...Connector) (*Registry, error) {
	r := &Registry{entries: make(map[string]entry, len(connectors))}
	for _, c := range connectors {
		name := normalizeName(c.ID())
		if _, exists := r.entries[name]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateConnector, name)
		}
		flows := c.Flows()
		meta := c.Metadata()
		meta.Name = name
		meta.Flows = flows.Names()
		r.entries[name] = entry{connector: c, flows: flows, metadata: meta}
	}
	return r, nil
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Get looks a connector up by name, ignoring case.
func (r *Registry) Get(name string) (Connector, bool) {
	e, ok := r.entries[normalizeName(name)]
	if !ok {
		return nil, false
	}
	return e.connector, true
}

// Names lists registered connectors in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Metadata returns every connector's metadata ordered by name.
func (r *Registry) Metadata() []Metadata {
	out := make([]Metadata, 0, len(r.entries))
	for _, name := range r.Names() {
		out = append(out, r.entries[name].metadata)
	}
	return out
}

// Resolve finds the integration a connector registered for flow F. A
// connector without the flow yields an unsupported integration whose
// BuildRequest always returns nil.
func Resolve[F models.Flow, Req any, Resp any](r *Registry, name string) (BoxedIntegration[F, Req, Resp], error) {
	e, ok := r.entries[normalizeName(name)]
	if !ok {
		return BoxedIntegration[F, Req, Resp]{}, fmt.Errorf("%w: %s", ErrUnknownConnector, name)
	}
	var flow F
	raw, ok := e.flows[flow.FlowName()]
	if !ok {
		return V1(Unsupported[F, Req, Resp]()), nil
	}
	boxed, ok := raw.(BoxedIntegration[F, Req, Resp])
	if !ok {
		return BoxedIntegration[F, Req, Resp]{}, models.NotImplemented(fmt.Sprintf("%s:%s payload %T", name, flow.FlowName(), raw))
	}
	return boxed, nil
}
