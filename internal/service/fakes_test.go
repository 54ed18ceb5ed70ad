package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/akylbek/payment-system/connector-switch/internal/connector"
	"github.com/akylbek/payment-system/connector-switch/internal/connectors/airwallex"
	"github.com/akylbek/payment-system/connector-switch/internal/connectors/fiserv"
	"github.com/akylbek/payment-system/connector-switch/internal/connectors/paystack"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/repository"
)

func testRegistry(t *testing.T) *connector.Registry {
	t.Helper()
	reg, err := connector.NewRegistry(
		airwallex.New("https://airwallex.test/"),
		fiserv.New("https://fiserv.test/"),
		paystack.New("https://paystack.test/"),
	)
	require.NoError(t, err)
	return reg
}

type reply struct {
	res connector.Response
	err error
}

// fakeTransport answers requests in order from a script.
type fakeTransport struct {
	mu       sync.Mutex
	replies  []reply
	requests []*connector.Request
}

func (f *fakeTransport) reply(status int, body string) *fakeTransport {
	f.replies = append(f.replies, reply{res: connector.Response{StatusCode: status, Body: []byte(body)}})
	return f
}

func (f *fakeTransport) fail(err error) *fakeTransport {
	f.replies = append(f.replies, reply{err: err})
	return f
}

func (f *fakeTransport) Send(_ context.Context, req *connector.Request) (connector.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if len(f.replies) == 0 {
		return connector.Response{}, errors.New("no scripted reply")
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.res, r.err
}

type memAccounts map[string]models.ConnectorAccount

func (m memAccounts) GetAccount(_ context.Context, merchantID, connector string) (*models.ConnectorAccount, error) {
	acc, ok := m[merchantID+"/"+connector]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &acc, nil
}

func (m memAccounts) UpsertAccount(_ context.Context, acc models.ConnectorAccount) error {
	m[acc.MerchantID+"/"+acc.Connector] = acc
	return nil
}

func (m memAccounts) WebhookSecret(ctx context.Context, merchantID, connector string) (models.Secret, error) {
	acc, err := m.GetAccount(ctx, merchantID, connector)
	if err != nil {
		return models.Secret{}, err
	}
	return acc.WebhookSecret, nil
}

// memStates mirrors the compare-and-set semantics of the postgres table.
type memStates struct {
	mu        sync.Mutex
	rows      map[string]*models.ObjectState
	staleCASs bool
}

func newMemStates() *memStates {
	return &memStates{rows: map[string]*models.ObjectState{}}
}

func stateKey(connector string, kind models.ReferenceKind, objectID string) string {
	return connector + "/" + string(kind) + "/" + objectID
}

func (m *memStates) InsertInitialState(_ context.Context, st models.ObjectState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stateKey(st.Connector, st.Kind, st.ObjectID)
	if _, ok := m.rows[key]; ok {
		return errors.New("duplicate key")
	}
	st.CreatedAt = time.Now()
	st.UpdatedAt = st.CreatedAt
	m.rows[key] = &st
	return nil
}

func (m *memStates) TransitionState(_ context.Context, connector string, kind models.ReferenceKind, objectID, from, to string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[stateKey(connector, kind, objectID)]
	if !ok || row.State != from || m.staleCASs {
		return 0, nil
	}
	row.PreviousState = from
	row.State = to
	row.UpdatedAt = time.Now()
	return 1, nil
}

func (m *memStates) FindState(_ context.Context, connector string, ref models.ObjectReferenceID) (*models.ObjectState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.rows {
		if row.Connector != connector || row.Kind != ref.Kind {
			continue
		}
		id := row.ObjectID
		if ref.IDType == models.RefPaymentAttemptID || ref.IDType == models.RefRefundID {
			id = row.InternalID
		}
		if id == ref.ID {
			st := *row
			return &st, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memStates) state(connector string, kind models.ReferenceKind, objectID string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if row, ok := m.rows[stateKey(connector, kind, objectID)]; ok {
		return row.State
	}
	return ""
}

type recordingPublisher struct {
	mu          sync.Mutex
	transitions []models.StatusTransition
	webhooks    []models.WebhookEventRecord
}

func (p *recordingPublisher) PublishTransition(_ context.Context, t models.StatusTransition) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.transitions = append(p.transitions, t)
	return nil
}

func (p *recordingPublisher) PublishWebhook(_ context.Context, rec models.WebhookEventRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.webhooks = append(p.webhooks, rec)
	return nil
}

type recordingSyncs struct {
	requests []models.SyncRequest
}

func (s *recordingSyncs) RequestSync(_ context.Context, req models.SyncRequest) error {
	s.requests = append(s.requests, req)
	return nil
}

type memWebhookEvents struct {
	records []models.WebhookEventRecord
	err     error
}

func (m *memWebhookEvents) SaveEvent(_ context.Context, rec models.WebhookEventRecord) error {
	if m.err != nil {
		return m.err
	}
	m.records = append(m.records, rec)
	return nil
}
