package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akylbek/payment-system/connector-switch/internal/interfaces"
	"github.com/akylbek/payment-system/connector-switch/internal/lifecycle"
	"github.com/akylbek/payment-system/connector-switch/internal/models"
	"github.com/akylbek/payment-system/connector-switch/internal/repository"
	"github.com/akylbek/payment-system/connector-switch/internal/telemetry"
)

var ErrConcurrentTransition = errors.New("state changed concurrently")

// StateKeeper persists canonical states behind the monotonic guards and
// announces every move.
type StateKeeper struct {
	states    interfaces.ObjectStateRepository
	publisher interfaces.EventPublisher
}

// NewStateKeeper builds a StateKeeper that publishes every applied transition.
func NewStateKeeper(states interfaces.ObjectStateRepository, publisher interfaces.EventPublisher) *StateKeeper {
	return &StateKeeper{states: states, publisher: publisher}
}

// Current returns the stored state for ref, or "" when none is stored.
func (k *StateKeeper) Current(ctx context.Context, connector string, ref models.ObjectReferenceID) (string, error) {
	st, err := k.states.FindState(ctx, connector, ref)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return st.State, nil
}

// Advance applies proposed.State to the stored row. A proposal the guard
// rejects leaves the row untouched and returns a nil transition.
func (k *StateKeeper) Advance(ctx context.Context, proposed models.ObjectState, source string) (*models.StatusTransition, error) {
	ref := models.ObjectReferenceID{Kind: proposed.Kind, IDType: objectIDType(proposed.Kind), ID: proposed.ObjectID}
	existing, err := k.states.FindState(ctx, proposed.Connector, ref)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	from := ""
	if existing == nil {
		if err := k.states.InsertInitialState(ctx, proposed); err != nil {
			return nil, err
		}
	} else {
		from = existing.State
		next := guard(proposed.Kind, from, proposed.State)
		if next == from {
			return nil, nil
		}
		rows, err := k.states.TransitionState(ctx, proposed.Connector, proposed.Kind, proposed.ObjectID, from, next)
		if err != nil {
			return nil, err
		}
		if rows == 0 {
			return nil, fmt.Errorf("%w: %s %s from %s", ErrConcurrentTransition, proposed.Kind, proposed.ObjectID, from)
		}
		proposed.State = next
	}

	t := &models.StatusTransition{
		Connector:  proposed.Connector,
		MerchantID: proposed.MerchantID,
		Kind:       proposed.Kind,
		ObjectID:   proposed.ObjectID,
		InternalID: proposed.InternalID,
		From:       from,
		To:         proposed.State,
		Source:     source,
		OccurredAt: time.Now().UTC(),
	}
	if err := k.publisher.PublishTransition(ctx, *t); err != nil {
		telemetry.Logger.Error("Failed to publish transition",
			zap.String("object_id", t.ObjectID),
			zap.Error(err),
		)
	}
	return t, nil
}

func objectIDType(kind models.ReferenceKind) models.ReferenceIDType {
	switch kind {
	case models.ReferenceRefund:
		return models.RefConnectorRefundID
	case models.ReferenceDispute:
		return models.RefConnectorDisputeID
	}
	return models.RefConnectorTransactionID
}

func guard(kind models.ReferenceKind, current, proposed string) string {
	switch kind {
	case models.ReferenceRefund:
		return string(lifecycle.AdvanceRefund(models.RefundStatus(current), models.RefundStatus(proposed)))
	case models.ReferenceDispute:
		return string(lifecycle.AdvanceDispute(models.DisputeStage(current), models.DisputeStage(proposed)))
	}
	return string(lifecycle.Advance(models.AttemptStatus(current), models.AttemptStatus(proposed)))
}
