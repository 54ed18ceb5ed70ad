package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/akylbek/payment-system/connector-switch/internal/models"
)

var ErrNotFound = errors.New("not found")

// ObjectStateRepository stores canonical payment, refund and dispute states.
type ObjectStateRepository struct {
	db *sql.DB
}

func NewObjectStateRepository(db *sql.DB) *ObjectStateRepository {
	return &ObjectStateRepository{db: db}
}

// InitDB creates the tables if they don't exist
func (r *ObjectStateRepository) InitDB() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS connector_object_states (
			connector VARCHAR(64) NOT NULL,
			kind VARCHAR(16) NOT NULL,
			object_id VARCHAR(255) NOT NULL,
			internal_id VARCHAR(255),
			merchant_id VARCHAR(255) NOT NULL,
			state VARCHAR(50) NOT NULL,
			previous_state VARCHAR(50),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (connector, kind, object_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_connector_object_states_internal ON connector_object_states(connector, kind, internal_id)`,
	}

	for _, query := range queries {
		if _, err := r.db.Exec(query); err != nil {
			return err
		}
	}

	return nil
}

// InsertInitialState records the first state seen for an object.
func (r *ObjectStateRepository) InsertInitialState(ctx context.Context, st models.ObjectState) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO connector_object_states (connector, kind, object_id, internal_id, merchant_id, state, previous_state)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (connector, kind, object_id) DO NOTHING
	`, st.Connector, st.Kind, st.ObjectID, st.InternalID, st.MerchantID, st.State, "")
	return err
}

// TransitionState moves a row only if it still holds from, so concurrent
// writers cannot overwrite each other's transition.
func (r *ObjectStateRepository) TransitionState(ctx context.Context, connector string, kind models.ReferenceKind, objectID, from, to string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE connector_object_states
		SET state = $1, previous_state = $2, updated_at = NOW()
		WHERE connector = $3 AND kind = $4 AND object_id = $5 AND state = $2
	`, to, from, connector, kind, objectID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// FindState looks a row up by connector-side id, or by internal id for
// references that carry the orchestrator's own identifier.
func (r *ObjectStateRepository) FindState(ctx context.Context, connector string, ref models.ObjectReferenceID) (*models.ObjectState, error) {
	column := "object_id"
	switch ref.IDType {
	case models.RefPaymentAttemptID, models.RefRefundID:
		column = "internal_id"
	}

	var st models.ObjectState
	var internalID, previous sql.NullString
	err := r.db.QueryRowContext(ctx, `
		SELECT connector, kind, object_id, internal_id, merchant_id, state, previous_state, created_at, updated_at
		FROM connector_object_states WHERE connector = $1 AND kind = $2 AND `+column+` = $3
	`, connector, ref.Kind, ref.ID).Scan(
		&st.Connector, &st.Kind, &st.ObjectID, &internalID, &st.MerchantID,
		&st.State, &previous, &st.CreatedAt, &st.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	st.InternalID = internalID.String
	st.PreviousState = previous.String
	return &st, nil
}
