package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roamtrails/booking-checkout/internal/models"
)

// DraftRepository persists checkout session drafts. Each customer has at
// most one draft; saving replaces the previous one.
type DraftRepository struct {
	db DB
}

// NewDraftRepository creates a new DraftRepository
func NewDraftRepository(db DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// draftRow is the database shape of a draft; the checkout context is stored
// as a JSONB document.
type draftRow struct {
	ID          uuid.UUID `db:"id"`
	CustomerID  string    `db:"customer_id"`
	Context     []byte    `db:"context"`
	DeviceLabel string    `db:"device_label"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r draftRow) toDraft() (*models.SessionDraft, error) {
	draft := &models.SessionDraft{
		ID:          r.ID,
		CustomerID:  r.CustomerID,
		DeviceLabel: r.DeviceLabel,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if err := json.Unmarshal(r.Context, &draft.Context); err != nil {
		return nil, fmt.Errorf("failed to decode draft context: %w", err)
	}
	return draft, nil
}

// SaveDraft inserts or replaces the customer's draft
func (r *DraftRepository) SaveDraft(customerID string, cc *models.CheckoutContext, deviceLabel string) (*models.SessionDraft, error) {
	payload, err := json.Marshal(cc)
	if err != nil {
		return nil, fmt.Errorf("failed to encode draft context: %w", err)
	}

	query := `
		INSERT INTO checkout_drafts (id, customer_id, context, device_label, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (customer_id) DO UPDATE
		SET context = EXCLUDED.context,
		    device_label = EXCLUDED.device_label,
		    updated_at = NOW()`

	if _, err := r.db.Exec(query, uuid.New(), customerID, payload, deviceLabel); err != nil {
		return nil, fmt.Errorf("failed to save draft: %w", err)
	}

	return r.GetDraft(customerID)
}

// GetDraft returns the customer's draft, or nil when none exists
func (r *DraftRepository) GetDraft(customerID string) (*models.SessionDraft, error) {
	var row draftRow
	query := `
		SELECT id, customer_id, context, device_label, created_at, updated_at
		FROM checkout_drafts
		WHERE customer_id = $1`

	if err := r.db.Get(&row, query, customerID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get draft: %w", err)
	}

	return row.toDraft()
}

// DeleteDraft removes the customer's draft if present
func (r *DraftRepository) DeleteDraft(customerID string) error {
	query := `DELETE FROM checkout_drafts WHERE customer_id = $1`
	if _, err := r.db.Exec(query, customerID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	return nil
}
