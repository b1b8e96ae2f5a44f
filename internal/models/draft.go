package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionDraft is a saved checkout-in-progress for one customer. Drafts are
// owned by the HTTP layer; the orchestrator never reads or writes them.
type SessionDraft struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	CustomerID  string          `json:"customer_id" db:"customer_id"`
	Context     CheckoutContext `json:"context" db:"-"`
	DeviceLabel string          `json:"device_label,omitempty" db:"device_label"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}
