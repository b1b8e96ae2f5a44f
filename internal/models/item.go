package models

import "fmt"

// ItemType identifies which storefront vertical a bookable item belongs to
type ItemType string

const (
	ItemTypePackage    ItemType = "package"
	ItemTypeEvent      ItemType = "event"
	ItemTypeAttraction ItemType = "attraction"
)

// BookableItem is the priced snapshot of a package, event or attraction
// ticket fetched from the storefront backend at checkout time. It is
// read-only for the duration of one transaction; all monetary fields are
// server-computed and treated as authoritative.
type BookableItem struct {
	ID       string   `json:"id"`
	Type     ItemType `json:"type"`
	Name     string   `json:"name"`
	Currency string   `json:"currency"`

	// Per-tier unit prices
	AdultPrice  float64 `json:"adult_price"`
	ChildPrice  float64 `json:"child_price"`
	InfantPrice float64 `json:"infant_price"`

	// Server-computed amounts
	DiscountPercentage float64 `json:"discount_percentage"`
	FinalPrice         float64 `json:"final_price"`

	// Advance payment terms. AdvancePercentage is nil when the item does not
	// support partial payment at all; 100 means full payment only.
	AdvancePercentage *float64 `json:"advance_percentage,omitempty"`
	AdvancePrice      float64  `json:"advance_price"`

	// Context the storefront priced this snapshot for
	StayCategoryID string `json:"stay_category_id,omitempty"`
	PriceRateID    string `json:"price_rate_id,omitempty"`
	BookingDate    string `json:"booking_date,omitempty"`
}

// TravelerCounts holds the party composition for a booking
type TravelerCounts struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
	Infants  int `json:"infants"`
}

// Validate enforces the party invariants: at least one adult, no negative
// counts.
func (t TravelerCounts) Validate() error {
	if t.Adults < 1 {
		return fmt.Errorf("at least one adult traveler is required")
	}
	if t.Children < 0 || t.Infants < 0 {
		return fmt.Errorf("traveler counts cannot be negative")
	}
	return nil
}

// Total returns the number of travelers across all tiers
func (t TravelerCounts) Total() int {
	return t.Adults + t.Children + t.Infants
}
