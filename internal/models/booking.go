package models

import (
	"fmt"
	"strings"
	"time"
)

// PaymentType identifies how much of the booking total a transaction collects
type PaymentType string

const (
	PaymentTypeFull    PaymentType = "full"
	PaymentTypePartial PaymentType = "partial"
	PaymentTypeBalance PaymentType = "balance"
)

// BookingStatus mirrors the storefront backend's booking lifecycle
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Customer is the storefront account a checkout session belongs to
type Customer struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// ContactDetails holds the lead traveler's contact information
type ContactDetails struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Validate checks the required contact fields
func (c ContactDetails) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("contact name is required")
	}
	if strings.TrimSpace(c.Phone) == "" {
		return fmt.Errorf("contact phone is required")
	}
	if strings.TrimSpace(c.Email) == "" {
		return fmt.Errorf("contact email is required")
	}
	return nil
}

// Booking is the backend-persisted record created before payment. The
// backend is the sole source of truth for monetary state; Balance is never
// decremented locally.
type Booking struct {
	ID             string         `json:"id"`
	ItemID         string         `json:"item_id"`
	ItemType       ItemType       `json:"item_type"`
	Travelers      TravelerCounts `json:"travelers"`
	TotalAmount    float64        `json:"total_amount"`
	DiscountAmount float64        `json:"discount_amount"`
	Balance        float64        `json:"balance"`
	Status         BookingStatus  `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
}

// BookingSummary is one row of the customer's booking history
type BookingSummary struct {
	ID          string        `json:"id"`
	ItemName    string        `json:"item_name"`
	ItemType    ItemType      `json:"item_type"`
	BookingDate string        `json:"booking_date"`
	TotalAmount float64       `json:"total_amount"`
	Balance     float64       `json:"balance"`
	Status      BookingStatus `json:"status"`
}

// CheckoutContext is the explicit value object a checkout run operates on.
// It replaces any ambient cart/session state: the calling layer assembles
// it (possibly from a saved draft) and hands it to the orchestrator.
type CheckoutContext struct {
	Item          *BookableItem  `json:"item"`
	Travelers     TravelerCounts `json:"travelers"`
	Contact       ContactDetails `json:"contact"`
	PaymentType   PaymentType    `json:"payment_type"`
	TermsAccepted bool           `json:"terms_accepted"`
}

// Validate performs all pre-network validation for a checkout run
func (cc *CheckoutContext) Validate() error {
	if cc.Item == nil || cc.Item.ID == "" {
		return fmt.Errorf("a bookable item is required")
	}
	if err := cc.Travelers.Validate(); err != nil {
		return err
	}
	if err := cc.Contact.Validate(); err != nil {
		return err
	}
	if !cc.TermsAccepted {
		return fmt.Errorf("terms and conditions must be accepted")
	}
	switch cc.PaymentType {
	case PaymentTypeFull:
	case PaymentTypePartial:
		if cc.Item.AdvancePercentage == nil || *cc.Item.AdvancePercentage <= 0 || *cc.Item.AdvancePercentage >= 100 {
			return fmt.Errorf("partial payment is not offered for this item")
		}
	default:
		return fmt.Errorf("invalid payment type: %s", cc.PaymentType)
	}
	return nil
}
