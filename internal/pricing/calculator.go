// Package pricing derives the display amounts for a checkout from the
// storefront's priced item snapshot. It intentionally does not re-derive
// discounts: the backend's final price is authoritative, which keeps the
// client and server from drifting apart on money.
package pricing

import (
	"math"

	"github.com/roamtrails/booking-checkout/internal/models"
)

// Quote is the pricing breakdown shown on the checkout page and used to
// choose the charge amount for a transaction.
type Quote struct {
	BaseTotal         float64 `json:"base_total"`
	Total             float64 `json:"total"`
	AdvanceAmount     float64 `json:"advance_amount"`
	ShowAdvance       bool    `json:"show_advance"`
	AdvancePercentage float64 `json:"advance_percentage"`
}

// Calculate computes the quote for an item and traveler counts. It is a
// total function: a nil item or missing amounts degrade to zero values,
// never an error. Amounts are rounded to the nearest whole currency unit.
func Calculate(item *models.BookableItem, travelers models.TravelerCounts) Quote {
	if item == nil {
		return Quote{}
	}

	base := item.AdultPrice*float64(travelers.Adults) +
		item.ChildPrice*float64(travelers.Children) +
		item.InfantPrice*float64(travelers.Infants)
	if base < 0 {
		base = 0
	}

	quote := Quote{
		BaseTotal: math.Round(base),
		Total:     math.Round(item.FinalPrice),
	}

	if item.AdvancePercentage != nil {
		pct := *item.AdvancePercentage
		quote.AdvancePercentage = pct
		quote.ShowAdvance = pct > 0 && pct < 100
		quote.AdvanceAmount = math.Round(item.AdvancePrice)
	}

	return quote
}

// ChargeAmount returns the amount one transaction should collect for the
// given payment type: the full total, the advance amount, or zero when the
// type is unknown.
func ChargeAmount(quote Quote, paymentType models.PaymentType) float64 {
	switch paymentType {
	case models.PaymentTypeFull:
		return quote.Total
	case models.PaymentTypePartial:
		return quote.AdvanceAmount
	default:
		return 0
	}
}
