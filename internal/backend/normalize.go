package backend

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roamtrails/booking-checkout/internal/models"
)

// looseID tolerates backends that serialize ids as either strings or
// numbers.
type looseID string

func (l *looseID) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*l = ""
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = looseID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*l = looseID(n.String())
	return nil
}

// itemPayload is the wire shape of the checkout-data snapshot
type itemPayload struct {
	ID                 looseID  `json:"id"`
	Type               string   `json:"type"`
	Name               string   `json:"name"`
	Currency           string   `json:"currency"`
	AdultPrice         float64  `json:"adult_price"`
	ChildPrice         float64  `json:"child_price"`
	InfantPrice        float64  `json:"infant_price"`
	DiscountPercentage float64  `json:"discount_percentage"`
	FinalPrice         float64  `json:"final_price"`
	AdvancePercentage  *float64 `json:"advance_percentage"`
	AdvancePrice       float64  `json:"advance_price"`
	StayCategoryID     looseID  `json:"stay_category_id"`
	PriceRateID        looseID  `json:"package_price_rate_id"`
	BookingDate        string   `json:"booking_date"`
}

func (p itemPayload) toItem() *models.BookableItem {
	itemType := models.ItemType(p.Type)
	if itemType == "" {
		itemType = models.ItemTypePackage
	}
	currency := p.Currency
	if currency == "" {
		currency = "INR"
	}
	return &models.BookableItem{
		ID:                 string(p.ID),
		Type:               itemType,
		Name:               p.Name,
		Currency:           currency,
		AdultPrice:         p.AdultPrice,
		ChildPrice:         p.ChildPrice,
		InfantPrice:        p.InfantPrice,
		DiscountPercentage: p.DiscountPercentage,
		FinalPrice:         p.FinalPrice,
		AdvancePercentage:  p.AdvancePercentage,
		AdvancePrice:       p.AdvancePrice,
		StayCategoryID:     string(p.StayCategoryID),
		PriceRateID:        string(p.PriceRateID),
		BookingDate:        p.BookingDate,
	}
}

// customerPayload is the wire shape of a customer profile
type customerPayload struct {
	ID    looseID `json:"id"`
	Email string  `json:"email"`
	Name  string  `json:"name"`
}

func (p customerPayload) toCustomer() *models.Customer {
	return &models.Customer{
		ID:    string(p.ID),
		Email: p.Email,
		Name:  p.Name,
	}
}

// bookingPayload is the wire shape of a booking record
type bookingPayload struct {
	ID             looseID    `json:"id"`
	ItemID         looseID    `json:"item_id"`
	ItemType       string     `json:"item_type"`
	AdultCount     int        `json:"adult_count"`
	ChildCount     int        `json:"child_count"`
	InfantCount    int        `json:"infant_count"`
	TotalAmount    float64    `json:"total_amount"`
	DiscountAmount float64    `json:"discount_amount"`
	Balance        float64    `json:"balance"`
	Status         string     `json:"status"`
	CreatedAt      *time.Time `json:"created_at"`
}

func (p bookingPayload) toBooking() *models.Booking {
	booking := &models.Booking{
		ID:       string(p.ID),
		ItemID:   string(p.ItemID),
		ItemType: models.ItemType(p.ItemType),
		Travelers: models.TravelerCounts{
			Adults:   p.AdultCount,
			Children: p.ChildCount,
			Infants:  p.InfantCount,
		},
		TotalAmount:    p.TotalAmount,
		DiscountAmount: p.DiscountAmount,
		Balance:        p.Balance,
		Status:         models.BookingStatus(p.Status),
	}
	if p.CreatedAt != nil {
		booking.CreatedAt = *p.CreatedAt
	}
	return booking
}

// orderPayload is the wire shape of a created payment order
type orderPayload struct {
	OrderID          string  `json:"order_id"`
	PackagePaymentID looseID `json:"package_payment_id"`
	Currency         string  `json:"currency"`
}

// summaryPayload is one booking-history row on the wire
type summaryPayload struct {
	ID          looseID `json:"id"`
	ItemName    string  `json:"item_name"`
	ItemType    string  `json:"item_type"`
	BookingDate string  `json:"booking_date"`
	TotalAmount float64 `json:"total_amount"`
	Balance     float64 `json:"balance"`
	Status      string  `json:"status"`
}

func (p summaryPayload) toSummary() models.BookingSummary {
	return models.BookingSummary{
		ID:          string(p.ID),
		ItemName:    p.ItemName,
		ItemType:    models.ItemType(p.ItemType),
		BookingDate: p.BookingDate,
		TotalAmount: p.TotalAmount,
		Balance:     p.Balance,
		Status:      models.BookingStatus(p.Status),
	}
}

// paginatorPayload is the standard paginator shape the backend usually
// nests list data in.
type paginatorPayload struct {
	Data        []summaryPayload `json:"data"`
	CurrentPage int              `json:"current_page"`
	LastPage    int              `json:"last_page"`
	Total       int              `json:"total"`
}

// normalizeBookingPage maps each known backend list shape to the canonical
// page type. The backend has shipped three shapes over time:
//
//  1. a paginator object: {"data": [...], "current_page": N, ...}
//  2. the paginator nested under a "bookings" key
//  3. a bare array of rows
//
// Anything else fails closed to an empty page.
func normalizeBookingPage(data json.RawMessage, page int, logger *logrus.Logger) models.Page[models.BookingSummary] {
	if len(data) == 0 {
		return models.EmptyPage[models.BookingSummary](page)
	}

	// Shape 3: bare array
	var rows []summaryPayload
	if err := json.Unmarshal(data, &rows); err == nil {
		return pageFromRows(rows, page, page, len(rows))
	}

	// Shape 1: paginator object
	var paginator paginatorPayload
	if err := json.Unmarshal(data, &paginator); err == nil && paginator.Data != nil {
		return pageFromRows(paginator.Data, paginator.CurrentPage, paginator.LastPage, paginator.Total)
	}

	// Shape 2: paginator nested under "bookings"
	var nested struct {
		Bookings *paginatorPayload `json:"bookings"`
	}
	if err := json.Unmarshal(data, &nested); err == nil && nested.Bookings != nil && nested.Bookings.Data != nil {
		p := nested.Bookings
		return pageFromRows(p.Data, p.CurrentPage, p.LastPage, p.Total)
	}

	logger.WithField("page", page).Warn("Unrecognized booking list shape from backend, returning empty page")
	return models.EmptyPage[models.BookingSummary](page)
}

func pageFromRows(rows []summaryPayload, current, last, total int) models.Page[models.BookingSummary] {
	if current < 1 {
		current = 1
	}
	if last < current {
		last = current
	}
	items := make([]models.BookingSummary, len(rows))
	for i, row := range rows {
		items[i] = row.toSummary()
	}
	return models.Page[models.BookingSummary]{
		Items:       items,
		CurrentPage: current,
		LastPage:    last,
		Total:       total,
	}
}
