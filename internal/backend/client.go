// Package backend is the REST client for the storefront backend. Every
// response arrives in the `{status, data?, message?}` envelope; a false
// status is surfaced as an APIError carrying the backend's message.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/roamtrails/booking-checkout/internal/models"
)

// Client calls the storefront backend REST API
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
	logger  *logrus.Logger
}

// Config holds the storefront backend connection settings
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// NewClient creates a storefront backend client
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// APIError is a rejection from the storefront backend (status=false or a
// non-2xx response). The message is safe to show to the customer.
type APIError struct {
	Message    string
	StatusCode int
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("backend request failed with status %d", e.StatusCode)
}

// envelope is the backend's uniform response wrapper
type envelope struct {
	Status  bool            `json:"status"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// CheckoutDataQuery identifies the priced snapshot to fetch
type CheckoutDataQuery struct {
	PackageID      string
	StayCategoryID string
	BookingDate    string
	PriceRateID    string
	Travelers      models.TravelerCounts
}

// CreateBookingRequest creates the backend booking record before payment
type CreateBookingRequest struct {
	ItemID         string             `json:"item_id"`
	AdultCount     int                `json:"adult_count"`
	ChildCount     int                `json:"child_count"`
	InfantCount    int                `json:"infant_count"`
	ContactName    string             `json:"contact_name"`
	ContactEmail   string             `json:"contact_email"`
	ContactPhone   string             `json:"contact_phone"`
	PaymentType    models.PaymentType `json:"payment_type"`
	TotalAmount    float64            `json:"total_amount"`
	DiscountAmount float64            `json:"discount_amount"`
}

// CreateOrderRequest creates a gateway order for one payment attempt
type CreateOrderRequest struct {
	PackageID        string             `json:"package_id"`
	PackageBookingID string             `json:"package_booking_id"`
	PaymentType      models.PaymentType `json:"payment_type"`
	Amount           float64            `json:"amount"`
}

// VerifyPaymentRequest confirms a gateway success with the backend
type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id"`
	Signature string `json:"razorpay_signature"`
	PaymentID string `json:"payment_id"`
}

// FetchCheckoutData retrieves the priced item snapshot for the checkout page
func (c *Client) FetchCheckoutData(ctx context.Context, query CheckoutDataQuery) (*models.BookableItem, error) {
	params := url.Values{}
	params.Set("package_id", query.PackageID)
	params.Set("adult_count", strconv.Itoa(query.Travelers.Adults))
	params.Set("child_count", strconv.Itoa(query.Travelers.Children))
	params.Set("infant_count", strconv.Itoa(query.Travelers.Infants))
	if query.StayCategoryID != "" {
		params.Set("stay_category_id", query.StayCategoryID)
	}
	if query.BookingDate != "" {
		params.Set("booking_date", query.BookingDate)
	}
	if query.PriceRateID != "" {
		params.Set("package_price_rate_id", query.PriceRateID)
	}

	data, err := c.get(ctx, "/package-checkout-data?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var payload itemPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse checkout data: %w", err)
	}
	return payload.toItem(), nil
}

// CreateBooking creates the unpaid booking record. A rejection here is
// terminal for the run; nothing was charged, so no compensation is needed.
func (c *Client) CreateBooking(ctx context.Context, req CreateBookingRequest) (*models.Booking, error) {
	data, err := c.post(ctx, "/package-booking", req)
	if err != nil {
		return nil, err
	}

	var payload bookingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse booking response: %w", err)
	}
	booking := payload.toBooking()
	if booking.ID == "" {
		return nil, fmt.Errorf("backend returned booking without an id")
	}
	return booking, nil
}

// CreatePaymentOrder creates a fresh single-use gateway order for the
// booking and amount. Orders are never reused across attempts.
func (c *Client) CreatePaymentOrder(ctx context.Context, req CreateOrderRequest) (*models.PaymentOrder, error) {
	data, err := c.post(ctx, "/package-payment", req)
	if err != nil {
		return nil, err
	}

	var payload orderPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse payment order response: %w", err)
	}
	if payload.OrderID == "" {
		return nil, fmt.Errorf("backend returned payment order without an order id")
	}

	return &models.PaymentOrder{
		OrderID:     payload.OrderID,
		PaymentID:   string(payload.PackagePaymentID),
		BookingID:   req.PackageBookingID,
		ItemID:      req.PackageID,
		Amount:      req.Amount,
		Currency:    payload.Currency,
		PaymentType: req.PaymentType,
	}, nil
}

// VerifyPayment asks the backend to confirm the gateway signature and
// amount. All three fields are required; their absence is checked by the
// orchestrator before this call is made.
func (c *Client) VerifyPayment(ctx context.Context, req VerifyPaymentRequest) error {
	_, err := c.post(ctx, "/package-payment-verify", req)
	return err
}

// ReportPaymentFailure tells the backend a payment attempt did not succeed,
// keyed by the backend's payment record id. Best-effort: the result is not
// required for control flow.
func (c *Client) ReportPaymentFailure(ctx context.Context, packagePaymentID string) error {
	_, err := c.post(ctx, "/package-payment-failure", map[string]string{
		"package_payment_id": packagePaymentID,
	})
	return err
}

// GetBooking refetches a booking so callers see the backend's current
// balance after a payment event.
func (c *Client) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	data, err := c.get(ctx, "/package-booking/"+url.PathEscape(bookingID))
	if err != nil {
		return nil, err
	}

	var payload bookingPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse booking: %w", err)
	}
	return payload.toBooking(), nil
}

// ListBookings fetches one page of the customer's booking history for a
// vertical. Whatever shape the backend nests the page in, the result is
// normalized to a canonical Page; unknown shapes fail closed to an empty
// page.
func (c *Client) ListBookings(ctx context.Context, itemType models.ItemType, page int) (models.Page[models.BookingSummary], error) {
	if page < 1 {
		page = 1
	}

	var path string
	switch itemType {
	case models.ItemTypePackage:
		path = "/package-bookings"
	case models.ItemTypeEvent:
		path = "/event-bookings"
	case models.ItemTypeAttraction:
		path = "/attraction-bookings"
	default:
		return models.EmptyPage[models.BookingSummary](page), fmt.Errorf("unknown booking vertical: %s", itemType)
	}

	data, err := c.get(ctx, fmt.Sprintf("%s?page=%d", path, page))
	if err != nil {
		return models.EmptyPage[models.BookingSummary](page), err
	}

	return normalizeBookingPage(data, page, c.logger), nil
}

// AuthenticateSession resolves a storefront session token to the customer it
// belongs to. The session token is sent in place of the service API key; the
// backend stays the identity authority.
func (c *Client) AuthenticateSession(ctx context.Context, sessionToken string) (*models.Customer, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/customer-profile", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+sessionToken)

	data, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var payload customerPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("failed to parse customer profile: %w", err)
	}
	customer := payload.toCustomer()
	if customer.ID == "" {
		return nil, fmt.Errorf("backend returned customer without an id")
	}
	return customer, nil
}

// get performs a GET and unwraps the response envelope
func (c *Client) get(ctx context.Context, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// post performs a JSON POST and unwraps the response envelope
func (c *Client) post(ctx context.Context, path string, body interface{}) (json.RawMessage, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	if c.apiKey != "" && req.Header.Get("Authorization") == "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.WithFields(logrus.Fields{
			"path":        req.URL.Path,
			"status_code": resp.StatusCode,
		}).Error("Malformed backend response")
		return nil, fmt.Errorf("failed to parse backend response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Status {
		return nil, &APIError{Message: env.Message, StatusCode: resp.StatusCode}
	}

	return env.Data, nil
}
