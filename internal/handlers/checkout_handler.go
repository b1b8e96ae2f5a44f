package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/roamtrails/booking-checkout/internal/backend"
	"github.com/roamtrails/booking-checkout/internal/checkout"
	"github.com/roamtrails/booking-checkout/internal/gateway"
	"github.com/roamtrails/booking-checkout/internal/middleware"
	"github.com/roamtrails/booking-checkout/internal/models"
	"github.com/roamtrails/booking-checkout/internal/pricing"
)

// CheckoutHandler exposes the quote, checkout transaction and balance
// settlement operations.
type CheckoutHandler struct {
	backend      *backend.Client
	orchestrator *checkout.Orchestrator
	bridge       *gateway.CallbackCheckout
	logger       *logrus.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(
	backendClient *backend.Client,
	orchestrator *checkout.Orchestrator,
	bridge *gateway.CallbackCheckout,
	logger *logrus.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		backend:      backendClient,
		orchestrator: orchestrator,
		bridge:       bridge,
		logger:       logger,
	}
}

// QuoteQuery are the query parameters identifying a priced snapshot
type QuoteQuery struct {
	PackageID      string `form:"package_id" binding:"required"`
	StayCategoryID string `form:"stay_category_id"`
	BookingDate    string `form:"booking_date"`
	PriceRateID    string `form:"package_price_rate_id"`
	AdultCount     int    `form:"adult_count" binding:"required,min=1"`
	ChildCount     int    `form:"child_count" binding:"min=0"`
	InfantCount    int    `form:"infant_count" binding:"min=0"`
}

// CheckoutRequest starts one booking payment transaction. The item snapshot
// is refetched server-side so the amounts charged are always the backend's,
// not whatever the page last rendered.
type CheckoutRequest struct {
	PackageID      string                `json:"package_id" binding:"required"`
	StayCategoryID string                `json:"stay_category_id"`
	BookingDate    string                `json:"booking_date"`
	PriceRateID    string                `json:"package_price_rate_id"`
	Travelers      models.TravelerCounts `json:"travelers"`
	Contact        models.ContactDetails `json:"contact"`
	PaymentType    models.PaymentType    `json:"payment_type" binding:"required"`
	TermsAccepted  bool                  `json:"terms_accepted"`
}

// SettleBalanceRequest collects the remaining balance of a booking
type SettleBalanceRequest struct {
	Contact models.ContactDetails `json:"contact"`
}

// GetQuote fetches the priced snapshot and returns the pricing breakdown
func (h *CheckoutHandler) GetQuote(c *gin.Context) {
	var query QuoteQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid quote query", "details": err.Error()})
		return
	}

	item, err := h.backend.FetchCheckoutData(c.Request.Context(), backend.CheckoutDataQuery{
		PackageID:      query.PackageID,
		StayCategoryID: query.StayCategoryID,
		BookingDate:    query.BookingDate,
		PriceRateID:    query.PriceRateID,
		Travelers: models.TravelerCounts{
			Adults:   query.AdultCount,
			Children: query.ChildCount,
			Infants:  query.InfantCount,
		},
	})
	if err != nil {
		h.logger.WithError(err).WithField("package_id", query.PackageID).Warn("Failed to fetch checkout data")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not load checkout data"})
		return
	}

	quote := pricing.Calculate(item, models.TravelerCounts{
		Adults:   query.AdultCount,
		Children: query.ChildCount,
		Infants:  query.InfantCount,
	})

	c.JSON(http.StatusOK, gin.H{
		"item":  item,
		"quote": quote,
	})
}

// RunCheckout runs one full booking payment transaction. The request blocks
// through the gateway step until the storefront page forwards the checkout
// callback, so the response carries the transaction's terminal outcome.
func (h *CheckoutHandler) RunCheckout(c *gin.Context) {
	customerCtx, exists := middleware.GetCustomerContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	item, err := h.backend.FetchCheckoutData(c.Request.Context(), backend.CheckoutDataQuery{
		PackageID:      req.PackageID,
		StayCategoryID: req.StayCategoryID,
		BookingDate:    req.BookingDate,
		PriceRateID:    req.PriceRateID,
		Travelers:      req.Travelers,
	})
	if err != nil {
		h.logger.WithError(err).WithField("package_id", req.PackageID).Warn("Failed to fetch checkout data")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not load checkout data"})
		return
	}

	cc := &models.CheckoutContext{
		Item:          item,
		Travelers:     req.Travelers,
		Contact:       req.Contact,
		PaymentType:   req.PaymentType,
		TermsAccepted: req.TermsAccepted,
	}

	result := h.orchestrator.Run(c.Request.Context(), cc)
	if result.FailureStage == models.FailureStageValidation {
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Message})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"customer_id": customerCtx.CustomerID,
		"state":       result.State,
		"cancelled":   result.Cancelled,
	}).Info("Checkout run finished")

	c.JSON(http.StatusOK, result)
}

// SettleBalance runs the balance settlement variant against an existing
// booking.
func (h *CheckoutHandler) SettleBalance(c *gin.Context) {
	customerCtx, exists := middleware.GetCustomerContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookingID := c.Param("id")
	if bookingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Booking id is required"})
		return
	}

	var req SettleBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	booking, err := h.backend.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		h.logger.WithError(err).WithField("booking_id", bookingID).Warn("Failed to fetch booking for settlement")
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}

	result := h.orchestrator.SettleBalance(c.Request.Context(), booking, req.Contact)
	if result.FailureStage == models.FailureStageValidation {
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Message})
		return
	}

	h.logger.WithFields(logrus.Fields{
		"customer_id": customerCtx.CustomerID,
		"booking_id":  bookingID,
		"state":       result.State,
	}).Info("Balance settlement finished")

	c.JSON(http.StatusOK, result)
}

// PaymentCallback receives the forwarded Razorpay callback from the
// storefront page and resolves the pending gateway attempt for its order.
func (h *CheckoutHandler) PaymentCallback(c *gin.Context) {
	orderID := c.Param("order_id")
	if orderID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Order id is required"})
		return
	}

	var event gateway.CallbackEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid callback payload", "details": err.Error()})
		return
	}

	if err := h.bridge.Deliver(orderID, event); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Callback delivered"})
}
