package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/roamtrails/booking-checkout/internal/backend"
	"github.com/roamtrails/booking-checkout/internal/middleware"
	"github.com/roamtrails/booking-checkout/internal/models"
)

// BookingHandler proxies booking history and lookups to the storefront
// backend.
type BookingHandler struct {
	backend *backend.Client
	logger  *logrus.Logger
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(backendClient *backend.Client, logger *logrus.Logger) *BookingHandler {
	return &BookingHandler{
		backend: backendClient,
		logger:  logger,
	}
}

// itemTypeForVertical maps the URL vertical segment to an item type
func itemTypeForVertical(vertical string) (models.ItemType, bool) {
	switch vertical {
	case "packages":
		return models.ItemTypePackage, true
	case "events":
		return models.ItemTypeEvent, true
	case "attractions":
		return models.ItemTypeAttraction, true
	default:
		return "", false
	}
}

// ListBookings returns one page of the customer's booking history for a
// vertical. Page numbering starts at 1.
func (h *BookingHandler) ListBookings(c *gin.Context) {
	customerCtx, exists := middleware.GetCustomerContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	itemType, ok := itemTypeForVertical(c.Param("vertical"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown booking vertical"})
		return
	}

	page := 1
	if raw := c.Query("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid page number"})
			return
		}
		page = parsed
	}

	result, err := h.backend.ListBookings(c.Request.Context(), itemType, page)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"customer_id": customerCtx.CustomerID,
			"item_type":   itemType,
			"page":        page,
		}).Warn("Failed to list bookings")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not load bookings"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"bookings":     result.Items,
		"current_page": result.CurrentPage,
		"last_page":    result.LastPage,
		"total":        result.Total,
		"has_more":     result.HasMore(),
	})
}

// GetBooking returns one booking by id
func (h *BookingHandler) GetBooking(c *gin.Context) {
	if _, exists := middleware.GetCustomerContext(c); !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	bookingID := c.Param("id")
	if bookingID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Booking id is required"})
		return
	}

	booking, err := h.backend.GetBooking(c.Request.Context(), bookingID)
	if err != nil {
		h.logger.WithError(err).WithField("booking_id", bookingID).Warn("Failed to fetch booking")
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}

	c.JSON(http.StatusOK, booking)
}
