package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
	"github.com/sirupsen/logrus"

	"github.com/roamtrails/booking-checkout/internal/database"
	"github.com/roamtrails/booking-checkout/internal/middleware"
	"github.com/roamtrails/booking-checkout/internal/models"
)

// DraftHandler manages saved checkout drafts. A customer keeps at most one
// draft at a time.
type DraftHandler struct {
	drafts *database.DraftRepository
	logger *logrus.Logger
}

// NewDraftHandler creates a new DraftHandler
func NewDraftHandler(drafts *database.DraftRepository, logger *logrus.Logger) *DraftHandler {
	return &DraftHandler{
		drafts: drafts,
		logger: logger,
	}
}

// deviceLabel builds a short human readable label from the User-Agent header
func deviceLabel(rawUA string) string {
	if rawUA == "" {
		return "unknown device"
	}

	ua := user_agent.New(rawUA)
	browser, _ := ua.Browser()
	os := ua.OS()

	switch {
	case browser != "" && os != "":
		return browser + " on " + os
	case browser != "":
		return browser
	case os != "":
		return os
	default:
		return "unknown device"
	}
}

// SaveDraft stores the customer's in-progress checkout, replacing any
// previous draft.
func (h *DraftHandler) SaveDraft(c *gin.Context) {
	customerCtx, exists := middleware.GetCustomerContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var cc models.CheckoutContext
	if err := c.ShouldBindJSON(&cc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid draft payload", "details": err.Error()})
		return
	}

	draft, err := h.drafts.SaveDraft(customerCtx.CustomerID, &cc, deviceLabel(c.GetHeader("User-Agent")))
	if err != nil {
		h.logger.WithError(err).WithField("customer_id", customerCtx.CustomerID).Error("Failed to save draft")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not save draft"})
		return
	}

	c.JSON(http.StatusOK, draft)
}

// GetDraft returns the customer's saved draft, 404 when none exists
func (h *DraftHandler) GetDraft(c *gin.Context) {
	customerCtx, exists := middleware.GetCustomerContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	draft, err := h.drafts.GetDraft(customerCtx.CustomerID)
	if err != nil {
		h.logger.WithError(err).WithField("customer_id", customerCtx.CustomerID).Error("Failed to get draft")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not load draft"})
		return
	}
	if draft == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No saved draft"})
		return
	}

	c.JSON(http.StatusOK, draft)
}

// DeleteDraft removes the customer's saved draft
func (h *DraftHandler) DeleteDraft(c *gin.Context) {
	customerCtx, exists := middleware.GetCustomerContext(c)
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if err := h.drafts.DeleteDraft(customerCtx.CustomerID); err != nil {
		h.logger.WithError(err).WithField("customer_id", customerCtx.CustomerID).Error("Failed to delete draft")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not delete draft"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Draft deleted"})
}
