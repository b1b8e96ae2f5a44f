package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/roamtrails/booking-checkout/internal/backend"
	"github.com/roamtrails/booking-checkout/pkg/jwt"
)

// AuthHandler issues and refreshes checkout session tokens. Identity lives on
// the storefront backend; this service only exchanges its session tokens for
// checkout JWTs.
type AuthHandler struct {
	jwtService *jwt.Service
	backend    *backend.Client
	logger     *logrus.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(jwtService *jwt.Service, backendClient *backend.Client, logger *logrus.Logger) *AuthHandler {
	return &AuthHandler{
		jwtService: jwtService,
		backend:    backendClient,
		logger:     logger,
	}
}

// ExchangeTokenRequest carries a storefront session token
type ExchangeTokenRequest struct {
	SessionToken string `json:"session_token" binding:"required"`
}

// RefreshTokenRequest carries a refresh token
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ExchangeToken validates a storefront session token against the backend and
// mints a checkout token pair for that customer.
func (h *AuthHandler) ExchangeToken(c *gin.Context) {
	var req ExchangeTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Session token is required"})
		return
	}

	customer, err := h.backend.AuthenticateSession(c.Request.Context(), req.SessionToken)
	if err != nil {
		h.logger.WithError(err).Warn("Session token rejected by backend")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_session",
			"message": "Could not verify your storefront session. Please sign in again.",
			"code":    "INVALID_SESSION",
		})
		return
	}

	accessToken, refreshToken, err := h.mintPair(customer.ID, customer.Email, customer.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not create session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"customer":      customer,
	})
}

// RefreshToken exchanges a valid refresh token for a new token pair
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Refresh token is required"})
		return
	}

	claims, err := h.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		if h.jwtService.IsTokenExpired(req.RefreshToken) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "token_expired",
				"message": "Refresh token has expired. Please sign in again.",
				"code":    "TOKEN_EXPIRED",
			})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{
			"error":   "invalid_token",
			"message": "Invalid refresh token",
			"code":    "INVALID_TOKEN",
		})
		return
	}

	accessToken, refreshToken, err := h.mintPair(claims.CustomerID, claims.Email, claims.Name)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Could not refresh session"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessToken,
		"refresh_token": refreshToken,
	})
}

func (h *AuthHandler) mintPair(customerID, email, name string) (string, string, error) {
	accessToken, err := h.jwtService.GenerateAccessToken(customerID, email, name)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate access token")
		return "", "", err
	}

	refreshToken, err := h.jwtService.GenerateRefreshToken(customerID, email)
	if err != nil {
		h.logger.WithError(err).Error("Failed to generate refresh token")
		return "", "", err
	}

	return accessToken, refreshToken, nil
}
