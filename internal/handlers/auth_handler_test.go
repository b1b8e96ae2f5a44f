package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roamtrails/booking-checkout/internal/backend"
	"github.com/roamtrails/booking-checkout/pkg/jwt"
)

func setupAuthRouter(t *testing.T, jwtService *jwt.Service, backendHandler http.HandlerFunc) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var backendClient *backend.Client
	if backendHandler != nil {
		server := httptest.NewServer(backendHandler)
		t.Cleanup(server.Close)
		backendClient = backend.NewClient(backend.Config{BaseURL: server.URL}, testLogger())
	}

	router := gin.New()
	handler := NewAuthHandler(jwtService, backendClient, testLogger())
	router.POST("/auth/exchange", handler.ExchangeToken)
	router.POST("/auth/refresh-token", handler.RefreshToken)
	return router
}

func postJSON(router *gin.Engine, path string, payload map[string]string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func newJWTService() *jwt.Service {
	return jwt.NewService("access-secret", "refresh-secret", time.Hour, 24*time.Hour)
}

func TestExchangeToken_Success(t *testing.T) {
	jwtService := newJWTService()
	router := setupAuthRouter(t, jwtService, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customer-profile", r.URL.Path)
		// The customer's session token travels through, not the API key
		assert.Equal(t, "Bearer session-token-1", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": true,
			"data":   map[string]interface{}{"id": "cust-1", "email": "asha@example.com", "name": "Asha Nair"},
		})
	})

	w := postJSON(router, "/auth/exchange", map[string]string{"session_token": "session-token-1"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	claims, err := jwtService.ValidateAccessToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "cust-1", claims.CustomerID)
	assert.Equal(t, "asha@example.com", claims.Email)

	_, err = jwtService.ValidateRefreshToken(resp.RefreshToken)
	assert.NoError(t, err)
}

func TestExchangeToken_RejectedSession(t *testing.T) {
	router := setupAuthRouter(t, newJWTService(), func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{"status": false, "message": "Session expired"})
	})

	w := postJSON(router, "/auth/exchange", map[string]string{"session_token": "stale"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_SESSION")
}

func TestExchangeToken_MissingBody(t *testing.T) {
	router := setupAuthRouter(t, newJWTService(), func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no backend call expected")
	})

	w := postJSON(router, "/auth/exchange", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRefreshToken_Success(t *testing.T) {
	jwtService := newJWTService()
	router := setupAuthRouter(t, jwtService, nil)

	refreshToken, err := jwtService.GenerateRefreshToken("cust-1", "asha@example.com")
	require.NoError(t, err)

	w := postJSON(router, "/auth/refresh-token", map[string]string{"refresh_token": refreshToken})
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	// The new access token carries the original customer's identity
	claims, err := jwtService.ValidateAccessToken(resp["access_token"])
	require.NoError(t, err)
	assert.Equal(t, "cust-1", claims.CustomerID)
	assert.Equal(t, "asha@example.com", claims.Email)

	_, err = jwtService.ValidateRefreshToken(resp["refresh_token"])
	assert.NoError(t, err)
}

func TestRefreshToken_AccessTokenRejected(t *testing.T) {
	jwtService := newJWTService()
	router := setupAuthRouter(t, jwtService, nil)

	accessToken, err := jwtService.GenerateAccessToken("cust-1", "asha@example.com", "")
	require.NoError(t, err)

	w := postJSON(router, "/auth/refresh-token", map[string]string{"refresh_token": accessToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_TOKEN")
}

func TestRefreshToken_Expired(t *testing.T) {
	jwtService := jwt.NewService("access-secret", "refresh-secret", time.Hour, -time.Hour)
	router := setupAuthRouter(t, jwtService, nil)

	refreshToken, err := jwtService.GenerateRefreshToken("cust-1", "asha@example.com")
	require.NoError(t, err)

	w := postJSON(router, "/auth/refresh-token", map[string]string{"refresh_token": refreshToken})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestRefreshToken_MissingBody(t *testing.T) {
	router := setupAuthRouter(t, newJWTService(), nil)

	w := postJSON(router, "/auth/refresh-token", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
