package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-jwt-secret"

func signToken(t *testing.T, secret, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func authTestRouter(m *AuthMiddleware) (*gin.Engine, *uuid.UUID) {
	gin.SetMode(gin.TestMode)
	var seen uuid.UUID
	r := gin.New()
	r.GET("/protected", m.Authenticate(), func(c *gin.Context) {
		id, _ := UserID(c)
		seen = id
		c.Status(http.StatusOK)
	})
	r.POST("/ops", m.RequireOperator(), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	return r, &seen
}

func TestAuthenticateValidToken(t *testing.T) {
	m := NewAuthMiddleware(testSecret, "")
	r, seen := authTestRouter(m)

	userID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, userID.String()))

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, userID, *seen)
}

func TestAuthenticateRejections(t *testing.T) {
	m := NewAuthMiddleware(testSecret, "")
	r, _ := authTestRouter(m)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"not a bearer", "Basic abc"},
		{"garbage token", "Bearer not.a.jwt"},
		{"wrong secret", "Bearer " + signToken(t, "other-secret", uuid.New().String())},
		{"non-uuid subject", "Bearer " + signToken(t, testSecret, "alice")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
		})
	}
}

func TestAuthenticateRejectsExpiredToken(t *testing.T) {
	m := NewAuthMiddleware(testSecret, "")
	r, _ := authTestRouter(m)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   uuid.New().String(),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+signed)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireOperator(t *testing.T) {
	m := NewAuthMiddleware(testSecret, "ops-token")
	r, _ := authTestRouter(m)

	req := httptest.NewRequest(http.MethodPost, "/ops", nil)
	req.Header.Set("Authorization", "Bearer ops-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/ops", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequireOperatorDisabledWhenUnconfigured(t *testing.T) {
	m := NewAuthMiddleware(testSecret, "")
	r, _ := authTestRouter(m)

	// No configured token means the surface is shut, not open.
	req := httptest.NewRequest(http.MethodPost, "/ops", nil)
	req.Header.Set("Authorization", "Bearer ")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
