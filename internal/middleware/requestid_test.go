package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func requestIDRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(ContextRequestID))
	})
	return r
}

func TestRequestIDGenerated(t *testing.T) {
	r := requestIDRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	rid := w.Header().Get(HeaderXRequestID)
	_, err := uuid.Parse(rid)
	require.NoError(t, err)
	assert.Equal(t, rid, w.Body.String())
}

func TestRequestIDInboundKept(t *testing.T) {
	r := requestIDRouter()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, "gateway-abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, "gateway-abc-123", w.Header().Get(HeaderXRequestID))
	assert.Equal(t, "gateway-abc-123", w.Body.String())
}

func TestRequestIDOversizedReplaced(t *testing.T) {
	r := requestIDRouter()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderXRequestID, strings.Repeat("x", maxRequestIDLength+1))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	rid := w.Header().Get(HeaderXRequestID)
	_, err := uuid.Parse(rid)
	assert.NoError(t, err)
}
