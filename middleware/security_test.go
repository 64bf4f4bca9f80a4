package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kendall-kelly/delivery-admin-api/models"
	"github.com/stretchr/testify/assert"
)

func TestSecureHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := runChain(SecureHeaders(false))
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
}

func TestSecureHeadersRedirectsPlainHTTPInProduction(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reached := false
	router := gin.New()
	router.GET("/test", SecureHeaders(true), func(c *gin.Context) { reached = true })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "http://api.example.com/test", nil))
	assert.Equal(t, http.StatusMovedPermanently, w.Code)
	assert.Equal(t, "https://api.example.com/test", w.Header().Get("Location"))
	assert.False(t, reached)
}

func TestRateLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/test", RateLimit(2), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	codes := []int{}
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	w := runChain(RateLimit(0))
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRequestLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	admin := &models.Admin{ID: uuid.New()}

	w := runChain(RequestLogger(logger), func(c *gin.Context) { SetAdmin(c, admin) })
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, buf.String(), "path=/test")
	assert.Contains(t, buf.String(), "status=204")
	assert.Contains(t, buf.String(), admin.ID.String())
}
