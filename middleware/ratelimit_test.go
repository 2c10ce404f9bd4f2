package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiterAllowsWithinLimit(t *testing.T) {
	limiter := NewIPRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow("10.0.0.1"))
	}
	assert.False(t, limiter.Allow("10.0.0.1"))
}

func TestIPRateLimiterIsolatesClients(t *testing.T) {
	limiter := NewIPRateLimiter(1, time.Minute)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.2"))
}

func TestIPRateLimiterWindowExpiry(t *testing.T) {
	limiter := NewIPRateLimiter(1, 50*time.Millisecond)

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))

	time.Sleep(60 * time.Millisecond)
	assert.True(t, limiter.Allow("10.0.0.1"))
}

func TestRateLimitMiddlewareReturns429(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(NewIPRateLimiter(2, time.Minute).Middleware())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:1234"
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	}

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.9:1234"
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "Too many requests")
}
