package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tyebliya/waitlist-api/pkg/logger"
	"github.com/tyebliya/waitlist-api/pkg/metrics"
	"golang.org/x/time/rate"
)

func init() {
	gin.SetMode(gin.TestMode)
	logger.InitNop()
}

func serve(router *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSecurityHeadersMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(SecurityHeadersMiddleware())
	router.GET("/api/waitlist/stats", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/waitlist/stats", http.NoBody))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "strict-origin-when-cross-origin", w.Header().Get("Referrer-Policy"))
	assert.Contains(t, w.Header().Get("Strict-Transport-Security"), "max-age=63072000")
	assert.Contains(t, w.Header().Get("Permissions-Policy"), "camera=()")
	assert.Equal(t, "no-store, no-cache, must-revalidate", w.Header().Get("Cache-Control"))

	w = serve(router, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Empty(t, w.Header().Get("Cache-Control"))
}

func TestBodySizeLimitMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(BodySizeLimitMiddleware(16))
	router.POST("/echo", func(c *gin.Context) {
		if _, err := io.ReadAll(c.Request.Body); err != nil {
			c.Status(http.StatusRequestEntityTooLarge)
			return
		}
		c.Status(http.StatusOK)
	})

	w := serve(router, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"a":1}`)))
	assert.Equal(t, http.StatusOK, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(strings.Repeat("x", 17))))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware())
	var seen string
	router.GET("/", func(c *gin.Context) {
		seen = c.GetString(RequestIDKey)
		c.Status(http.StatusOK)
	})

	w := serve(router, httptest.NewRequest(http.MethodGet, "/", http.NoBody))
	generated := w.Header().Get(RequestIDHeader)
	assert.Len(t, generated, 36)
	assert.Equal(t, generated, seen)

	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(RequestIDHeader, "edge-1234")
	w = serve(router, req)
	assert.Equal(t, "edge-1234", w.Header().Get(RequestIDHeader))

	req = httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.Header.Set(RequestIDHeader, "bad\x01id")
	w = serve(router, req)
	assert.NotEqual(t, "bad\x01id", w.Header().Get(RequestIDHeader))
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestIsValidRequestID(t *testing.T) {
	assert.True(t, isValidRequestID("abc-123"))
	assert.False(t, isValidRequestID(""))
	assert.False(t, isValidRequestID(strings.Repeat("a", maxRequestIDLength+1)))
	assert.False(t, isValidRequestID("line\nbreak"))
}

func TestRecoveryMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RecoveryMiddleware())
	router.POST("/api/waitlist", func(c *gin.Context) { panic("nil map write") })

	w := serve(router, httptest.NewRequest(http.MethodPost, "/api/waitlist", http.NoBody))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error."}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "nil map")
}

func TestRateLimiter_Middleware(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := NewRateLimiter(ctx, rate.Limit(0.001), 2)
	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/api/healthcheck", func(c *gin.Context) { c.Status(http.StatusOK) })

	request := func(ip string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/healthcheck", http.NoBody)
		req.Header.Set("X-Forwarded-For", ip)
		return serve(router, req).Code
	}

	assert.Equal(t, http.StatusOK, request("203.0.113.5"))
	assert.Equal(t, http.StatusOK, request("203.0.113.5"))
	assert.Equal(t, http.StatusTooManyRequests, request("203.0.113.5"))
	assert.Equal(t, http.StatusOK, request("198.51.100.1"))
}

func TestRateLimiter_CleanupKeepsActiveVisitors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := NewRateLimiter(ctx, rate.Limit(0.001), 2)
	require.True(t, limiter.getVisitor("203.0.113.5").Allow())
	limiter.getVisitor("198.51.100.1")

	limiter.cleanup()

	limiter.mu.Lock()
	defer limiter.mu.Unlock()
	assert.Contains(t, limiter.visitors, "203.0.113.5")
	assert.NotContains(t, limiter.visitors, "198.51.100.1")
}

func TestObservabilityMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(RequestIDMiddleware(), ObservabilityMiddleware())
	router.GET("/api/waitlist/stats", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"count": 1}) })

	routed := metrics.HTTPRequestTotal.WithLabelValues(http.MethodGet, "/api/waitlist/stats", "200")
	unmatched := metrics.HTTPRequestTotal.WithLabelValues(http.MethodGet, "unmatched", "404")
	routedBefore, unmatchedBefore := testutil.ToFloat64(routed), testutil.ToFloat64(unmatched)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/waitlist/stats?token=secret", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)

	for _, path := range []string{"/nowhere", "/wp-login.php"} {
		w = serve(router, httptest.NewRequest(http.MethodGet, path, http.NoBody))
		assert.Equal(t, http.StatusNotFound, w.Code)
	}

	assert.Equal(t, routedBefore+1, testutil.ToFloat64(routed))
	assert.Equal(t, unmatchedBefore+2, testutil.ToFloat64(unmatched), "unknown paths share one label")
}
