package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyber-shield/internal/logging"
)

type recordedRequest struct {
	method string
	path   string
	status int
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (r *fakeRecorder) RecordRequest(method, path string, status int, duration time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, recordedRequest{method: method, path: path, status: status})
}

func init() {
	gin.SetMode(gin.TestMode)
}

func TestGlobalErrorHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.NewWriterLogger(logging.DEBUG, &buf, nil)

	router := gin.New()
	router.Use(GlobalErrorHandler(logger))
	router.GET("/panic", func(c *gin.Context) {
		panic("boom")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Internal Server Error")
	assert.Contains(t, buf.String(), "Panic recovered on GET /panic: boom")
}

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(1, 2)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.False(t, limiter.Allow("10.0.0.1"))

	// 其他客户端拥有独立的令牌桶
	assert.True(t, limiter.Allow("10.0.0.2"))

	now = now.Add(time.Second)
	assert.True(t, limiter.Allow("10.0.0.1"))
	assert.Equal(t, 2, limiter.Clients())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	limiter := NewRateLimiter(1, 1)
	now := time.Now()
	limiter.now = func() time.Time { return now }

	limiter.Allow("10.0.0.1")
	now = now.Add(clientExpiration + time.Minute)
	limiter.Allow("10.0.0.2")
	assert.Equal(t, 1, limiter.Clients())
}

func TestRateLimiter_Middleware(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	router := gin.New()
	router.Use(limiter.Middleware())
	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestRequestMetrics(t *testing.T) {
	recorder := &fakeRecorder{}
	router := gin.New()
	router.Use(RequestMetrics(recorder))
	router.GET("/threats/:id", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/threats/abc", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	require.Len(t, recorder.requests, 2)
	assert.Equal(t, recordedRequest{http.MethodGet, "/threats/:id", http.StatusNotFound}, recorder.requests[0])
	assert.Equal(t, "unmatched", recorder.requests[1].path)
}
