package mw

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"

	"github.com/MrSnakeDoc/bookshare/internal/logger"
)

var noContent = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func request(h http.Handler, remote string) *httptest.ResponseRecorder {
	r := httptest.NewRequest(http.MethodPost, "/api/receive", nil)
	r.RemoteAddr = remote
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestRateLimitPerIP(t *testing.T) {
	h := RateLimit(RateLimitConfig{Burst: 2, RefillPerIPPerMin: 1})(noContent)

	assert.Equal(t, http.StatusNoContent, request(h, "1.1.1.1:1").Code)
	second := request(h, "1.1.1.1:2")
	assert.Equal(t, http.StatusNoContent, second.Code)
	assert.Equal(t, "2", second.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", second.Header().Get("X-RateLimit-Remaining"))

	refused := request(h, "1.1.1.1:3")
	assert.Equal(t, http.StatusTooManyRequests, refused.Code)
	assert.NotEmpty(t, refused.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, request(h, "2.2.2.2:1").Code, "other clients keep their own budget")
}

func TestRateLimitSweepsIdleVisitors(t *testing.T) {
	l := newLimiter(RateLimitConfig{Burst: 1, RefillPerIPPerMin: 60, SweepInterval: time.Millisecond, IdleTTL: time.Minute})
	now := time.Now()

	ok, _, _ := l.allow("1.1.1.1", now)
	assert.True(t, ok)
	ok, _, retry := l.allow("1.1.1.1", now)
	assert.False(t, ok)
	assert.LessOrEqual(t, retry, time.Second)

	l.sweepMaybe(now.Add(2 * time.Minute))
	assert.Equal(t, 0, l.size())
}

func TestAllowOnlyCIDRS(t *testing.T) {
	log := logger.NewNop()

	open := AllowOnlyCIDRS(nil, false, log)(noContent)
	assert.Equal(t, http.StatusNoContent, request(open, "8.8.8.8:1").Code)

	restricted := AllowOnlyCIDRS([]string{"10.0.0.0/8"}, false, log)(noContent)
	assert.Equal(t, http.StatusNoContent, request(restricted, "10.1.1.1:1").Code)
	assert.Equal(t, http.StatusForbidden, request(restricted, "8.8.8.8:1").Code)
}

func TestLogRecordsStatus(t *testing.T) {
	var seen int
	h := Log(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		sw := w.(*statusWriter)
		_, _ = w.Write([]byte("hi"))
		seen = sw.status
	}))

	w := request(h, "1.1.1.1:1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, seen)
}

func TestEchoRequestID(t *testing.T) {
	h := middleware.RequestID(EchoRequestID(noContent))

	generated := request(h, "1.1.1.1:1")
	assert.NotEmpty(t, generated.Header().Get(middleware.RequestIDHeader))

	r := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	r.Header.Set(middleware.RequestIDHeader, "client-supplied")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	assert.Equal(t, "client-supplied", w.Header().Get(middleware.RequestIDHeader))

	bare := httptest.NewRecorder()
	EchoRequestID(noContent).ServeHTTP(bare, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Empty(t, bare.Header().Get(middleware.RequestIDHeader), "no id without RequestID")
}
