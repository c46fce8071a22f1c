package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiter_PerClient(t *testing.T) {
	rl := NewRateLimiter(PerMinute(2))
	defer rl.Stop()
	h := rl.Middleware(okHandler)

	send := func(addr string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/reservations", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:5000").Code)
	assert.Equal(t, http.StatusNoContent, send("10.0.0.1:5001").Code)
	blocked := send("10.0.0.1:5002")
	assert.Equal(t, http.StatusTooManyRequests, blocked.Code)
	assert.NotEmpty(t, blocked.Header().Get("Retry-After"))
	assert.Contains(t, blocked.Body.String(), "rate_limit_exceeded")

	assert.Equal(t, http.StatusNoContent, send("10.0.0.2:5000").Code)
	assert.Equal(t, 2, rl.Count())
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{Rate: 1, Burst: 1, CleanupInterval: time.Minute})
	defer rl.Stop()

	rl.limiter("10.0.0.1")
	rl.cleanup(time.Now())
	assert.Equal(t, 1, rl.Count())

	rl.cleanup(time.Now().Add(3 * time.Minute))
	assert.Zero(t, rl.Count())

	rl.Stop()
}

func TestPerMinute(t *testing.T) {
	cfg := PerMinute(0)
	assert.Equal(t, 1, cfg.Burst)
}
