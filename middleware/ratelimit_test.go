package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"swipebite_server/models"
)

func TestRateLimiter_PerClientBurst(t *testing.T) {
	rl := NewRateLimiter(60, 2, zap.NewNop())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "clients are independent")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("a"), "one token per second refills")
}

func TestRateLimiter_DropsIdleClients(t *testing.T) {
	rl := NewRateLimiter(60, 1, zap.NewNop())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	now = now.Add(idleLimiterTTL + time.Second)
	rl.Allow("b")
	assert.NotContains(t, rl.clients, "a")
}

func TestRateLimiter_SweepsAtMostOncePerInterval(t *testing.T) {
	rl := NewRateLimiter(60, 1, zap.NewNop())
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	rl.Allow("a")
	rl.clients["stale"] = &clientLimiter{limiter: rate.NewLimiter(rl.limit, rl.burst), lastSeen: now.Add(-time.Hour)}

	now = now.Add(sweepInterval / 2)
	rl.Allow("a")
	assert.Contains(t, rl.clients, "stale", "no sweep inside the interval")

	now = now.Add(sweepInterval)
	rl.Allow("a")
	assert.NotContains(t, rl.clients, "stale")
	assert.Contains(t, rl.clients, "a")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(60, 1, zap.NewNop())
	h := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	send := func(user string, ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/sessions/join", nil)
		req.RemoteAddr = ip + ":5555"
		if user != "" {
			req = req.WithContext(WithUser(req.Context(), models.User{ID: user}))
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, send("u-1", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("u-1", "10.0.0.2"))
	assert.Equal(t, http.StatusNoContent, send("u-2", "10.0.0.1"))
	assert.Equal(t, http.StatusNoContent, send("", "10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, send("", "10.0.0.1"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", ClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", ClientIP(req))
}
