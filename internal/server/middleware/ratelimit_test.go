package middleware

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
	mu  sync.Mutex
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestLimiter(t *testing.T, rate int, window time.Duration) (*RateLimiter, *fakeClock) {
	t.Helper()
	rl := NewRateLimiter(rate, window, setupTestLogger())
	t.Cleanup(rl.Stop)

	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl.now = clock.Now
	return rl, clock
}

func TestRateLimiter_Allow(t *testing.T) {
	rl, clock := newTestLimiter(t, 3, time.Minute)

	for i := 0; i < 3; i++ {
		ok, _ := rl.Allow("10.0.0.1")
		assert.True(t, ok, "request %d should pass", i)
	}

	ok, wait := rl.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, wait)

	// Другой клиент не затронут
	ok, _ = rl.Allow("10.0.0.2")
	assert.True(t, ok)

	clock.Advance(20 * time.Second)
	_, wait = rl.Allow("10.0.0.1")
	assert.Equal(t, 40*time.Second, wait)

	// Окно прошло, bucket пополнен
	clock.Advance(40 * time.Second)
	ok, _ = rl.Allow("10.0.0.1")
	assert.True(t, ok)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl, clock := newTestLimiter(t, 1, time.Minute)

	rl.Allow("10.0.0.1")
	clock.Advance(3 * time.Minute)
	rl.cleanupOldBuckets()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	assert.Empty(t, rl.buckets)
}

func TestRateLimiter_StopTwice(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute, setupTestLogger())
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1, time.Minute)

	handler := rl.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	newReq := func(remote string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/auth/sms/send", nil)
		req.RemoteAddr = remote
		return req
	}

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, newReq("192.0.2.1:1234"))
	assert.Equal(t, http.StatusOK, w.Code)

	// Тот же клиент с другого порта
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, newReq("192.0.2.1:5678"))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "too many requests, please try again later", decodeDetail(t, w))
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{name: "remote addr", remote: "192.0.2.1:1234", want: "192.0.2.1"},
		{name: "remote addr without port", remote: "192.0.2.1", want: "192.0.2.1"},
		{
			name:    "x-forwarded-for chain",
			remote:  "10.0.0.1:80",
			headers: map[string]string{"X-Forwarded-For": "203.0.113.5, 10.0.0.1"},
			want:    "203.0.113.5",
		},
		{
			name:    "x-real-ip",
			remote:  "10.0.0.1:80",
			headers: map[string]string{"X-Real-IP": "203.0.113.9"},
			want:    "203.0.113.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, clientIP(req))
		})
	}
}
