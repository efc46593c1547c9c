package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type memoryRateLimitStore struct {
	mu     sync.Mutex
	counts map[string]int
	err    error
}

func (m *memoryRateLimitStore) Hit(_ context.Context, key string, _ time.Duration) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

func limitedHandler(store RateLimitStore, requests int) http.Handler {
	rl := NewRateLimiter(store, RateLimitConfig{Requests: requests, Window: time.Minute})
	return rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(h http.Handler, ip, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, nil)
	req.RemoteAddr = ip + ":5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiter_BlocksAfterLimit(t *testing.T) {
	h := limitedHandler(&memoryRateLimitStore{counts: map[string]int{}}, 2)

	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1", "/auth/firebase-signup").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1", "/auth/firebase-signup").Code)

	rec := hit(h, "10.0.0.1", "/auth/firebase-signup")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// other callers and other paths keep their own budget
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.2", "/auth/firebase-signup").Code)
	assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1", "/auth/check-admin").Code)
}

func TestRateLimiter_FailsOpen(t *testing.T) {
	h := limitedHandler(&memoryRateLimitStore{err: errors.New("db down")}, 1)
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "10.0.0.1", "/auth/check-admin").Code)
	}
}

func TestGetClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", getClientIP(req))

	req.Header.Set("X-Real-IP", "198.51.100.7")
	assert.Equal(t, "198.51.100.7", getClientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", getClientIP(req))
}
