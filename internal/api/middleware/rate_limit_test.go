package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type stubRateLimiter struct {
	allowed bool
	err     error
	keys    []string
}

func (s *stubRateLimiter) Allow(_ context.Context, key string) (bool, error) {
	s.keys = append(s.keys, key)
	return s.allowed, s.err
}

func runRateLimited(t *testing.T, limiter *stubRateLimiter) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	nextCalled := false
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		nextCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	req.RemoteAddr = "10.0.0.1:54321"
	rec := httptest.NewRecorder()

	RateLimit(limiter)(next).ServeHTTP(rec, req)
	return rec, nextCalled
}

func TestRateLimitAllowsWithinBudget(t *testing.T) {
	limiter := &stubRateLimiter{allowed: true}

	rec, nextCalled := runRateLimited(t, limiter)

	assert.True(t, nextCalled)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"10.0.0.1"}, limiter.keys, "clients are keyed by IP without the port")
}

func TestRateLimitRejectsWhenBudgetSpent(t *testing.T) {
	limiter := &stubRateLimiter{allowed: false}

	rec, nextCalled := runRateLimited(t, limiter)

	assert.False(t, nextCalled)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many requests")
}

func TestRateLimitLimiterErrorFailsClosed(t *testing.T) {
	limiter := &stubRateLimiter{err: errors.New("redis down")}

	rec, nextCalled := runRateLimited(t, limiter)

	assert.False(t, nextCalled)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestClientIPFallbacks(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.168.1.9"
	assert.Equal(t, "192.168.1.9", clientIP(req))

	req.RemoteAddr = ""
	assert.Equal(t, "unknown", clientIP(req))
}
