package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
)

type fakeLimiter struct {
	counts map[string]int64
	err    error
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if f.err != nil {
		return false, 0, f.err
	}
	if f.counts == nil {
		f.counts = map[string]int64{}
	}
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func rateLimitedRequest(residentID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/charge", nil)
	ctx := WithResidentID(req.Context(), residentID)
	return req.WithContext(ctx)
}

func TestRateLimitAllowsUnderLimit(t *testing.T) {
	limiter := &fakeLimiter{}
	handler := RateLimit(limiter, nil, 2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	residentID := uuid.NewString()
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, rateLimitedRequest(residentID))
		if rec.Code != http.StatusCreated {
			t.Fatalf("request %d: status = %d, want 201", i+1, rec.Code)
		}
	}
}

func TestRateLimitBlocksOverLimit(t *testing.T) {
	limiter := &fakeLimiter{}
	handler := RateLimit(limiter, nil, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	residentID := uuid.NewString()
	first := httptest.NewRecorder()
	handler.ServeHTTP(first, rateLimitedRequest(residentID))
	if first.Code != http.StatusCreated {
		t.Fatalf("first request status = %d, want 201", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, rateLimitedRequest(residentID))
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
}

func TestRateLimitScopesByResident(t *testing.T) {
	limiter := &fakeLimiter{}
	handler := RateLimit(limiter, nil, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, rateLimitedRequest(uuid.NewString()))
		if rec.Code != http.StatusCreated {
			t.Fatalf("resident %d: status = %d, want 201", i+1, rec.Code)
		}
	}
}

func TestRateLimitFailsOpenOnBackendError(t *testing.T) {
	limiter := &fakeLimiter{err: errors.New("connection refused")}
	handler := RateLimit(limiter, nil, 1, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, rateLimitedRequest(uuid.NewString()))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
}
