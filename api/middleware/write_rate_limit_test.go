package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	pkgerrors "github.com/angelmondragon/printfarm-backend/pkg/errors"
	pkgredis "github.com/angelmondragon/printfarm-backend/pkg/redis"
)

type fakeLimiter struct {
	mu     sync.Mutex
	counts  map[string]int64
	err     error
	resetIn time.Duration
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{counts: make(map[string]int64)}
}

func (f *fakeLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, window time.Duration) (pkgredis.Window, error) {
	if f.err != nil {
		return pkgredis.Window{}, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	count := f.counts[scope]
	reset := window
	if f.resetIn > 0 {
		reset = f.resetIn
	}
	return pkgredis.Window{Allowed: count <= limit, Count: count, Limit: limit, ResetIn: reset}, nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestWriteRateLimitBlocksAfterLimit(t *testing.T) {
	limiter := newFakeLimiter()
	handler := WriteRateLimit(WriteRateLimitPolicy{Window: time.Minute, Limit: 2}, limiter, nil)(okHandler())

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil)
		req.RemoteAddr = "10.1.1.1:4000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if i < 2 {
			if rec.Code != http.StatusOK {
				t.Fatalf("request %d: expected 200 got %d", i, rec.Code)
			}
			if want := strconv.Itoa(1 - i); rec.Header().Get("X-RateLimit-Remaining") != want {
				t.Fatalf("request %d: expected remaining %s got %q", i, want, rec.Header().Get("X-RateLimit-Remaining"))
			}
			continue
		}
		if rec.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 got %d", rec.Code)
		}
		if rec.Header().Get("Retry-After") != "60" {
			t.Fatalf("expected Retry-After 60 got %q", rec.Header().Get("Retry-After"))
		}
		var payload struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
			t.Fatalf("decode error: %v", err)
		}
		if payload.Error.Code != string(pkgerrors.CodeRateLimit) {
			t.Fatalf("unexpected code: %s", payload.Error.Code)
		}
	}
}

func TestWriteRateLimitCountsClientsSeparately(t *testing.T) {
	limiter := newFakeLimiter()
	handler := WriteRateLimit(WriteRateLimitPolicy{Window: time.Minute, Limit: 1}, limiter, nil)(okHandler())

	for _, ip := range []string{"10.0.0.1", "10.0.0.2"} {
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/orders/ORD-1", nil)
		req.Header.Set("X-Forwarded-For", ip+", 172.16.0.1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", ip, rec.Code)
		}
	}
}

func TestWriteRateLimitSkipsReads(t *testing.T) {
	limiter := newFakeLimiter()
	handler := WriteRateLimit(WriteRateLimitPolicy{Window: time.Minute, Limit: 1}, limiter, nil)(okHandler())

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/filaments", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected reads to pass, got %d", rec.Code)
		}
	}
	if len(limiter.counts) != 0 {
		t.Fatalf("reads should not touch the limiter")
	}
}

func TestWriteRateLimitLimiterFailure(t *testing.T) {
	limiter := newFakeLimiter()
	limiter.err = errors.New("redis down")
	handler := WriteRateLimit(WriteRateLimitPolicy{Window: time.Minute, Limit: 1}, limiter, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 got %d", rec.Code)
	}
}

func TestWriteRateLimitDisabledPolicy(t *testing.T) {
	handler := WriteRateLimit(WriteRateLimitPolicy{}, nil, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected passthrough, got %d", rec.Code)
	}
}

func TestWriteRateLimitRetryAfterUsesWindowReset(t *testing.T) {
	limiter := newFakeLimiter()
	limiter.resetIn = 1500 * time.Millisecond
	handler := WriteRateLimit(WriteRateLimitPolicy{Window: time.Minute, Limit: 1}, limiter, nil)(okHandler())

	var rec *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/orders/ORD-1/lines/x/status", nil))
	}
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "2" {
		t.Fatalf("expected Retry-After rounded up to 2, got %q", rec.Header().Get("Retry-After"))
	}
}
