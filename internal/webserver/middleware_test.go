package webserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthMiddleware_NoToken(t *testing.T) {
	handler := authMiddleware("", okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	handler := authMiddleware("secret-token", okHandler())

	req := httptest.NewRequest(http.MethodPost, "/api/update", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_QueryToken(t *testing.T) {
	handler := authMiddleware("secret-token", okHandler())

	req := httptest.NewRequest(http.MethodGet, "/ws/events?token=secret-token", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler := authMiddleware("secret-token", okHandler())

	for _, header := range []string{"Bearer wrong", "", "Basic c2VjcmV0LXRva2Vu"} {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%q: status = %d, want %d", header, rec.Code, http.StatusUnauthorized)
		}
		if !strings.Contains(rec.Body.String(), "unauthorized") {
			t.Fatalf("body = %q, expected unauthorized message", rec.Body.String())
		}
	}
}

func TestAuthMiddleware_HealthSkip(t *testing.T) {
	handler := authMiddleware("secret-token", okHandler())

	for _, target := range []string{"/health", "/api/health"} {
		t.Run(target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, target, nil)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
			}
		})
	}
}

func TestServerRequiresTokenWhenConfigured(t *testing.T) {
	srv, _ := newTestServerWith(t, Options{AuthToken: "s3cret"})
	if rec := performRequest(t, srv, http.MethodGet, "/api/stats"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	if rec := performRequest(t, srv, http.MethodGet, "/api/stats?token=s3cret"); rec.Code != http.StatusOK {
		t.Fatalf("status with token = %d", rec.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestID(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if len(seen) != 36 || rec.Header().Get(requestIDHeader) != seen {
		t.Fatalf("generated id = %q, header = %q", seen, rec.Header().Get(requestIDHeader))
	}

	req = httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	req.Header.Set(requestIDHeader, "client-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if seen != "client-42" || rec.Header().Get(requestIDHeader) != "client-42" {
		t.Fatalf("caller id not kept: %q", seen)
	}
}

func TestRateLimitMiddleware_Allows(t *testing.T) {
	handler := rateLimitMiddleware(100, okHandler())

	for i := 0; i < 10; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		req.RemoteAddr = "192.168.1.10:1234"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}

func TestRateLimitMiddleware_Blocks(t *testing.T) {
	handler := rateLimitMiddleware(0.1, okHandler())

	blocked := false
	for i := 0; i < 25; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		req.RemoteAddr = "10.0.0.20:4321"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code == http.StatusTooManyRequests {
			blocked = true
			break
		}
	}

	if !blocked {
		t.Fatal("expected at least one request to be rate limited")
	}
}

func TestRateLimitMiddleware_PerClient(t *testing.T) {
	handler := rateLimitMiddleware(0.1, okHandler())

	for _, addr := range []string{"10.0.0.1:1", "10.0.0.2:1", "10.0.0.3:1"} {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s first request status = %d", addr, rec.Code)
		}
	}
}

func TestRateLimiterEvictsIdleClients(t *testing.T) {
	l := newRateLimiter(1)
	t0 := time.Date(2025, 12, 23, 9, 0, 0, 0, time.UTC)
	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if !l.allow(ip, t0) {
			t.Fatalf("%s first request denied", ip)
		}
	}
	if l.size() != 3 {
		t.Fatalf("buckets = %d, want 3", l.size())
	}

	// Still active within the idle window.
	l.allow("10.0.0.1", t0.Add(l.idle/2))
	if l.size() != 3 {
		t.Fatalf("buckets = %d before idle expiry, want 3", l.size())
	}

	if !l.allow("10.0.0.9", t0.Add(l.idle)) {
		t.Fatal("new client denied")
	}
	if l.size() != 2 {
		t.Fatalf("buckets = %d after sweep, want 2 (active + new)", l.size())
	}
}

func TestRateLimiterEvictionKeepsLimit(t *testing.T) {
	l := newRateLimiter(1)
	now := time.Date(2025, 12, 23, 9, 0, 0, 0, time.UTC)
	allowed := 0
	for i := 0; i < 10; i++ {
		if l.allow("10.0.0.1", now) {
			allowed++
		}
	}
	if allowed != int(l.burst) {
		t.Fatalf("allowed = %d, want burst %v", allowed, l.burst)
	}
}

func TestRateLimitMiddleware_Disabled(t *testing.T) {
	handler := rateLimitMiddleware(0, okHandler())

	for i := 0; i < 25; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
		req.RemoteAddr = "127.0.0.1:9999"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want %d", i+1, rec.Code, http.StatusOK)
		}
	}
}
