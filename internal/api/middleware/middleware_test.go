package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth(t *testing.T) {
	handler := APIKeyAuth("secret")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with wrong key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("Authorization", "Basic c2VjcmV0")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with non-bearer scheme, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with correct key, got %d", rec.Code)
	}
}

func TestAPIKeyAuthDisabledWhenEmpty(t *testing.T) {
	handler := APIKeyAuth("")(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 when auth is disabled, got %d", rec.Code)
	}
}

func TestLimitKey(t *testing.T) {
	cases := []struct {
		path    string
		realIP  string
		remote  string
		wantKey string
	}{
		{"/v1/users/abc-123/recommendations", "", "10.0.0.1:1234", "user:abc-123"},
		{"/v1/users/abc-123/phase", "", "10.0.0.1:1234", "user:abc-123"},
		{"/v1/users/abc-123", "", "10.0.0.1:1234", "user:abc-123"},
		{"/v1/tasks", "203.0.113.9", "10.0.0.1:1234", "ip:203.0.113.9"},
		{"/v1/tasks", "", "10.0.0.1:1234", "ip:10.0.0.1:1234"},
		{"/v1/users/", "", "10.0.0.1:1234", "ip:10.0.0.1:1234"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, tc.path, nil)
		req.RemoteAddr = tc.remote
		if tc.realIP != "" {
			req.Header.Set("X-Real-IP", tc.realIP)
		}
		if got := limitKey(req); got != tc.wantKey {
			t.Errorf("limitKey(%q) = %q, want %q", tc.path, got, tc.wantKey)
		}
	}
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(1, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("user:a") {
			t.Fatalf("request %d within burst should be allowed", i+1)
		}
	}
	if rl.Allow("user:a") {
		t.Fatal("request beyond burst should be rejected")
	}
	// Separate keys get their own bucket.
	if !rl.Allow("user:b") {
		t.Fatal("different key should not share the exhausted bucket")
	}
}

func TestRequestIDPropagates(t *testing.T) {
	var captured string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = RequestIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	RequestID(inner).ServeHTTP(rec, req)

	if captured == "" {
		t.Fatal("expected request id in context")
	}
	if got := rec.Header().Get("X-Request-ID"); got != captured {
		t.Fatalf("header %q does not match context value %q", got, captured)
	}
}
