package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAuthRejectsMissingToken(t *testing.T) {
	auth := NewAuth("secret", time.Hour, []string{"/healthz"}, nil)
	handler := auth.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/persons", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}

	// Skip paths are served without a token.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200 for skip path", rec.Code)
	}
}

func TestAuthAcceptsIssuedToken(t *testing.T) {
	auth := NewAuth("secret", time.Hour, nil, nil)
	token, err := auth.IssueToken("p1", "ada@example.com", "admin", "acme")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var gotPerson, gotRole, gotBrand string
	handler := auth.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPerson = GetPersonID(r.Context())
		gotRole = GetRole(r.Context())
		gotBrand = GetBrand(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/persons", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	if gotPerson != "p1" || gotRole != "admin" || gotBrand != "acme" {
		t.Fatalf("context identity = %q/%q/%q", gotPerson, gotRole, gotBrand)
	}
}

func TestAuthRejectsForeignSecret(t *testing.T) {
	other := NewAuth("other-secret", time.Hour, nil, nil)
	token, err := other.IssueToken("p1", "", "", "")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	auth := NewAuth("secret", time.Hour, nil, nil)
	handler := auth.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/persons", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status %d, want 401", rec.Code)
	}
}

func TestBrandResolvesFromHost(t *testing.T) {
	brand := Brand(map[string]string{"photos.acme.test": "acme"}, "studioshot")

	var got string
	handler := brand(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetBrand(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "photos.acme.test:8080"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "acme" {
		t.Fatalf("brand %q, want acme", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Host = "unknown.example.com"
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if got != "studioshot" {
		t.Fatalf("brand %q, want default", got)
	}
}

func TestRateLimiterThrottlesPerKey(t *testing.T) {
	rl := NewRateLimiter(1, 1, nil)
	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/persons", nil)
	req.RemoteAddr = "10.0.0.1:1234"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status %d, want 429", rec.Code)
	}

	// A different caller has its own budget.
	other := httptest.NewRequest(http.MethodGet, "/persons", nil)
	other.RemoteAddr = "10.0.0.2:1234"
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, other)
	if rec.Code != http.StatusOK {
		t.Fatalf("other caller status %d, want 200", rec.Code)
	}
}
