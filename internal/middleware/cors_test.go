package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsHandler(origins []string) http.Handler {
	cfg := DefaultCORSConfig()
	cfg.AllowedOrigins = origins
	return CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestCORS_AllowedOrigin(t *testing.T) {
	h := corsHandler([]string{"https://mdmc.example"})

	req := httptest.NewRequest(http.MethodPost, "/api/track/click", nil)
	req.Header.Set("Origin", "https://mdmc.example")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://mdmc.example" {
		t.Errorf("expected allow-origin header, got %q", got)
	}
	if rec.Header().Get("Vary") != "Origin" {
		t.Error("expected Vary: Origin")
	}
}

func TestCORS_Preflight(t *testing.T) {
	h := corsHandler([]string{"https://mdmc.example"})

	req := httptest.NewRequest(http.MethodOptions, "/api/track/click", nil)
	req.Header.Set("Origin", "https://mdmc.example")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected allow-methods header on preflight")
	}
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	h := corsHandler([]string{"https://mdmc.example"})

	req := httptest.NewRequest(http.MethodPost, "/api/track/click", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected no CORS headers for disallowed origin")
	}
	// The actual request still reaches the handler; the browser blocks it.
	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

func TestCORS_DisallowedPreflight(t *testing.T) {
	h := corsHandler([]string{"https://mdmc.example"})

	req := httptest.NewRequest(http.MethodOptions, "/api/track/click", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected status 403, got %d", rec.Code)
	}
}

func TestCORS_WildcardSubdomain(t *testing.T) {
	tests := []struct {
		origin  string
		allowed bool
	}{
		{"https://artist.mdmc.example", true},
		{"https://a.b.mdmc.example", true},
		{"http://artist.mdmc.example", true},
		{"https://notmdmc.example", false},
		{"https://.mdmc.example", false},
		{"https://mdmc.example.evil.example", false},
	}

	h := corsHandler([]string{"*.mdmc.example"})

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/api/track/click", nil)
		req.Header.Set("Origin", tt.origin)
		rec := httptest.NewRecorder()

		h.ServeHTTP(rec, req)

		got := rec.Header().Get("Access-Control-Allow-Origin") != ""
		if got != tt.allowed {
			t.Errorf("origin %q: allowed=%v, want %v", tt.origin, got, tt.allowed)
		}
	}
}

func TestCORS_NoOriginHeader(t *testing.T) {
	h := corsHandler([]string{"https://mdmc.example"})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("expected no CORS headers for same-origin request")
	}
}
