package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func wrapped(skipper Skipper) http.Handler {
	m := NewMiddleware(Config{APIKey: "secret-key"}, skipper)
	return m.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestMissingKeyRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/organizations/", nil)
	rr := httptest.NewRecorder()
	wrapped(nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["type"] != "unauthorized" {
		t.Fatalf("expected unauthorized got %q", body["type"])
	}
}

func TestWrongKeyRejected(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/organizations/", nil)
	req.Header.Set(HeaderName, "not-the-key")
	rr := httptest.NewRecorder()
	wrapped(nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}

func TestCorrectKeyPasses(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/organizations/", nil)
	req.Header.Set(HeaderName, "secret-key")
	rr := httptest.NewRecorder()
	wrapped(nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}
}

func TestSkipperBypassesAuth(t *testing.T) {
	skipper := func(r *http.Request) bool { return r.URL.Path == "/healthz" }

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	wrapped(skipper).ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/organizations/", nil)
	rr = httptest.NewRecorder()
	wrapped(skipper).ServeHTTP(rr, req)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", rr.Code)
	}
}
