package core

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"fletoads/internal/types"
)

func newCSRFServer(t *testing.T, auth Authenticator, security types.SecurityService) *Server {
	t.Helper()

	s, err := NewServer(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	s.Authenticator = auth
	s.SecurityService = security
	s.V1RouteRegistrars = append(s.V1RouteRegistrars, func(r chi.Router) {
		r.Post("/mutate", func(w http.ResponseWriter, req *http.Request) {
			JSON(w, req, http.StatusOK, map[string]string{"ok": "true"})
		})
		r.Get("/read", func(w http.ResponseWriter, req *http.Request) {
			JSON(w, req, http.StatusOK, map[string]string{"ok": "true"})
		})
	})
	s.MountRoutes()
	return s
}

func TestCSRFMiddleware_SafeMethodExempt(t *testing.T) {
	auth := &MockAuthenticator{Actor: testActor(), CSRFToken: "csrf_secret"}
	s := newCSRFServer(t, auth, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/read", nil)
	req.Header.Set("Authorization", "Bearer sess_abc")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for GET without CSRF token, got %d", rec.Code)
	}
}

func TestCSRFMiddleware_MissingTokenRejected(t *testing.T) {
	auth := &MockAuthenticator{Actor: testActor(), CSRFToken: "csrf_secret"}
	s := newCSRFServer(t, auth, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/mutate", nil)
	req.Header.Set("Authorization", "Bearer sess_abc")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without CSRF header, got %d", rec.Code)
	}
	if code := errorCodeFromBody(t, rec); code != errCodeCSRFInvalid {
		t.Errorf("expected csrf_token_invalid, got %s", code)
	}
}

func TestCSRFMiddleware_MismatchRejected(t *testing.T) {
	auth := &MockAuthenticator{Actor: testActor(), CSRFToken: "csrf_secret"}
	s := newCSRFServer(t, auth, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/mutate", nil)
	req.Header.Set("Authorization", "Bearer sess_abc")
	req.Header.Set("X-CSRF-Token", "csrf_wrong")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 on CSRF mismatch, got %d", rec.Code)
	}
}

func TestCSRFMiddleware_MatchingTokenPasses(t *testing.T) {
	auth := &MockAuthenticator{Actor: testActor(), CSRFToken: "csrf_secret"}
	s := newCSRFServer(t, auth, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/mutate", nil)
	req.Header.Set("Authorization", "Bearer sess_abc")
	req.Header.Set("X-CSRF-Token", "csrf_secret")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with matching CSRF token, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCSRFMiddleware_SystemActorExempt(t *testing.T) {
	system := &types.Actor{ID: "sys", Type: types.ActorTypeSystem}
	auth := &MockAuthenticator{Actor: system}
	s := newCSRFServer(t, auth, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/mutate", nil)
	req.Header.Set("Authorization", "Bearer sess_sys")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for system actor without CSRF, got %d", rec.Code)
	}
}

func TestIPSecurityMiddleware_BlockedIP(t *testing.T) {
	security := &MockSecurityService{
		BlockedIPs: map[string]bool{"203.0.113.9": true},
	}
	auth := &MockAuthenticator{Actor: testActor(), CSRFToken: "csrf_secret"}
	s := newCSRFServer(t, auth, security)

	req := httptest.NewRequest(http.MethodGet, "/v1/read", nil)
	req.Header.Set("Authorization", "Bearer sess_abc")
	req.Header.Set("X-Forwarded-For", "203.0.113.9")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for blocked IP, got %d", rec.Code)
	}
	if code := errorCodeFromBody(t, rec); code != errCodeIPBlocked {
		t.Errorf("expected ip_blocked, got %s", code)
	}
}

func TestExtractClientIP(t *testing.T) {
	t.Run("x-forwarded-for first entry", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "198.51.100.7, 10.0.0.1")
		if got := extractClientIP(req); got != "198.51.100.7" {
			t.Errorf("expected 198.51.100.7, got %q", got)
		}
	})

	t.Run("remote addr fallback strips port", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.5:43210"
		if got := extractClientIP(req); got != "192.0.2.5" {
			t.Errorf("expected 192.0.2.5, got %q", got)
		}
	})
}
