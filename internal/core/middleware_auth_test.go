package core

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"fletoads/internal/config"
	"fletoads/internal/types"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{Environment: "local"}
}

// newTestServer builds a server with the given authenticator and a probe
// route under /v1 that echoes the resolved actor ID.
func newTestServer(t *testing.T, auth Authenticator) *Server {
	t.Helper()

	s, err := NewServer(testConfig(), testLogger())
	if err != nil {
		t.Fatalf("NewServer failed: %v", err)
	}
	s.Authenticator = auth
	s.V1RouteRegistrars = append(s.V1RouteRegistrars, func(r chi.Router) {
		r.Get("/whoami", func(w http.ResponseWriter, req *http.Request) {
			actor, ok := types.GetActor(req.Context())
			if !ok {
				JSON(w, req, http.StatusOK, map[string]string{"actor": "none"})
				return
			}
			JSON(w, req, http.StatusOK, map[string]string{"actor": actor.ID})
		})
		r.With(s.RequireRole(types.RoleAdmin)).Get("/admin-only", func(w http.ResponseWriter, req *http.Request) {
			JSON(w, req, http.StatusOK, map[string]string{"ok": "true"})
		})
	})
	s.MountRoutes()
	return s
}

func testActor() *types.Actor {
	return &types.Actor{
		ID:   "user_0195a4f2-1111-7000-8000-000000000001",
		Type: types.ActorTypeUser,
		Role: types.RoleUser,
	}
}

func errorCodeFromBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp APIErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	return resp.Error.Code
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	s := newTestServer(t, &MockAuthenticator{Actor: testActor()})

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errorCodeFromBody(t, rec); code != string(types.ErrCodeAuthTokenMissing) {
		t.Errorf("expected auth_token_missing, got %s", code)
	}
}

func TestAuthMiddleware_CookieToken(t *testing.T) {
	auth := &MockAuthenticator{Actor: testActor()}
	s := newTestServer(t, auth)

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess_abc"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(auth.Calls) != 1 || auth.Calls[0] != "sess_abc" {
		t.Errorf("expected token sess_abc resolved, got %v", auth.Calls)
	}
}

func TestAuthMiddleware_BearerToken(t *testing.T) {
	auth := &MockAuthenticator{Actor: testActor()}
	s := newTestServer(t, auth)

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer sess_xyz")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["actor"] != testActor().ID {
		t.Errorf("expected actor injected into context, got %v", body)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	auth := &MockAuthenticator{
		Err: types.NewAppError(types.ErrCodeAuthTokenInvalid, "no such session", nil),
	}
	s := newTestServer(t, auth)

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer sess_bad")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errorCodeFromBody(t, rec); code != string(types.ErrCodeAuthTokenInvalid) {
		t.Errorf("expected auth_token_invalid, got %s", code)
	}
}

func TestAuthMiddleware_ExpiredSession(t *testing.T) {
	auth := &MockAuthenticator{
		Err: types.NewAppError(types.ErrCodeAuthSessionExpired, "session expired", nil),
	}
	s := newTestServer(t, auth)

	req := httptest.NewRequest(http.MethodGet, "/v1/whoami", nil)
	req.Header.Set("Authorization", "Bearer sess_old")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if code := errorCodeFromBody(t, rec); code != string(types.ErrCodeAuthSessionExpired) {
		t.Errorf("expected auth_session_expired, got %s", code)
	}
}

func TestAuthMiddleware_PublicPathsBypass(t *testing.T) {
	auth := &MockAuthenticator{
		Err: types.NewAppError(types.ErrCodeAuthTokenInvalid, "should not be called", nil),
	}
	s := newTestServer(t, auth)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for /health, got %d", rec.Code)
	}
	if len(auth.Calls) != 0 {
		t.Errorf("expected no authenticator calls for public path, got %v", auth.Calls)
	}
}

func TestRequireRole_UserIsForbidden(t *testing.T) {
	s := newTestServer(t, &MockAuthenticator{Actor: testActor()})

	req := httptest.NewRequest(http.MethodGet, "/v1/admin-only", nil)
	req.Header.Set("Authorization", "Bearer sess_abc")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}
	if code := errorCodeFromBody(t, rec); code != string(types.ErrCodePermissionRole) {
		t.Errorf("expected permission_role_insufficient, got %s", code)
	}
}

func TestRequireRole_AdminPasses(t *testing.T) {
	admin := &types.Actor{
		ID:   "user_admin",
		Type: types.ActorTypeUser,
		Role: types.RoleAdmin,
	}
	s := newTestServer(t, &MockAuthenticator{Actor: admin})

	req := httptest.NewRequest(http.MethodGet, "/v1/admin-only", nil)
	req.Header.Set("Authorization", "Bearer sess_abc")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestExtractSessionToken(t *testing.T) {
	t.Run("cookie wins over header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "sess_cookie"})
		req.Header.Set("Authorization", "Bearer sess_header")
		if got := extractSessionToken(req); got != "sess_cookie" {
			t.Errorf("expected cookie token, got %q", got)
		}
	})

	t.Run("case-insensitive bearer scheme", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "bearer sess_abc")
		if got := extractSessionToken(req); got != "sess_abc" {
			t.Errorf("expected sess_abc, got %q", got)
		}
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		if got := extractSessionToken(req); got != "" {
			t.Errorf("expected empty token, got %q", got)
		}
	})
}

func TestEnsureSelfOrAdmin(t *testing.T) {
	owner := types.Actor{ID: "user_1", Type: types.ActorTypeUser, Role: types.RoleUser}
	other := types.Actor{ID: "user_2", Type: types.ActorTypeUser, Role: types.RoleUser}
	admin := types.Actor{ID: "user_3", Type: types.ActorTypeUser, Role: types.RoleAdmin}
	system := types.Actor{ID: "sys", Type: types.ActorTypeSystem}

	if err := EnsureSelfOrAdmin(owner, "user_1"); err != nil {
		t.Errorf("owner should access own resource: %v", err)
	}
	if err := EnsureSelfOrAdmin(admin, "user_1"); err != nil {
		t.Errorf("admin should access any resource: %v", err)
	}
	if err := EnsureSelfOrAdmin(system, "user_1"); err != nil {
		t.Errorf("system should access any resource: %v", err)
	}

	err := EnsureSelfOrAdmin(other, "user_1")
	if err == nil {
		t.Fatal("expected ownership error for cross-user access")
	}
	var appErr *types.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected *types.AppError, got %T", err)
	}
	if appErr.Code != types.ErrCodePermissionOwnership {
		t.Errorf("expected permission_ownership_mismatch, got %s", appErr.Code)
	}
	if appErr.HTTPStatus() != http.StatusForbidden {
		t.Errorf("expected 403, got %d", appErr.HTTPStatus())
	}
}
