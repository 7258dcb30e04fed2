package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ludwig/internal/apperror"
)

func run(t *testing.T, mw echo.MiddlewareFunc, req *http.Request, next echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	err := mw(next)(e.NewContext(req, rec))
	return rec, err
}

func ok(c echo.Context) error { return c.NoContent(http.StatusOK) }

// --- CORS ---

func TestCORS_AllowedOrigin(t *testing.T) {
	mw := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example"}, AllowCredentials: true})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.example")
	rec, err := run(t, mw, req, ok)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "https://app.example" {
		t.Errorf("expected origin echoed, got %q", got)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowCredentials) != "true" {
		t.Error("expected credentials allowed")
	}
}

func TestCORS_Preflight(t *testing.T) {
	mw := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set(echo.HeaderOrigin, "https://app.example")
	called := false
	rec, _ := run(t, mw, req, func(c echo.Context) error { called = true; return nil })

	if called {
		t.Error("preflight must not reach the handler")
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowHeaders) == "" {
		t.Error("expected allowed headers on preflight")
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	mw := CORS(CORSConfig{AllowedOrigins: []string{"https://app.example"}})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example")
	rec, _ := run(t, mw, req, ok)

	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Error("expected no CORS headers for an unlisted origin")
	}
}

func TestCORS_WildcardDropsCredentials(t *testing.T) {
	mw := CORS(CORSConfig{AllowedOrigins: []string{"*"}, AllowCredentials: true})

	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req.Header.Set(echo.HeaderOrigin, "https://anyone.example")
	rec, _ := run(t, mw, req, ok)

	if rec.Header().Get(echo.HeaderAccessControlAllowCredentials) != "" {
		t.Error("wildcard origins must not allow credentials")
	}
}

// --- SecurityHeaders ---

func TestSecurityHeaders(t *testing.T) {
	rec, _ := run(t, SecurityHeaders(true), httptest.NewRequest(http.MethodGet, "/api/auth/me", nil), ok)

	for _, h := range []string{
		echo.HeaderContentSecurityPolicy,
		echo.HeaderStrictTransportSecurity,
		echo.HeaderXContentTypeOptions,
		echo.HeaderXFrameOptions,
	} {
		if rec.Header().Get(h) == "" {
			t.Errorf("expected %s to be set", h)
		}
	}
	if rec.Header().Get(echo.HeaderCacheControl) != "no-store" {
		t.Error("expected API responses to be uncacheable")
	}

	rec, _ = run(t, SecurityHeaders(false), httptest.NewRequest(http.MethodGet, "/", nil), ok)
	if rec.Header().Get(echo.HeaderStrictTransportSecurity) != "" {
		t.Error("expected no HSTS outside production")
	}
	if rec.Header().Get(echo.HeaderCacheControl) != "" {
		t.Error("expected pages to keep default caching")
	}
}

// --- Recovery ---

func TestRecovery(t *testing.T) {
	_, err := run(t, Recovery(), httptest.NewRequest(http.MethodGet, "/", nil), func(c echo.Context) error {
		panic("boom")
	})

	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal AppError, got %v", err)
	}
	if appErr.Message == "boom" {
		t.Error("panic value must not become the client message")
	}
}

// --- RequestLogger ---

func TestRequestLogger_ResolvesErrors(t *testing.T) {
	rec, err := run(t, RequestLogger(), httptest.NewRequest(http.MethodGet, "/missing", nil), func(c echo.Context) error {
		return echo.ErrNotFound
	})
	if err != nil {
		t.Fatalf("expected the error to be handled, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 from the error handler, got %d", rec.Code)
	}
}

// --- TrustedProxies ---

func TestTrustedProxies(t *testing.T) {
	e := echo.New()
	if err := TrustedProxies(e, []string{"10.0.0.0/8"}); err != nil {
		t.Fatalf("TrustedProxies failed: %v", err)
	}

	tests := []struct {
		name, remote, xff, want string
	}{
		{"trusted proxy", "10.1.2.3:4000", "203.0.113.7", "203.0.113.7"},
		{"untrusted peer", "198.51.100.2:4000", "203.0.113.7", "198.51.100.2"},
		{"loopback not trusted by default", "127.0.0.1:4000", "203.0.113.7", "127.0.0.1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			req.Header.Set(echo.HeaderXForwardedFor, tt.xff)

			if got := e.IPExtractor(req); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestTrustedProxies_InvalidCIDR(t *testing.T) {
	if err := TrustedProxies(echo.New(), []string{"10.0.0.0/99"}); err == nil {
		t.Fatal("expected an error for an invalid CIDR")
	}
}

func TestIsAPIRequest(t *testing.T) {
	for path, want := range map[string]bool{
		"/api":         true,
		"/api/auth/me": true,
		"/apidocs":     false,
		"/":            false,
	} {
		c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		if got := IsAPIRequest(c); got != want {
			t.Errorf("IsAPIRequest(%q) = %v, want %v", path, got, want)
		}
	}
}
