package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ludwig/internal/apperror"
)

// newTestServer mounts the auth routes on a fresh Echo with a minimal
// AppError-aware error handler.
func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	svc := newTestAuthService(t, NewMemoryUserRepository())

	e := echo.New()
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			_ = c.JSON(he.Code, map[string]any{"message": he.Message})
			return
		}
		_ = c.JSON(apperror.SafeCode(err), map[string]string{"message": apperror.SafeMessage(err)})
	}
	RegisterRoutes(e, NewHandler(svc), svc)
	return e
}

func doJSON(e *echo.Echo, method, path, body string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if mutate != nil {
		mutate(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func withBearer(token string) func(*http.Request) {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

const annJSON = `{"name":"Ann","email":"ann@x.io","password":"pw123456"}`

func TestHandler_RegisterLoginMe(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", annJSON, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body)
	}
	var reg struct {
		User  Identity `json:"user"`
		Token string   `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &reg); err != nil {
		t.Fatalf("decoding register response: %v", err)
	}
	if reg.User.Email != "ann@x.io" || reg.Token == "" {
		t.Errorf("unexpected register response: %s", rec.Body)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Errorf("response must not mention the password: %s", rec.Body)
	}

	rec = doJSON(e, http.MethodPost, "/api/auth/login", `{"email":"ann@x.io","password":"pw123456"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	var login LoginResult
	if err := json.Unmarshal(rec.Body.Bytes(), &login); err != nil {
		t.Fatalf("decoding login response: %v", err)
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != DefaultCookieName || cookies[0].Value != login.Token {
		t.Fatalf("expected auth cookie with the token, got %+v", cookies)
	}
	if !cookies[0].HttpOnly {
		t.Error("expected HttpOnly cookie")
	}

	rec = doJSON(e, http.MethodGet, "/api/auth/me", "", withBearer(login.Token))
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d: %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), `"email":"ann@x.io"`) {
		t.Errorf("expected Ann in /me response, got %s", rec.Body)
	}

	rec = doJSON(e, http.MethodGet, "/api/auth/me", "", func(r *http.Request) { r.AddCookie(cookies[0]) })
	if rec.Code != http.StatusOK {
		t.Errorf("me via cookie: expected 200, got %d", rec.Code)
	}
}

func TestHandler_RegisterErrors(t *testing.T) {
	e := newTestServer(t)

	if rec := doJSON(e, http.MethodPost, "/api/auth/register", annJSON, nil); rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", rec.Code)
	}

	tests := []struct {
		name string
		body string
		code int
	}{
		{"duplicate", annJSON, http.StatusConflict},
		{"short password", `{"name":"Bob","email":"bob@x.io","password":"short"}`, http.StatusUnprocessableEntity},
		{"bad json", `{"name":`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/api/auth/register", tt.body, nil)
			if rec.Code != tt.code {
				t.Errorf("expected %d, got %d: %s", tt.code, rec.Code, rec.Body)
			}
		})
	}
}

func TestHandler_LoginFailure(t *testing.T) {
	e := newTestServer(t)
	doJSON(e, http.MethodPost, "/api/auth/register", annJSON, nil)

	unknown := doJSON(e, http.MethodPost, "/api/auth/login", `{"email":"nobody@x.io","password":"pw123456"}`, nil)
	wrong := doJSON(e, http.MethodPost, "/api/auth/login", `{"email":"ann@x.io","password":"wrong-pass"}`, nil)

	if unknown.Code != http.StatusUnauthorized || wrong.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for both, got %d and %d", unknown.Code, wrong.Code)
	}
	if unknown.Body.String() != wrong.Body.String() {
		t.Errorf("expected identical bodies, got %s and %s", unknown.Body, wrong.Body)
	}
}

func TestHandler_GuestOnlyRoutes(t *testing.T) {
	e := newTestServer(t)
	rec := doJSON(e, http.MethodPost, "/api/auth/register", annJSON, nil)
	var reg struct {
		Token string `json:"token"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &reg)

	rec = doJSON(e, http.MethodPost, "/api/auth/login", `{"email":"ann@x.io","password":"pw123456"}`, withBearer(reg.Token))
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for signed-in login, got %d", rec.Code)
	}
}

func TestHandler_MeRequiresAuth(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodGet, "/api/auth/me", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	rec = doJSON(e, http.MethodGet, "/api/auth/me", "", withBearer("a.b.c"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for a bad token, got %d", rec.Code)
	}
}

func TestHandler_Logout(t *testing.T) {
	e := newTestServer(t)

	rec := doJSON(e, http.MethodPost, "/api/auth/logout", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != DefaultCookieName || cookies[0].MaxAge >= 0 {
		t.Errorf("expected an expiring auth cookie, got %+v", cookies)
	}
}

// failingLoginService registers normally but fails every login.
type failingLoginService struct {
	AuthService
	loginErr error
}

func (s *failingLoginService) Login(context.Context, LoginInput) (*LoginResult, error) {
	return nil, s.loginErr
}

func TestHandler_RegisterLoginFailureIsLogged(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	svc := &failingLoginService{
		AuthService: newTestAuthService(t, NewMemoryUserRepository()),
		loginErr:    apperror.NewInternal(context.Canceled),
	}
	e := echo.New()
	RegisterRoutes(e, NewHandler(svc), svc)

	rec := doJSON(e, http.MethodPost, "/api/auth/register", annJSON, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		User  *Identity `json:"user"`
		Token string    `json:"token"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.User == nil || body.Token != "" {
		t.Errorf("expected the user without a token, got %+v", body)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Error("expected no auth cookie when login failed")
	}
	if !strings.Contains(logs.String(), "login after registration failed") {
		t.Errorf("expected the login failure to be logged, got %q", logs.String())
	}
}

func TestHandler_LogoutClearsResult(t *testing.T) {
	svc, token := loggedInService(t)
	e := echo.New()
	h := NewHandler(svc)

	var after *Result
	e.POST("/api/auth/logout", func(c echo.Context) error {
		if err := h.Logout(c); err != nil {
			return err
		}
		after = GetResult(c)
		return nil
	}, OptionalAuth(svc))

	rec := doJSON(e, http.MethodPost, "/api/auth/logout", "", withBearer(token))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if after == nil || after.Authenticated || after.User != nil {
		t.Errorf("expected a guest result after logout, got %+v", after)
	}
}
