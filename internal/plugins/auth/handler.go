package auth

import (
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ludwig/internal/apperror"
)

// Handler handles the JSON auth endpoints. Handlers are thin: they bind the
// request, call the service, and write the response.
type Handler struct {
	service AuthService
}

// NewHandler creates a new auth handler with the given service.
func NewHandler(service AuthService) *Handler {
	return &Handler{service: service}
}

// registerResponse is the body of a successful registration.
type registerResponse struct {
	User  *Identity `json:"user"`
	Token string    `json:"token,omitempty"`
}

// Register creates an account (POST /api/auth/register). After the account
// exists it logs the user in, so a client gets a token in the same round
// trip; if that login fails the account still exists and no token is sent.
func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	ctx := c.Request().Context()
	identity, err := h.service.Register(ctx, RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	resp := registerResponse{User: identity}
	login, err := h.service.Login(ctx, LoginInput{Email: req.Email, Password: req.Password})
	if err != nil {
		slog.Warn("login after registration failed",
			slog.Int64("user_id", identity.ID),
			slog.Any("error", err),
		)
	} else {
		resp.Token = login.Token
		h.setAuthCookie(c, login.Token)
	}

	return c.JSON(http.StatusCreated, resp)
}

// Login checks credentials (POST /api/auth/login) and returns a token,
// also set as the auth cookie for browser clients.
func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request")
	}

	result, err := h.service.Login(c.Request().Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}

	h.setAuthCookie(c, result.Token)
	return c.JSON(http.StatusOK, result)
}

// Logout ends the request's session and clears the cookie
// (POST /api/auth/logout). Tokens are not revoked: a client holding a
// copied bearer token can keep using it until it expires.
func (h *Handler) Logout(c echo.Context) error {
	GetSession(c).Logout()
	h.clearAuthCookie(c)
	return c.JSON(http.StatusOK, map[string]string{"message": "logged out"})
}

// Me returns the authenticated identity (GET /api/auth/me).
func (h *Handler) Me(c echo.Context) error {
	user := GetUser(c)
	if user == nil {
		return ErrInvalidToken
	}
	return c.JSON(http.StatusOK, map[string]*Identity{"user": user})
}

// --- Cookie helpers ---

// setAuthCookie stores the token in an HttpOnly cookie that expires with it.
func (h *Handler) setAuthCookie(c echo.Context, token string) {
	req := c.Request()
	c.SetCookie(&http.Cookie{
		Name:     h.service.CookieName(),
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   req.TLS != nil || req.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.service.TokenTTL().Seconds()),
	})
}

// clearAuthCookie removes the auth cookie by setting MaxAge to -1.
func (h *Handler) clearAuthCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.service.CookieName(),
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
