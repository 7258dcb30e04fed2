package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ludwig/internal/apperror"
	"github.com/keyxmakerx/ludwig/internal/middleware"
)

// contextKeySession stores the request's Session in the Echo context. Other
// packages use the exported getters below instead of reading it directly.
const contextKeySession = "auth_session"

// Redirect targets for browser requests.
const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

// RequireAuth returns middleware that only lets authenticated requests
// through. Unauthenticated requests are answered here and never reach next:
// API requests get a 401 JSON challenge, browsers a redirect to /login.
func RequireAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result, err := service.Authenticate(c.Request())
			if err != nil {
				return apperror.NewInternal(err)
			}
			if !result.Authenticated {
				return handleUnauthenticated(c)
			}

			annotate(c, result)
			return next(c)
		}
	}
}

// GuestOnly returns middleware for routes like login and register that make
// no sense for a signed-in user. Authenticated requests get a 403 (API) or a
// redirect to the dashboard (browser).
func GuestOnly(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result, err := service.Authenticate(c.Request())
			if err != nil {
				return apperror.NewInternal(err)
			}
			if result.Authenticated {
				return handleAlreadyAuthenticated(c)
			}

			annotate(c, result)
			return next(c)
		}
	}
}

// OptionalAuth returns middleware that resolves the identity if one is
// presented and always calls next. Handlers check GetSession(c).Check().
func OptionalAuth(service AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			result, err := service.Authenticate(c.Request())
			if err != nil {
				return apperror.NewInternal(err)
			}

			annotate(c, result)
			return next(c)
		}
	}
}

// annotate attaches a fresh per-request Session to both the Echo context
// and the request's context.Context.
func annotate(c echo.Context, result Result) {
	session := NewSession(result)
	c.Set(contextKeySession, session)

	req := c.Request()
	c.SetRequest(req.WithContext(WithSession(req.Context(), session)))
}

// handleUnauthenticated answers a request that needed a valid session.
func handleUnauthenticated(c echo.Context) error {
	if isAPIRequest(c) {
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="ludwig"`)
		return writeGateError(c, apperror.NewUnauthorized(ErrInvalidToken.Message))
	}
	return c.Redirect(http.StatusSeeOther, loginPath)
}

// handleAlreadyAuthenticated answers a guest-only request from a signed-in user.
func handleAlreadyAuthenticated(c echo.Context) error {
	if isAPIRequest(c) {
		return writeGateError(c, apperror.NewForbidden("already authenticated"))
	}
	return c.Redirect(http.StatusSeeOther, dashboardPath)
}

// writeGateError writes err as the JSON error body used across the API.
func writeGateError(c echo.Context, err *apperror.AppError) error {
	return c.JSON(err.Code, map[string]string{
		"error":   err.Type,
		"message": err.Message,
	})
}

// --- Exported getters for other packages ---

// GetSession returns the Session set by a gate middleware, or nil if no
// gate ran for this route.
func GetSession(c echo.Context) *Session {
	session, ok := c.Get(contextKeySession).(*Session)
	if !ok {
		return nil
	}
	return session
}

// GetUser returns the authenticated identity, or nil.
func GetUser(c echo.Context) *Identity {
	return GetSession(c).User()
}

// GetResult returns the request's authentication result, or nil if no gate
// ran. It reflects the Session, so it reports a guest after Logout.
func GetResult(c echo.Context) *Result {
	session := GetSession(c)
	if session == nil {
		return nil
	}
	return &Result{Authenticated: session.Check(), User: session.User()}
}

// isAPIRequest returns true if the request targets the /api path.
func isAPIRequest(c echo.Context) bool {
	return middleware.IsAPIRequest(c)
}
