package app

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/ludwig/internal/middleware"
	"github.com/keyxmakerx/ludwig/internal/plugins/auth"
	"github.com/keyxmakerx/ludwig/internal/templates/pages"
)

// healthTimeout bounds each dependency ping in /healthz.
const healthTimeout = 2 * time.Second

// RegisterRoutes sets up all application routes. Public routes are
// registered here; the auth plugin mounts its own API group.
func (a *App) RegisterRoutes() {
	e := a.Echo

	// --- Public Routes ---

	e.GET("/", func(c echo.Context) error {
		return middleware.Render(c, http.StatusOK, pages.Landing())
	})

	e.GET("/healthz", a.healthz)

	// --- Browser pages behind the auth gates ---

	e.GET("/login", func(c echo.Context) error {
		return middleware.Render(c, http.StatusOK, pages.Login())
	}, auth.GuestOnly(a.Auth))

	e.GET("/dashboard", func(c echo.Context) error {
		user := auth.GetUser(c)
		return middleware.Render(c, http.StatusOK, pages.Dashboard(user.Name, user.Email))
	}, auth.RequireAuth(a.Auth))

	// --- Plugin Routes ---

	auth.RegisterRoutes(e, auth.NewHandler(a.Auth), a.Auth)
}

// healthz reports ok when every configured backing service answers a ping.
func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), healthTimeout)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if a.DB != nil {
		checks["mariadb"] = "ok"
		if err := a.DB.PingContext(ctx); err != nil {
			checks["mariadb"] = "unavailable"
			healthy = false
		}
	}
	if a.Redis != nil {
		// The identity cache degrades to the store, so Redis is reported
		// but never fails the check.
		checks["redis"] = "ok"
		if err := a.Redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "degraded"
		}
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "unavailable", http.StatusServiceUnavailable
	}

	resp := map[string]any{"status": status}
	if len(checks) > 0 {
		resp["checks"] = checks
	}
	return c.JSON(code, resp)
}
