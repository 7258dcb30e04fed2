package auth

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes mounts the auth endpoints under /api/auth. Each route
// carries its own gate; the gates are exported for other route groups.
func RegisterRoutes(e *echo.Echo, h *Handler, service AuthService) {
	g := e.Group("/api/auth")

	guest := GuestOnly(service)
	g.POST("/register", h.Register, guest)
	g.POST("/login", h.Login, guest)

	g.POST("/logout", h.Logout, OptionalAuth(service))
	g.GET("/me", h.Me, RequireAuth(service))
}
