package middleware

import (
	"github.com/labstack/echo/v4"
)

// SecurityHeaders returns middleware that sets security-related HTTP headers
// on every response. Ludwig serves JSON and a few server-rendered status
// pages with no scripts, so the CSP allows nothing beyond same-origin styles.
func SecurityHeaders(hsts bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set(echo.HeaderContentSecurityPolicy,
				"default-src 'none'; "+
					"style-src 'self' 'unsafe-inline'; "+
					"img-src 'self' data:; "+
					"frame-ancestors 'none'; "+
					"base-uri 'none'; "+
					"form-action 'self'",
			)

			// TLS terminates at the reverse proxy; only production sets HSTS
			// so local http:// development keeps working.
			if hsts {
				h.Set(echo.HeaderStrictTransportSecurity, "max-age=31536000; includeSubDomains")
			}

			h.Set(echo.HeaderXContentTypeOptions, "nosniff")
			h.Set(echo.HeaderXFrameOptions, "DENY")
			h.Set(echo.HeaderReferrerPolicy, "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

			// Responses may carry tokens; keep them out of shared caches.
			if isAPIPath(c.Request().URL.Path) {
				h.Set(echo.HeaderCacheControl, "no-store")
			}

			return next(c)
		}
	}
}
