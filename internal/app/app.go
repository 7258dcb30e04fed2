// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (DB pool, Redis client, Echo instance)
// and wires the auth plugin on top of it.
package app

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/keyxmakerx/ludwig/internal/apperror"
	"github.com/keyxmakerx/ludwig/internal/config"
	"github.com/keyxmakerx/ludwig/internal/middleware"
	"github.com/keyxmakerx/ludwig/internal/plugins/auth"
	"github.com/keyxmakerx/ludwig/internal/templates/pages"
)

// maxBodySize caps request bodies; auth payloads are a few hundred bytes.
const maxBodySize = "64K"

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go and used to register all routes.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// DB is the MariaDB pool. Nil when USER_STORE=memory.
	DB *sql.DB

	// Redis backs the identity cache. Nil when REDIS_URL is unset.
	Redis *redis.Client

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Auth is the authentication service shared by handlers and gates.
	Auth auth.AuthService
}

// New creates an App, builds the auth stack over the given connections, and
// configures the Echo server with global middleware and error handling.
func New(cfg *config.Config, db *sql.DB, rdb *redis.Client) (*App, error) {
	e := echo.New()

	// Disable Echo's default banner and startup message -- we log our own.
	e.HideBanner = true
	e.HidePort = true

	if err := middleware.TrustedProxies(e, cfg.TrustedProxies); err != nil {
		return nil, err
	}

	authService, err := newAuthService(cfg, db, rdb)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Echo:   e,
		Auth:   authService,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app, nil
}

// newAuthService picks the user store and assembles the auth service.
func newAuthService(cfg *config.Config, db *sql.DB, rdb *redis.Client) (auth.AuthService, error) {
	var repo auth.UserRepository
	switch {
	case cfg.UserStore == config.StoreMemory:
		slog.Warn("using in-memory user store; accounts are lost on restart")
		repo = auth.NewMemoryUserRepository()
	case db != nil:
		repo = auth.NewUserRepository(db)
	default:
		return nil, errors.New("user store is mariadb but no database connection was provided")
	}

	if rdb != nil {
		repo = auth.NewCachedUserRepository(repo, rdb, cfg.Redis.IdentityTTL)
	}

	codec, err := auth.NewTokenCodec([]byte(cfg.Auth.SecretKey))
	if err != nil {
		return nil, fmt.Errorf("creating token codec: %w", err)
	}

	hashes := auth.NewHashPool(auth.NewPBKDF2Hasher(), cfg.Auth.HashWorkers)
	slog.Info("password hashing pool ready", slog.Int("workers", hashes.Size()))

	return auth.NewAuthService(repo, codec, hashes, auth.Options{
		TokenTTL:   cfg.Auth.TokenTTL,
		CookieName: cfg.Auth.CookieName,
	}), nil
}

// setupMiddleware registers global middleware on the Echo instance.
// Order matters: the request logger is outermost so it sees the final
// status, including the 500 that Recovery produces from a panic.
func (a *App) setupMiddleware() {
	a.Echo.Use(echomw.RequestID())
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(echomw.BodyLimit(maxBodySize))
	a.Echo.Use(middleware.SecurityHeaders(a.Config.IsProduction()))
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:   a.Config.AllowedOrigins(),
		AllowCredentials: true,
	}))
}

// errorHandler is the custom Echo error handler. It maps domain errors
// (AppError) to HTTP responses: JSON for API requests, a rendered error
// page for browsers. Browser 401s redirect to the sign-in page.
func (a *App) errorHandler(err error, c echo.Context) {
	// Don't double-write if response is already committed.
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := defaultErrorMessage(code)
	errType := "internal_error"

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		message = appErr.Message
		errType = appErr.Type

		// Log the underlying cause of server-side failures.
		if code >= http.StatusInternalServerError {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	case errors.As(err, &echoErr):
		// Echo's built-in errors (404 from the router, 413 from BodyLimit).
		code = echoErr.Code
		errType = errorTypeFor(code)
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = defaultErrorMessage(code)
		}
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if middleware.IsAPIRequest(c) {
		if code == http.StatusUnauthorized {
			c.Response().Header().Set(echo.HeaderWWWAuthenticate, `Bearer realm="ludwig"`)
		}
		_ = c.JSON(code, map[string]string{
			"error":   errType,
			"message": message,
		})
		return
	}

	if code == http.StatusUnauthorized {
		_ = c.Redirect(http.StatusSeeOther, "/login")
		return
	}

	_ = middleware.Render(c, code, pages.ErrorPage(code, message))
}

// errorTypeFor names the machine-readable type for a bare HTTP status.
func errorTypeFor(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	default:
		if code >= http.StatusInternalServerError {
			return "internal_error"
		}
		return "error"
	}
}

// defaultErrorMessage returns a user-friendly message for common HTTP status codes
// when no specific message was provided by the error.
func defaultErrorMessage(code int) string {
	switch code {
	case http.StatusBadRequest:
		return "The request was invalid or cannot be processed."
	case http.StatusUnauthorized:
		return "Authentication required."
	case http.StatusForbidden:
		return "You don't have permission to access this resource."
	case http.StatusNotFound:
		return "The page you're looking for doesn't exist or has been moved."
	case http.StatusMethodNotAllowed:
		return "This action is not allowed."
	case http.StatusConflict:
		return "This action conflicts with the current state."
	case http.StatusRequestEntityTooLarge:
		return "The request body is too large."
	case http.StatusUnprocessableEntity:
		return "The submitted data could not be processed."
	case http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please try again later."
	default:
		return "An unexpected error occurred."
	}
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Ludwig server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
	)
	return a.Echo.Start(addr)
}
