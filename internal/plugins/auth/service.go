package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/keyxmakerx/ludwig/internal/apperror"
	"github.com/keyxmakerx/ludwig/internal/sanitize"
)

// Input limits enforced by Register.
const (
	MaxNameLength     = 100
	MaxEmailLength    = 255
	MinPasswordLength = 8
	MaxPasswordLength = 128
)

// DefaultCookieName is the cookie consulted when no bearer header is sent.
const DefaultCookieName = "auth_token"

// AuthService defines the business logic contract for authentication.
// Handlers and gate middleware call these methods; they never touch the
// repository or the token codec directly.
type AuthService interface {
	// Register creates a user. It does not log the user in.
	Register(ctx context.Context, input RegisterInput) (*Identity, error)

	// Login checks credentials and issues a session token.
	Login(ctx context.Context, input LoginInput) (*LoginResult, error)

	// VerifyToken decodes token and re-reads the user it names.
	VerifyToken(ctx context.Context, token string) (*Identity, error)

	// Authenticate resolves the identity presented by an inbound request.
	// The error is non-nil only for infrastructure failures; a missing or
	// bad token is an unauthenticated Result.
	Authenticate(r *http.Request) (Result, error)

	// CookieName is the cookie Authenticate reads tokens from.
	CookieName() string

	// TokenTTL is the lifetime of tokens issued by Login.
	TokenTTL() time.Duration
}

// Options tunes an AuthService.
type Options struct {
	// TokenTTL is the lifetime of issued tokens; zero means DefaultTokenTTL.
	TokenTTL time.Duration

	// CookieName overrides DefaultCookieName.
	CookieName string
}

// authService implements AuthService.
type authService struct {
	repo       UserRepository
	codec      *TokenCodec
	hashes     *HashPool
	tokenTTL   time.Duration
	cookieName string
}

// NewAuthService creates an auth service with the given dependencies.
func NewAuthService(repo UserRepository, codec *TokenCodec, hashes *HashPool, opts Options) AuthService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = DefaultTokenTTL
	}
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	return &authService{
		repo:       repo,
		codec:      codec,
		hashes:     hashes,
		tokenTTL:   opts.TokenTTL,
		cookieName: opts.CookieName,
	}
}

func (s *authService) CookieName() string       { return s.cookieName }
func (s *authService) TokenTTL() time.Duration { return s.tokenTTL }

// Register validates the input, rejects a taken email, hashes the password
// off the request path, and persists the user. Markup is stripped from the
// name before it is validated.
func (s *authService) Register(ctx context.Context, input RegisterInput) (*Identity, error) {
	name := sanitize.PlainText(input.Name)
	email := normalizeEmail(input.Email)
	if err := validateRegistration(name, email, input.Password); err != nil {
		return nil, err
	}

	// Check before the expensive hash. The store's unique constraint still
	// decides races between concurrent registrations.
	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		slog.Info("registration rejected", slog.String("reason", "duplicate_email"))
		return nil, ErrDuplicateEmail
	} else if !isNotFound(err) {
		return nil, apperror.NewInternal(fmt.Errorf("checking email: %w", err))
	}

	hash, err := s.hashes.Hash(ctx, input.Password)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("hashing password: %w", err))
	}

	user, err := s.repo.Create(ctx, name, email, hash)
	if err != nil {
		if errors.Is(err, ErrDuplicateEmail) {
			slog.Info("registration rejected", slog.String("reason", "duplicate_email_on_create"))
			return nil, ErrDuplicateEmail
		}
		return nil, apperror.NewInternal(fmt.Errorf("creating user: %w", err))
	}

	slog.Info("user registered", slog.Int64("user_id", user.ID))
	return user.Identity(), nil
}

// Login authenticates by email and password. An unknown email and a wrong
// password produce the same error after the same amount of hashing work.
func (s *authService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := normalizeEmail(input.Email)

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil && !isNotFound(err) {
		return nil, apperror.NewInternal(fmt.Errorf("finding user: %w", err))
	}

	target := dummyPasswordHash
	if user != nil {
		target = user.PasswordHash
	}

	ok, err := s.hashes.Verify(ctx, input.Password, target)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("verifying password: %w", err))
	}

	if user == nil || !ok {
		reason := "bad_password"
		if user == nil {
			reason = "unknown_email"
		}
		slog.Info("login failed", slog.String("reason", reason))
		return nil, ErrInvalidCredentials
	}

	token, err := s.codec.Encode(claimsFor(user), s.tokenTTL)
	if err != nil {
		return nil, apperror.NewInternal(fmt.Errorf("issuing token: %w", err))
	}

	slog.Info("user logged in", slog.Int64("user_id", user.ID))
	return &LoginResult{Token: token, User: user.Identity()}, nil
}

// VerifyToken decodes the token, then loads the current user record. Claims
// only identify the user; name and email come from the store.
func (s *authService) VerifyToken(ctx context.Context, token string) (*Identity, error) {
	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		if isNotFound(err) {
			slog.Debug("token rejected",
				slog.String("reason", "user_not_found"),
				slog.Int64("user_id", claims.UserID),
			)
			return nil, ErrUserNotFound
		}
		return nil, apperror.NewInternal(fmt.Errorf("loading token user: %w", err))
	}

	return user.Identity(), nil
}

// Authenticate reads a bearer token from the Authorization header, falling
// back to the auth cookie, and verifies it.
func (s *authService) Authenticate(r *http.Request) (Result, error) {
	token := s.extractToken(r)
	if token == "" {
		return guestResult, nil
	}

	identity, err := s.VerifyToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrUserNotFound) {
			return guestResult, nil
		}
		return guestResult, err
	}

	return Result{Authenticated: true, User: identity}, nil
}

// extractToken returns the bearer token or the cookie value, or "".
func (s *authService) extractToken(r *http.Request) string {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	if cookie, err := r.Cookie(s.cookieName); err == nil {
		return cookie.Value
	}
	return ""
}

// bearerToken parses "Bearer <token>". The scheme is case-insensitive.
func bearerToken(header string) (string, bool) {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// --- Validation helpers ---

// normalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// validateRegistration checks the registration fields. Password length is
// measured in bytes since that is what PBKDF2 consumes.
func validateRegistration(name, email, password string) error {
	switch {
	case name == "":
		return apperror.NewValidation("name is required")
	case utf8.RuneCountInString(name) > MaxNameLength:
		return apperror.NewValidation(fmt.Sprintf("name must be at most %d characters", MaxNameLength))
	case email == "":
		return apperror.NewValidation("email is required")
	case len(email) > MaxEmailLength || !validEmail(email):
		return apperror.NewValidation("email is invalid")
	case len(password) < MinPasswordLength:
		return apperror.NewValidation(fmt.Sprintf("password must be at least %d characters", MinPasswordLength))
	case len(password) > MaxPasswordLength:
		return apperror.NewValidation(fmt.Sprintf("password must be at most %d characters", MaxPasswordLength))
	}
	return nil
}

// validEmail accepts a bare address, rejecting display-name forms.
func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && strings.ToLower(addr.Address) == email
}
