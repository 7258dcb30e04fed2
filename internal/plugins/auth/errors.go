package auth

import (
	"net/http"

	"github.com/keyxmakerx/ludwig/internal/apperror"
)

// Authentication outcomes. Messages are deliberately generic: a client can
// tell that authentication failed, never why. Match with errors.Is.
var (
	// ErrDuplicateEmail is returned by Register when the email is taken,
	// whether caught by the pre-check or by the store's unique constraint.
	ErrDuplicateEmail = apperror.New(http.StatusConflict, "duplicate_email",
		"an account with this email already exists")

	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid_credentials",
		"invalid email or password")

	// ErrInvalidToken covers malformed, forged and expired tokens.
	ErrInvalidToken = apperror.New(http.StatusUnauthorized, "invalid_token",
		"authentication required")

	// ErrUserNotFound means the token verified but its user is gone. Callers
	// treat it exactly like ErrInvalidToken; the message is the same.
	ErrUserNotFound = apperror.New(http.StatusUnauthorized, "user_not_found",
		"authentication required")
)

// isNotFound reports whether err is the store's not-found error.
func isNotFound(err error) bool {
	return apperror.IsType(err, "not_found")
}

// errNotFound is what repositories return for a missing user.
func errNotFound() *apperror.AppError {
	return apperror.NewNotFound("user not found")
}
