// Package auth handles user registration, login, and stateless session
// tokens for Ludwig. Passwords are stored as salted PBKDF2 digests; sessions
// are self-contained HMAC-signed tokens that carry the user's identity and
// validity window, so nothing about a session is stored server-side.
//
// Request gating is exposed as Echo middleware (RequireAuth, GuestOnly,
// OptionalAuth). The identity resolved for a request lives on a per-request
// Session and is never shared between requests.
package auth

import (
	"time"
)

// User is a stored user record. The password hash never leaves the store
// boundary in JSON: responses use Identity instead.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity returns the sanitized view of the user.
func (u *User) Identity() *Identity {
	return &Identity{ID: u.ID, Name: u.Name, Email: u.Email}
}

// Identity is the sanitized user shape returned to callers and clients.
type Identity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// --- Request DTOs (bound from HTTP requests) ---

// RegisterRequest holds the registration body.
type RegisterRequest struct {
	Name     string `json:"name" form:"name"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// LoginRequest holds the login body.
type LoginRequest struct {
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

// --- Service Input/Output DTOs ---

// RegisterInput is the input for creating a new user.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// LoginInput is the input for authenticating a user.
type LoginInput struct {
	Email    string
	Password string
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token string    `json:"token"`
	User  *Identity `json:"user"`
}

// Result is the outcome of authenticating one inbound request.
type Result struct {
	Authenticated bool      `json:"authenticated"`
	User          *Identity `json:"user"`
}

// guestResult is the unauthenticated Result.
var guestResult = Result{}

// --- Token claims ---

// Claims is the payload embedded in a session token. Field order here is
// the serialized key order, which keeps encoding deterministic.
type Claims struct {
	UserID    int64  `json:"user_id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	IssuedAt  int64  `json:"issued_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// IssuedTime returns IssuedAt as a time.Time.
func (c *Claims) IssuedTime() time.Time {
	return time.Unix(c.IssuedAt, 0)
}

// ExpiresTime returns ExpiresAt as a time.Time.
func (c *Claims) ExpiresTime() time.Time {
	return time.Unix(c.ExpiresAt, 0)
}

// claimsFor builds unsigned claims for a user.
func claimsFor(u *User) Claims {
	return Claims{UserID: u.ID, Email: u.Email, Name: u.Name}
}
