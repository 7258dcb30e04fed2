package auth

import "context"

// Session holds the identity resolved for one request. Each request gets
// its own Session from the gate middleware; nothing here is shared between
// requests or goroutines serving different requests.
type Session struct {
	user *Identity
}

// NewSession creates a Session from an authentication result.
func NewSession(r Result) *Session {
	if !r.Authenticated {
		return &Session{}
	}
	return &Session{user: r.User}
}

// User returns the resolved identity, or nil for a guest.
func (s *Session) User() *Identity {
	if s == nil {
		return nil
	}
	return s.user
}

// Check reports whether the request is authenticated.
func (s *Session) Check() bool {
	return s.User() != nil
}

// Guest reports whether the request is unauthenticated.
func (s *Session) Guest() bool {
	return !s.Check()
}

// Logout clears the resolved identity for the rest of the request. Tokens
// are stateless, so this does not invalidate the token itself.
func (s *Session) Logout() {
	if s != nil {
		s.user = nil
	}
}

type sessionCtxKey struct{}

// WithSession returns a copy of ctx carrying s.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, s)
}

// SessionFromContext returns the Session stored in ctx, or nil.
func SessionFromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(sessionCtxKey{}).(*Session)
	return s
}
