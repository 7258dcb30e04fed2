package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultTokenTTL applies when Encode is given a negative ttl.
const DefaultTokenTTL = 24 * time.Hour

// ErrMissingSecret is returned when a TokenCodec is built without a key.
var ErrMissingSecret = errors.New("token signing secret is required")

// tokenHeader is the fixed first segment of every session token.
type tokenHeader struct {
	Type      string `json:"type"`
	Algorithm string `json:"algorithm"`
}

// sessionHeader is the only header this codec issues or accepts.
var sessionHeader = tokenHeader{Type: "session", Algorithm: "HMAC-SHA256"}

// segment encodes token segments: base64url without padding.
var segment = base64.RawURLEncoding

// TokenCodec encodes and decodes signed session tokens of the form
// header.payload.signature.
type TokenCodec struct {
	secret []byte
	now    func() time.Time
	logger *slog.Logger

	// encodedHeader is the header segment; it never changes.
	encodedHeader string
}

// TokenOption configures a TokenCodec.
type TokenOption func(*TokenCodec)

// WithClock replaces the codec's time source.
func WithClock(now func() time.Time) TokenOption {
	return func(c *TokenCodec) { c.now = now }
}

// WithTokenLogger sets the logger used for rejection reasons.
func WithTokenLogger(l *slog.Logger) TokenOption {
	return func(c *TokenCodec) { c.logger = l }
}

// NewTokenCodec creates a codec signing with secret.
func NewTokenCodec(secret []byte, opts ...TokenOption) (*TokenCodec, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}

	header, err := json.Marshal(sessionHeader)
	if err != nil {
		return nil, fmt.Errorf("encoding token header: %w", err)
	}

	c := &TokenCodec{
		secret:        append([]byte(nil), secret...),
		now:           time.Now,
		logger:        slog.Default(),
		encodedHeader: segment.EncodeToString(header),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Encode stamps claims with issued_at and expires_at and returns the signed
// token. claims is taken by value; the caller's copy is not modified.
func (c *TokenCodec) Encode(claims Claims, ttl time.Duration) (string, error) {
	if ttl < 0 {
		ttl = DefaultTokenTTL
	}

	now := c.now()
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(ttl).Unix()

	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("encoding token claims: %w", err)
	}

	signingInput := c.encodedHeader + "." + segment.EncodeToString(payload)
	return signingInput + "." + segment.EncodeToString(c.sign(signingInput)), nil
}

// Decode verifies token and returns its claims. Every failure returns
// ErrInvalidToken; the specific reason only goes to the debug log.
func (c *TokenCodec) Decode(token string) (*Claims, error) {
	claims, reason := c.decode(token)
	if reason != "" {
		c.logger.Debug("token rejected", slog.String("reason", reason))
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// decode returns the claims or a non-empty rejection reason.
func (c *TokenCodec) decode(token string) (*Claims, string) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, "malformed"
	}
	headerSeg, payloadSeg, sigSeg := parts[0], parts[1], parts[2]

	// Compare the encoded form: unpadded base64 ignores the low bits of the
	// last character, so comparing decoded bytes would accept some edits.
	expected := segment.EncodeToString(c.sign(headerSeg + "." + payloadSeg))
	if !hmac.Equal([]byte(sigSeg), []byte(expected)) {
		return nil, "bad_signature"
	}

	// The signature covers the header, so a foreign header here means a
	// token signed by something other than this codec with the same key.
	var header tokenHeader
	if err := decodeSegment(headerSeg, &header); err != nil || header != sessionHeader {
		return nil, "unsupported_header"
	}

	var claims Claims
	if err := decodeSegment(payloadSeg, &claims); err != nil {
		return nil, "malformed_payload"
	}

	if c.now().Unix() >= claims.ExpiresAt {
		return nil, "expired"
	}

	return &claims, ""
}

// sign computes HMAC-SHA256 over the signing input.
func (c *TokenCodec) sign(signingInput string) []byte {
	mac := hmac.New(sha256.New, c.secret)
	mac.Write([]byte(signingInput))
	return mac.Sum(nil)
}

// decodeSegment base64url-decodes seg and unmarshals the JSON into v.
func decodeSegment(seg string, v any) error {
	raw, err := segment.Strict().DecodeString(seg)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, v)
}
