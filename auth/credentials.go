// Package auth supplies the bearer credential used by both the REST client
// and the socket session. Token issuance and refresh are owned by the
// backend; this package only carries the token and inspects its claims.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrMissingToken is returned when no credential is configured.
	ErrMissingToken = errors.New("bearer token not configured")
	// ErrInvalidToken is returned when the token cannot be decoded.
	ErrInvalidToken = errors.New("invalid token")
)

// TokenProvider yields the current bearer credential.
type TokenProvider interface {
	Token() (string, error)
}

// StaticTokenProvider serves a fixed token supplied at boot time.
type StaticTokenProvider struct {
	token string
}

// NewStaticTokenProvider creates a provider for the given token.
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{token: token}
}

// Token returns the configured bearer token.
func (p *StaticTokenProvider) Token() (string, error) {
	if p.token == "" {
		return "", ErrMissingToken
	}
	return p.token, nil
}

// Expiry decodes the token's registered claims without verifying the
// signature (verification is the backend's job) and returns the expiry time.
// A zero time is returned for tokens without an exp claim.
func Expiry(token string) (time.Time, error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, ErrInvalidToken
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, nil
	}
	return claims.ExpiresAt.Time, nil
}
