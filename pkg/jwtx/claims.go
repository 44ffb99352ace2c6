package jwtx

import (
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims mirror what the managed auth backend puts in user access tokens,
// plus the scopes used for issuer and operator endpoints.
type Claims struct {
	jwt.RegisteredClaims

	// Email is the account email; only trusted for invite binding when
	// EmailVerified is set.
	Email         string `json:"email,omitempty"`
	EmailVerified bool   `json:"email_verified,omitempty"`

	// Role is the backend role, e.g. "authenticated" or "service_role".
	Role string `json:"role,omitempty"`

	// Scopes such as "invites:write", "rollout:read", "rollout:write".
	Scopes []string `json:"scopes,omitempty"`
}

// NewClaims builds minimally-correct claims for the given subject.
func NewClaims(subject, issuer, email string, emailVerified bool, scopes []string, ttl time.Duration, now time.Time) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email:         email,
		EmailVerified: emailVerified,
		Role:          "authenticated",
		Scopes:        scopes,
	}
}

// HasScope reports whether the claims carry scope.
func (c Claims) HasScope(scope string) bool {
	return slices.Contains(c.Scopes, scope)
}
