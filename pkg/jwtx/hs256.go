package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
	ErrExpired     = errors.New("jwtx: token expired")
	ErrIssuer      = errors.New("jwtx: issuer mismatch")
	ErrNoSubject   = errors.New("jwtx: token has no subject")
	ErrEmptySecret = errors.New("jwtx: signing secret is empty")
)

// Verifier validates a JWT and gives you back the claims if it's legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// HS256Verifier checks tokens signed with the auth backend's shared secret.
type HS256Verifier struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewHS256Verifier returns a verifier. An empty issuer disables the iss check.
func NewHS256Verifier(secret []byte, issuer string) (*HS256Verifier, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &HS256Verifier{secret: secret, issuer: issuer, leeway: 30 * time.Second}, nil
}

func (v *HS256Verifier) Verify(token string) (Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(v.leeway),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenInvalidIssuer):
			return Claims{}, ErrIssuer
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if claims.Subject == "" {
		return Claims{}, ErrNoSubject
	}
	return claims, nil
}

// HS256Signer mints tokens with the shared secret. The service itself never
// issues user tokens; this exists for operator tooling and tests.
type HS256Signer struct {
	secret []byte
}

func NewHS256Signer(secret []byte) (*HS256Signer, error) {
	if len(secret) == 0 {
		return nil, ErrEmptySecret
	}
	return &HS256Signer{secret: secret}, nil
}

func (s *HS256Signer) Sign(c Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}
