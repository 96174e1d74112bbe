// Package jwttoken issues and validates the HS256 bearer tokens that guard
// the wallet's administrative endpoints.
package jwttoken

import (
	"errors"
	"fmt"
	"time"

	dErrors "certwallet/pkg/domain-errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrNoSigningKey is returned by every operation when no key is configured.
var ErrNoSigningKey = errors.New("admin signing key not configured")

// RoleAdmin is the only role the server accepts on admin routes.
const RoleAdmin = "admin"

// AdminClaims are the claims carried by an admin token.
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AdminTokens signs and checks admin tokens with a shared secret.
type AdminTokens struct {
	signingKey []byte
	issuer     string
	now        func() time.Time
}

func NewAdminTokens(signingKey, issuer string) *AdminTokens {
	return &AdminTokens{signingKey: []byte(signingKey), issuer: issuer, now: time.Now}
}

// Issue returns a signed token for subject that expires after ttl.
func (s *AdminTokens) Issue(subject string, ttl time.Duration) (string, error) {
	if len(s.signingKey) == 0 {
		return "", ErrNoSigningKey
	}
	if subject == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "subject cannot be empty")
	}
	if ttl <= 0 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "ttl must be positive")
	}
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}
	return signed, nil
}

// Validate checks signature, algorithm, expiry, issuer, and role, and returns
// the token subject.
func (s *AdminTokens) Validate(tokenString string) (*AdminClaims, error) {
	if len(s.signingKey) == 0 {
		return nil, dErrors.Wrap(ErrNoSigningKey, dErrors.CodeUnauthorized, "admin access disabled")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (any, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Role != RoleAdmin {
		return nil, dErrors.New(dErrors.CodeForbidden, "token lacks admin role")
	}
	if claims.Subject == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}
	return claims, nil
}

// ValidateAdminToken adapts Validate to the middleware's validator interface.
func (s *AdminTokens) ValidateAdminToken(tokenString string) (string, error) {
	claims, err := s.Validate(tokenString)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
