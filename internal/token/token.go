// Package token implements the stateless access-token authority:
// HS256-signed JWTs carrying a subject and a role. Validity is
// decided by signature and expiry alone; nothing is kept server-side.
package token

import (
	"errors"
	"time"

	"github.com/formdesk/backend/internal/model"
	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingToken = errors.New("missing token")
	ErrInvalidToken = errors.New("invalid token")
)

// Claims is the verified identity handed to authorization checks.
type Claims struct {
	Subject string
	Role    model.Role
}

type jwtClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type Authority struct {
	secret []byte
	ttl    time.Duration
}

// NewAuthority builds an authority from an externally supplied secret.
// There is deliberately no fallback secret.
func NewAuthority(secret []byte, ttl time.Duration) (*Authority, error) {
	if len(secret) == 0 {
		return nil, errors.New("token: signing secret is required")
	}
	return &Authority{secret: secret, ttl: ttl}, nil
}

// TTL reports the configured token lifetime. Zero means tokens are
// issued without an expiry claim.
func (a *Authority) TTL() time.Duration {
	return a.ttl
}

// Issue signs a token for subject with the given role and returns it
// together with the lifetime in seconds (0 when no expiry is set).
func (a *Authority) Issue(subject string, role model.Role) (string, int64, error) {
	now := time.Now()
	claims := jwtClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  subject,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if a.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(a.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return "", 0, err
	}
	return signed, int64(a.ttl.Seconds()), nil
}

// Verify checks signature and expiry and extracts the claims.
// Malformed, tampered and expired tokens are indistinguishable to the
// caller: all yield ErrInvalidToken.
func (a *Authority) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, ErrMissingToken
	}

	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}

	role, ok := model.ParseRole(claims.Role)
	if !ok {
		return nil, ErrInvalidToken
	}

	return &Claims{
		Subject: claims.Subject,
		Role:    role,
	}, nil
}

// AuthorizeRole is a pure equality check; there is no role hierarchy.
func AuthorizeRole(c *Claims, required model.Role) bool {
	return c != nil && c.Role == required
}
