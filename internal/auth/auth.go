// Package auth issues and verifies the signed session tokens. Tokens are
// stateless HS256 claims with a fixed 7-day TTL; there is no revocation
// list, so an issued token stays valid until it expires.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is fixed; it is not configurable per token.
const TokenTTL = 7 * 24 * time.Hour

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// ctxKey keeps the context value private to this package.
type ctxKey int

// ClaimsKey is the request-context key under which the verified claims are
// stored by the authentication middleware.
const ClaimsKey ctxKey = 1

// UserKey holds the full user record loaded for the verified subject.
const UserKey ctxKey = 2

// UserFromContext pulls the authenticated user off a request context.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(UserKey).(models.User)
	return user, ok
}

// ClaimsFromContext pulls the verified claims off a request context.
func ClaimsFromContext(ctx context.Context) (Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(Claims)
	return claims, ok
}

type Claims struct {
	jwt.RegisteredClaims
}

type Conf struct {
	secret []byte
}

func NewConf(secret string) (*Conf, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &Conf{secret: []byte(secret)}, nil
}

// GenerateToken signs a token whose subject is the user id.
func (c *Conf) GenerateToken(userID string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// ValidateToken verifies the signature and expiry and returns the claims.
func (c *Conf) ValidateToken(tokenString string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, fmt.Errorf("parsing token: %w", err)
	}
	if !token.Valid || claims.Subject == "" {
		return Claims{}, errors.New("invalid token")
	}
	return claims, nil
}
