// Package identity resolves a request or connection principal to a stable
// user id. Tokens are HS256 JWTs carrying the user id.
package identity

import (
	"chatview/backend/internal/errs"
	"context"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// Principal is what the transport knows about the caller: either an id that
// was already authenticated (live connection) or a raw bearer token.
type Principal struct {
	UserID string
	Token  string
}

// Resolver maps a principal to a stable user id.
type Resolver interface {
	Resolve(ctx context.Context, p Principal) (string, error)
}

// Claims is the token body.
type Claims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
}

// JWTAuthenticator validates (and, for tooling and tests, issues) tokens.
type JWTAuthenticator struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewJWTAuthenticator(secret, issuer string, ttl time.Duration) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret), issuer: issuer, ttl: ttl}
}

// Issue signs a token for userID.
func (a *JWTAuthenticator) Issue(userID string) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
		UserID: userID,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

// Validate checks the token and returns its user id.
func (a *JWTAuthenticator) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithIssuer(a.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", errs.ErrUnauthenticated)
		}
		return "", fmt.Errorf("%w: %w", errs.ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("%w: invalid token", errs.ErrUnauthenticated)
	}
	if claims.UserID != "" {
		return claims.UserID, nil
	}
	if claims.Subject != "" {
		return claims.Subject, nil
	}
	return "", fmt.Errorf("%w: token has no subject", errs.ErrUnauthenticated)
}

func (a *JWTAuthenticator) Resolve(_ context.Context, p Principal) (string, error) {
	if p.UserID != "" {
		return p.UserID, nil
	}
	if p.Token == "" {
		return "", errs.ErrUnauthenticated
	}
	return a.Validate(p.Token)
}
