// Package auth provides bearer-token sources for backend calls.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenProvider returns a bearer token. An empty token with a nil error
// means the user is not signed in.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

func (f TokenFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Static always returns the same token.
type Static string

func (s Static) Token(_ context.Context) (string, error) {
	return strings.TrimSpace(string(s)), nil
}

// DevIssuer mints short-lived HS256 tokens for a fixed subject. It backs
// local runs against the dev server.
type DevIssuer struct {
	secret  []byte
	subject string
	name    string
	ttl     time.Duration
	now     func() time.Time
}

// NewDevIssuer creates an issuer signing with secret for subject.
func NewDevIssuer(secret, subject, name string, ttl time.Duration) *DevIssuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &DevIssuer{secret: []byte(secret), subject: subject, name: name, ttl: ttl, now: time.Now}
}

// Token signs a new token.
func (d *DevIssuer) Token(_ context.Context) (string, error) {
	if d.subject == "" {
		return "", nil
	}
	now := d.now()
	claims := jwt.MapClaims{
		"sub":  d.subject,
		"name": d.name,
		"iat":  now.Unix(),
		"exp":  now.Add(d.ttl).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(d.secret)
	if err != nil {
		return "", fmt.Errorf("sign dev token: %w", err)
	}
	return signed, nil
}

// Claims are the identity fields carried by a dev token.
type Claims struct {
	Subject string
	Name    string
}

// ErrInvalidToken is returned for tokens that fail verification.
var ErrInvalidToken = errors.New("invalid or expired token")

// VerifyDevToken checks an HS256 token issued by DevIssuer.
func VerifyDevToken(secret, tokenString string) (*Claims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, ErrInvalidToken
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	name, _ := claims["name"].(string)
	return &Claims{Subject: sub, Name: name}, nil
}
