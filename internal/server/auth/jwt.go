// Package auth issues and verifies bearer tokens and hashes passwords.
package auth

import (
	"time"

	"github.com/dmitrijs2005/liberandum/internal/common"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenType discriminates access tokens from refresh tokens.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// RefreshTokenValidity is fixed; only the access token lifetime is configurable.
const RefreshTokenValidity = 30 * 24 * time.Hour

// Claims carries the subject (user id), the expiry and the token type.
type Claims struct {
	jwt.RegisteredClaims
	Type TokenType `json:"type"`
}

// Token is a signed token and the moment it stops being valid.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer signs tokens with a shared secret using HS256.
type Issuer struct {
	secret    []byte
	accessTTL time.Duration
	now       func() time.Time
}

func NewIssuer(secret string, accessTTL time.Duration) *Issuer {
	return &Issuer{secret: []byte(secret), accessTTL: accessTTL, now: time.Now}
}

// AccessTTL is the default access token lifetime.
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}

func (i *Issuer) IssueAccess(subject string) (Token, error) {
	return i.issue(subject, TokenAccess, i.accessTTL)
}

// IssueAccessTTL issues an access token with a custom lifetime.
func (i *Issuer) IssueAccessTTL(subject string, ttl time.Duration) (Token, error) {
	return i.issue(subject, TokenAccess, ttl)
}

func (i *Issuer) IssueRefresh(subject string) (Token, error) {
	return i.issue(subject, TokenRefresh, RefreshTokenValidity)
}

func (i *Issuer) issue(subject string, typ TokenType, ttl time.Duration) (Token, error) {
	now := i.now()
	exp := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Type: typ,
	})

	s, err := token.SignedString(i.secret)
	if err != nil {
		return Token{}, err
	}
	return Token{Value: s, ExpiresAt: exp}, nil
}

// Verify returns the subject of a valid token of the expected type. Every
// failure (signature, expiry, malformed payload, wrong type) is
// common.ErrInvalidToken.
func (i *Issuer) Verify(tokenString string, expected TokenType) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", common.ErrInvalidToken
	}
	if claims.Type != expected || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}
	return claims.Subject, nil
}
