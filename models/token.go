package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrEmptySubject is returned by [Token.GetOwner] when the token has no
// "sub" claim.
var ErrEmptySubject = errors.New("token subject is empty")

// Token wraps a JWT token with convenience accessors for the sync endpoints.
//
// It embeds [jwt.Token] for low-level operations and [jwt.RegisteredClaims]
// for standard claim access. The subject claim names the owner of the record
// set being synchronized.
type Token struct {
	// Token is the underlying JWT token. Excluded from JSON serialization
	// because only the compact string form is meaningful outside the process.
	*jwt.Token `json:"-"`

	jwt.RegisteredClaims

	// SignedString is the compact JWS representation of the token.
	SignedString string `json:"-"`

	// Owner is a cached copy of the "sub" claim.
	Owner string `json:"-"`
}

// GetOwner returns the owner identifier carried in the "sub" claim.
func (t *Token) GetOwner() (string, error) {
	subject, err := t.GetSubject()
	if err != nil {
		return "", fmt.Errorf("error extracting owner from token: %w", err)
	}
	if subject == "" {
		return "", ErrEmptySubject
	}

	return subject, nil
}

// ExpiredAt reports whether the token has an expiry claim that lies at or
// before now. Tokens without an expiry never expire.
func (t *Token) ExpiredAt(now time.Time) bool {
	if t.ExpiresAt == nil {
		return false
	}
	return !now.Before(t.ExpiresAt.Time)
}

// String returns the compact JWS serialization of the token.
func (t *Token) String() string {
	return t.SignedString
}
