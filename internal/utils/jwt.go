package utils

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MKhiriev/go-offline-sync/models"
	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidTokenParams is returned by GenerateJWTToken when a required
	// parameter is empty.
	ErrInvalidTokenParams = errors.New("invalid params for generating JWT token")
	// ErrInvalidAuthHeader is returned by ParseBearerToken for a malformed
	// Authorization header.
	ErrInvalidAuthHeader = errors.New("invalid authorization header")
)

// GenerateJWTToken creates a signed HMAC-SHA256 JWT token for owner.
//
// The token carries the iss, sub, iat and exp claims. All parameters are
// required.
//
//	token, err := utils.GenerateJWTToken("sync-server", "alice", time.Hour, "secret")
func GenerateJWTToken(issuer, owner string, tokenDuration time.Duration, signKey string) (models.Token, error) {
	if issuer == "" || owner == "" || tokenDuration == 0 || signKey == "" {
		return models.Token{}, ErrInvalidTokenParams
	}

	now := time.Now()
	claims := &jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   owner,
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenDuration)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(signKey))
	if err != nil {
		return models.Token{}, fmt.Errorf("error occurred during signing JWT token: %w", err)
	}

	return models.Token{Token: token, RegisteredClaims: *claims, SignedString: tokenString, Owner: owner}, nil
}

// ValidateAndParseJWTToken verifies the signature, issuer and expiry of
// tokenString and returns the parsed token with Owner populated from the
// subject claim.
func ValidateAndParseJWTToken(tokenString, tokenSignKey, tokenIssuer string) (models.Token, error) {
	parsed := &models.Token{}
	token, err := jwt.ParseWithClaims(tokenString, parsed, func(token *jwt.Token) (any, error) {
		return []byte(tokenSignKey), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return models.Token{}, fmt.Errorf("error occurred validating and parsing token: %w", err)
	}

	owner, err := parsed.GetOwner()
	if err != nil {
		return models.Token{}, fmt.Errorf("error occurred during getting subject from token: %w", err)
	}

	parsed.Token = token
	parsed.SignedString = tokenString
	parsed.Owner = owner
	return *parsed, nil
}

// ParseUnverifiedToken decodes tokenString without checking its signature.
// The client uses it to read the expiry of the credential it was handed,
// which it cannot verify because it does not hold the signing key.
func ParseUnverifiedToken(tokenString string) (models.Token, error) {
	parsed := &models.Token{}
	token, _, err := jwt.NewParser().ParseUnverified(tokenString, parsed)
	if err != nil {
		return models.Token{}, fmt.Errorf("error parsing token: %w", err)
	}

	parsed.Token = token
	parsed.SignedString = tokenString
	parsed.Owner, _ = parsed.GetSubject()
	return *parsed, nil
}

// ParseBearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func ParseBearerToken(authorizationHeader string) (string, error) {
	parts := strings.Fields(authorizationHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", ErrInvalidAuthHeader
	}
	return parts[1], nil
}
