// Package utils provides general-purpose helpers shared by the client and the
// reference server: context keys, HMAC and payload hashing, JSON response
// writing, the resty client wrapper, JWT handling and UUID generation.
package utils

import (
	"context"
)

// contextKey is a private type for context keys.
// Using a dedicated type instead of a plain string prevents key collisions
// with other packages that may use string-based keys in the context.
type contextKey string

// String returns the string representation of the context key.
func (c contextKey) String() string {
	return string(c)
}

// OwnerCtxKey is the key under which the authenticated record owner is stored
// by the auth middleware.
//
//	ctx := context.WithValue(ctx, utils.OwnerCtxKey, "alice")
var OwnerCtxKey = contextKey("owner")

// GetOwnerFromContext returns the authenticated owner stored in ctx. ok is
// false when the value is missing, empty or of an unexpected type.
func GetOwnerFromContext(ctx context.Context) (string, bool) {
	owner, ok := ctx.Value(OwnerCtxKey).(string)
	return owner, ok && owner != ""
}
