// Package identity carries the authenticated caller through a request
// context and exposes it to the service layer as a port.IdentityProvider.
package identity

import (
	"context"
	"strings"
)

type contextKey string

const userIDKey contextKey = "userID"

// WithUserID returns a context carrying the caller's stable identity.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the authenticated user id, or "".
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(userIDKey).(string)
	return v
}

// ContextProvider reads the identity placed in the context by the auth
// middleware.
type ContextProvider struct{}

// Identity returns the caller id and whether one is present.
func (ContextProvider) Identity(ctx context.Context) (string, bool) {
	id := strings.TrimSpace(UserIDFromContext(ctx))
	return id, id != ""
}
