// Package auth implements the three pluggable authentication
// strategies the CalDAV and MCP dispatchers call explicitly per route:
// strict Basic, Basic-or-path, and Bearer.
package auth

import (
	"context"

	"github.com/jw6ventures/calcard/internal/store"
)

type contextKey int

const (
	userKey contextKey = iota
	userIDKey
	authedByPasswordKey
)

// WithUser attaches the resolved User to ctx.
func WithUser(ctx context.Context, u *store.User) context.Context {
	return context.WithValue(ctx, userKey, u)
}

// UserFromContext retrieves the User attached by WithUser, if any.
func UserFromContext(ctx context.Context) (*store.User, bool) {
	u, ok := ctx.Value(userKey).(*store.User)
	return u, ok
}

// WithUserID attaches a bare user id to ctx, without the full User row.
// Bearer does not call it: it returns the resolved id to its caller.
func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// UserIDFromContext retrieves the user id attached by WithUserID.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// WithAuthedByPassword records whether the resolved identity came with
// verified credentials (Strict Basic) as opposed to being an identity
// claim only (Basic-or-path without an Authorization header). No
// handler in this repository sets or reads it.
func WithAuthedByPassword(ctx context.Context, authed bool) context.Context {
	return context.WithValue(ctx, authedByPasswordKey, authed)
}

// AuthedByPassword reports whether the current request's identity was
// verified with credentials.
func AuthedByPassword(ctx context.Context) bool {
	v, _ := ctx.Value(authedByPasswordKey).(bool)
	return v
}
