// Package domain holds cross-context primitives: request identity,
// context keys and the shared error taxonomy.
package domain

import "context"

type contextKey string

const (
	// AuthenticatedKey marks a context whose caller identity has been
	// verified by the fronting auth layer.
	AuthenticatedKey contextKey = "authenticated"
	// UserKey carries the verified caller identity.
	UserKey contextKey = "user"
)

// User is the verified identity attached to every request and connection
// before any handler runs. Verification itself happens upstream.
type User struct {
	ID       string
	Username string
}

// WithUser returns a context carrying a verified user identity.
func WithUser(ctx context.Context, u User) context.Context {
	ctx = context.WithValue(ctx, AuthenticatedKey, true)
	return context.WithValue(ctx, UserKey, u)
}

// GetUser extracts the verified user from the context. The second return
// is false when the context was never authenticated.
func GetUser(ctx context.Context) (User, bool) {
	if ok, _ := ctx.Value(AuthenticatedKey).(bool); !ok {
		return User{}, false
	}
	u, ok := ctx.Value(UserKey).(User)
	return u, ok
}
