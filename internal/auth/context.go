package auth

import (
	"context"

	"github.com/dukerupert/mise/internal/model"
)

type contextKey struct{}

// AuthContext is the resolved identity of a request. Both fields are nil for
// anonymous requests.
type AuthContext struct {
	User    *model.User
	Session *model.Session
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

// User returns the signed-in user, or nil.
func User(ctx context.Context) *model.User {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return ac.User
}

// UserID returns the signed-in user's id, or "".
func UserID(ctx context.Context) string {
	if u := User(ctx); u != nil {
		return u.ID
	}
	return ""
}

// Session returns the current session, or nil.
func Session(ctx context.Context) *model.Session {
	ac, ok := FromContext(ctx)
	if !ok {
		return nil
	}
	return ac.Session
}
