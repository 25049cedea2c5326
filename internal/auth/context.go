package auth

import (
	"context"
	"errors"

	"gitlab.com/voxlane/api/voicedash/internal/model"
)

type contextKey int

const (
	userKey contextKey = iota
)

// ErrNoUserInContext is returned when no authenticated user is found in context
var ErrNoUserInContext = errors.New("no authenticated user found in context")

// WithUser attaches the authenticated user to the context. The user is
// resolved exactly once, in the HTTP auth middleware; everything below it
// receives the user explicitly through the context, never via global state.
func WithUser(ctx context.Context, user *model.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext extracts the authenticated user from the context
func UserFromContext(ctx context.Context) (*model.User, error) {
	user, ok := ctx.Value(userKey).(*model.User)
	if !ok || user == nil {
		return nil, ErrNoUserInContext
	}
	return user, nil
}
