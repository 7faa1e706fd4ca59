package middleware

import (
	"context"

	"github.com/google/uuid"

	pkgerrors "github.com/quenbyco/storefront-backend/pkg/errors"
	"github.com/quenbyco/storefront-backend/pkg/types"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxSessionID contextKey = "session_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func SessionIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxSessionID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the authenticated user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithSessionID injects the anonymous session identifier into the context.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxSessionID, sessionID)
}

// IdentityFromContext reconstructs the request identity seeded by the
// Identity middleware. A request carries exactly one of the two.
func IdentityFromContext(ctx context.Context) (types.Identity, error) {
	if userID := UserIDFromContext(ctx); userID != "" {
		parsed, err := uuid.Parse(userID)
		if err != nil {
			return types.Identity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
		}
		return types.UserIdentity(parsed), nil
	}
	if sessionID := SessionIDFromContext(ctx); sessionID != "" {
		return types.SessionIdentity(sessionID), nil
	}
	return types.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}
