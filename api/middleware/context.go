package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/tokoflow-backend/internal/orders"
	"github.com/angelmondragon/tokoflow-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tokoflow-backend/pkg/errors"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxRole   contextKey = "actor_role"
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

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithRole injects the caller role into the context.
func WithRole(ctx context.Context, role string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

// PrincipalFromContext builds the service-layer caller from the authenticated context.
func PrincipalFromContext(ctx context.Context) (orders.Principal, error) {
	userID, err := uuid.Parse(UserIDFromContext(ctx))
	if err != nil || userID == uuid.Nil {
		return orders.Principal{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user context")
	}
	return orders.Principal{
		UserID: userID,
		Staff:  RoleFromContext(ctx) == enums.UserRoleStaff.String(),
	}, nil
}
