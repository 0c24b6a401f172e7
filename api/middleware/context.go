package middleware

import (
	"context"

	"github.com/angelmondragon/marketplace-backend/internal/identity"
)

type contextKey string

const (
	ctxClaims  contextKey = "claims"
	ctxStoreID contextKey = "store_id"
)

// ClaimsFromContext returns the verified caller, if any.
func ClaimsFromContext(ctx context.Context) (identity.Claims, bool) {
	if ctx == nil {
		return identity.Claims{}, false
	}
	claims, ok := ctx.Value(ctxClaims).(identity.Claims)
	return claims, ok
}

func UserIDFromContext(ctx context.Context) string {
	claims, ok := ClaimsFromContext(ctx)
	if !ok {
		return ""
	}
	return claims.UserID
}

func StoreIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStoreID).(string); ok {
		return v
	}
	return ""
}

// WithClaims injects the verified caller into the context.
func WithClaims(ctx context.Context, claims identity.Claims) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxClaims, claims)
}

// WithStoreID injects the store identifier into the context for downstream handlers.
func WithStoreID(ctx context.Context, storeID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxStoreID, storeID)
}
