package service

import (
	"context"

	"github.com/histotrack/pathlab-api/internal/models"
)

type actorContextKey struct{}

// ContextWithActor stamps the authenticated actor onto the context. The
// middleware calls this after parsing the bearer token.
func ContextWithActor(ctx context.Context, claims models.ActorClaims) context.Context {
	return context.WithValue(ctx, actorContextKey{}, claims)
}

// ActorFromContext returns the claims stamped by the middleware, if any.
func ActorFromContext(ctx context.Context) (models.ActorClaims, bool) {
	claims, ok := ctx.Value(actorContextKey{}).(models.ActorClaims)
	return claims, ok
}

// actorFrom resolves the audit actor, falling back to "system" when the
// request carried no identity.
func actorFrom(ctx context.Context) string {
	if claims, ok := ActorFromContext(ctx); ok && claims.Subject != "" {
		return claims.Subject
	}
	return "system"
}
