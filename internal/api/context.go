package api

import (
	"context"

	"github.com/appgrid/catalog-engine/internal/models"
)

type contextKey string

const sessionContextKey contextKey = "admin_session"

// SessionFromContext extracts the AdminSession from context
func SessionFromContext(ctx context.Context) *models.AdminSession {
	sess, ok := ctx.Value(sessionContextKey).(*models.AdminSession)
	if !ok {
		return nil
	}
	return sess
}

// ContextWithSession adds the AdminSession to context
func ContextWithSession(ctx context.Context, sess *models.AdminSession) context.Context {
	return context.WithValue(ctx, sessionContextKey, sess)
}
