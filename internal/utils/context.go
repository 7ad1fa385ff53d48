package utils

import (
	"context"

	"github.com/vikasavnish/listinghub/internal/models"
	"github.com/vikasavnish/listinghub/internal/services"
)

// Key type for context values
type contextKey string

const (
	sessionKey contextKey = "session"
	viewerKey  contextKey = "viewer"
)

// SessionFromContext returns the request's session, or nil when signed out.
func SessionFromContext(ctx context.Context) *services.Session {
	s, _ := ctx.Value(sessionKey).(*services.Session)
	return s
}

// ViewerFromContext returns the signed-in user's profile, or nil.
func ViewerFromContext(ctx context.Context) *models.User {
	u, _ := ctx.Value(viewerKey).(*models.User)
	return u
}

// WithSession stores the session and its profile on the context.
func WithSession(ctx context.Context, s *services.Session, viewer *models.User) context.Context {
	ctx = context.WithValue(ctx, sessionKey, s)
	return context.WithValue(ctx, viewerKey, viewer)
}
