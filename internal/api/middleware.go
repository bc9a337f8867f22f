package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/appgrid/catalog-engine/internal/auth"
)

// SessionMiddleware guards admin routes behind session token authentication
type SessionMiddleware struct {
	authenticator *auth.Authenticator
}

// NewSessionMiddleware creates new session middleware
func NewSessionMiddleware(authenticator *auth.Authenticator) *SessionMiddleware {
	return &SessionMiddleware{authenticator: authenticator}
}

// RequireAdmin verifies the session token from the Authorization header.
// Supports "Bearer <token>" or a raw token; X-Session-Token works as a
// fallback header.
func (m *SessionMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractSessionToken(r)
		if token == "" {
			respondError(w, http.StatusUnauthorized, "missing_token", "provide Authorization header with Bearer token or X-Session-Token header")
			return
		}

		sess, err := m.authenticator.Verify(r.Context(), token)
		if err != nil {
			slog.Error("failed to verify session", "error", err, "token_prefix", maskToken(token))
			respondError(w, http.StatusInternalServerError, "auth_error", "internal server error")
			return
		}

		if sess == nil {
			slog.Warn("invalid session token attempt", "token_prefix", maskToken(token), "remote_addr", r.RemoteAddr)
			respondError(w, http.StatusUnauthorized, "invalid_session", "session is invalid or expired")
			return
		}

		if !sess.IsAdmin {
			slog.Warn("non-admin session on admin route", "email", sess.Email)
			respondError(w, http.StatusForbidden, "forbidden", "admin access required")
			return
		}

		slog.Debug("authenticated admin request", "email", sess.Email)

		ctx := ContextWithSession(r.Context(), sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// extractSessionToken extracts the session token from request headers
func extractSessionToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		if strings.HasPrefix(authHeader, "Bearer ") {
			return strings.TrimPrefix(authHeader, "Bearer ")
		}
		return authHeader
	}

	return r.Header.Get("X-Session-Token")
}

// maskToken returns first 8 chars of a token for safe logging
func maskToken(token string) string {
	if len(token) < 8 {
		return "***"
	}
	return token[:8] + "..."
}
