package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/appgrid/catalog-engine/internal/models"
)

// ErrNotAuthorized is returned when a login is attempted with an email
// outside the admin allow-list. The provider is never consulted in that
// case and no session is established.
var ErrNotAuthorized = errors.New("access denied: email is not authorized for admin access")

// DefaultSessionTTL bounds how long an admin session lives without
// re-authenticating
const DefaultSessionTTL = 12 * time.Hour

// Authenticator layers the allow-list authorization check on top of the
// external sign-in provider and manages admin sessions. The allow-list
// is injected once at construction and never mutated afterwards.
type Authenticator struct {
	provider Provider
	sessions SessionStore
	allowed  map[string]struct{}
	ttl      time.Duration
}

// NewAuthenticator creates an authenticator gated to the given emails
func NewAuthenticator(provider Provider, sessions SessionStore, allowList []string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	allowed := make(map[string]struct{}, len(allowList))
	for _, email := range allowList {
		email = strings.ToLower(strings.TrimSpace(email))
		if email != "" {
			allowed[email] = struct{}{}
		}
	}

	return &Authenticator{
		provider: provider,
		sessions: sessions,
		allowed:  allowed,
		ttl:      ttl,
	}
}

// Allowed reports whether the email is on the admin allow-list
func (a *Authenticator) Allowed(email string) bool {
	_, ok := a.allowed[strings.ToLower(strings.TrimSpace(email))]
	return ok
}

// Login authenticates an admin. The allow-list is checked before any
// provider call; outside emails are rejected with ErrNotAuthorized. On
// success a session token with a TTL is issued.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, *models.AdminSession, error) {
	if !a.Allowed(email) {
		slog.Warn("login rejected: email not on allow-list", "email", email)
		return "", nil, ErrNotAuthorized
	}

	identity, err := a.provider.SignIn(ctx, email, password)
	if err != nil {
		return "", nil, err
	}

	token, err := models.GenerateSessionToken()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	sess := models.AdminSession{
		UID:     identity.UID,
		Email:   identity.Email,
		IsAdmin: true,
	}

	if err := a.sessions.Put(ctx, token, sess, a.ttl); err != nil {
		return "", nil, fmt.Errorf("failed to store session: %w", err)
	}

	slog.Info("admin logged in", "email", sess.Email)
	return token, &sess, nil
}

// Verify resolves a session token. Returns (nil, nil) for unknown or
// expired tokens.
func (a *Authenticator) Verify(ctx context.Context, token string) (*models.AdminSession, error) {
	if token == "" {
		return nil, nil
	}
	return a.sessions.Get(ctx, token)
}

// Logout deletes the session. Idempotent.
func (a *Authenticator) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return a.sessions.Delete(ctx, token)
}
