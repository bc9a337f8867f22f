package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingProvider records SignIn calls
type countingProvider struct {
	inner Provider
	calls int
}

func (p *countingProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	p.calls++
	return p.inner.SignIn(ctx, email, password)
}

func testProvider(t *testing.T) *StaticProvider {
	t.Helper()
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	return NewStaticProvider([]StaticUser{
		{UID: "u1", Email: "admin@example.com", PasswordHash: hash},
		{UID: "u2", Email: "admin2@example.com", PasswordHash: hash},
		{UID: "u3", Email: "outsider@example.com", PasswordHash: hash},
	})
}

func TestLoginSuccess(t *testing.T) {
	a := NewAuthenticator(testProvider(t), NewMemorySessionStore(),
		[]string{"admin@example.com", "admin2@example.com"}, time.Hour)

	token, sess, err := a.Login(context.Background(), "admin2@example.com", "hunter2")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Equal(t, "admin2@example.com", sess.Email)
	assert.True(t, sess.IsAdmin)

	got, err := a.Verify(context.Background(), token)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "u2", got.UID)
}

func TestLoginAllowListCheckedBeforeProvider(t *testing.T) {
	provider := &countingProvider{inner: testProvider(t)}
	a := NewAuthenticator(provider, NewMemorySessionStore(),
		[]string{"admin@example.com"}, time.Hour)

	// Valid credentials, but not on the allow-list: rejected without a
	// provider call and without a session
	_, _, err := a.Login(context.Background(), "outsider@example.com", "hunter2")
	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Zero(t, provider.calls)

	_, _, err = a.Login(context.Background(), "random@x.com", "whatever")
	require.ErrorIs(t, err, ErrNotAuthorized)
	assert.Zero(t, provider.calls)
}

func TestLoginAllowListIsCaseInsensitive(t *testing.T) {
	a := NewAuthenticator(testProvider(t), NewMemorySessionStore(),
		[]string{"  Admin@Example.COM "}, time.Hour)

	_, _, err := a.Login(context.Background(), "admin@example.com", "hunter2")
	require.NoError(t, err)
}

func TestLoginWrongPassword(t *testing.T) {
	a := NewAuthenticator(testProvider(t), NewMemorySessionStore(),
		[]string{"admin@example.com"}, time.Hour)

	_, _, err := a.Login(context.Background(), "admin@example.com", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestVerifyUnknownToken(t *testing.T) {
	a := NewAuthenticator(testProvider(t), NewMemorySessionStore(),
		[]string{"admin@example.com"}, time.Hour)

	sess, err := a.Verify(context.Background(), "bogus")
	require.NoError(t, err)
	assert.Nil(t, sess)

	sess, err = a.Verify(context.Background(), "")
	require.NoError(t, err)
	assert.Nil(t, sess)
}

func TestSessionExpiry(t *testing.T) {
	a := NewAuthenticator(testProvider(t), NewMemorySessionStore(),
		[]string{"admin@example.com"}, time.Millisecond)

	token, _, err := a.Login(context.Background(), "admin@example.com", "hunter2")
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	sess, err := a.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Nil(t, sess, "expired sessions verify as absent")
}

func TestLogout(t *testing.T) {
	a := NewAuthenticator(testProvider(t), NewMemorySessionStore(),
		[]string{"admin@example.com"}, time.Hour)

	token, _, err := a.Login(context.Background(), "admin@example.com", "hunter2")
	require.NoError(t, err)

	require.NoError(t, a.Logout(context.Background(), token))

	sess, err := a.Verify(context.Background(), token)
	require.NoError(t, err)
	assert.Nil(t, sess)

	// Logging out twice is fine
	require.NoError(t, a.Logout(context.Background(), token))
	require.NoError(t, a.Logout(context.Background(), ""))
}

func TestStaticProviderUnknownEmail(t *testing.T) {
	p := testProvider(t)
	_, err := p.SignIn(context.Background(), "nobody@example.com", "hunter2")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestStaticProviderEmailCaseInsensitive(t *testing.T) {
	p := testProvider(t)
	id, err := p.SignIn(context.Background(), "ADMIN@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UID)
}
