package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadStaticProvider(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "credentials.yaml")
	content := "users:\n" +
		"  - uid: admin-1\n" +
		"    email: admin@example.com\n" +
		"    password_hash: \"" + hash + "\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	p, err := LoadStaticProvider(path)
	require.NoError(t, err)

	id, err := p.SignIn(context.Background(), "admin@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", id.UID)
}

func TestLoadStaticProviderMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.yaml")
	require.NoError(t, os.WriteFile(path, []byte("users:\n  - email: a@b.c\n"), 0o600))

	_, err := LoadStaticProvider(path)
	assert.Error(t, err)
}

func TestLoadStaticProviderMissingFile(t *testing.T) {
	_, err := LoadStaticProvider(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
