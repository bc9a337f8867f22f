package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// ErrInvalidCredentials is returned by a provider when the email or
// password is wrong
var ErrInvalidCredentials = errors.New("invalid email or password")

// Identity is the signed-in identity delivered by a provider. The
// provider has no concept of roles; authorization is layered on top by
// the Authenticator.
type Identity struct {
	UID   string
	Email string
}

// Provider is the external email/password sign-in contract
type Provider interface {
	SignIn(ctx context.Context, email, password string) (Identity, error)
}

// StaticUser is one credential entry in the provider file
type StaticUser struct {
	UID          string `yaml:"uid"`
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

type staticCredentialsFile struct {
	Users []StaticUser `yaml:"users"`
}

// StaticProvider implements Provider from a fixed set of bcrypt-hashed
// credentials
type StaticProvider struct {
	users map[string]StaticUser
}

// NewStaticProvider builds a provider from the given users
func NewStaticProvider(users []StaticUser) *StaticProvider {
	m := make(map[string]StaticUser, len(users))
	for _, u := range users {
		m[strings.ToLower(u.Email)] = u
	}
	return &StaticProvider{users: m}
}

// LoadStaticProvider reads a YAML credentials file:
//
//	users:
//	  - uid: admin-1
//	    email: admin@example.com
//	    password_hash: $2a$10$...
func LoadStaticProvider(path string) (*StaticProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var file staticCredentialsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}

	for _, u := range file.Users {
		if u.Email == "" || u.PasswordHash == "" {
			return nil, fmt.Errorf("credentials file: every user needs email and password_hash")
		}
	}

	return NewStaticProvider(file.Users), nil
}

// SignIn verifies the password against the stored bcrypt hash
func (p *StaticProvider) SignIn(ctx context.Context, email, password string) (Identity, error) {
	u, ok := p.users[strings.ToLower(email)]
	if !ok {
		return Identity{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Identity{}, ErrInvalidCredentials
	}

	uid := u.UID
	if uid == "" {
		uid = u.Email
	}
	return Identity{UID: uid, Email: u.Email}, nil
}

// HashPassword produces a bcrypt hash suitable for the credentials file
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
