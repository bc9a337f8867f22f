package models

import (
	"crypto/rand"
	"encoding/hex"
)

// AdminSession represents a signed-in admin identity.
// IsAdmin is derived by membership in the configured email allow-list;
// the authentication provider itself has no concept of roles.
type AdminSession struct {
	UID     string `json:"uid"`
	Email   string `json:"email"`
	IsAdmin bool   `json:"is_admin"`
}

// GenerateSessionToken creates a cryptographically random 48-char hex token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, 24)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// LoginRequest is the body of an admin login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after a successful login
type LoginResponse struct {
	Token   string       `json:"token"`
	Session AdminSession `json:"session"`
}
