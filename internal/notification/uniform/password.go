// Package uniform implements uniform password handling for synchronization:
// one generated password per identity per run, shared across every system the
// run creates an account on, with the handout notification deferred until the
// run finishes.
package uniform

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// passwordBytes yields 16 random bytes, 22 characters after encoding.
const passwordBytes = 16

// GeneratePassword returns a random url-safe password.
func GeneratePassword() (string, error) {
	buf := make([]byte, passwordBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashPassword returns the bcrypt hash stored on the local entity. The plain
// password only ever lives in the deferred notification buffer.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
