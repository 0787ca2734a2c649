// Package auth holds operator credentials and the session tokens issued to
// operators after login.
package auth

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyHash is compared against when the username is unknown so both
// failure paths cost one bcrypt comparison.
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3Yl4bYGQ0.4RZ8wP1G8pG3u")

// Operators is a fixed set of username to bcrypt hash entries.
type Operators struct {
	hashes map[string][]byte
}

// ParseOperators reads "username:bcrypt-hash" entries. The hash is
// everything after the first colon.
func ParseOperators(entries []string) (*Operators, error) {
	ops := &Operators{hashes: make(map[string][]byte, len(entries))}
	for _, e := range entries {
		user, hash, ok := strings.Cut(e, ":")
		user = strings.TrimSpace(user)
		hash = strings.TrimSpace(hash)
		if !ok || user == "" || hash == "" {
			return nil, fmt.Errorf("operator entry %q: want username:bcrypt-hash", e)
		}
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("operator %q: %w", user, err)
		}
		if _, dup := ops.hashes[user]; dup {
			return nil, fmt.Errorf("operator %q listed twice", user)
		}
		ops.hashes[user] = []byte(hash)
	}
	return ops, nil
}

func (o *Operators) Len() int {
	if o == nil {
		return 0
	}
	return len(o.hashes)
}

// Authenticate reports ErrInvalidCredentials for an unknown user or a wrong
// password.
func (o *Operators) Authenticate(username, password string) error {
	hash, ok := []byte(nil), false
	if o != nil {
		hash, ok = o.hashes[username]
	}
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrInvalidCredentials
		}
		return fmt.Errorf("verify password: %w", err)
	}
	return nil
}

// HashPassword produces a hash suitable for the operators setting.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hashed), nil
}
