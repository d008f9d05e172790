package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters
const (
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	saltLen       = 16
)

const hashPrefix = "$argon2id$"

// HashPassword returns an encoded Argon2id hash:
// $argon2id$v=19$m=65536,t=1,p=4$salt$hash
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	return fmt.Sprintf("%sv=19$m=%d,t=%d,p=%d$%s$%s", hashPrefix,
		argon2Memory, argon2Time, argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash)), nil
}

// IsHash reports whether s looks like an encoded Argon2id hash
func IsHash(s string) bool {
	return strings.HasPrefix(s, hashPrefix)
}

// VerifyPassword checks password against an encoded Argon2id hash
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("invalid hash format")
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false, fmt.Errorf("parse hash parameters: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}

	got := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

// Credentials is one Basic Auth account. Secret is either the plain
// password or an encoded Argon2id hash.
type Credentials struct {
	Username string
	Secret   string
}

// Enabled reports whether both parts are set
func (c Credentials) Enabled() bool {
	return c.Username != "" && c.Secret != ""
}

// Check verifies a username/password pair in constant time
func (c Credentials) Check(username, password string) bool {
	userMatch := subtle.ConstantTimeCompare([]byte(username), []byte(c.Username)) == 1
	if !IsHash(c.Secret) {
		passMatch := subtle.ConstantTimeCompare([]byte(password), []byte(c.Secret)) == 1
		return userMatch && passMatch
	}
	if !userMatch {
		return false
	}
	ok, err := VerifyPassword(password, c.Secret)
	return err == nil && ok
}
