package security

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"
)

// GenerateToken creates a bearer token and the SHA256 hash we store.
// The raw token is shown to the client once; only the hash ever reaches
// the database.
func GenerateToken() (token, tokenHash string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}

	token = "bp_live_" + hex.EncodeToString(raw)
	return token, HashToken(token), nil
}

// HashToken returns the hex SHA256 of a bearer token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// HashPassword salts and hashes a password. A fresh salt is generated when
// none is supplied.
func HashPassword(password, salt string) (hash, usedSalt string, err error) {
	if salt == "" {
		raw := make([]byte, 16)
		if _, err := rand.Read(raw); err != nil {
			return "", "", fmt.Errorf("failed to generate salt: %w", err)
		}
		salt = hex.EncodeToString(raw)
	}
	sum := sha256.Sum256([]byte(salt + ":" + password))
	return hex.EncodeToString(sum[:]), salt, nil
}

// VerifyPassword checks a password against the stored salt and hash in
// constant time.
func VerifyPassword(password, salt, storedHash string) bool {
	computed, _, err := HashPassword(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1
}

// ConfirmationCode returns a payment confirmation code like "PAY3F07A21C".
func ConfirmationCode() (string, error) {
	raw := make([]byte, 4)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate confirmation code: %w", err)
	}
	return "PAY" + strings.ToUpper(hex.EncodeToString(raw)), nil
}
