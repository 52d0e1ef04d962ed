package persistence

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// sessionTokenBytes is the entropy of a raw portal session token (hex-encoded on the wire).
const sessionTokenBytes = 32

// otpDigits is the fixed length of an emailed one-time code.
const otpDigits = 6

// NewSessionToken returns a freshly generated raw session token.
// The raw value is handed to the client exactly once; only HashToken output is persisted.
func NewSessionToken() (string, error) {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken returns the SHA-256 hex digest of a raw token.
// Stored hashes are compared by exact match only; the digest is never reversed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewOTPCode returns a fixed-length numeric one-time code.
func NewOTPCode() (string, error) {
	max := big.NewInt(1)
	for i := 0; i < otpDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}

	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}

	return fmt.Sprintf("%0*d", otpDigits, n), nil
}
