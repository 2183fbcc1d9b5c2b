// Package keygen generates the key material for verification records.
// All randomness comes from crypto/rand — never a predictable PRNG.
package keygen

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/google/uuid"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// MfaCodeLength is the length of generated MFA login codes.
const MfaCodeLength = 8

// NewURLToken returns an opaque random token suitable for embedding in a
// verification URL.
func NewURLToken() string {
	return uuid.NewString()
}

// NewMfaCode returns an 8-character uppercase alphanumeric code.
func NewMfaCode() (string, error) {
	b := make([]byte, MfaCodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate mfa code: %w", err)
		}
		b[i] = codeAlphabet[n.Int64()]
	}
	return string(b), nil
}
