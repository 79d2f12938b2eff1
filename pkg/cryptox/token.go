package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"math/big"
)

// MaxCodeDigits bounds GenerateNumericCode so the range fits in an int64.
const MaxCodeDigits = 18

// GenerateNumericCode returns a random decimal code of exactly digits
// characters, drawn uniformly from [10^(digits-1), 10^digits - 1]. For five
// digits that is the 90000 values 10000..99999.
func GenerateNumericCode(digits int) (string, error) {
	if digits <= 0 || digits > MaxCodeDigits {
		return "", fmt.Errorf("code length must be between 1 and %d, got %d", MaxCodeDigits, digits)
	}

	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	high := new(big.Int).Mul(low, big.NewInt(10))
	span := new(big.Int).Sub(high, low)

	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("failed to generate random code: %w", err)
	}

	return n.Add(n, low).String(), nil
}

// FingerprintToken returns a deterministic SHA-256 fingerprint of a token.
// This is used to store hashed secrets in databases, allowing lookup without
// storing the original value.
//
// The fingerprint is returned as a base64url-encoded string (43 chars).
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
