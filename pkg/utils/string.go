package utils

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"
)

const digits = "0123456789"

// GenerateNumericCode returns a zero-padded decimal code such as an OTP.
func GenerateNumericCode(length int) (string, error) {
	return randomFrom(digits, length)
}

// GenerateToken returns an unguessable URL-safe token built from n random bytes.
func GenerateToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func randomFrom(alphabet string, length int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to read random index: %w", err)
		}
		b[i] = alphabet[n.Int64()]
	}
	return string(b), nil
}
