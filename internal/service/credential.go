package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// CredentialLength is the number of digits in a generated staff credential.
const CredentialLength = 8

// CredentialGenerator produces one-time staff credentials.
type CredentialGenerator func() (string, error)

// GenerateCredential returns CredentialLength decimal digits, each drawn
// uniformly from crypto/rand.
func GenerateCredential() (string, error) {
	return generateDigits(rand.Reader, CredentialLength)
}

func generateDigits(src io.Reader, n int) (string, error) {
	ten := big.NewInt(10)
	var b strings.Builder
	b.Grow(n)
	for range n {
		d, err := rand.Int(src, ten)
		if err != nil {
			return "", fmt.Errorf("generate credential: %w", err)
		}
		b.WriteByte(byte('0' + d.Int64()))
	}
	return b.String(), nil
}
