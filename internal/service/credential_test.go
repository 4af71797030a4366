package service

import (
	"bytes"
	"errors"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCredential_EightDigits(t *testing.T) {
	seen := make(map[string]bool)
	for range 50 {
		cred, err := GenerateCredential()
		require.NoError(t, err)
		assert.Regexp(t, `^[0-9]{8}$`, cred)
		seen[cred] = true
	}
	assert.Greater(t, len(seen), 45, "credentials should not repeat")
}

func TestGenerateDigits_CoversAllDigits(t *testing.T) {
	counts := make(map[rune]int)
	for range 200 {
		cred, err := GenerateCredential()
		require.NoError(t, err)
		for _, r := range cred {
			counts[r]++
		}
	}
	for d := '0'; d <= '9'; d++ {
		assert.Positive(t, counts[d], "digit %c never drawn", d)
	}
}

func TestGenerateDigits_SourceFailure(t *testing.T) {
	_, err := generateDigits(iotest.ErrReader(errors.New("entropy exhausted")), 8)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate credential")
}

func TestGenerateDigits_Deterministic(t *testing.T) {
	// Zero bytes always yield digit 0.
	got, err := generateDigits(bytes.NewReader(make([]byte, 64)), 4)
	require.NoError(t, err)
	assert.Equal(t, "0000", got)
}
