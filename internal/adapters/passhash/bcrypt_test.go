package passhash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcrypt_HashAndCompare(t *testing.T) {
	h := New(bcrypt.MinCost)

	hash, err := h.Hash("12345678")
	require.NoError(t, err)
	assert.NotEqual(t, "12345678", hash)
	assert.True(t, h.Compare(hash, "12345678"))
	assert.False(t, h.Compare(hash, "87654321"))
	assert.False(t, h.Compare("not-a-hash", "12345678"))
}

func TestBcrypt_CostFallback(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, New(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, New(99).cost)
	assert.Equal(t, 12, New(12).cost)
}

func TestBcrypt_HashTooLong(t *testing.T) {
	_, err := New(bcrypt.MinCost).Hash(strings.Repeat("a", 100))
	assert.ErrorIs(t, err, ErrHashFailed)
}
