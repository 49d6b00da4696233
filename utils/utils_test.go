package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCompareSecret(t *testing.T) {
	hash, err := HashSecret("open sesame", bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, IsBcryptDigest(hash))
	assert.True(t, IsBcryptDigest(hash+"\n"))
	assert.NoError(t, CompareSecret(hash, "open sesame"))
	assert.ErrorIs(t, CompareSecret(hash, "open sesame!"), ErrSecretMismatch)
}

func TestIsBcryptDigestRejectsPlaintext(t *testing.T) {
	assert.False(t, IsBcryptDigest("open sesame"))
	assert.False(t, IsBcryptDigest(""))
}
