package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, h.Compare(hash, "correct horse battery staple"))
	assert.Error(t, h.Compare(hash, "wrong password"))
}

func TestBcryptHasherZeroCostUsesDefault(t *testing.T) {
	h := NewBcryptHasher(0)

	hash, err := h.Hash("pw-with-default-cost")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
