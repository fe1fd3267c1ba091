package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, h.Verify("correct horse", hash))
	assert.False(t, h.Verify("wrong horse", hash))
	assert.False(t, h.Verify("correct horse", "not-a-hash"))

	again, err := h.Hash("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, hash, again, "hashes are salted")
}

func TestNewBcryptHasherCostFallback(t *testing.T) {
	h := NewBcryptHasher(99).(*bcryptHasher)
	assert.Equal(t, DefaultBcryptCost, h.cost)

	h = NewBcryptHasher(30).(*bcryptHasher)
	assert.Equal(t, DefaultBcryptCost, h.cost)

	h = NewBcryptHasher(MaxBcryptCost).(*bcryptHasher)
	assert.Equal(t, MaxBcryptCost, h.cost)

	h = NewBcryptHasher(bcrypt.MinCost).(*bcryptHasher)
	assert.Equal(t, bcrypt.MinCost, h.cost)
}
