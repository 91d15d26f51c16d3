package hash

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	hashed, err := HashPassword("secret123")
	require.NoError(t, err)
	require.NotEmpty(t, hashed)
	assert.NotEqual(t, "secret123", hashed)

	assert.True(t, CheckPasswordHash("secret123", hashed))
	assert.False(t, CheckPasswordHash("wrong-password", hashed))
}

func TestHashPasswordProducesDifferentSalts(t *testing.T) {
	first, err := HashPassword("secret123")
	require.NoError(t, err)
	second, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
