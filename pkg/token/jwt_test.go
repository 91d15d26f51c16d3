package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndVerifyToken(t *testing.T) {
	manager := NewJWTManager("test-secret", 1, 7)

	tokenString, err := manager.GenerateToken(42, "player@example.com", "USER")
	require.NoError(t, err)
	require.NotEmpty(t, tokenString)

	claims, err := manager.VerifyToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "player@example.com", claims.Email)
	assert.Equal(t, "USER", claims.Role)
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	manager := NewJWTManager("test-secret", 1, 7)
	other := NewJWTManager("another-secret", 1, 7)

	tokenString, err := manager.GenerateToken(42, "player@example.com", "USER")
	require.NoError(t, err)

	_, err = other.VerifyToken(tokenString)
	require.Error(t, err)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	manager := NewJWTManager("test-secret", 1, 7)

	_, err := manager.VerifyToken("not.a.token")
	require.Error(t, err)
}

func TestGenerateRandomStringLength(t *testing.T) {
	s := GenerateRandomString(16)
	// 16 字节编码为 32 个十六进制字符
	assert.Len(t, s, 32)
	assert.NotEqual(t, s, GenerateRandomString(16))
}
