package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-at-least-32-bytes!!"

func TestManager(t *testing.T) {
	t.Run("签发并验证令牌", func(t *testing.T) {
		m := NewManager(testSecret, "poofmail", time.Hour)

		token, err := m.GenerateToken("user-1", "user@example.com")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		claims, err := m.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "user-1", claims.UserID)
		assert.Equal(t, "user@example.com", claims.Email)
		assert.Equal(t, "poofmail", claims.Issuer)
	})

	t.Run("过期令牌返回ErrExpiredToken", func(t *testing.T) {
		m := NewManager(testSecret, "poofmail", -time.Minute)

		token, err := m.GenerateToken("user-1", "user@example.com")
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("错误密钥签发的令牌被拒绝", func(t *testing.T) {
		m := NewManager(testSecret, "poofmail", time.Hour)
		other := NewManager("another-secret-key-32-bytes-long!!!", "poofmail", time.Hour)

		token, err := other.GenerateToken("user-1", "user@example.com")
		require.NoError(t, err)

		_, err = m.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("畸形令牌被拒绝", func(t *testing.T) {
		m := NewManager(testSecret, "poofmail", time.Hour)
		_, err := m.ValidateToken("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
