package token

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewShareToken(t *testing.T) {
	tok, err := NewShareToken()
	require.NoError(t, err)
	assert.Len(t, tok, ShareTokenLength)

	for _, r := range tok {
		assert.True(t, strings.ContainsRune(alphabet, r), "非法字符: %c", r)
	}
}

func TestGenerateLength(t *testing.T) {
	for _, n := range []int{1, 16, 32, 64} {
		tok, err := Generate(n)
		require.NoError(t, err)
		assert.Len(t, tok, n)
	}
}

func TestGenerateUniqueness(t *testing.T) {
	const count = 10000
	seen := make(map[string]struct{}, count)

	for i := 0; i < count; i++ {
		tok, err := NewShareToken()
		require.NoError(t, err)
		if _, dup := seen[tok]; dup {
			t.Fatalf("生成了重复令牌: %s", tok)
		}
		seen[tok] = struct{}{}
	}
}
