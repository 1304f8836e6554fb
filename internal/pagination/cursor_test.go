package pagination

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		cursor Cursor
	}{
		{"普通游标", Cursor{ReceivedAt: 1700000000000, ID: "msg-42"}},
		{"零时间戳", Cursor{ReceivedAt: 0, ID: "a"}},
		{"负时间戳", Cursor{ReceivedAt: -1, ID: "b"}},
		{"ID含冒号", Cursor{ReceivedAt: 123, ID: "a:b:c"}},
		{"UUID形式的ID", Cursor{ReceivedAt: 1700000000001, ID: "550e8400-e29b-41d4-a716-446655440000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := tt.cursor.Encode()
			decoded, err := Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, tt.cursor, decoded)
		})
	}
}

func TestCursorEncodeIsURLSafe(t *testing.T) {
	c := Cursor{ReceivedAt: 1700000000000, ID: "msg~!@#"}
	encoded := c.Encode()
	assert.NotContains(t, encoded, "+")
	assert.NotContains(t, encoded, "/")
	assert.NotContains(t, encoded, "=")
}

func TestDecodeInvalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"非法base64", "!!!not-base64!!!"},
		{"空字符串", ""},
		{"缺少分隔符", base64.RawURLEncoding.EncodeToString([]byte("1700000000000"))},
		{"时间戳非数字", base64.RawURLEncoding.EncodeToString([]byte("abc:msg-1"))},
		{"缺少ID", base64.RawURLEncoding.EncodeToString([]byte("1700000000000:"))},
		{"缺少时间戳", base64.RawURLEncoding.EncodeToString([]byte(":msg-1"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidCursor)
		})
	}
}

func TestCursorAfter(t *testing.T) {
	c := Cursor{ReceivedAt: 1000, ID: "b"}

	t.Run("时间戳更小的行在游标之后", func(t *testing.T) {
		assert.True(t, c.After(999, "z"))
	})

	t.Run("时间戳更大的行在游标之前", func(t *testing.T) {
		assert.False(t, c.After(1001, "a"))
	})

	t.Run("同一时间戳按ID降序决胜", func(t *testing.T) {
		assert.True(t, c.After(1000, "a"))
		assert.False(t, c.After(1000, "b"))
		assert.False(t, c.After(1000, "c"))
	})
}
