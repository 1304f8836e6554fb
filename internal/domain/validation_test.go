package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateEmail(t *testing.T) {
	v := NewEmailValidator()

	tests := []struct {
		name    string
		email   string
		wantErr error
	}{
		{"合法地址", "test@example.com", nil},
		{"带子域名", "user@mail.example.com", nil},
		{"带数字", "user123@example.com", nil},
		{"带点", "user.name@example.com", nil},
		{"缺少@", "testexample.com", ErrInvalidEmail},
		{"缺少域名", "test@", ErrInvalidEmail},
		{"缺少本地部分", "@example.com", ErrInvalidEmail},
		{"空字符串", "", ErrInvalidEmail},
		{"包含空格", "test @example.com", ErrInvalidEmail},
		{"连续的点", "user..name@example.com", ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateEmail(tt.email)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateLocalPart(t *testing.T) {
	v := NewEmailValidator()

	assert.NoError(t, v.ValidateLocalPart("abc"))
	assert.NoError(t, v.ValidateLocalPart("a"))
	assert.ErrorIs(t, v.ValidateLocalPart(""), ErrInvalidLocalPart)
	assert.ErrorIs(t, v.ValidateLocalPart("a..b"), ErrInvalidLocalPart)
	assert.ErrorIs(t, v.ValidateLocalPart("-abc"), ErrInvalidLocalPart)

	long := make([]byte, MaxLocalPartLength+1)
	for i := range long {
		long[i] = 'a'
	}
	assert.ErrorIs(t, v.ValidateLocalPart(string(long)), ErrLocalPartTooLong)
}

func TestValidateDomain(t *testing.T) {
	v := NewEmailValidator()

	assert.NoError(t, v.ValidateDomain("example.com"))
	assert.NoError(t, v.ValidateDomain("mail.example.com"))
	assert.ErrorIs(t, v.ValidateDomain(""), ErrInvalidDomain)
	assert.ErrorIs(t, v.ValidateDomain("-bad.com"), ErrInvalidDomain)
	assert.ErrorIs(t, v.ValidateDomain("exa mple.com"), ErrInvalidDomain)
}

func TestIsLive(t *testing.T) {
	now := int64(1_700_000_000_000)

	t.Run("空过期时间视为永久", func(t *testing.T) {
		assert.True(t, IsLive(nil, now))
	})

	t.Run("过期时间等于当前时刻仍然存活", func(t *testing.T) {
		at := now
		assert.True(t, IsLive(&at, now))
	})

	t.Run("过期时间早于当前时刻已过期", func(t *testing.T) {
		at := now - 1
		assert.False(t, IsLive(&at, now))
	})

	t.Run("过期时间晚于当前时刻存活", func(t *testing.T) {
		at := now + 1
		assert.True(t, IsLive(&at, now))
	})
}

func TestMailboxPermanent(t *testing.T) {
	m := &Mailbox{ExpiresAt: PermanentExpiresAt}
	assert.True(t, m.Permanent())
	assert.False(t, m.ExpiredAt(NowMillis()))

	expired := &Mailbox{ExpiresAt: 1}
	assert.False(t, expired.Permanent())
	assert.True(t, expired.ExpiredAt(NowMillis()))
}

func TestMessageViewMatches(t *testing.T) {
	received := &Message{Type: MessageTypeReceived}
	sent := &Message{Type: MessageTypeSent}
	legacy := &Message{Type: ""}

	assert.True(t, ViewReceived.Matches(received))
	assert.True(t, ViewReceived.Matches(legacy))
	assert.False(t, ViewReceived.Matches(sent))

	assert.True(t, ViewSent.Matches(sent))
	assert.False(t, ViewSent.Matches(received))

	assert.True(t, ViewAll.Matches(sent))
	assert.True(t, ViewAll.Matches(legacy))

	assert.True(t, ViewReceived.Valid())
	assert.False(t, MessageView("junk").Valid())
}
