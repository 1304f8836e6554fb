package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poofmail/backend/internal/config"
	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/storage"
	"poofmail/backend/internal/storage/memory"
)

func testConfig() *config.Config {
	return &config.Config{
		Mailbox: config.MailboxConfig{
			AllowedDomains: []string{"poof.mail", "test.com"},
			DefaultTTL:     24 * time.Hour,
			MaxPerIP:       10,
		},
	}
}

func int64Ptr(v int64) *int64 { return &v }

func TestMailboxService_Create(t *testing.T) {
	store := memory.NewStore()
	service := NewMailboxService(store, testConfig())

	t.Run("创建随机邮箱成功", func(t *testing.T) {
		mailbox, err := service.Create(CreateMailboxInput{})

		require.NoError(t, err)
		assert.NotEmpty(t, mailbox.ID)
		assert.NotEmpty(t, mailbox.Address)
		assert.Len(t, mailbox.AccessToken, accessTokenLength)
		assert.Contains(t, []string{"poof.mail", "test.com"}, mailbox.Domain)
		// 默认 TTL 生效
		assert.Greater(t, mailbox.ExpiresAt, mailbox.CreatedAt)
		assert.NotEqual(t, domain.PermanentExpiresAt, mailbox.ExpiresAt)
	})

	t.Run("创建自定义前缀邮箱成功", func(t *testing.T) {
		mailbox, err := service.Create(CreateMailboxInput{
			Prefix: "custom",
			Domain: "poof.mail",
		})

		require.NoError(t, err)
		assert.Equal(t, "custom@poof.mail", mailbox.Address)
		assert.Equal(t, "custom", mailbox.LocalPart)
	})

	t.Run("使用不允许的域名创建邮箱失败", func(t *testing.T) {
		_, err := service.Create(CreateMailboxInput{Domain: "invalid.com"})
		assert.ErrorIs(t, err, ErrDomainNotAllowed)
	})

	t.Run("非法前缀创建失败", func(t *testing.T) {
		_, err := service.Create(CreateMailboxInput{Prefix: "bad..prefix"})
		assert.ErrorIs(t, err, ErrPrefixInvalid)
	})

	t.Run("指定有效时长", func(t *testing.T) {
		mailbox, err := service.Create(CreateMailboxInput{
			ExpiresIn: int64Ptr(time.Hour.Milliseconds()),
		})

		require.NoError(t, err)
		assert.InDelta(t, domain.NowMillis()+time.Hour.Milliseconds(), mailbox.ExpiresAt, 5000)
	})

	t.Run("零时长表示永久邮箱", func(t *testing.T) {
		mailbox, err := service.Create(CreateMailboxInput{ExpiresIn: int64Ptr(0)})

		require.NoError(t, err)
		assert.Equal(t, domain.PermanentExpiresAt, mailbox.ExpiresAt)
		assert.True(t, mailbox.Permanent())
	})

	t.Run("负数时长非法", func(t *testing.T) {
		_, err := service.Create(CreateMailboxInput{ExpiresIn: int64Ptr(-1)})
		assert.ErrorIs(t, err, ErrInvalidExpiresIn)
	})
}

func TestMailboxService_Authenticate(t *testing.T) {
	store := memory.NewStore()
	service := NewMailboxService(store, testConfig())

	mailbox, err := service.Create(CreateMailboxInput{Prefix: "owner"})
	require.NoError(t, err)

	t.Run("令牌有效", func(t *testing.T) {
		got, err := service.Authenticate(mailbox.AccessToken)
		require.NoError(t, err)
		assert.Equal(t, mailbox.ID, got.ID)
	})

	t.Run("令牌无效", func(t *testing.T) {
		_, err := service.Authenticate("no-such-token")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("邮箱过期后令牌失效", func(t *testing.T) {
		expired := &domain.Mailbox{
			ID:          "mb-expired",
			Address:     "dead@poof.mail",
			AccessToken: "expired-token",
			ExpiresAt:   1,
		}
		require.NoError(t, store.SaveMailbox(expired))

		_, err := service.Authenticate("expired-token")
		assert.ErrorIs(t, err, ErrMailboxExpired)
	})
}

func TestMailboxService_GetLive(t *testing.T) {
	store := memory.NewStore()
	service := NewMailboxService(store, testConfig())

	t.Run("不存在的邮箱", func(t *testing.T) {
		_, err := service.GetLive("missing")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("过期与不存在严格区分", func(t *testing.T) {
		expired := &domain.Mailbox{
			ID: "mb-1", Address: "a@poof.mail", AccessToken: "t1", ExpiresAt: 1,
		}
		require.NoError(t, store.SaveMailbox(expired))

		_, err := service.GetLive("mb-1")
		assert.ErrorIs(t, err, ErrMailboxExpired)
		assert.NotErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("恰好在过期时刻仍然存活", func(t *testing.T) {
		now := domain.NowMillis()
		service.now = func() int64 { return now }

		boundary := &domain.Mailbox{
			ID: "mb-2", Address: "b@poof.mail", AccessToken: "t2", ExpiresAt: now,
		}
		require.NoError(t, store.SaveMailbox(boundary))

		_, err := service.GetLive("mb-2")
		assert.NoError(t, err)

		// 过了这一毫秒就过期
		service.now = func() int64 { return now + 1 }
		_, err = service.GetLive("mb-2")
		assert.ErrorIs(t, err, ErrMailboxExpired)
	})
}

func TestMailboxService_CleanupExpired(t *testing.T) {
	store := memory.NewStore()
	service := NewMailboxService(store, testConfig())

	require.NoError(t, store.SaveMailbox(&domain.Mailbox{
		ID: "old", Address: "old@poof.mail", AccessToken: "told", ExpiresAt: 1,
	}))
	live, err := service.Create(CreateMailboxInput{})
	require.NoError(t, err)

	count, err := service.CleanupExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = service.Get("old")
	assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	_, err = service.Get(live.ID)
	assert.NoError(t, err)
}
