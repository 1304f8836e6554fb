package memory

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/pagination"
	"poofmail/backend/internal/storage"
)

func newTestMailbox(id string) *domain.Mailbox {
	return &domain.Mailbox{
		ID:          id,
		Address:     id + "@example.com",
		LocalPart:   id,
		Domain:      "example.com",
		AccessToken: "token-" + id,
		CreatedAt:   domain.NowMillis(),
		ExpiresAt:   domain.PermanentExpiresAt,
	}
}

func TestMailboxCRUD(t *testing.T) {
	store := NewStore()
	mb := newTestMailbox("mb-1")

	require.NoError(t, store.SaveMailbox(mb))

	t.Run("按ID查询", func(t *testing.T) {
		got, err := store.GetMailbox("mb-1")
		require.NoError(t, err)
		assert.Equal(t, mb.Address, got.Address)
	})

	t.Run("按地址查询", func(t *testing.T) {
		got, err := store.GetMailboxByAddress("mb-1@example.com")
		require.NoError(t, err)
		assert.Equal(t, "mb-1", got.ID)
	})

	t.Run("按访问令牌查询", func(t *testing.T) {
		got, err := store.GetMailboxByAccessToken("token-mb-1")
		require.NoError(t, err)
		assert.Equal(t, "mb-1", got.ID)
	})

	t.Run("地址冲突", func(t *testing.T) {
		dup := newTestMailbox("mb-2")
		dup.Address = "mb-1@example.com"
		assert.ErrorIs(t, store.SaveMailbox(dup), storage.ErrMailboxExists)
	})

	t.Run("不存在的邮箱", func(t *testing.T) {
		_, err := store.GetMailbox("missing")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})

	t.Run("删除邮箱", func(t *testing.T) {
		require.NoError(t, store.DeleteMailbox("mb-1"))
		_, err := store.GetMailbox("mb-1")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
		_, err = store.GetMailboxByAccessToken("token-mb-1")
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})
}

func TestGetMailboxReturnsExpiredRecords(t *testing.T) {
	store := NewStore()
	mb := newTestMailbox("mb-expired")
	mb.ExpiresAt = 1 // 很久以前

	require.NoError(t, store.SaveMailbox(mb))

	// 存储层不做过期过滤，原样返回
	got, err := store.GetMailbox("mb-expired")
	require.NoError(t, err)
	assert.True(t, got.ExpiredAt(domain.NowMillis()))
}

func TestDeleteExpiredMailboxes(t *testing.T) {
	store := NewStore()
	now := domain.NowMillis()

	expired := newTestMailbox("mb-old")
	expired.ExpiresAt = now - 1000
	live := newTestMailbox("mb-live")

	require.NoError(t, store.SaveMailbox(expired))
	require.NoError(t, store.SaveMailbox(live))

	count, err := store.DeleteExpiredMailboxes(now)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	_, err = store.GetMailbox("mb-old")
	assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	_, err = store.GetMailbox("mb-live")
	assert.NoError(t, err)
}

func seedMessages(t *testing.T, store *Store, mailboxID string, n int) {
	t.Helper()
	base := int64(1_700_000_000_000)
	for i := 0; i < n; i++ {
		require.NoError(t, store.SaveMessage(&domain.Message{
			ID:         fmt.Sprintf("msg-%03d", i),
			MailboxID:  mailboxID,
			From:       "sender@example.com",
			Subject:    fmt.Sprintf("subject %d", i),
			Type:       domain.MessageTypeReceived,
			ReceivedAt: base + int64(i)*1000,
		}))
	}
}

func TestListMessagesKeyset(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveMailbox(newTestMailbox("mb-1")))
	seedMessages(t, store, "mb-1", 25)

	t.Run("按接收时间降序返回", func(t *testing.T) {
		msgs, err := store.ListMessagesKeyset("mb-1", nil, 10, domain.ViewReceived)
		require.NoError(t, err)
		require.Len(t, msgs, 10)
		assert.Equal(t, "msg-024", msgs[0].ID)
		for i := 1; i < len(msgs); i++ {
			assert.GreaterOrEqual(t, msgs[i-1].ReceivedAt, msgs[i].ReceivedAt)
		}
	})

	t.Run("游标翻页不重不漏", func(t *testing.T) {
		first, err := store.ListMessagesKeyset("mb-1", nil, 20, domain.ViewReceived)
		require.NoError(t, err)
		require.Len(t, first, 20)

		last := first[len(first)-1]
		cursor := &pagination.Cursor{ReceivedAt: last.ReceivedAt, ID: last.ID}
		second, err := store.ListMessagesKeyset("mb-1", cursor, 20, domain.ViewReceived)
		require.NoError(t, err)
		require.Len(t, second, 5)

		seen := make(map[string]struct{})
		for _, m := range append(first, second...) {
			_, dup := seen[m.ID]
			assert.False(t, dup, "邮件 %s 出现了两次", m.ID)
			seen[m.ID] = struct{}{}
		}
		assert.Len(t, seen, 25)
	})

	t.Run("同一时间戳按ID降序决胜", func(t *testing.T) {
		require.NoError(t, store.SaveMailbox(newTestMailbox("mb-tie")))
		ts := int64(1_700_000_000_000)
		for _, id := range []string{"a", "b"} {
			require.NoError(t, store.SaveMessage(&domain.Message{
				ID: id, MailboxID: "mb-tie", ReceivedAt: ts,
			}))
		}

		msgs, err := store.ListMessagesKeyset("mb-tie", nil, 10, domain.ViewAll)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "b", msgs[0].ID)
		assert.Equal(t, "a", msgs[1].ID)

		// 从 b 之后继续，只剩 a
		cursor := &pagination.Cursor{ReceivedAt: ts, ID: "b"}
		rest, err := store.ListMessagesKeyset("mb-tie", cursor, 10, domain.ViewAll)
		require.NoError(t, err)
		require.Len(t, rest, 1)
		assert.Equal(t, "a", rest[0].ID)
	})

	t.Run("不存在的邮箱", func(t *testing.T) {
		_, err := store.ListMessagesKeyset("missing", nil, 10, domain.ViewReceived)
		assert.ErrorIs(t, err, storage.ErrMailboxNotFound)
	})
}

func TestMessageViewFiltering(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveMailbox(newTestMailbox("mb-1")))

	base := int64(1_700_000_000_000)
	types := []string{domain.MessageTypeReceived, domain.MessageTypeSent, "", domain.MessageTypeSent, domain.MessageTypeReceived}
	for i, typ := range types {
		require.NoError(t, store.SaveMessage(&domain.Message{
			ID: fmt.Sprintf("m%d", i), MailboxID: "mb-1", Type: typ, ReceivedAt: base + int64(i),
		}))
	}

	t.Run("received视图排除已发送", func(t *testing.T) {
		count, err := store.CountMessages("mb-1", domain.ViewReceived)
		require.NoError(t, err)
		assert.Equal(t, int64(3), count)

		msgs, err := store.ListMessagesKeyset("mb-1", nil, 10, domain.ViewReceived)
		require.NoError(t, err)
		for _, m := range msgs {
			assert.NotEqual(t, domain.MessageTypeSent, m.Type)
		}
	})

	t.Run("sent视图只含已发送", func(t *testing.T) {
		count, err := store.CountMessages("mb-1", domain.ViewSent)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("all视图包含全部", func(t *testing.T) {
		count, err := store.CountMessages("mb-1", domain.ViewAll)
		require.NoError(t, err)
		assert.Equal(t, int64(5), count)
	})
}

func TestMessageLifecycle(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveMailbox(newTestMailbox("mb-1")))
	seedMessages(t, store, "mb-1", 3)

	t.Run("标记已读", func(t *testing.T) {
		require.NoError(t, store.MarkMessageRead("mb-1", "msg-000"))
		msg, err := store.GetMessage("mb-1", "msg-000")
		require.NoError(t, err)
		assert.True(t, msg.IsRead)
	})

	t.Run("删除单封邮件", func(t *testing.T) {
		require.NoError(t, store.DeleteMessage("mb-1", "msg-000"))
		_, err := store.GetMessage("mb-1", "msg-000")
		assert.ErrorIs(t, err, storage.ErrMessageNotFound)
	})

	t.Run("清空邮箱", func(t *testing.T) {
		count, err := store.DeleteAllMessages("mb-1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})
}

func TestMailboxShareCRUD(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveMailbox(newTestMailbox("mb-1")))

	share := &domain.MailboxShare{
		ID: "share-1", MailboxID: "mb-1", Token: "tokA", CreatedAt: domain.NowMillis(),
	}
	require.NoError(t, store.SaveMailboxShare(share))

	t.Run("按令牌查询", func(t *testing.T) {
		got, err := store.GetMailboxShareByToken("tokA")
		require.NoError(t, err)
		assert.Equal(t, "share-1", got.ID)
	})

	t.Run("令牌冲突", func(t *testing.T) {
		dup := &domain.MailboxShare{ID: "share-2", MailboxID: "mb-1", Token: "tokA"}
		assert.ErrorIs(t, store.SaveMailboxShare(dup), storage.ErrTokenConflict)
	})

	t.Run("所有者路径查询", func(t *testing.T) {
		got, err := store.GetMailboxShare("mb-1", "share-1")
		require.NoError(t, err)
		assert.Equal(t, "tokA", got.Token)

		// 其他邮箱无法看到这条分享
		_, err = store.GetMailboxShare("mb-other", "share-1")
		assert.ErrorIs(t, err, storage.ErrShareNotFound)
	})

	t.Run("列表按创建时间倒序", func(t *testing.T) {
		base := domain.NowMillis()
		for i := 0; i < 20; i++ {
			require.NoError(t, store.SaveMailboxShare(&domain.MailboxShare{
				ID:        fmt.Sprintf("share-ord-%02d", i),
				MailboxID: "mb-1",
				Token:     fmt.Sprintf("ordtok%010d", i),
				CreatedAt: base + int64(i),
			}))
		}

		shares, err := store.ListMailboxShares("mb-1")
		require.NoError(t, err)
		require.Len(t, shares, 21)
		for i := 1; i < len(shares); i++ {
			assert.GreaterOrEqual(t, shares[i-1].CreatedAt, shares[i].CreatedAt)
		}
		assert.Equal(t, "share-ord-19", shares[0].ID)

		for i := 0; i < 20; i++ {
			require.NoError(t, store.DeleteMailboxShare("mb-1", fmt.Sprintf("share-ord-%02d", i)))
		}
	})

	t.Run("列出与撤销", func(t *testing.T) {
		shares, err := store.ListMailboxShares("mb-1")
		require.NoError(t, err)
		assert.Len(t, shares, 1)

		// 撤销时校验归属
		assert.ErrorIs(t, store.DeleteMailboxShare("mb-other", "share-1"), storage.ErrShareNotFound)

		require.NoError(t, store.DeleteMailboxShare("mb-1", "share-1"))
		_, err = store.GetMailboxShareByToken("tokA")
		assert.ErrorIs(t, err, storage.ErrShareNotFound)
	})
}

func TestMessageShareCRUD(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveMailbox(newTestMailbox("mb-1")))
	seedMessages(t, store, "mb-1", 1)

	share := &domain.MessageShare{
		ID: "ms-1", MessageID: "msg-000", MailboxID: "mb-1", Token: "tokM",
	}
	require.NoError(t, store.SaveMessageShare(share))

	t.Run("按令牌查询", func(t *testing.T) {
		got, err := store.GetMessageShareByToken("tokM")
		require.NoError(t, err)
		assert.Equal(t, "msg-000", got.MessageID)
	})

	t.Run("邮件不存在时拒绝保存", func(t *testing.T) {
		bad := &domain.MessageShare{ID: "ms-2", MessageID: "missing", MailboxID: "mb-1", Token: "tokX"}
		assert.ErrorIs(t, store.SaveMessageShare(bad), storage.ErrMessageNotFound)
	})

	t.Run("删除邮件时级联删除分享", func(t *testing.T) {
		require.NoError(t, store.DeleteMessage("mb-1", "msg-000"))
		_, err := store.GetMessageShareByToken("tokM")
		assert.ErrorIs(t, err, storage.ErrShareNotFound)
	})
}

func TestDeleteMailboxCascadesShares(t *testing.T) {
	store := NewStore()
	require.NoError(t, store.SaveMailbox(newTestMailbox("mb-1")))
	seedMessages(t, store, "mb-1", 1)

	require.NoError(t, store.SaveMailboxShare(&domain.MailboxShare{
		ID: "share-1", MailboxID: "mb-1", Token: "tokA",
	}))
	require.NoError(t, store.SaveMessageShare(&domain.MessageShare{
		ID: "ms-1", MessageID: "msg-000", MailboxID: "mb-1", Token: "tokM",
	}))

	require.NoError(t, store.DeleteMailbox("mb-1"))

	_, err := store.GetMailboxShareByToken("tokA")
	assert.ErrorIs(t, err, storage.ErrShareNotFound)
	_, err = store.GetMessageShareByToken("tokM")
	assert.ErrorIs(t, err, storage.ErrShareNotFound)
}

func TestRateLimit(t *testing.T) {
	store := NewStore()

	n, err := store.IncrementRateLimit("ip:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = store.IncrementRateLimit("ip:1.2.3.4", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := store.GetRateLimit("ip:1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, int64(2), got)

	got, err = store.GetRateLimit("ip:unknown")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got)
}
