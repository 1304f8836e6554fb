package service

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/pagination"
	"poofmail/backend/internal/storage/memory"
)

func newMessageFixture(t *testing.T) (*memory.Store, *MessageService, *domain.Mailbox) {
	t.Helper()
	store := memory.NewStore()
	mailboxes := NewMailboxService(store, testConfig())
	mailbox, err := mailboxes.Create(CreateMailboxInput{Prefix: "inbox"})
	require.NoError(t, err)
	return store, NewMessageService(store), mailbox
}

func seedPage(t *testing.T, svc *MessageService, mailboxID string, n int) {
	t.Helper()
	base := int64(1_700_000_000_000)
	for i := 0; i < n; i++ {
		_, err := svc.Create(CreateMessageInput{
			MailboxID:  mailboxID,
			From:       "sender@example.com",
			Subject:    fmt.Sprintf("subject %d", i),
			ReceivedAt: base + int64(i)*1000,
		})
		require.NoError(t, err)
	}
}

func TestMessageService_ListPage(t *testing.T) {
	_, svc, mailbox := newMessageFixture(t)
	seedPage(t, svc, mailbox.ID, 25)

	t.Run("25封邮件按20页大小翻两页", func(t *testing.T) {
		first, err := svc.ListPage(mailbox.ID, nil, 20, domain.ViewReceived)
		require.NoError(t, err)
		assert.Len(t, first.Messages, 20)
		assert.Equal(t, int64(25), first.Total)
		require.NotNil(t, first.NextCursor)

		cursor, err := pagination.Decode(*first.NextCursor)
		require.NoError(t, err)

		second, err := svc.ListPage(mailbox.ID, &cursor, 20, domain.ViewReceived)
		require.NoError(t, err)
		assert.Len(t, second.Messages, 5)
		assert.Equal(t, int64(25), second.Total)
		assert.Nil(t, second.NextCursor)

		// 两页拼起来恰好是全部邮件，无重复
		seen := make(map[string]struct{})
		for _, m := range append(first.Messages, second.Messages...) {
			_, dup := seen[m.ID]
			assert.False(t, dup)
			seen[m.ID] = struct{}{}
		}
		assert.Len(t, seen, 25)
	})

	t.Run("刚好整页时最后一页游标为空", func(t *testing.T) {
		_, svc, mailbox := newMessageFixture(t)
		seedPage(t, svc, mailbox.ID, 20)

		page, err := svc.ListPage(mailbox.ID, nil, 20, domain.ViewReceived)
		require.NoError(t, err)
		assert.Len(t, page.Messages, 20)
		assert.Nil(t, page.NextCursor)
	})

	t.Run("空邮箱", func(t *testing.T) {
		_, svc, mailbox := newMessageFixture(t)

		page, err := svc.ListPage(mailbox.ID, nil, 20, domain.ViewReceived)
		require.NoError(t, err)
		assert.Empty(t, page.Messages)
		assert.Equal(t, int64(0), page.Total)
		assert.Nil(t, page.NextCursor)
	})

	t.Run("页大小为零非法", func(t *testing.T) {
		_, err := svc.ListPage(mailbox.ID, nil, 0, domain.ViewReceived)
		assert.ErrorIs(t, err, ErrInvalidPageSize)
	})

	t.Run("页大小越界", func(t *testing.T) {
		_, err := svc.ListPage(mailbox.ID, nil, -3, domain.ViewReceived)
		assert.ErrorIs(t, err, ErrInvalidPageSize)

		_, err = svc.ListPage(mailbox.ID, nil, MaxPageSize+1, domain.ViewReceived)
		assert.ErrorIs(t, err, ErrInvalidPageSize)
	})

	t.Run("翻页过程中新到的邮件不挤乱旧页", func(t *testing.T) {
		_, svc, mailbox := newMessageFixture(t)
		seedPage(t, svc, mailbox.ID, 10)

		first, err := svc.ListPage(mailbox.ID, nil, 5, domain.ViewReceived)
		require.NoError(t, err)
		require.NotNil(t, first.NextCursor)

		// 翻页间隙有新邮件到达（时间戳比已有的都新）
		_, err = svc.Create(CreateMessageInput{
			MailboxID:  mailbox.ID,
			From:       "late@example.com",
			ReceivedAt: 1_800_000_000_000,
		})
		require.NoError(t, err)

		cursor, err := pagination.Decode(*first.NextCursor)
		require.NoError(t, err)
		second, err := svc.ListPage(mailbox.ID, &cursor, 5, domain.ViewReceived)
		require.NoError(t, err)

		// 第二页不包含新邮件，也不与第一页重叠
		for _, m := range second.Messages {
			assert.NotEqual(t, "late@example.com", m.From)
			for _, f := range first.Messages {
				assert.NotEqual(t, f.ID, m.ID)
			}
		}
		// 但总数反映新邮件
		assert.Equal(t, int64(11), second.Total)
	})
}

func TestMessageService_ViewTotals(t *testing.T) {
	_, svc, mailbox := newMessageFixture(t)

	base := int64(1_700_000_000_000)
	types := []string{"", domain.MessageTypeReceived, domain.MessageTypeSent, domain.MessageTypeSent, domain.MessageTypeReceived}
	for i, typ := range types {
		input := CreateMessageInput{MailboxID: mailbox.ID, ReceivedAt: base + int64(i), Type: typ}
		_, err := svc.Create(input)
		require.NoError(t, err)
	}

	t.Run("received视图总数排除已发送", func(t *testing.T) {
		page, err := svc.ListPage(mailbox.ID, nil, 20, domain.ViewReceived)
		require.NoError(t, err)
		assert.Equal(t, int64(3), page.Total)
		assert.Len(t, page.Messages, 3)
	})

	t.Run("sent视图只统计已发送", func(t *testing.T) {
		page, err := svc.ListPage(mailbox.ID, nil, 20, domain.ViewSent)
		require.NoError(t, err)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("all视图统计全部", func(t *testing.T) {
		page, err := svc.ListPage(mailbox.ID, nil, 20, domain.ViewAll)
		require.NoError(t, err)
		assert.Equal(t, int64(5), page.Total)
	})
}

type recordingNotifier struct {
	mailboxIDs []string
}

func (n *recordingNotifier) NotifyNewMessage(mailboxID string, _ *domain.Message) {
	n.mailboxIDs = append(n.mailboxIDs, mailboxID)
}

func TestMessageService_CreateNotifies(t *testing.T) {
	_, svc, mailbox := newMessageFixture(t)
	notifier := &recordingNotifier{}
	svc.SetNotifier(notifier)

	_, err := svc.Create(CreateMessageInput{MailboxID: mailbox.ID, From: "a@b.c"})
	require.NoError(t, err)
	assert.Equal(t, []string{mailbox.ID}, notifier.mailboxIDs)

	// 发件记录不触发新邮件通知
	_, err = svc.Create(CreateMessageInput{MailboxID: mailbox.ID, Type: domain.MessageTypeSent})
	require.NoError(t, err)
	assert.Len(t, notifier.mailboxIDs, 1)
}
