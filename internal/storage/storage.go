package storage

import (
	"errors"
	"time"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/pagination"
)

var (
	// ErrMailboxNotFound 邮箱未找到错误
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrMessageNotFound 邮件未找到错误
	ErrMessageNotFound = errors.New("message not found")
	// ErrShareNotFound 分享链接未找到错误
	ErrShareNotFound = errors.New("share not found")
	// ErrMailboxExists 邮箱地址已存在错误
	ErrMailboxExists = errors.New("mailbox address already exists")
	// ErrTokenConflict 分享令牌与已有记录冲突（唯一约束命中）
	ErrTokenConflict = errors.New("share token already exists")
)

// MailboxRepository 定义邮箱数据存取操作。
// 查询一律返回原始记录（包括已过期的邮箱），过期判定在服务层统一进行，
// 这样上层才能区分"不存在"与"已过期"。
type MailboxRepository interface {
	SaveMailbox(mailbox *domain.Mailbox) error
	GetMailbox(id string) (*domain.Mailbox, error)
	GetMailboxByAddress(address string) (*domain.Mailbox, error)
	GetMailboxByAccessToken(token string) (*domain.Mailbox, error)
	ListMailboxes() []domain.Mailbox
	DeleteMailbox(id string) error
	DeleteExpiredMailboxes(before int64) (int, error) // 删除过期邮箱，返回删除数量
}

// MessageRepository 定义邮件数据存取操作。
type MessageRepository interface {
	SaveMessage(message *domain.Message) error
	GetMessage(mailboxID, messageID string) (*domain.Message, error)
	// ListMessagesKeyset 按 (receivedAt DESC, id DESC) 返回视图内最多 limit 封邮件；
	// cursor 非 nil 时只返回排在游标之后的行。
	ListMessagesKeyset(mailboxID string, cursor *pagination.Cursor, limit int, view domain.MessageView) ([]domain.Message, error)
	// CountMessages 返回视图内的邮件总数（不受游标影响）。
	CountMessages(mailboxID string, view domain.MessageView) (int64, error)
	MarkMessageRead(mailboxID, messageID string) error
	DeleteMessage(mailboxID, messageID string) error
	DeleteAllMessages(mailboxID string) (int, error) // 删除邮箱所有邮件，返回删除数量
}

// ShareRepository 定义分享链接数据存取操作。
// 按 token 的查询是公开访问路径，按 (mailboxID, shareID) 的查询是所有者管理路径。
type ShareRepository interface {
	SaveMailboxShare(share *domain.MailboxShare) error
	GetMailboxShareByToken(token string) (*domain.MailboxShare, error)
	GetMailboxShare(mailboxID, shareID string) (*domain.MailboxShare, error)
	ListMailboxShares(mailboxID string) ([]domain.MailboxShare, error)
	DeleteMailboxShare(mailboxID, shareID string) error

	SaveMessageShare(share *domain.MessageShare) error
	GetMessageShareByToken(token string) (*domain.MessageShare, error)
	GetMessageShare(mailboxID, shareID string) (*domain.MessageShare, error)
	ListMessageShares(mailboxID string) ([]domain.MessageShare, error)
	DeleteMessageShare(mailboxID, shareID string) error
}

// RateLimitRepository 定义限流操作。
type RateLimitRepository interface {
	IncrementRateLimit(key string, window time.Duration) (int64, error)
	GetRateLimit(key string) (int64, error)
}

// Store 定义完整的存储接口。
type Store interface {
	MailboxRepository
	MessageRepository
	ShareRepository
	RateLimitRepository

	// 工具方法
	Close() error
	Health() error
}
