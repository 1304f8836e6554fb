// Package hybrid 组合 SQL 持久存储与 Redis 缓存。
// SQL 是唯一的事实来源；Redis 缓存热点查询（邮箱、分享令牌）并承担速率限制。
package hybrid

import (
	"fmt"
	"time"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/pagination"
	"poofmail/backend/internal/storage/redis"
	sqlstore "poofmail/backend/internal/storage/sql"
)

// 缓存 TTL。分享令牌缓存要短：撤销必须尽快生效，即便失效调用丢失。
const (
	mailboxCacheTTL = 10 * time.Minute
	shareCacheTTL   = 30 * time.Second
)

// Store 混合存储实现。
type Store struct {
	sql   *sqlstore.Store
	cache *redis.Cache
}

// NewStore 创建混合存储实例。
func NewStore(
	driverName, dsn string,
	maxOpenConns, maxIdleConns int,
	connMaxLifetime time.Duration,
	redisAddr, redisPassword string,
	redisDB int,
) (*Store, error) {
	db, err := sqlstore.NewStore(driverName, dsn, maxOpenConns, maxIdleConns, connMaxLifetime)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	cache, err := redis.NewCache(redisAddr, redisPassword, redisDB)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{sql: db, cache: cache}, nil
}

// ========== MailboxRepository ==========

// SaveMailbox 保存邮箱并写入缓存。
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	if err := s.sql.SaveMailbox(mailbox); err != nil {
		return err
	}
	s.cache.CacheMailbox(mailbox, mailboxCacheTTL)
	return nil
}

// GetMailbox 根据 ID 获取邮箱，优先读缓存。
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	if mailbox, err := s.cache.GetCachedMailbox(id); err == nil {
		return mailbox, nil
	}

	mailbox, err := s.sql.GetMailbox(id)
	if err != nil {
		return nil, err
	}
	s.cache.CacheMailbox(mailbox, mailboxCacheTTL)
	return mailbox, nil
}

// GetMailboxByAddress 根据完整地址获取邮箱（不缓存）。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	return s.sql.GetMailboxByAddress(address)
}

// GetMailboxByAccessToken 根据访问令牌获取邮箱（不缓存）。
func (s *Store) GetMailboxByAccessToken(token string) (*domain.Mailbox, error) {
	return s.sql.GetMailboxByAccessToken(token)
}

// ListMailboxes 返回全部邮箱。
func (s *Store) ListMailboxes() []domain.Mailbox {
	return s.sql.ListMailboxes()
}

// DeleteMailbox 删除邮箱并失效相关缓存。
func (s *Store) DeleteMailbox(id string) error {
	shares, _ := s.sql.ListMailboxShares(id)
	msgShares, _ := s.sql.ListMessageShares(id)

	if err := s.sql.DeleteMailbox(id); err != nil {
		return err
	}

	s.cache.DeleteCachedMailbox(id)
	for _, share := range shares {
		s.cache.DeleteCachedMailboxShare(share.Token)
	}
	for _, share := range msgShares {
		s.cache.DeleteCachedMessageShare(share.Token)
	}
	return nil
}

// DeleteExpiredMailboxes 删除过期邮箱。
// 缓存不逐条失效：分享令牌缓存 TTL 很短，且服务层仍会按记录判定过期。
func (s *Store) DeleteExpiredMailboxes(before int64) (int, error) {
	return s.sql.DeleteExpiredMailboxes(before)
}

// ========== MessageRepository ==========

func (s *Store) SaveMessage(message *domain.Message) error {
	return s.sql.SaveMessage(message)
}

func (s *Store) GetMessage(mailboxID, messageID string) (*domain.Message, error) {
	return s.sql.GetMessage(mailboxID, messageID)
}

func (s *Store) ListMessagesKeyset(mailboxID string, cursor *pagination.Cursor, limit int, view domain.MessageView) ([]domain.Message, error) {
	return s.sql.ListMessagesKeyset(mailboxID, cursor, limit, view)
}

func (s *Store) CountMessages(mailboxID string, view domain.MessageView) (int64, error) {
	return s.sql.CountMessages(mailboxID, view)
}

func (s *Store) MarkMessageRead(mailboxID, messageID string) error {
	return s.sql.MarkMessageRead(mailboxID, messageID)
}

func (s *Store) DeleteMessage(mailboxID, messageID string) error {
	return s.sql.DeleteMessage(mailboxID, messageID)
}

func (s *Store) DeleteAllMessages(mailboxID string) (int, error) {
	return s.sql.DeleteAllMessages(mailboxID)
}

// ========== ShareRepository ==========

// SaveMailboxShare 保存邮箱分享链接。
func (s *Store) SaveMailboxShare(share *domain.MailboxShare) error {
	return s.sql.SaveMailboxShare(share)
}

// GetMailboxShareByToken 按令牌查询，优先读缓存。
func (s *Store) GetMailboxShareByToken(token string) (*domain.MailboxShare, error) {
	if share, err := s.cache.GetCachedMailboxShare(token); err == nil {
		return share, nil
	}

	share, err := s.sql.GetMailboxShareByToken(token)
	if err != nil {
		return nil, err
	}
	s.cache.CacheMailboxShare(share, shareCacheTTL)
	return share, nil
}

func (s *Store) GetMailboxShare(mailboxID, shareID string) (*domain.MailboxShare, error) {
	return s.sql.GetMailboxShare(mailboxID, shareID)
}

func (s *Store) ListMailboxShares(mailboxID string) ([]domain.MailboxShare, error) {
	return s.sql.ListMailboxShares(mailboxID)
}

// DeleteMailboxShare 撤销分享并立即失效令牌缓存。
func (s *Store) DeleteMailboxShare(mailboxID, shareID string) error {
	share, err := s.sql.GetMailboxShare(mailboxID, shareID)
	if err != nil {
		return err
	}
	if err := s.sql.DeleteMailboxShare(mailboxID, shareID); err != nil {
		return err
	}
	s.cache.DeleteCachedMailboxShare(share.Token)
	return nil
}

// SaveMessageShare 保存邮件分享链接。
func (s *Store) SaveMessageShare(share *domain.MessageShare) error {
	return s.sql.SaveMessageShare(share)
}

// GetMessageShareByToken 按令牌查询，优先读缓存。
func (s *Store) GetMessageShareByToken(token string) (*domain.MessageShare, error) {
	if share, err := s.cache.GetCachedMessageShare(token); err == nil {
		return share, nil
	}

	share, err := s.sql.GetMessageShareByToken(token)
	if err != nil {
		return nil, err
	}
	s.cache.CacheMessageShare(share, shareCacheTTL)
	return share, nil
}

func (s *Store) GetMessageShare(mailboxID, shareID string) (*domain.MessageShare, error) {
	return s.sql.GetMessageShare(mailboxID, shareID)
}

func (s *Store) ListMessageShares(mailboxID string) ([]domain.MessageShare, error) {
	return s.sql.ListMessageShares(mailboxID)
}

// DeleteMessageShare 撤销分享并立即失效令牌缓存。
func (s *Store) DeleteMessageShare(mailboxID, shareID string) error {
	share, err := s.sql.GetMessageShare(mailboxID, shareID)
	if err != nil {
		return err
	}
	if err := s.sql.DeleteMessageShare(mailboxID, shareID); err != nil {
		return err
	}
	s.cache.DeleteCachedMessageShare(share.Token)
	return nil
}

// ========== RateLimitRepository ==========

// IncrementRateLimit 速率限制走 Redis，多实例共享计数。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	return s.cache.IncrementRateLimit(key, window)
}

func (s *Store) GetRateLimit(key string) (int64, error) {
	return s.cache.GetRateLimit(key)
}

// ========== 工具方法 ==========

// Migrate 执行底层数据库的表结构迁移。
func (s *Store) Migrate() error {
	return s.sql.Migrate()
}

// Close 关闭数据库与 Redis 连接。
func (s *Store) Close() error {
	cacheErr := s.cache.Close()
	if err := s.sql.Close(); err != nil {
		return err
	}
	return cacheErr
}

// Health 检查数据库健康状态。
func (s *Store) Health() error {
	return s.sql.Health()
}
