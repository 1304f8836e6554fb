package sql

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/storage"
)

// SaveMailboxShare 保存邮箱分享链接。
// token 列带唯一索引，冲突时返回 storage.ErrTokenConflict 供上层重试。
func (s *Store) SaveMailboxShare(share *domain.MailboxShare) error {
	err := s.gormDB.Create(share).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrTokenConflict
	}
	return err
}

// GetMailboxShareByToken 根据令牌获取邮箱分享链接。
func (s *Store) GetMailboxShareByToken(token string) (*domain.MailboxShare, error) {
	var share domain.MailboxShare
	err := s.gormDB.First(&share, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// GetMailboxShare 获取指定邮箱下的分享链接。
func (s *Store) GetMailboxShare(mailboxID, shareID string) (*domain.MailboxShare, error) {
	var share domain.MailboxShare
	err := s.gormDB.First(&share, "mailbox_id = ? AND id = ?", mailboxID, shareID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// ListMailboxShares 返回指定邮箱的全部分享链接。
func (s *Store) ListMailboxShares(mailboxID string) ([]domain.MailboxShare, error) {
	var shares []domain.MailboxShare
	err := s.gormDB.
		Where("mailbox_id = ?", mailboxID).
		Order("created_at DESC, id DESC").
		Find(&shares).Error
	return shares, err
}

// DeleteMailboxShare 撤销指定邮箱下的分享链接。
func (s *Store) DeleteMailboxShare(mailboxID, shareID string) error {
	result := s.gormDB.Delete(&domain.MailboxShare{}, "mailbox_id = ? AND id = ?", mailboxID, shareID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrShareNotFound
	}
	return nil
}

// SaveMessageShare 保存邮件分享链接。
func (s *Store) SaveMessageShare(share *domain.MessageShare) error {
	err := s.gormDB.Create(share).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrTokenConflict
	}
	return err
}

// GetMessageShareByToken 根据令牌获取邮件分享链接。
func (s *Store) GetMessageShareByToken(token string) (*domain.MessageShare, error) {
	var share domain.MessageShare
	err := s.gormDB.First(&share, "token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// GetMessageShare 获取指定邮箱下的邮件分享链接。
func (s *Store) GetMessageShare(mailboxID, shareID string) (*domain.MessageShare, error) {
	var share domain.MessageShare
	err := s.gormDB.First(&share, "mailbox_id = ? AND id = ?", mailboxID, shareID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrShareNotFound
	}
	if err != nil {
		return nil, err
	}
	return &share, nil
}

// ListMessageShares 返回指定邮箱的全部邮件分享链接。
func (s *Store) ListMessageShares(mailboxID string) ([]domain.MessageShare, error) {
	var shares []domain.MessageShare
	err := s.gormDB.
		Where("mailbox_id = ?", mailboxID).
		Order("created_at DESC, id DESC").
		Find(&shares).Error
	return shares, err
}

// DeleteMessageShare 撤销指定邮箱下的邮件分享链接。
func (s *Store) DeleteMessageShare(mailboxID, shareID string) error {
	result := s.gormDB.Delete(&domain.MessageShare{}, "mailbox_id = ? AND id = ?", mailboxID, shareID)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return storage.ErrShareNotFound
	}
	return nil
}

// IncrementRateLimit 在给定窗口内递增计数器并返回当前值。
// 速率限制状态只存在于进程内，不写入数据库。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	s.rlMu.Lock()
	defer s.rlMu.Unlock()

	now := time.Now()
	entry, ok := s.rateLimits[key]
	if !ok || now.After(entry.ExpiresAt) {
		entry = &rateLimitEntry{ExpiresAt: now.Add(window)}
		s.rateLimits[key] = entry
	}
	entry.Count++
	return entry.Count, nil
}

// GetRateLimit 返回当前窗口内的计数值。
func (s *Store) GetRateLimit(key string) (int64, error) {
	s.rlMu.Lock()
	defer s.rlMu.Unlock()

	entry, ok := s.rateLimits[key]
	if !ok || time.Now().After(entry.ExpiresAt) {
		return 0, nil
	}
	return entry.Count, nil
}
