package memory

import (
	"sort"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/storage"
)

// SaveMailboxShare 保存邮箱分享链接。令牌冲突返回 storage.ErrTokenConflict。
func (s *Store) SaveMailboxShare(share *domain.MailboxShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[share.MailboxID]; !ok {
		return storage.ErrMailboxNotFound
	}
	if existing, ok := s.mailboxShareTok[share.Token]; ok && existing != share.ID {
		return storage.ErrTokenConflict
	}

	s.mailboxShares[share.ID] = share
	s.mailboxShareTok[share.Token] = share.ID
	return nil
}

// GetMailboxShareByToken 根据令牌获取邮箱分享链接。
func (s *Store) GetMailboxShareByToken(token string) (*domain.MailboxShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.mailboxShareTok[token]
	if !ok {
		return nil, storage.ErrShareNotFound
	}
	return s.mailboxShares[id], nil
}

// GetMailboxShare 获取指定邮箱下的分享链接。
func (s *Store) GetMailboxShare(mailboxID, shareID string) (*domain.MailboxShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	share, ok := s.mailboxShares[shareID]
	if !ok || share.MailboxID != mailboxID {
		return nil, storage.ErrShareNotFound
	}
	return share, nil
}

// ListMailboxShares 返回指定邮箱的全部分享链接，按创建时间倒序。
func (s *Store) ListMailboxShares(mailboxID string) ([]domain.MailboxShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.MailboxShare, 0)
	for _, share := range s.mailboxShares {
		if share.MailboxID == mailboxID {
			result = append(result, *share)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// DeleteMailboxShare 撤销指定邮箱下的分享链接。
func (s *Store) DeleteMailboxShare(mailboxID, shareID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	share, ok := s.mailboxShares[shareID]
	if !ok || share.MailboxID != mailboxID {
		return storage.ErrShareNotFound
	}
	delete(s.mailboxShareTok, share.Token)
	delete(s.mailboxShares, shareID)
	return nil
}

// SaveMessageShare 保存邮件分享链接。令牌冲突返回 storage.ErrTokenConflict。
func (s *Store) SaveMessageShare(share *domain.MessageShare) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[share.MailboxID][share.MessageID]; !ok {
		return storage.ErrMessageNotFound
	}
	if existing, ok := s.messageShareTok[share.Token]; ok && existing != share.ID {
		return storage.ErrTokenConflict
	}

	s.messageShares[share.ID] = share
	s.messageShareTok[share.Token] = share.ID
	return nil
}

// GetMessageShareByToken 根据令牌获取邮件分享链接。
func (s *Store) GetMessageShareByToken(token string) (*domain.MessageShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.messageShareTok[token]
	if !ok {
		return nil, storage.ErrShareNotFound
	}
	return s.messageShares[id], nil
}

// GetMessageShare 获取指定邮箱下的邮件分享链接。
func (s *Store) GetMessageShare(mailboxID, shareID string) (*domain.MessageShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	share, ok := s.messageShares[shareID]
	if !ok || share.MailboxID != mailboxID {
		return nil, storage.ErrShareNotFound
	}
	return share, nil
}

// ListMessageShares 返回指定邮箱的全部邮件分享链接，按创建时间倒序。
func (s *Store) ListMessageShares(mailboxID string) ([]domain.MessageShare, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.MessageShare, 0)
	for _, share := range s.messageShares {
		if share.MailboxID == mailboxID {
			result = append(result, *share)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt != result[j].CreatedAt {
			return result[i].CreatedAt > result[j].CreatedAt
		}
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// DeleteMessageShare 撤销指定邮箱下的邮件分享链接。
func (s *Store) DeleteMessageShare(mailboxID, shareID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	share, ok := s.messageShares[shareID]
	if !ok || share.MailboxID != mailboxID {
		return storage.ErrShareNotFound
	}
	delete(s.messageShareTok, share.Token)
	delete(s.messageShares, shareID)
	return nil
}
