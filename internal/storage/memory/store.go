package memory

import (
	"sort"
	"sync"
	"time"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/pagination"
	"poofmail/backend/internal/storage"
)

// Store 使用内存保存邮箱、邮件与分享数据，主要用于开发与测试。
// 查询返回原始记录（包括已过期的邮箱与分享），过期判定由服务层负责。
type Store struct {
	mu            sync.RWMutex
	mailboxes     map[string]*domain.Mailbox
	byAddress     map[string]string
	byAccessToken map[string]string
	messages      map[string]map[string]*domain.Message // mailboxID -> messageID -> message

	// 分享存储
	mailboxShares    map[string]*domain.MailboxShare // shareID -> share
	mailboxShareTok  map[string]string               // token -> shareID
	messageShares    map[string]*domain.MessageShare // shareID -> share
	messageShareTok  map[string]string               // token -> shareID

	// 速率限制相关
	rateLimits map[string]*rateLimitEntry
}

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		mailboxes:       make(map[string]*domain.Mailbox),
		byAddress:       make(map[string]string),
		byAccessToken:   make(map[string]string),
		messages:        make(map[string]map[string]*domain.Message),
		mailboxShares:   make(map[string]*domain.MailboxShare),
		mailboxShareTok: make(map[string]string),
		messageShares:   make(map[string]*domain.MessageShare),
		messageShareTok: make(map[string]string),
		rateLimits:      make(map[string]*rateLimitEntry),
	}
}

// SaveMailbox 保存邮箱信息。
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byAddress[mailbox.Address]; ok && existing != mailbox.ID {
		return storage.ErrMailboxExists
	}

	s.mailboxes[mailbox.ID] = mailbox
	s.byAddress[mailbox.Address] = mailbox.ID
	s.byAccessToken[mailbox.AccessToken] = mailbox.ID
	return nil
}

// GetMailbox 根据 ID 获取邮箱。
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	mailbox, ok := s.mailboxes[id]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	return mailbox, nil
}

// GetMailboxByAddress 根据完整地址获取邮箱。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAddress[address]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	return s.mailboxes[id], nil
}

// GetMailboxByAccessToken 根据访问令牌获取邮箱。
func (s *Store) GetMailboxByAccessToken(token string) (*domain.Mailbox, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byAccessToken[token]
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	return s.mailboxes[id], nil
}

// ListMailboxes 返回全部邮箱的快照。
func (s *Store) ListMailboxes() []domain.Mailbox {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Mailbox, 0, len(s.mailboxes))
	for _, mb := range s.mailboxes {
		result = append(result, *mb)
	}
	return result
}

// DeleteMailbox 删除指定邮箱，级联删除其邮件与分享。
func (s *Store) DeleteMailbox(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[id]; !ok {
		return storage.ErrMailboxNotFound
	}
	s.deleteMailboxLocked(id)
	return nil
}

// DeleteExpiredMailboxes 删除过期时间早于 before 的所有邮箱，返回删除数量。
func (s *Store) DeleteExpiredMailboxes(before int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for id, mb := range s.mailboxes {
		if mb.ExpiresAt < before {
			s.deleteMailboxLocked(id)
			count++
		}
	}
	return count, nil
}

func (s *Store) deleteMailboxLocked(id string) {
	if mb, ok := s.mailboxes[id]; ok {
		delete(s.byAddress, mb.Address)
		delete(s.byAccessToken, mb.AccessToken)
	}
	delete(s.mailboxes, id)
	delete(s.messages, id)

	for shareID, share := range s.mailboxShares {
		if share.MailboxID == id {
			delete(s.mailboxShareTok, share.Token)
			delete(s.mailboxShares, shareID)
		}
	}
	for shareID, share := range s.messageShares {
		if share.MailboxID == id {
			delete(s.messageShareTok, share.Token)
			delete(s.messageShares, shareID)
		}
	}
}

// SaveMessage 保存邮件信息。
func (s *Store) SaveMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[message.MailboxID]; !ok {
		return storage.ErrMailboxNotFound
	}

	if _, ok := s.messages[message.MailboxID]; !ok {
		s.messages[message.MailboxID] = make(map[string]*domain.Message)
	}
	s.messages[message.MailboxID][message.ID] = message
	return nil
}

// GetMessage 获取单封邮件。
func (s *Store) GetMessage(mailboxID, messageID string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msg, ok := s.messages[mailboxID][messageID]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	return msg, nil
}

// ListMessagesKeyset 按 (receivedAt DESC, id DESC) 返回视图内最多 limit 封邮件。
func (s *Store) ListMessagesKeyset(mailboxID string, cursor *pagination.Cursor, limit int, view domain.MessageView) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.mailboxes[mailboxID]; !ok {
		return nil, storage.ErrMailboxNotFound
	}

	result := make([]domain.Message, 0)
	for _, msg := range s.messages[mailboxID] {
		if !view.Matches(msg) {
			continue
		}
		if cursor != nil && !cursor.After(msg.ReceivedAt, msg.ID) {
			continue
		}
		result = append(result, *msg)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].ReceivedAt != result[j].ReceivedAt {
			return result[i].ReceivedAt > result[j].ReceivedAt
		}
		return result[i].ID > result[j].ID
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// CountMessages 返回视图内的邮件总数。
func (s *Store) CountMessages(mailboxID string, view domain.MessageView) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.mailboxes[mailboxID]; !ok {
		return 0, storage.ErrMailboxNotFound
	}

	var count int64
	for _, msg := range s.messages[mailboxID] {
		if view.Matches(msg) {
			count++
		}
	}
	return count, nil
}

// MarkMessageRead 将邮件标记为已读。
func (s *Store) MarkMessageRead(mailboxID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg, ok := s.messages[mailboxID][messageID]
	if !ok {
		return storage.ErrMessageNotFound
	}
	msg.IsRead = true
	return nil
}

// DeleteMessage 删除指定邮件，级联删除其分享链接。
func (s *Store) DeleteMessage(mailboxID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[mailboxID][messageID]; !ok {
		return storage.ErrMessageNotFound
	}
	delete(s.messages[mailboxID], messageID)

	for shareID, share := range s.messageShares {
		if share.MessageID == messageID {
			delete(s.messageShareTok, share.Token)
			delete(s.messageShares, shareID)
		}
	}
	return nil
}

// DeleteAllMessages 删除邮箱下的全部邮件，返回删除数量。
func (s *Store) DeleteAllMessages(mailboxID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.mailboxes[mailboxID]; !ok {
		return 0, storage.ErrMailboxNotFound
	}

	count := len(s.messages[mailboxID])
	delete(s.messages, mailboxID)

	for shareID, share := range s.messageShares {
		if share.MailboxID == mailboxID {
			delete(s.messageShareTok, share.Token)
			delete(s.messageShares, shareID)
		}
	}
	return count, nil
}

// Close 关闭存储（内存实现为空操作）。
func (s *Store) Close() error {
	return nil
}

// Health 检查存储健康状态。
func (s *Store) Health() error {
	return nil
}
