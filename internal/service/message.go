package service

import (
	"errors"

	"github.com/google/uuid"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/pagination"
	"poofmail/backend/internal/storage"
)

// ErrInvalidPageSize 分页大小超出 [1, MaxPageSize] 范围。
var ErrInvalidPageSize = errors.New("invalid page size")

// 分页大小限制。
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Notifier 新邮件到达时的实时通知回调（由 WebSocket Hub 实现）。
type Notifier interface {
	NotifyNewMessage(mailboxID string, message *domain.Message)
}

// MessageService 封装邮件处理逻辑。
type MessageService struct {
	repo     storage.MessageRepository
	notifier Notifier // 可选
}

// NewMessageService 创建邮件业务服务。
func NewMessageService(repo storage.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

// SetNotifier 设置实时通知回调。
func (s *MessageService) SetNotifier(notifier Notifier) {
	s.notifier = notifier
}

// CreateMessageInput 定义创建邮件的输入。
type CreateMessageInput struct {
	MailboxID   string
	From        string
	To          string
	Subject     string
	Type        string // "received" 或 "sent"，留空按收件处理
	Text        string
	HTML        string
	Raw         string
	IsRead      bool
	ReceivedAt  int64 // 毫秒时间戳，0 表示使用当前时间
	Attachments []*domain.Attachment
}

// Create 新建一封邮件并触发实时通知。
func (s *MessageService) Create(input CreateMessageInput) (*domain.Message, error) {
	now := domain.NowMillis()
	if input.ReceivedAt == 0 {
		input.ReceivedAt = now
	}
	if input.Type == "" {
		input.Type = domain.MessageTypeReceived
	}

	message := &domain.Message{
		ID:          uuid.NewString(),
		MailboxID:   input.MailboxID,
		From:        input.From,
		To:          input.To,
		Subject:     input.Subject,
		Type:        input.Type,
		IsRead:      input.IsRead,
		CreatedAt:   now,
		ReceivedAt:  input.ReceivedAt,
		Text:        input.Text,
		HTML:        input.HTML,
		Raw:         input.Raw,
		Attachments: input.Attachments,
	}
	for _, att := range message.Attachments {
		att.MessageID = message.ID
	}

	if err := s.repo.SaveMessage(message); err != nil {
		return nil, err
	}

	if s.notifier != nil && message.Type != domain.MessageTypeSent {
		s.notifier.NotifyNewMessage(message.MailboxID, message)
	}

	return message, nil
}

// MessagePage 一页邮件列表。
// NextCursor 为 nil 表示没有更多数据；Total 是视图内的总数，每次请求重新计算。
type MessagePage struct {
	Messages   []domain.Message `json:"messages"`
	NextCursor *string          `json:"nextCursor"`
	Total      int64            `json:"total"`
}

// ListPage 按键集游标返回一页邮件。
// 多取一行来判断是否还有下一页，避免单独的存在性查询。
func (s *MessageService) ListPage(mailboxID string, cursor *pagination.Cursor, pageSize int, view domain.MessageView) (*MessagePage, error) {
	if pageSize < 1 || pageSize > MaxPageSize {
		return nil, ErrInvalidPageSize
	}
	if !view.Valid() {
		view = domain.ViewReceived
	}

	rows, err := s.repo.ListMessagesKeyset(mailboxID, cursor, pageSize+1, view)
	if err != nil {
		return nil, err
	}

	page := &MessagePage{Messages: rows}
	if len(rows) > pageSize {
		page.Messages = rows[:pageSize]
		last := page.Messages[pageSize-1]
		next := pagination.Cursor{ReceivedAt: last.ReceivedAt, ID: last.ID}.Encode()
		page.NextCursor = &next
	}

	total, err := s.repo.CountMessages(mailboxID, view)
	if err != nil {
		return nil, err
	}
	page.Total = total

	return page, nil
}

// Get 获取单封邮件详情。
func (s *MessageService) Get(mailboxID, messageID string) (*domain.Message, error) {
	return s.repo.GetMessage(mailboxID, messageID)
}

// MarkRead 将邮件标记为已读。
func (s *MessageService) MarkRead(mailboxID, messageID string) error {
	return s.repo.MarkMessageRead(mailboxID, messageID)
}

// Delete 删除单封邮件。
func (s *MessageService) Delete(mailboxID, messageID string) error {
	return s.repo.DeleteMessage(mailboxID, messageID)
}

// DeleteAll 清空邮箱内的全部邮件，返回删除数量。
func (s *MessageService) DeleteAll(mailboxID string) (int, error) {
	return s.repo.DeleteAllMessages(mailboxID)
}
