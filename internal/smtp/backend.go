package smtp

import (
	"errors"
	"fmt"
	"io"
	"strings"

	gosmtp "github.com/emersion/go-smtp"
	"go.uber.org/zap"

	"poofmail/backend/internal/service"
	"poofmail/backend/internal/storage"
)

// Backend 实现 go-smtp 的 Backend 接口。
//
// 这是一个只收不发的 SMTP 服务器：
// 只接受发往本系统管理域名下存活邮箱的邮件，
// 其余收件人一律 550 拒绝，不做任何中继。
type Backend struct {
	mailboxes *service.MailboxService
	messages  *service.MessageService
	log       *zap.Logger
}

// NewBackend 创建 SMTP Backend。
func NewBackend(mailboxes *service.MailboxService, messages *service.MessageService, log *zap.Logger) *Backend {
	if log == nil {
		log = zap.NewNop()
	}
	return &Backend{
		mailboxes: mailboxes,
		messages:  messages,
		log:       log,
	}
}

// NewSession 创建新的 SMTP 会话。
func (b *Backend) NewSession(c *gosmtp.Conn) (gosmtp.Session, error) {
	return &session{backend: b}, nil
}

type session struct {
	backend     *Backend
	fromAddress string
	recipients  []recipient
}

type recipient struct {
	address   string
	mailboxID string
}

// Mail 处理 MAIL 命令。
func (s *session) Mail(from string, opts *gosmtp.MailOptions) error {
	s.fromAddress = from
	return nil
}

// Rcpt 处理 RCPT 命令。
// 收件人必须是本系统管理域名下的存活邮箱；过期邮箱和外部地址都拒收。
func (s *session) Rcpt(to string, _ *gosmtp.RcptOptions) error {
	addr := normalizeAddress(to)

	parts := strings.Split(addr, "@")
	if len(parts) != 2 {
		return &gosmtp.SMTPError{
			Code:         501,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 3},
			Message:      "invalid recipient address",
		}
	}

	if !s.domainManaged(parts[1]) {
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 7, 1},
			Message:      "relay access denied - domain not managed by this server",
		}
	}

	mb, err := s.backend.mailboxes.GetByAddress(addr)
	switch {
	case errors.Is(err, service.ErrMailboxExpired):
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "recipient mailbox expired",
		}
	case errors.Is(err, storage.ErrMailboxNotFound):
		return &gosmtp.SMTPError{
			Code:         550,
			EnhancedCode: gosmtp.EnhancedCode{5, 1, 1},
			Message:      "recipient mailbox not found",
		}
	case err != nil:
		return &gosmtp.SMTPError{
			Code:         451,
			EnhancedCode: gosmtp.EnhancedCode{4, 3, 0},
			Message:      "temporary lookup failure",
		}
	}

	s.recipients = append(s.recipients, recipient{
		address:   addr,
		mailboxID: mb.ID,
	})
	return nil
}

func (s *session) domainManaged(recipientDomain string) bool {
	for _, d := range s.backend.mailboxes.AllowedDomains() {
		if strings.EqualFold(d, recipientDomain) {
			return true
		}
	}
	return false
}

// Data 处理邮件内容：解析 MIME 并为每个收件人落库。
// 实时通知由 MessageService 的 notifier 负责，这里不直接接触 WebSocket。
func (s *session) Data(r io.Reader) error {
	rawBytes, err := io.ReadAll(r)
	if err != nil {
		return err
	}

	parsed, err := ParseEmail(rawBytes)
	if err != nil {
		return fmt.Errorf("parse email: %w", err)
	}

	for _, rcpt := range s.recipients {
		input := service.CreateMessageInput{
			MailboxID:   rcpt.mailboxID,
			From:        s.fromAddress,
			To:          rcpt.address,
			Subject:     parsed.Subject,
			Text:        parsed.Text,
			HTML:        parsed.HTML,
			Raw:         string(rawBytes),
			Attachments: parsed.Attachments,
		}

		if _, err := s.backend.messages.Create(input); err != nil {
			s.backend.log.Error("failed to store inbound message",
				zap.String("mailbox_id", rcpt.mailboxID),
				zap.String("from", s.fromAddress),
				zap.Error(err),
			)
			return err
		}
	}

	return nil
}

// Reset 重置状态。
func (s *session) Reset() {
	s.fromAddress = ""
	s.recipients = nil
}

// Logout 会话结束。
func (s *session) Logout() error {
	return nil
}

func normalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	addr = strings.Trim(addr, "<>")
	return strings.ToLower(addr)
}
