package service

import (
	"errors"

	"github.com/google/uuid"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/storage"
	"poofmail/backend/internal/token"
)

var (
	// ErrShareExpired 分享链接自身已过期。
	ErrShareExpired = errors.New("share expired")
	// ErrTokenGenerationFailed 多次尝试后仍无法生成不冲突的分享令牌。
	ErrTokenGenerationFailed = errors.New("share token generation failed")
)

// 令牌冲突时的最大重试次数。62^16 的空间里连撞 5 次基本只会因故障发生。
const maxTokenAttempts = 5

// ShareRepo 分享服务需要的存储能力。
type ShareRepo interface {
	storage.MailboxRepository
	storage.MessageRepository
	storage.ShareRepository
}

// ShareService 封装分享链接的创建、撤销与公开访问解析。
type ShareService struct {
	repo     ShareRepo
	now      func() int64
	newToken func() (string, error)
}

// NewShareService 创建分享业务服务。
func NewShareService(repo ShareRepo) *ShareService {
	return &ShareService{
		repo:     repo,
		now:      domain.NowMillis,
		newToken: token.NewShareToken,
	}
}

// resolveShareExpiresAt 计算分享的过期时间。
// expiresIn 为 nil 或 0 表示分享永不过期，负数非法。
func (s *ShareService) resolveShareExpiresAt(expiresIn *int64) (*int64, error) {
	if expiresIn == nil || *expiresIn == 0 {
		return nil, nil
	}
	if *expiresIn < 0 {
		return nil, ErrInvalidExpiresIn
	}
	at := s.now() + *expiresIn
	return &at, nil
}

// CreateMailboxShare 为存活的邮箱创建分享链接。
func (s *ShareService) CreateMailboxShare(mailboxID string, expiresIn *int64) (*domain.MailboxShare, error) {
	mailbox, err := s.repo.GetMailbox(mailboxID)
	if err != nil {
		return nil, err
	}
	if mailbox.ExpiredAt(s.now()) {
		return nil, ErrMailboxExpired
	}

	expiresAt, err := s.resolveShareExpiresAt(expiresIn)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		tok, err := s.newToken()
		if err != nil {
			return nil, err
		}

		share := &domain.MailboxShare{
			ID:        uuid.NewString(),
			MailboxID: mailboxID,
			Token:     tok,
			CreatedAt: s.now(),
			ExpiresAt: expiresAt,
		}

		err = s.repo.SaveMailboxShare(share)
		if errors.Is(err, storage.ErrTokenConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return share, nil
	}

	return nil, ErrTokenGenerationFailed
}

// ListMailboxShares 返回邮箱的全部分享链接。
func (s *ShareService) ListMailboxShares(mailboxID string) ([]domain.MailboxShare, error) {
	return s.repo.ListMailboxShares(mailboxID)
}

// RevokeMailboxShare 撤销分享链接。shareID 必须属于 mailboxID。
func (s *ShareService) RevokeMailboxShare(mailboxID, shareID string) error {
	return s.repo.DeleteMailboxShare(mailboxID, shareID)
}

// CreateMessageShare 为邮箱内的一封邮件创建分享链接。
func (s *ShareService) CreateMessageShare(mailboxID, messageID string, expiresIn *int64) (*domain.MessageShare, error) {
	mailbox, err := s.repo.GetMailbox(mailboxID)
	if err != nil {
		return nil, err
	}
	if mailbox.ExpiredAt(s.now()) {
		return nil, ErrMailboxExpired
	}

	// 确认邮件属于该邮箱
	if _, err := s.repo.GetMessage(mailboxID, messageID); err != nil {
		return nil, err
	}

	expiresAt, err := s.resolveShareExpiresAt(expiresIn)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		tok, err := s.newToken()
		if err != nil {
			return nil, err
		}

		share := &domain.MessageShare{
			ID:        uuid.NewString(),
			MessageID: messageID,
			MailboxID: mailboxID,
			Token:     tok,
			CreatedAt: s.now(),
			ExpiresAt: expiresAt,
		}

		err = s.repo.SaveMessageShare(share)
		if errors.Is(err, storage.ErrTokenConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return share, nil
	}

	return nil, ErrTokenGenerationFailed
}

// ListMessageShares 返回邮箱的全部邮件分享链接。
func (s *ShareService) ListMessageShares(mailboxID string) ([]domain.MessageShare, error) {
	return s.repo.ListMessageShares(mailboxID)
}

// RevokeMessageShare 撤销邮件分享链接。shareID 必须属于 mailboxID。
func (s *ShareService) RevokeMessageShare(mailboxID, shareID string) error {
	return s.repo.DeleteMessageShare(mailboxID, shareID)
}

// ResolveMailboxShare 解析公开访问的邮箱分享令牌。
// 判定是两层的：先看分享本身，再看被分享的邮箱——
// 分享不存在返回 storage.ErrShareNotFound，
// 分享过期返回 ErrShareExpired，
// 邮箱已过期或已被清理返回 ErrMailboxExpired。
func (s *ShareService) ResolveMailboxShare(tok string) (*domain.Mailbox, *domain.MailboxShare, error) {
	share, err := s.repo.GetMailboxShareByToken(tok)
	if err != nil {
		return nil, nil, err
	}
	if !share.Live(s.now()) {
		return nil, nil, ErrShareExpired
	}

	mailbox, err := s.repo.GetMailbox(share.MailboxID)
	if errors.Is(err, storage.ErrMailboxNotFound) {
		// 邮箱已被清理，分享成了悬空引用
		return nil, nil, ErrMailboxExpired
	}
	if err != nil {
		return nil, nil, err
	}
	if mailbox.ExpiredAt(s.now()) {
		return nil, nil, ErrMailboxExpired
	}

	return mailbox, share, nil
}

// ResolveMessageShare 解析公开访问的邮件分享令牌。
// 除分享自身有效外，所属邮箱也必须存活：邮箱过期会立刻切断其全部邮件分享。
func (s *ShareService) ResolveMessageShare(tok string) (*domain.Message, *domain.MessageShare, error) {
	share, err := s.repo.GetMessageShareByToken(tok)
	if err != nil {
		return nil, nil, err
	}
	if !share.Live(s.now()) {
		return nil, nil, ErrShareExpired
	}

	mailbox, err := s.repo.GetMailbox(share.MailboxID)
	if errors.Is(err, storage.ErrMailboxNotFound) {
		return nil, nil, ErrMailboxExpired
	}
	if err != nil {
		return nil, nil, err
	}
	if mailbox.ExpiredAt(s.now()) {
		return nil, nil, ErrMailboxExpired
	}

	message, err := s.repo.GetMessage(share.MailboxID, share.MessageID)
	if err != nil {
		return nil, nil, err
	}

	return message, share, nil
}
