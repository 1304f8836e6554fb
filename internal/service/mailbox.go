package service

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"poofmail/backend/internal/config"
	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/storage"
	"poofmail/backend/internal/token"
)

var (
	ErrDomainNotAllowed = errors.New("domain not allowed")
	ErrPrefixInvalid    = errors.New("prefix invalid")
	// ErrMailboxExpired 邮箱仍有记录但已过期。与"不存在"严格区分。
	ErrMailboxExpired = errors.New("mailbox expired")
	// ErrInvalidExpiresIn 过期时长非法（负数）。
	ErrInvalidExpiresIn = errors.New("invalid expiresIn")
)

// 邮箱访问令牌长度。
const accessTokenLength = 32

// MailboxService 封装邮箱相关业务操作。
type MailboxService struct {
	repo           storage.MailboxRepository
	cfg            *config.Config
	domainSet      map[string]struct{}
	emailValidator *domain.EmailValidator
	now            func() int64
}

// NewMailboxService 创建邮箱业务服务。
func NewMailboxService(repo storage.MailboxRepository, cfg *config.Config) *MailboxService {
	domainSet := make(map[string]struct{}, len(cfg.Mailbox.AllowedDomains))
	for _, d := range cfg.Mailbox.AllowedDomains {
		domainSet[d] = struct{}{}
	}

	return &MailboxService{
		repo:           repo,
		cfg:            cfg,
		domainSet:      domainSet,
		emailValidator: domain.NewEmailValidator(),
		now:            domain.NowMillis,
	}
}

// CreateMailboxInput 定义创建邮箱所需的输入。
type CreateMailboxInput struct {
	Prefix string
	Domain string
	UserID *string // 可选：关联的用户ID
	// ExpiresIn 有效时长（毫秒）。nil 使用默认 TTL，0 表示永久邮箱，负数非法。
	ExpiresIn *int64
}

// Create 创建新的临时邮箱。
func (s *MailboxService) Create(input CreateMailboxInput) (*domain.Mailbox, error) {
	selectedDomain := s.pickDomain(input.Domain)
	if selectedDomain == "" {
		return nil, ErrDomainNotAllowed
	}

	localPart, err := s.resolveLocalPart(input.Prefix)
	if err != nil {
		return nil, err
	}

	address := fmt.Sprintf("%s@%s", localPart, selectedDomain)
	if err := s.emailValidator.ValidateEmail(address); err != nil {
		return nil, ErrPrefixInvalid
	}

	now := s.now()
	expiresAt, err := resolveExpiresAt(now, input.ExpiresIn, s.cfg.Mailbox.DefaultTTL)
	if err != nil {
		return nil, err
	}

	accessToken, err := token.Generate(accessTokenLength)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	mailbox := &domain.Mailbox{
		ID:          uuid.NewString(),
		Address:     address,
		LocalPart:   localPart,
		Domain:      selectedDomain,
		AccessToken: accessToken,
		UserID:      input.UserID,
		CreatedAt:   now,
		ExpiresAt:   expiresAt,
	}

	if err := s.repo.SaveMailbox(mailbox); err != nil {
		return nil, err
	}

	return mailbox, nil
}

// resolveExpiresAt 计算邮箱的过期时间戳。
// expiresIn 为 nil 时使用默认 TTL，为 0 时返回永久哨兵值。
func resolveExpiresAt(now int64, expiresIn *int64, defaultTTL time.Duration) (int64, error) {
	if expiresIn == nil {
		return now + defaultTTL.Milliseconds(), nil
	}
	switch {
	case *expiresIn == 0:
		return domain.PermanentExpiresAt, nil
	case *expiresIn < 0:
		return 0, ErrInvalidExpiresIn
	default:
		return now + *expiresIn, nil
	}
}

// AllowedDomains 返回可用于创建邮箱的域名列表。
func (s *MailboxService) AllowedDomains() []string {
	domains := make([]string, len(s.cfg.Mailbox.AllowedDomains))
	copy(domains, s.cfg.Mailbox.AllowedDomains)
	return domains
}

// Get 根据 ID 获取邮箱，不做过期过滤。
func (s *MailboxService) Get(id string) (*domain.Mailbox, error) {
	return s.repo.GetMailbox(id)
}

// GetLive 根据 ID 获取邮箱，已过期返回 ErrMailboxExpired。
func (s *MailboxService) GetLive(id string) (*domain.Mailbox, error) {
	mailbox, err := s.repo.GetMailbox(id)
	if err != nil {
		return nil, err
	}
	if mailbox.ExpiredAt(s.now()) {
		return nil, ErrMailboxExpired
	}
	return mailbox, nil
}

// Authenticate 根据访问令牌解析邮箱。
// 令牌无效返回 storage.ErrMailboxNotFound，邮箱过期返回 ErrMailboxExpired。
func (s *MailboxService) Authenticate(accessToken string) (*domain.Mailbox, error) {
	mailbox, err := s.repo.GetMailboxByAccessToken(accessToken)
	if err != nil {
		return nil, err
	}
	if mailbox.ExpiredAt(s.now()) {
		return nil, ErrMailboxExpired
	}
	return mailbox, nil
}

// GetByAddress 根据邮箱地址获取存活的邮箱，供投递路径使用。
func (s *MailboxService) GetByAddress(address string) (*domain.Mailbox, error) {
	address = strings.ToLower(strings.TrimSpace(address))
	if address == "" {
		return nil, storage.ErrMailboxNotFound
	}

	mailbox, err := s.repo.GetMailboxByAddress(address)
	if err != nil {
		return nil, err
	}
	if mailbox.ExpiredAt(s.now()) {
		return nil, ErrMailboxExpired
	}
	return mailbox, nil
}

// ListByUser 返回用户名下的存活邮箱，按创建时间倒序。
func (s *MailboxService) ListByUser(userID string) []domain.Mailbox {
	now := s.now()
	var out []domain.Mailbox
	for _, mailbox := range s.repo.ListMailboxes() {
		if mailbox.UserID == nil || *mailbox.UserID != userID {
			continue
		}
		if mailbox.ExpiredAt(now) {
			continue
		}
		out = append(out, mailbox)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].ID > out[j].ID
	})
	return out
}

// Delete 删除指定邮箱。
func (s *MailboxService) Delete(id string) error {
	return s.repo.DeleteMailbox(id)
}

// CleanupExpired 删除已过期的邮箱，返回删除数量。由后台清理循环周期调用。
func (s *MailboxService) CleanupExpired() (int, error) {
	return s.repo.DeleteExpiredMailboxes(s.now())
}

// pickDomain 挑选合法的邮箱域名。
func (s *MailboxService) pickDomain(requested string) string {
	if requested == "" {
		return s.cfg.Mailbox.AllowedDomains[0]
	}
	requested = strings.ToLower(strings.TrimSpace(requested))
	if _, ok := s.domainSet[requested]; ok {
		return requested
	}
	return ""
}

// resolveLocalPart 生成或验证邮箱前缀。
func (s *MailboxService) resolveLocalPart(prefix string) (string, error) {
	if prefix == "" {
		return generateRandomLocalPart(), nil
	}
	prefix = strings.ToLower(prefix)
	if err := s.emailValidator.ValidateLocalPart(prefix); err != nil {
		return "", ErrPrefixInvalid
	}
	return prefix, nil
}

// generateRandomLocalPart 生成随机前缀。
func generateRandomLocalPart() string {
	base := strings.ToLower(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return base[:12]
}
