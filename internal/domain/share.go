package domain

// MailboxShare 整个邮箱的分享链接。
// ExpiresAt 为 nil 表示分享本身永不过期（邮箱过期仍会切断访问）。
type MailboxShare struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MailboxID string `json:"mailboxId" gorm:"type:varchar(36);index;not null"`
	Token     string `json:"token" gorm:"type:varchar(32);uniqueIndex;not null"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt *int64 `json:"expiresAt"`
}

// Live 判断分享链接自身在 now 时刻是否存活（不含邮箱层判定）。
func (s *MailboxShare) Live(now int64) bool {
	return IsLive(s.ExpiresAt, now)
}

// MessageShare 单封邮件的分享链接。
type MessageShare struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MessageID string `json:"messageId" gorm:"type:varchar(36);index;not null"`
	MailboxID string `json:"mailboxId" gorm:"type:varchar(36);index;not null"`
	Token     string `json:"token" gorm:"type:varchar(32);uniqueIndex;not null"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt *int64 `json:"expiresAt"`
}

// Live 判断分享链接自身在 now 时刻是否存活（不含邮箱层判定）。
func (s *MessageShare) Live(now int64) bool {
	return IsLive(s.ExpiresAt, now)
}
