package domain

import "time"

// PermanentExpiresAt 永久邮箱的哨兵过期时间（公元 9999 年末）。
// 邮箱的 ExpiresAt 永远有值，"永久"用哨兵表示而不是用空值表示。
var PermanentExpiresAt = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC).UnixMilli()

// Mailbox 表示一个临时邮箱。所有时间戳均为毫秒级 Unix 时间。
type Mailbox struct {
	ID          string  `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Address     string  `json:"address" gorm:"type:varchar(255);uniqueIndex"`
	LocalPart   string  `json:"localPart" gorm:"type:varchar(255)"`
	Domain      string  `json:"domain" gorm:"type:varchar(100);index"`
	AccessToken string  `json:"accessToken" gorm:"type:varchar(64);uniqueIndex"`
	UserID      *string `json:"userId,omitempty" gorm:"type:varchar(36);index"` // 关联的用户ID（可选，游客邮箱为nil）
	CreatedAt   int64   `json:"createdAt" gorm:"not null"`
	ExpiresAt   int64   `json:"expiresAt" gorm:"not null;index"`
}

// Permanent 判断邮箱是否为永久邮箱。
func (m *Mailbox) Permanent() bool {
	return m.ExpiresAt == PermanentExpiresAt
}

// ExpiredAt 判断邮箱在 now 时刻是否已过期。
func (m *Mailbox) ExpiredAt(now int64) bool {
	return !IsLive(&m.ExpiresAt, now)
}
