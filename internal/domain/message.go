package domain

// 邮件方向类型。历史数据里 Type 可能为空字符串，按收件处理。
const (
	MessageTypeReceived = "received"
	MessageTypeSent     = "sent"
)

// Message 表示一封临时邮箱内的邮件。所有时间戳均为毫秒级 Unix 时间。
type Message struct {
	ID         string `json:"id" gorm:"primaryKey;type:varchar(36)"`
	MailboxID  string `json:"mailboxId" gorm:"type:varchar(36);index;not null"`
	From       string `json:"from" gorm:"type:varchar(255)"`
	To         string `json:"to" gorm:"type:varchar(255)"`
	Subject    string `json:"subject" gorm:"type:varchar(500)"`
	Type       string `json:"type" gorm:"type:varchar(16);index"`
	IsRead     bool   `json:"isRead" gorm:"default:false;index"`
	CreatedAt  int64  `json:"createdAt"`
	ReceivedAt int64  `json:"receivedAt" gorm:"index:idx_messages_keyset,priority:2"`
	// 正文内容
	Text string `json:"text,omitempty" gorm:"type:text"`
	HTML string `json:"html,omitempty" gorm:"type:text"`
	// 原始报文（可选保留）
	Raw         string        `json:"raw,omitempty" gorm:"type:text"`
	Attachments []*Attachment `json:"attachments,omitempty" gorm:"foreignKey:MessageID;references:ID"` // 邮件附件列表
}

// MessageView 邮件列表的方向视图。
type MessageView string

const (
	ViewReceived MessageView = "received" // 默认：排除已发送邮件
	ViewSent     MessageView = "sent"
	ViewAll      MessageView = "all"
)

// Valid 判断视图取值是否合法。
func (v MessageView) Valid() bool {
	switch v {
	case ViewReceived, ViewSent, ViewAll:
		return true
	}
	return false
}

// Matches 判断一封邮件是否落在视图内。
// received 视图排除 type == "sent"，空 Type 视为收件。
func (v MessageView) Matches(m *Message) bool {
	switch v {
	case ViewSent:
		return m.Type == MessageTypeSent
	case ViewAll:
		return true
	default:
		return m.Type != MessageTypeSent
	}
}
