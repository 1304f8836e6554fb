package httptransport

import (
	"errors"

	"poofmail/backend/internal/pagination"
	"poofmail/backend/internal/service"
	"poofmail/backend/internal/storage"
)

// 错误消息映射表（业务错误 -> 中文消息）
var errorMessages = map[error]string{
	// Mailbox 错误
	service.ErrDomainNotAllowed: "域名不在允许列表中",
	service.ErrPrefixInvalid:    "邮箱前缀格式无效",
	service.ErrMailboxExpired:   "邮箱已过期",
	service.ErrInvalidExpiresIn: "过期时间格式无效",
	storage.ErrMailboxNotFound:  "邮箱不存在",
	storage.ErrMailboxExists:    "邮箱地址已被占用",

	// Message 错误
	service.ErrInvalidPageSize: "分页大小超出允许范围",
	storage.ErrMessageNotFound: "邮件不存在",

	// 分享错误
	service.ErrShareExpired:          "分享链接已过期",
	service.ErrTokenGenerationFailed: "生成分享令牌失败，请稍后重试",
	storage.ErrShareNotFound:         "分享链接不存在",

	// 分页错误
	pagination.ErrInvalidCursor: "分页游标无效",
}

// GetErrorMessage 获取错误的中文消息
func GetErrorMessage(err error) string {
	for sentinel, msg := range errorMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	return err.Error()
}

// 通用错误消息
const (
	// 请求相关
	MsgInvalidRequest = "请求参数格式错误"
	MsgInvalidView    = "邮件视图参数无效"

	// 认证相关
	MsgAuthRequired = "需要邮箱访问令牌"
	MsgTokenInvalid = "无效的访问令牌"

	// 邮箱相关
	MsgMailboxCreateFailed = "创建邮箱失败"
	MsgMailboxNotFound     = "邮箱不存在"
	MsgMailboxExpired      = "邮箱已过期"
	MsgMailboxDeleteFailed = "删除邮箱失败"

	// 邮件相关
	MsgMessageCreateFailed   = "保存邮件失败"
	MsgMessageNotFound       = "邮件不存在"
	MsgMessageListFailed     = "获取邮件列表失败"
	MsgMessageMarkReadFailed = "标记已读失败"
	MsgMessageDeleteFailed   = "删除邮件失败"

	// 分享相关
	MsgShareCreateFailed = "创建分享链接失败"
	MsgShareListFailed   = "获取分享列表失败"
	MsgShareRevokeFailed = "撤销分享链接失败"
	MsgShareNotFound     = "分享链接不存在"
	MsgShareExpired      = "分享链接已过期"

	// 服务器错误
	MsgInternalError = "服务器内部错误，请稍后重试"
)
