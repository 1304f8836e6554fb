package httptransport

import (
	"github.com/gin-gonic/gin"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/service"
	"poofmail/backend/internal/storage"
)

// SharedHandler 凭分享令牌公开访问的处理器（无需邮箱Token）。
type SharedHandler struct {
	shares   *service.ShareService
	messages *service.MessageService
}

// NewSharedHandler 创建公开分享访问处理器。
func NewSharedHandler(shares *service.ShareService, messages *service.MessageService) *SharedHandler {
	return &SharedHandler{shares: shares, messages: messages}
}

// sharedMailboxResponse 公开视图的邮箱信息。
// 不返回 accessToken：分享访客只有只读能力。
type sharedMailboxResponse struct {
	ID        string `json:"id"`
	Address   string `json:"address"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt int64  `json:"expiresAt"`
	Permanent bool   `json:"permanent"`
}

// respondShareError 把分享解析错误映射为统一的响应。
// 不存在与已过期刻意区分：404 表示令牌无效，410 表示曾经有效但已失效。
func respondShareError(c *gin.Context, err error) {
	switch {
	case isOneOf(err, storage.ErrShareNotFound):
		NotFound(c, MsgShareNotFound)
	case isOneOf(err, service.ErrShareExpired):
		Gone(c, MsgShareExpired)
	case isOneOf(err, service.ErrMailboxExpired):
		Gone(c, MsgMailboxExpired)
	default:
		InternalError(c, MsgInternalError)
	}
}

func (h *SharedHandler) getSharedMailbox(c *gin.Context) {
	mailbox, _, err := h.shares.ResolveMailboxShare(c.Param("token"))
	if err != nil {
		respondShareError(c, err)
		return
	}

	Success(c, toSharedMailboxResponse(mailbox))
}

func (h *SharedHandler) listSharedMessages(c *gin.Context) {
	mailbox, _, err := h.shares.ResolveMailboxShare(c.Param("token"))
	if err != nil {
		respondShareError(c, err)
		return
	}

	// 分享访客只有收件视图，忽略请求里的 view 参数，不暴露主人发出的邮件
	cursor, _, pageSize, ok := parseListQuery(c)
	if !ok {
		return
	}

	page, err := h.messages.ListPage(mailbox.ID, cursor, pageSize, domain.ViewReceived)
	if err != nil {
		if isOneOf(err, service.ErrInvalidPageSize) {
			BadRequest(c, GetErrorMessage(err))
		} else {
			InternalError(c, MsgMessageListFailed)
		}
		return
	}

	Success(c, toMessageListResponse(page))
}

func (h *SharedHandler) getSharedMailboxMessage(c *gin.Context) {
	mailbox, _, err := h.shares.ResolveMailboxShare(c.Param("token"))
	if err != nil {
		respondShareError(c, err)
		return
	}

	msg, err := h.messages.Get(mailbox.ID, c.Param("messageId"))
	if err != nil {
		if isOneOf(err, storage.ErrMessageNotFound) {
			NotFound(c, MsgMessageNotFound)
		} else {
			InternalError(c, MsgInternalError)
		}
		return
	}

	Success(c, toMessageResponse(msg))
}

func (h *SharedHandler) getSharedMessage(c *gin.Context) {
	msg, _, err := h.shares.ResolveMessageShare(c.Param("token"))
	if err != nil {
		if isOneOf(err, storage.ErrMessageNotFound) {
			// 邮件被单独删除后，指向它的分享按失效处理
			Gone(c, MsgShareExpired)
			return
		}
		respondShareError(c, err)
		return
	}

	Success(c, toMessageResponse(msg))
}

func toSharedMailboxResponse(mailbox *domain.Mailbox) sharedMailboxResponse {
	return sharedMailboxResponse{
		ID:        mailbox.ID,
		Address:   mailbox.Address,
		CreatedAt: mailbox.CreatedAt,
		ExpiresAt: mailbox.ExpiresAt,
		Permanent: mailbox.Permanent(),
	}
}
