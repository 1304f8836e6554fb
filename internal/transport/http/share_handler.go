package httptransport

import (
	"github.com/gin-gonic/gin"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/service"
	"poofmail/backend/internal/storage"
)

// ShareHandler 邮箱所有者侧的分享管理处理器。
type ShareHandler struct {
	shares *service.ShareService
}

// NewShareHandler 创建分享管理处理器。
func NewShareHandler(shares *service.ShareService) *ShareHandler {
	return &ShareHandler{shares: shares}
}

type createShareRequest struct {
	ExpiresIn *int64 `json:"expiresIn"` // 毫秒；nil 或 0 表示分享永不过期
}

type mailboxShareResponse struct {
	ID        string `json:"id"`
	MailboxID string `json:"mailboxId"`
	Token     string `json:"token"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt *int64 `json:"expiresAt"`
}

type messageShareResponse struct {
	ID        string `json:"id"`
	MessageID string `json:"messageId"`
	MailboxID string `json:"mailboxId"`
	Token     string `json:"token"`
	CreatedAt int64  `json:"createdAt"`
	ExpiresAt *int64 `json:"expiresAt"`
}

type mailboxShareListResponse struct {
	Items []mailboxShareResponse `json:"items"`
	Count int                    `json:"count"`
}

type messageShareListResponse struct {
	Items []messageShareResponse `json:"items"`
	Count int                    `json:"count"`
}

func (h *ShareHandler) createMailboxShare(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	share, err := h.shares.CreateMailboxShare(c.Param("id"), req.ExpiresIn)
	if err != nil {
		switch {
		case isOneOf(err, service.ErrInvalidExpiresIn):
			BadRequest(c, GetErrorMessage(err))
		case isOneOf(err, storage.ErrMailboxNotFound):
			NotFound(c, MsgMailboxNotFound)
		case isOneOf(err, service.ErrMailboxExpired):
			Gone(c, MsgMailboxExpired)
		default:
			InternalError(c, MsgShareCreateFailed)
		}
		return
	}

	Created(c, toMailboxShareResponse(share))
}

func (h *ShareHandler) listMailboxShares(c *gin.Context) {
	shares, err := h.shares.ListMailboxShares(c.Param("id"))
	if err != nil {
		InternalError(c, MsgShareListFailed)
		return
	}

	items := make([]mailboxShareResponse, 0, len(shares))
	for i := range shares {
		items = append(items, toMailboxShareResponse(&shares[i]))
	}
	Success(c, mailboxShareListResponse{Items: items, Count: len(items)})
}

func (h *ShareHandler) revokeMailboxShare(c *gin.Context) {
	err := h.shares.RevokeMailboxShare(c.Param("id"), c.Param("shareId"))
	if err != nil {
		if isOneOf(err, storage.ErrShareNotFound) {
			NotFound(c, MsgShareNotFound)
		} else {
			InternalError(c, MsgShareRevokeFailed)
		}
		return
	}
	NoContent(c)
}

func (h *ShareHandler) createMessageShare(c *gin.Context) {
	var req createShareRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	share, err := h.shares.CreateMessageShare(c.Param("id"), c.Param("messageId"), req.ExpiresIn)
	if err != nil {
		switch {
		case isOneOf(err, service.ErrInvalidExpiresIn):
			BadRequest(c, GetErrorMessage(err))
		case isOneOf(err, storage.ErrMailboxNotFound):
			NotFound(c, MsgMailboxNotFound)
		case isOneOf(err, storage.ErrMessageNotFound):
			NotFound(c, MsgMessageNotFound)
		case isOneOf(err, service.ErrMailboxExpired):
			Gone(c, MsgMailboxExpired)
		default:
			InternalError(c, MsgShareCreateFailed)
		}
		return
	}

	Created(c, toMessageShareResponse(share))
}

func (h *ShareHandler) listMessageShares(c *gin.Context) {
	shares, err := h.shares.ListMessageShares(c.Param("id"))
	if err != nil {
		InternalError(c, MsgShareListFailed)
		return
	}

	items := make([]messageShareResponse, 0, len(shares))
	for i := range shares {
		items = append(items, toMessageShareResponse(&shares[i]))
	}
	Success(c, messageShareListResponse{Items: items, Count: len(items)})
}

func (h *ShareHandler) revokeMessageShare(c *gin.Context) {
	err := h.shares.RevokeMessageShare(c.Param("id"), c.Param("shareId"))
	if err != nil {
		if isOneOf(err, storage.ErrShareNotFound) {
			NotFound(c, MsgShareNotFound)
		} else {
			InternalError(c, MsgShareRevokeFailed)
		}
		return
	}
	NoContent(c)
}

func toMailboxShareResponse(share *domain.MailboxShare) mailboxShareResponse {
	return mailboxShareResponse{
		ID:        share.ID,
		MailboxID: share.MailboxID,
		Token:     share.Token,
		CreatedAt: share.CreatedAt,
		ExpiresAt: share.ExpiresAt,
	}
}

func toMessageShareResponse(share *domain.MessageShare) messageShareResponse {
	return messageShareResponse{
		ID:        share.ID,
		MessageID: share.MessageID,
		MailboxID: share.MailboxID,
		Token:     share.Token,
		CreatedAt: share.CreatedAt,
		ExpiresAt: share.ExpiresAt,
	}
}
