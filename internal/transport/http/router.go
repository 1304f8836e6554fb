package httptransport

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	jwtpkg "poofmail/backend/internal/auth/jwt"
	"poofmail/backend/internal/config"
	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/middleware"
	"poofmail/backend/internal/monitoring"
	"poofmail/backend/internal/pagination"
	"poofmail/backend/internal/service"
	"poofmail/backend/internal/storage"
	"poofmail/backend/internal/websocket"
)

// Handler 聚合邮箱与邮件的 HTTP 处理逻辑。
type Handler struct {
	mailboxes *service.MailboxService
	messages  *service.MessageService
}

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config         *config.Config
	MailboxService *service.MailboxService
	MessageService *service.MessageService
	ShareService   *service.ShareService
	JWTManager     *jwtpkg.Manager
	WebSocketHub   *websocket.Hub      // WebSocket Hub（可选）
	Store          storage.Store       // 存储接口（限流用）
	Logger         *zap.Logger         // 日志记录器
	Metrics        *monitoring.Metrics // Prometheus 指标（可选）
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())

	// 请求体大小限制，全局默认 10MB
	router.Use(middleware.BodySizeLimit(10 * 1024 * 1024))

	if deps.Metrics != nil {
		router.Use(middleware.HTTPMetrics(deps.Metrics))
		router.Use(middleware.BusinessMetrics(deps.Metrics))
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins: deps.Config.CORS.AllowedOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Mailbox-Token"},
		ExposeHeaders: []string{
			"Content-Length",
			"X-RateLimit-Limit",
			"X-RateLimit-Remaining",
		},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	// 创建处理器
	handler := &Handler{
		mailboxes: deps.MailboxService,
		messages:  deps.MessageService,
	}
	shareHandler := NewShareHandler(deps.ShareService)
	sharedHandler := NewSharedHandler(deps.ShareService, deps.MessageService)

	// 创建中间件
	mailboxAuth := middleware.NewMailboxAuth(deps.MailboxService, deps.Logger)
	jwtAuth := middleware.NewJWTAuth(deps.JWTManager, deps.Logger)

	// 邮箱创建限流（按来源 IP，窗口 1 小时）
	mailboxRateLimit := middleware.RateLimitByIP(
		deps.Store, deps.Logger, int64(deps.Config.Mailbox.MaxPerIP), time.Hour)

	// Prometheus 指标端点
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))
	}

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// V1 API
	v1 := router.Group("/v1")
	{
		// ========== Public Routes（无需认证的公开API） ==========
		publicRoutes := v1.Group("/public")
		{
			publicRoutes.GET("/domains", handler.listDomains) // 获取可用域名列表
		}

		// ========== Mailbox Routes ==========
		mailboxRoutes := v1.Group("/mailboxes")
		{
			mailboxRoutes.POST("", jwtAuth.OptionalAuth(), mailboxRateLimit, handler.createMailbox)
			mailboxRoutes.GET("", jwtAuth.OptionalAuth(), handler.listMailboxes)

			// 需要邮箱Token的端点
			mailboxRoutes.GET("/:id", mailboxAuth.RequireMailboxToken(), handler.getMailbox)
			mailboxRoutes.DELETE("/:id", mailboxAuth.RequireMailboxToken(), handler.deleteMailbox)

			// 邮件相关端点（需要邮箱Token）
			mailboxRoutes.POST("/:id/messages", mailboxAuth.RequireMailboxToken(), handler.createMessage)
			mailboxRoutes.GET("/:id/messages", mailboxAuth.RequireMailboxToken(), handler.listMessages)
			mailboxRoutes.DELETE("/:id/messages", mailboxAuth.RequireMailboxToken(), handler.deleteAllMessages)
			mailboxRoutes.GET("/:id/messages/:messageId", mailboxAuth.RequireMailboxToken(), handler.getMessage)
			mailboxRoutes.DELETE("/:id/messages/:messageId", mailboxAuth.RequireMailboxToken(), handler.deleteMessage)
			mailboxRoutes.POST("/:id/messages/:messageId/read", mailboxAuth.RequireMailboxToken(), handler.markMessageRead)

			// 邮箱分享管理端点（需要邮箱Token）
			mailboxRoutes.POST("/:id/shares", mailboxAuth.RequireMailboxToken(), shareHandler.createMailboxShare)
			mailboxRoutes.GET("/:id/shares", mailboxAuth.RequireMailboxToken(), shareHandler.listMailboxShares)
			mailboxRoutes.DELETE("/:id/shares/:shareId", mailboxAuth.RequireMailboxToken(), shareHandler.revokeMailboxShare)

			// 邮件分享管理端点（需要邮箱Token）
			mailboxRoutes.POST("/:id/messages/:messageId/shares", mailboxAuth.RequireMailboxToken(), shareHandler.createMessageShare)
			mailboxRoutes.GET("/:id/message-shares", mailboxAuth.RequireMailboxToken(), shareHandler.listMessageShares)
			mailboxRoutes.DELETE("/:id/message-shares/:shareId", mailboxAuth.RequireMailboxToken(), shareHandler.revokeMessageShare)
		}

		// ========== Shared Routes（凭分享令牌公开访问，无需邮箱Token） ==========
		sharedRoutes := v1.Group("/shared")
		{
			sharedRoutes.GET("/mailbox/:token", sharedHandler.getSharedMailbox)
			sharedRoutes.GET("/mailbox/:token/messages", sharedHandler.listSharedMessages)
			sharedRoutes.GET("/mailbox/:token/messages/:messageId", sharedHandler.getSharedMailboxMessage)
			sharedRoutes.GET("/message/:token", sharedHandler.getSharedMessage)
		}

		// ========== WebSocket Routes ==========
		if deps.WebSocketHub != nil {
			v1.GET("/ws", websocket.HandleWebSocket(deps.WebSocketHub))
		}
	}

	return router
}

type createMailboxRequest struct {
	Prefix    string `json:"prefix"`
	Domain    string `json:"domain"`
	ExpiresIn *int64 `json:"expiresIn"` // 毫秒；nil 用默认 TTL，0 表示永久
}

type mailboxResponse struct {
	ID          string `json:"id"`
	Address     string `json:"address"`
	LocalPart   string `json:"localPart"`
	Domain      string `json:"domain"`
	AccessToken string `json:"accessToken"`
	CreatedAt   int64  `json:"createdAt"`
	ExpiresAt   int64  `json:"expiresAt"`
	Permanent   bool   `json:"permanent"`
}

func (h *Handler) createMailbox(c *gin.Context) {
	var req createMailboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	// 提取用户ID（如果已认证）
	var userID *string
	if userIDVal, exists := c.Get("userID"); exists {
		if uid, ok := userIDVal.(string); ok {
			userID = &uid
		}
	}

	mailbox, err := h.mailboxes.Create(service.CreateMailboxInput{
		Prefix:    req.Prefix,
		Domain:    req.Domain,
		UserID:    userID,
		ExpiresIn: req.ExpiresIn,
	})
	if err != nil {
		switch {
		case isOneOf(err, service.ErrDomainNotAllowed, service.ErrPrefixInvalid, service.ErrInvalidExpiresIn):
			BadRequest(c, GetErrorMessage(err))
		case isOneOf(err, storage.ErrMailboxExists):
			Conflict(c, GetErrorMessage(err))
		default:
			InternalError(c, MsgMailboxCreateFailed)
		}
		return
	}

	Created(c, toMailboxResponse(mailbox))
}

// listMailboxes 列出登录用户名下的存活邮箱。游客邮箱只凭访问令牌逐个访问，不参与列表。
func (h *Handler) listMailboxes(c *gin.Context) {
	userIDVal, exists := c.Get("userID")
	userID, ok := userIDVal.(string)
	if !exists || !ok || userID == "" {
		Unauthorized(c, MsgAuthRequired)
		return
	}

	mailboxes := h.mailboxes.ListByUser(userID)
	items := make([]mailboxResponse, 0, len(mailboxes))
	for i := range mailboxes {
		items = append(items, toMailboxResponse(&mailboxes[i]))
	}
	Success(c, gin.H{
		"mailboxes": items,
		"count":     len(items),
	})
}

func (h *Handler) getMailbox(c *gin.Context) {
	// mailbox 已经由中间件验证并存储在上下文中
	mailboxInterface, _ := c.Get("mailbox")
	mailbox := mailboxInterface.(*domain.Mailbox)
	Success(c, toMailboxResponse(mailbox))
}

func (h *Handler) deleteMailbox(c *gin.Context) {
	err := h.mailboxes.Delete(c.Param("id"))
	if err != nil {
		if isOneOf(err, storage.ErrMailboxNotFound) {
			NotFound(c, MsgMailboxNotFound)
		} else {
			InternalError(c, MsgMailboxDeleteFailed)
		}
		return
	}
	NoContent(c)
}

func (h *Handler) listDomains(c *gin.Context) {
	domains := h.mailboxes.AllowedDomains()
	Success(c, gin.H{
		"domains": domains,
		"count":   len(domains),
	})
}

type createMessageRequest struct {
	From       string `json:"from"`
	To         string `json:"to"`
	Subject    string `json:"subject"`
	Type       string `json:"type"` // "received" 或 "sent"，留空按收件处理
	Text       string `json:"text"`
	HTML       string `json:"html"`
	Raw        string `json:"raw"`
	IsRead     bool   `json:"isRead"`
	ReceivedAt int64  `json:"receivedAt"` // 毫秒；0 表示使用服务器当前时间
}

type attachmentInfo struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

type messageResponse struct {
	ID          string           `json:"id"`
	MailboxID   string           `json:"mailboxId"`
	From        string           `json:"from"`
	To          string           `json:"to"`
	Subject     string           `json:"subject"`
	Type        string           `json:"type"`
	Text        string           `json:"text"`
	HTML        string           `json:"html"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   int64            `json:"createdAt"`
	ReceivedAt  int64            `json:"receivedAt"`
	Attachments []attachmentInfo `json:"attachments,omitempty"`
}

type messageListResponse struct {
	Items      []messageResponse `json:"items"`
	NextCursor *string           `json:"nextCursor"`
	Total      int64             `json:"total"`
}

func (h *Handler) createMessage(c *gin.Context) {
	var req createMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, MsgInvalidRequest)
		return
	}

	message, err := h.messages.Create(service.CreateMessageInput{
		MailboxID:  c.Param("id"),
		From:       req.From,
		To:         req.To,
		Subject:    req.Subject,
		Type:       req.Type,
		Text:       req.Text,
		HTML:       req.HTML,
		Raw:        req.Raw,
		IsRead:     req.IsRead,
		ReceivedAt: req.ReceivedAt,
	})
	if err != nil {
		if isOneOf(err, storage.ErrMailboxNotFound) {
			NotFound(c, MsgMailboxNotFound)
			return
		}
		InternalError(c, MsgMessageCreateFailed)
		return
	}

	Created(c, toMessageResponse(message))
}

// listMessages 按键集游标分页返回邮件。
// 查询参数：cursor（上一页返回的 nextCursor）、pageSize（默认20，最大100）、
// view（received/sent/all，默认 received）。
func (h *Handler) listMessages(c *gin.Context) {
	cursor, view, pageSize, ok := parseListQuery(c)
	if !ok {
		return
	}

	page, err := h.messages.ListPage(c.Param("id"), cursor, pageSize, view)
	if err != nil {
		switch {
		case isOneOf(err, service.ErrInvalidPageSize):
			BadRequest(c, GetErrorMessage(err))
		case isOneOf(err, storage.ErrMailboxNotFound):
			NotFound(c, MsgMailboxNotFound)
		default:
			InternalError(c, MsgMessageListFailed)
		}
		return
	}

	Success(c, toMessageListResponse(page))
}

func (h *Handler) getMessage(c *gin.Context) {
	msg, err := h.messages.Get(c.Param("id"), c.Param("messageId"))
	if err != nil {
		if isOneOf(err, storage.ErrMessageNotFound, storage.ErrMailboxNotFound) {
			NotFound(c, MsgMessageNotFound)
			return
		}
		InternalError(c, MsgInternalError)
		return
	}

	Success(c, toMessageResponse(msg))
}

func (h *Handler) markMessageRead(c *gin.Context) {
	err := h.messages.MarkRead(c.Param("id"), c.Param("messageId"))
	if err != nil {
		if isOneOf(err, storage.ErrMessageNotFound, storage.ErrMailboxNotFound) {
			NotFound(c, MsgMessageNotFound)
		} else {
			InternalError(c, MsgMessageMarkReadFailed)
		}
		return
	}
	NoContent(c)
}

func (h *Handler) deleteMessage(c *gin.Context) {
	err := h.messages.Delete(c.Param("id"), c.Param("messageId"))
	if err != nil {
		if isOneOf(err, storage.ErrMessageNotFound, storage.ErrMailboxNotFound) {
			NotFound(c, MsgMessageNotFound)
		} else {
			InternalError(c, MsgMessageDeleteFailed)
		}
		return
	}
	NoContent(c)
}

func (h *Handler) deleteAllMessages(c *gin.Context) {
	deleted, err := h.messages.DeleteAll(c.Param("id"))
	if err != nil {
		if isOneOf(err, storage.ErrMailboxNotFound) {
			NotFound(c, MsgMailboxNotFound)
		} else {
			InternalError(c, MsgMessageDeleteFailed)
		}
		return
	}
	Success(c, gin.H{"deleted": deleted})
}

// parseListQuery 解析列表查询参数，失败时已写入 400 响应。
func parseListQuery(c *gin.Context) (*pagination.Cursor, domain.MessageView, int, bool) {
	var cursor *pagination.Cursor
	if raw := c.Query("cursor"); raw != "" {
		decoded, err := pagination.Decode(raw)
		if err != nil {
			BadRequest(c, GetErrorMessage(err))
			return nil, "", 0, false
		}
		cursor = &decoded
	}

	view := domain.ViewReceived
	if raw := c.Query("view"); raw != "" {
		view = domain.MessageView(raw)
		if !view.Valid() {
			BadRequest(c, MsgInvalidView)
			return nil, "", 0, false
		}
	}

	// 省略 pageSize 参数时使用默认页大小；显式传 0 交给服务层拒绝
	pageSize := service.DefaultPageSize
	if raw := c.Query("pageSize"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			BadRequest(c, GetErrorMessage(service.ErrInvalidPageSize))
			return nil, "", 0, false
		}
		pageSize = n
	}

	return cursor, view, pageSize, true
}

// isOneOf 判断 err 是否匹配任一哨兵错误。
func isOneOf(err error, sentinels ...error) bool {
	for _, sentinel := range sentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// toMailboxResponse 转换实体为响应体。
func toMailboxResponse(mailbox *domain.Mailbox) mailboxResponse {
	return mailboxResponse{
		ID:          mailbox.ID,
		Address:     mailbox.Address,
		LocalPart:   mailbox.LocalPart,
		Domain:      mailbox.Domain,
		AccessToken: mailbox.AccessToken,
		CreatedAt:   mailbox.CreatedAt,
		ExpiresAt:   mailbox.ExpiresAt,
		Permanent:   mailbox.Permanent(),
	}
}

// toMessageResponse 转换邮件实体为响应体。
func toMessageResponse(message *domain.Message) messageResponse {
	// 转换附件信息（不包含内容）
	attachments := make([]attachmentInfo, 0, len(message.Attachments))
	for _, att := range message.Attachments {
		attachments = append(attachments, attachmentInfo{
			ID:          att.ID,
			Filename:    att.Filename,
			ContentType: att.ContentType,
			Size:        att.Size,
		})
	}

	return messageResponse{
		ID:          message.ID,
		MailboxID:   message.MailboxID,
		From:        message.From,
		To:          message.To,
		Subject:     message.Subject,
		Type:        message.Type,
		Text:        message.Text,
		HTML:        message.HTML,
		IsRead:      message.IsRead,
		CreatedAt:   message.CreatedAt,
		ReceivedAt:  message.ReceivedAt,
		Attachments: attachments,
	}
}

func toMessageListResponse(page *service.MessagePage) messageListResponse {
	items := make([]messageResponse, 0, len(page.Messages))
	for i := range page.Messages {
		items = append(items, toMessageResponse(&page.Messages[i]))
	}
	return messageListResponse{
		Items:      items,
		NextCursor: page.NextCursor,
		Total:      page.Total,
	}
}
