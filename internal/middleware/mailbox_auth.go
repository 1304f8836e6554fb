package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poofmail/backend/internal/service"
	"poofmail/backend/internal/storage"
)

// MailboxAuth 邮箱访问令牌认证中间件。
// 访问令牌是邮箱的唯一所有权凭证，没有用户账号的概念。
type MailboxAuth struct {
	mailboxService *service.MailboxService
	log            *zap.Logger
}

// NewMailboxAuth 创建邮箱认证中间件
func NewMailboxAuth(mailboxService *service.MailboxService, log *zap.Logger) *MailboxAuth {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailboxAuth{mailboxService: mailboxService, log: log}
}

// RequireMailboxToken 要求有效的邮箱访问令牌，且令牌必须属于路径里的邮箱。
// 过期邮箱返回 410，区别于 404。
func (ma *MailboxAuth) RequireMailboxToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		mailboxID := c.Param("id")
		if mailboxID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mailbox ID required"})
			c.Abort()
			return
		}

		token := ma.extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "mailbox token required"})
			c.Abort()
			return
		}

		mailbox, err := ma.mailboxService.Authenticate(token)
		switch {
		case errors.Is(err, service.ErrMailboxExpired):
			c.JSON(http.StatusGone, gin.H{"error": "mailbox expired"})
			c.Abort()
			return
		case errors.Is(err, storage.ErrMailboxNotFound):
			ma.log.Warn("invalid mailbox token",
				zap.String("mailbox_id", mailboxID),
				zap.String("ip", c.ClientIP()),
			)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid mailbox token"})
			c.Abort()
			return
		case err != nil:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			c.Abort()
			return
		}

		// 令牌有效但不属于该邮箱：按不存在处理，不暴露其他邮箱的存在性
		if mailbox.ID != mailboxID {
			c.JSON(http.StatusNotFound, gin.H{"error": "mailbox not found"})
			c.Abort()
			return
		}

		c.Set("mailbox", mailbox)
		c.Set("mailboxID", mailbox.ID)
		c.Next()
	}
}

// extractToken 从多个来源提取访问令牌
func (ma *MailboxAuth) extractToken(c *gin.Context) string {
	// 1. Authorization header (Bearer token 格式)
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
	}

	// 2. X-Mailbox-Token header
	if token := c.GetHeader("X-Mailbox-Token"); token != "" {
		return token
	}

	// 3. query parameter
	return c.Query("token")
}
