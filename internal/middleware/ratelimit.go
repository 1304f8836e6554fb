package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"poofmail/backend/internal/storage"
)

// RateLimitByIP 基于客户端 IP 的固定窗口限流。
// 计数器存放在 RateLimitRepository 里，混合存储下由 Redis 承载，多实例共享。
func RateLimitByIP(repo storage.RateLimitRepository, log *zap.Logger, limit int64, window time.Duration) gin.HandlerFunc {
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP() + ":" + c.FullPath()

		count, err := repo.IncrementRateLimit(key, window)
		if err != nil {
			// 限流器故障时放行，不把存储抖动放大成全站 429
			log.Warn("rate limit check failed", zap.Error(err))
			c.Next()
			return
		}

		remaining := limit - count
		if remaining < 0 {
			remaining = 0
		}
		c.Header("X-RateLimit-Limit", strconv.FormatInt(limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > limit {
			log.Warn("rate limit exceeded",
				zap.String("ip", c.ClientIP()),
				zap.String("path", c.FullPath()),
				zap.Int64("count", count),
			)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
