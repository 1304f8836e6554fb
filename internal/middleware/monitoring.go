package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"poofmail/backend/internal/monitoring"
)

// HTTPMetrics HTTP 指标中间件。
// 以路由模板（c.FullPath）作为 endpoint 标签，避免路径参数导致标签爆炸。
func HTTPMetrics(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start)
		statusCode := strconv.Itoa(c.Writer.Status())

		metrics.RecordHTTPRequest(
			c.Request.Method,
			c.FullPath(),
			statusCode,
			duration,
		)

		if c.Writer.Status() >= 500 {
			metrics.RecordError("http_error", "http")
		}
	}
}

// BusinessMetrics 业务指标中间件。
// 根据路由模板记录业务计数，只统计成功的请求。
func BusinessMetrics(metrics *monitoring.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Status() >= 400 {
			return
		}

		method := c.Request.Method
		switch c.FullPath() {
		case "/v1/mailboxes":
			if method == "POST" {
				metrics.RecordMailboxCreated()
			}
		case "/v1/mailboxes/:id":
			if method == "DELETE" {
				metrics.RecordMailboxDeleted()
			}
		case "/v1/mailboxes/:id/messages":
			if method == "POST" {
				metrics.RecordMessageReceived()
			}
		case "/v1/mailboxes/:id/messages/:messageId":
			if method == "DELETE" {
				metrics.RecordMessageDeleted()
			}
		case "/v1/mailboxes/:id/messages/:messageId/read":
			if method == "POST" {
				metrics.RecordMessageRead()
			}
		case "/v1/mailboxes/:id/shares":
			if method == "POST" {
				metrics.RecordShareCreated("mailbox")
			}
		case "/v1/mailboxes/:id/shares/:shareId":
			if method == "DELETE" {
				metrics.RecordShareRevoked("mailbox")
			}
		case "/v1/mailboxes/:id/messages/:messageId/shares":
			if method == "POST" {
				metrics.RecordShareCreated("message")
			}
		case "/v1/mailboxes/:id/message-shares/:shareId":
			if method == "DELETE" {
				metrics.RecordShareRevoked("message")
			}
		}
	}
}
