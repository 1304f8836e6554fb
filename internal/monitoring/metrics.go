package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 监控指标
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 邮箱指标
	MailboxesCreated prometheus.Counter
	MailboxesDeleted prometheus.Counter
	MailboxesExpired prometheus.Counter

	// 邮件指标
	MessagesReceived prometheus.Counter
	MessagesRead     prometheus.Counter
	MessagesDeleted  prometheus.Counter

	// 分享指标
	SharesCreated *prometheus.CounterVec
	SharesRevoked *prometheus.CounterVec

	// 错误指标
	ErrorsTotal *prometheus.CounterVec
	PanicsTotal prometheus.Counter

	// 限流指标
	RateLimitBlocks *prometheus.CounterVec
}

// NewMetrics 创建监控指标
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poofmail_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "poofmail_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		MailboxesCreated: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "poofmail_mailboxes_created_total",
				Help: "Total number of mailboxes created",
			},
		),

		MailboxesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "poofmail_mailboxes_deleted_total",
				Help: "Total number of mailboxes deleted",
			},
		),

		MailboxesExpired: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "poofmail_mailboxes_expired_total",
				Help: "Total number of mailboxes removed by expiry cleanup",
			},
		),

		MessagesReceived: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "poofmail_messages_received_total",
				Help: "Total number of messages received",
			},
		),

		MessagesRead: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "poofmail_messages_read_total",
				Help: "Total number of messages marked as read",
			},
		),

		MessagesDeleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "poofmail_messages_deleted_total",
				Help: "Total number of messages deleted",
			},
		),

		SharesCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poofmail_shares_created_total",
				Help: "Total number of share links created",
			},
			[]string{"kind"}, // mailbox / message
		),

		SharesRevoked: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poofmail_shares_revoked_total",
				Help: "Total number of share links revoked",
			},
			[]string{"kind"},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poofmail_errors_total",
				Help: "Total number of errors",
			},
			[]string{"type", "component"},
		),

		PanicsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "poofmail_panics_total",
				Help: "Total number of recovered panics",
			},
		),

		RateLimitBlocks: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "poofmail_rate_limit_blocks_total",
				Help: "Total number of requests blocked by rate limiting",
			},
			[]string{"limit_type"},
		),
	}
}

// RecordHTTPRequest 记录 HTTP 请求指标
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordMailboxCreated 记录邮箱创建
func (m *Metrics) RecordMailboxCreated() {
	m.MailboxesCreated.Inc()
}

// RecordMailboxDeleted 记录邮箱删除
func (m *Metrics) RecordMailboxDeleted() {
	m.MailboxesDeleted.Inc()
}

// RecordMailboxesExpired 记录清理任务删除的过期邮箱数量
func (m *Metrics) RecordMailboxesExpired(count int) {
	m.MailboxesExpired.Add(float64(count))
}

// RecordMessageReceived 记录邮件接收
func (m *Metrics) RecordMessageReceived() {
	m.MessagesReceived.Inc()
}

// RecordMessageRead 记录邮件已读
func (m *Metrics) RecordMessageRead() {
	m.MessagesRead.Inc()
}

// RecordMessageDeleted 记录邮件删除
func (m *Metrics) RecordMessageDeleted() {
	m.MessagesDeleted.Inc()
}

// RecordShareCreated 记录分享链接创建。kind 为 "mailbox" 或 "message"。
func (m *Metrics) RecordShareCreated(kind string) {
	m.SharesCreated.WithLabelValues(kind).Inc()
}

// RecordShareRevoked 记录分享链接撤销
func (m *Metrics) RecordShareRevoked(kind string) {
	m.SharesRevoked.WithLabelValues(kind).Inc()
}

// RecordError 记录错误
func (m *Metrics) RecordError(errorType, component string) {
	m.ErrorsTotal.WithLabelValues(errorType, component).Inc()
}

// RecordPanic 记录 panic
func (m *Metrics) RecordPanic() {
	m.PanicsTotal.Inc()
}

// RecordRateLimitBlock 记录限流拦截
func (m *Metrics) RecordRateLimitBlock(limitType string) {
	m.RateLimitBlocks.WithLabelValues(limitType).Inc()
}

// HTTPHandler 返回 Prometheus HTTP 处理器
func (m *Metrics) HTTPHandler() http.Handler {
	return promhttp.Handler()
}
