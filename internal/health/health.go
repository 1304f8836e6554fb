package health

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
	"go.uber.org/zap"

	"poofmail/backend/internal/storage"
)

// Checker 聚合存活与就绪检查，暴露 /live 和 /ready 端点。
type Checker struct {
	health healthcheck.Handler
	store  storage.Store
	logger *zap.Logger
}

// NewChecker 创建健康检查器。
func NewChecker(store storage.Store, logger *zap.Logger) *Checker {
	c := &Checker{
		health: healthcheck.NewHandler(),
		store:  store,
		logger: logger,
	}

	// 存储后端连通性：内存存储恒为健康，SQL/混合存储会探测底层连接
	c.health.AddReadinessCheck("storage", func() error {
		return c.store.Health()
	})

	// goroutine 泄漏保护
	c.health.AddLivenessCheck("goroutine-count", healthcheck.GoroutineCountCheck(500))

	return c
}

// Handler 返回健康检查处理器。
func (c *Checker) Handler() http.Handler {
	return c.health
}

// DatabaseCheck 创建带超时的数据库 ping 检查。
func DatabaseCheck(db *sql.DB) healthcheck.Check {
	return func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return db.PingContext(ctx)
	}
}
