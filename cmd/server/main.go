package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	gosmtp "github.com/emersion/go-smtp"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	jwtpkg "poofmail/backend/internal/auth/jwt"
	"poofmail/backend/internal/config"
	"poofmail/backend/internal/health"
	"poofmail/backend/internal/logger"
	"poofmail/backend/internal/monitoring"
	"poofmail/backend/internal/service"
	"poofmail/backend/internal/smtp"
	"poofmail/backend/internal/storage"
	"poofmail/backend/internal/storage/hybrid"
	"poofmail/backend/internal/storage/memory"
	sqlstore "poofmail/backend/internal/storage/sql"
	httptransport "poofmail/backend/internal/transport/http"
	"poofmail/backend/internal/websocket"
)

// SMTP 最大并发连接数。单实例收信场景下 100 足够，超出直接拒绝。
const smtpMaxConns = 100

// main 启动同时包含 HTTP API 与 SMTP 的综合服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting poofmail server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	store, err := newStore(cfg, log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize storage: %v", err))
	}

	// 初始化监控与健康检查
	metrics := monitoring.NewMetrics()
	healthChecker := health.NewChecker(store, log)

	// 初始化服务层
	mailboxService := service.NewMailboxService(store, cfg)
	messageService := service.NewMessageService(store)
	shareService := service.NewShareService(store)

	// JWT 密钥未配置时禁用登录态识别，所有请求按游客处理
	var jwtManager *jwtpkg.Manager
	if cfg.JWT.Secret != "" {
		jwtManager = jwtpkg.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.Expiry)
		log.Info("JWT configuration",
			zap.String("issuer", cfg.JWT.Issuer),
			zap.Duration("expiry", cfg.JWT.Expiry),
		)
	}

	// 创建 WebSocket Hub 并挂到消息服务上，新邮件落库后实时推送
	wsHub := websocket.NewHub(cfg.CORS.AllowedOrigins, mailboxService, log)
	messageService.SetNotifier(wsHub)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:         cfg,
		MailboxService: mailboxService,
		MessageService: messageService,
		ShareService:   shareService,
		JWTManager:     jwtManager,
		WebSocketHub:   wsHub,
		Store:          store,
		Logger:         log,
		Metrics:        metrics,
	})

	// 健康检查处理器（用于 Kubernetes 等）
	// 注意：/health 与 /metrics 端点已在 router.go 中注册
	router.GET("/health/live", gin.WrapH(healthChecker.Handler()))
	router.GET("/health/ready", gin.WrapH(healthChecker.Handler()))

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 创建 SMTP 服务器
	smtpBackend := smtp.NewBackend(mailboxService, messageService, log)
	smtpServer := gosmtp.NewServer(smtpBackend)
	smtpServer.Addr = cfg.SMTP.BindAddr
	smtpServer.Domain = cfg.SMTP.Domain
	smtpServer.AllowInsecureAuth = cfg.Log.Development // 仅在开发模式允许不安全认证
	smtpServer.ReadTimeout = 10 * time.Second
	smtpServer.WriteTimeout = 10 * time.Second
	smtpServer.MaxMessageBytes = cfg.SMTP.MaxMessageBytes
	smtpServer.MaxRecipients = 50

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// SMTP 服务器 goroutine，监听器套上连接限流
	group.Go(func() error {
		log.Info("starting SMTP server",
			zap.String("address", cfg.SMTP.BindAddr),
			zap.String("domain", cfg.SMTP.Domain),
		)
		listener, err := net.Listen("tcp", cfg.SMTP.BindAddr)
		if err != nil {
			log.Error("SMTP listen error", zap.Error(err))
			return err
		}
		limiter := smtp.NewConnectionLimiter(smtpMaxConns, cfg.SMTP.ConnPerSecond)
		if err := smtpServer.Serve(smtp.NewLimitListener(listener, limiter, log)); err != nil && err != gosmtp.ErrServerClosed {
			log.Error("SMTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 定时清理过期邮箱 goroutine
	group.Go(func() error {
		ticker := time.NewTicker(cfg.Mailbox.CleanupInterval)
		defer ticker.Stop()

		log.Info("starting expired mailbox cleanup task", zap.Duration("interval", cfg.Mailbox.CleanupInterval))

		for {
			select {
			case <-groupCtx.Done():
				log.Info("cleanup task stopped")
				return nil
			case <-ticker.C:
				count, err := mailboxService.CleanupExpired()
				if err != nil {
					log.Error("failed to cleanup expired mailboxes", zap.Error(err))
				} else if count > 0 {
					metrics.RecordMailboxesExpired(count)
					log.Info("expired mailboxes cleaned up", zap.Int("count", count))
				}
			}
		}
	})

	// WebSocket Hub goroutine
	group.Go(func() error {
		log.Info("starting WebSocket hub")
		wsHub.Run(groupCtx)
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		if err := smtpServer.Close(); err != nil {
			log.Warn("SMTP server close warning", zap.Error(err))
		}

		if err := store.Close(); err != nil {
			log.Warn("storage close warning", zap.Error(err))
		}

		log.Info("servers stopped")
		return nil
	})

	// 等待所有 goroutine 完成
	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// newStore 根据配置选择存储实现。
//
//   - 未配置数据库时使用内存存储（开发环境）
//   - 配置数据库后使用 MySQL/PostgreSQL，启动时自动迁移表结构
//   - 同时启用 Redis 时使用混合存储，热点读取走缓存
func newStore(cfg *config.Config, log *zap.Logger) (storage.Store, error) {
	if cfg.Database.Type == "" || cfg.Database.DSN == "" {
		log.Info("using memory storage (development mode)")
		return memory.NewStore(), nil
	}

	if cfg.Redis.Enabled {
		store, err := hybrid.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
			cfg.Redis.Address,
			cfg.Redis.Password,
			cfg.Redis.DB,
		)
		if err != nil {
			return nil, err
		}
		if err := store.Migrate(); err != nil {
			store.Close()
			return nil, fmt.Errorf("migration failed: %w", err)
		}
		log.Info("using hybrid storage",
			zap.String("database", cfg.Database.Type),
			zap.String("redis", cfg.Redis.Address),
		)
		return store, nil
	}

	store, err := sqlstore.NewStore(
		cfg.Database.Type,
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
		cfg.Database.ConnMaxLifetime,
	)
	if err != nil {
		return nil, err
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}
	log.Info("using database storage", zap.String("type", cfg.Database.Type))
	return store, nil
}
