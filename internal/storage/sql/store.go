package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver (pgx)
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"poofmail/backend/internal/domain"
	"poofmail/backend/internal/storage"
)

// Store SQL 数据库存储实现（支持 MySQL 5.7+ 和 PostgreSQL）。
type Store struct {
	db         *sql.DB
	gormDB     *gorm.DB
	driverName string // "mysql" or "postgres"

	// 速率限制为纯进程内状态，不落库
	rlMu       sync.Mutex
	rateLimits map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// NewStore 创建SQL数据库存储。
func NewStore(
	driverName string,
	dsn string,
	maxOpenConns int,
	maxIdleConns int,
	connMaxLifetime time.Duration,
) (*Store, error) {
	if driverName != "mysql" && driverName != "postgres" {
		return nil, fmt.Errorf("unsupported database driver: %s (supported: mysql, postgres)", driverName)
	}

	// pgx 的 database/sql 驱动注册名为 "pgx"
	sqlDriver := driverName
	if driverName == "postgres" {
		sqlDriver = "pgx"
	}

	db, err := sql.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(maxOpenConns)
	db.SetMaxIdleConns(maxIdleConns)
	db.SetConnMaxLifetime(connMaxLifetime)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	gormConfig := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true, // 唯一约束冲突统一翻译为 gorm.ErrDuplicatedKey
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	var gormDB *gorm.DB
	switch driverName {
	case "mysql":
		gormDB, err = gorm.Open(mysql.New(mysql.Config{Conn: db}), gormConfig)
	case "postgres":
		gormDB, err = gorm.Open(postgres.New(postgres.Config{Conn: db}), gormConfig)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize GORM: %w", err)
	}

	store := &Store{
		db:         db,
		gormDB:     gormDB,
		driverName: driverName,
		rateLimits: make(map[string]*rateLimitEntry),
	}

	if err := store.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close 关闭数据库连接。
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Health 检查数据库健康状态。
func (s *Store) Health() error {
	if s.db == nil {
		return fmt.Errorf("database connection is nil")
	}
	return s.db.Ping()
}

// Migrate 执行数据库迁移（使用GORM AutoMigrate）。
func (s *Store) Migrate() error {
	return s.gormDB.AutoMigrate(
		&domain.Mailbox{},
		&domain.Message{},
		&domain.Attachment{},
		&domain.MailboxShare{},
		&domain.MessageShare{},
	)
}

// SaveMailbox 保存邮箱信息。
func (s *Store) SaveMailbox(mailbox *domain.Mailbox) error {
	err := s.gormDB.Save(mailbox).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return storage.ErrMailboxExists
	}
	return err
}

// GetMailbox 根据 ID 获取邮箱。不做过期过滤，原样返回。
func (s *Store) GetMailbox(id string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := s.gormDB.First(&mailbox, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrMailboxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// GetMailboxByAddress 根据完整地址获取邮箱。
func (s *Store) GetMailboxByAddress(address string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := s.gormDB.First(&mailbox, "address = ?", address).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrMailboxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// GetMailboxByAccessToken 根据访问令牌获取邮箱。
func (s *Store) GetMailboxByAccessToken(token string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := s.gormDB.First(&mailbox, "access_token = ?", token).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrMailboxNotFound
	}
	if err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// ListMailboxes 返回全部邮箱。
func (s *Store) ListMailboxes() []domain.Mailbox {
	var mailboxes []domain.Mailbox
	if err := s.gormDB.Find(&mailboxes).Error; err != nil {
		return nil
	}
	return mailboxes
}

// DeleteMailbox 删除邮箱，级联删除其邮件与分享。
func (s *Store) DeleteMailbox(id string) error {
	return s.gormDB.Transaction(func(tx *gorm.DB) error {
		result := tx.Delete(&domain.Mailbox{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return storage.ErrMailboxNotFound
		}
		sub := tx.Model(&domain.Message{}).Select("id").Where("mailbox_id = ?", id)
		if err := tx.Delete(&domain.Attachment{}, "message_id IN (?)", sub).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Message{}, "mailbox_id = ?", id).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.MailboxShare{}, "mailbox_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.MessageShare{}, "mailbox_id = ?", id).Error
	})
}

// DeleteExpiredMailboxes 删除过期时间早于 before 的所有邮箱，返回删除数量。
func (s *Store) DeleteExpiredMailboxes(before int64) (int, error) {
	var ids []string
	if err := s.gormDB.Model(&domain.Mailbox{}).
		Where("expires_at < ?", before).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	err := s.gormDB.Transaction(func(tx *gorm.DB) error {
		sub := tx.Model(&domain.Message{}).Select("id").Where("mailbox_id IN ?", ids)
		if err := tx.Delete(&domain.Attachment{}, "message_id IN (?)", sub).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.Message{}, "mailbox_id IN ?", ids).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.MailboxShare{}, "mailbox_id IN ?", ids).Error; err != nil {
			return err
		}
		if err := tx.Delete(&domain.MessageShare{}, "mailbox_id IN ?", ids).Error; err != nil {
			return err
		}
		return tx.Delete(&domain.Mailbox{}, "id IN ?", ids).Error
	})
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}
