package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"poofmail/backend/internal/domain"
)

// ErrCacheMiss 缓存未命中。
var ErrCacheMiss = errors.New("cache miss")

// Cache Redis 缓存实现。
type Cache struct {
	client *redis.Client
	ctx    context.Context
}

// NewCache 创建 Redis 缓存实例。
func NewCache(addr, password string, db int) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx := context.Background()

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{client: client, ctx: ctx}, nil
}

// ========== 邮箱缓存 ==========

// CacheMailbox 缓存邮箱信息。
func (c *Cache) CacheMailbox(mailbox *domain.Mailbox, ttl time.Duration) error {
	data, err := json.Marshal(mailbox)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, "mailbox:"+mailbox.ID, data, ttl).Err()
}

// GetCachedMailbox 获取缓存的邮箱信息。
func (c *Cache) GetCachedMailbox(mailboxID string) (*domain.Mailbox, error) {
	data, err := c.client.Get(c.ctx, "mailbox:"+mailboxID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var mailbox domain.Mailbox
	if err := json.Unmarshal([]byte(data), &mailbox); err != nil {
		return nil, err
	}
	return &mailbox, nil
}

// DeleteCachedMailbox 删除缓存的邮箱信息。
func (c *Cache) DeleteCachedMailbox(mailboxID string) error {
	return c.client.Del(c.ctx, "mailbox:"+mailboxID).Err()
}

// ========== 分享令牌缓存 ==========
// 公开分享路径按 token 查询最频繁，短 TTL 缓存可以挡掉绝大部分热点查询；
// 撤销分享时同步失效，过期判定仍由服务层基于记录里的 expiresAt 进行。

// CacheMailboxShare 按令牌缓存邮箱分享记录。
func (c *Cache) CacheMailboxShare(share *domain.MailboxShare, ttl time.Duration) error {
	data, err := json.Marshal(share)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, "share:mailbox:"+share.Token, data, ttl).Err()
}

// GetCachedMailboxShare 按令牌获取缓存的邮箱分享记录。
func (c *Cache) GetCachedMailboxShare(token string) (*domain.MailboxShare, error) {
	data, err := c.client.Get(c.ctx, "share:mailbox:"+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var share domain.MailboxShare
	if err := json.Unmarshal([]byte(data), &share); err != nil {
		return nil, err
	}
	return &share, nil
}

// DeleteCachedMailboxShare 失效指定令牌的邮箱分享缓存。
func (c *Cache) DeleteCachedMailboxShare(token string) error {
	return c.client.Del(c.ctx, "share:mailbox:"+token).Err()
}

// CacheMessageShare 按令牌缓存邮件分享记录。
func (c *Cache) CacheMessageShare(share *domain.MessageShare, ttl time.Duration) error {
	data, err := json.Marshal(share)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, "share:message:"+share.Token, data, ttl).Err()
}

// GetCachedMessageShare 按令牌获取缓存的邮件分享记录。
func (c *Cache) GetCachedMessageShare(token string) (*domain.MessageShare, error) {
	data, err := c.client.Get(c.ctx, "share:message:"+token).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var share domain.MessageShare
	if err := json.Unmarshal([]byte(data), &share); err != nil {
		return nil, err
	}
	return &share, nil
}

// DeleteCachedMessageShare 失效指定令牌的邮件分享缓存。
func (c *Cache) DeleteCachedMessageShare(token string) error {
	return c.client.Del(c.ctx, "share:message:"+token).Err()
}

// ========== 速率限制 ==========

// IncrementRateLimit 在给定窗口内递增计数器并返回当前值。
func (c *Cache) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	rlKey := "ratelimit:" + key

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(c.ctx, rlKey)
	pipe.ExpireNX(c.ctx, rlKey, window)
	if _, err := pipe.Exec(c.ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// GetRateLimit 返回当前窗口内的计数值。
func (c *Cache) GetRateLimit(key string) (int64, error) {
	val, err := c.client.Get(c.ctx, "ratelimit:"+key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return val, err
}

// Ping 测试 Redis 连接。
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close 关闭 Redis 连接。
func (c *Cache) Close() error {
	return c.client.Close()
}
