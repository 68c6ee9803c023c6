package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"snapmail/backend/internal/domain"
)

// ErrCacheMiss 缓存中不存在对应条目
var ErrCacheMiss = errors.New("cache miss")

// Cache Redis 缓存实现，承担邮箱热数据缓存和限流计数。
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

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Cache{
		client: client,
		ctx:    ctx,
	}, nil
}

// ========== 邮箱缓存 ==========

// CacheMailbox 缓存邮箱信息，TTL 跟随邮箱剩余寿命。
func (c *Cache) CacheMailbox(mailbox *domain.Mailbox, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	key := mailboxKey(mailbox.Address)
	data, err := json.Marshal(mailbox)
	if err != nil {
		return err
	}
	return c.client.Set(c.ctx, key, data, ttl).Err()
}

// GetCachedMailbox 获取缓存的邮箱信息。
func (c *Cache) GetCachedMailbox(address string) (*domain.Mailbox, error) {
	data, err := c.client.Get(c.ctx, mailboxKey(address)).Result()
	if err != nil {
		if err == redis.Nil {
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
func (c *Cache) DeleteCachedMailbox(addresses ...string) error {
	if len(addresses) == 0 {
		return nil
	}
	keys := make([]string, len(addresses))
	for i, address := range addresses {
		keys[i] = mailboxKey(address)
	}
	return c.client.Del(c.ctx, keys...).Err()
}

func mailboxKey(address string) string {
	return fmt.Sprintf("mailbox:%s", address)
}

// ========== 限流缓存 ==========

// IncrementRateLimit 增加限流计数。
func (c *Cache) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	pipe := c.client.Pipeline()

	incr := pipe.Incr(c.ctx, key)
	pipe.ExpireNX(c.ctx, key, window)

	if _, err := pipe.Exec(c.ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// GetRateLimit 获取限流计数。
func (c *Cache) GetRateLimit(key string) (int64, error) {
	count, err := c.client.Get(c.ctx, key).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, err
	}
	return count, nil
}

// ========== 工具方法 ==========

// Ping 测试 Redis 连接。
func (c *Cache) Ping() error {
	return c.client.Ping(c.ctx).Err()
}

// Close 关闭 Redis 连接。
func (c *Cache) Close() error {
	return c.client.Close()
}
