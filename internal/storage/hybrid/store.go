package hybrid

import (
	"fmt"
	"time"

	"snapmail/backend/internal/domain"
	"snapmail/backend/internal/storage/redis"
	"snapmail/backend/internal/storage/sql"
)

// Store 混合存储实现：SQL 数据库为主存储，Redis 承担邮箱缓存与限流。
type Store struct {
	sql   *sql.Store
	redis *redis.Cache
}

// NewStore 创建混合存储实例（指定数据库类型）。
func NewStore(dbType, dsn, redisAddr, redisPassword string, redisDB int) (*Store, error) {
	var dbStore *sql.Store
	var err error

	switch dbType {
	case "mysql":
		dbStore, err = sql.NewMySQLStore(dsn)
	case "postgres", "postgresql":
		dbStore, err = sql.NewStore(dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s (supported: mysql, postgres)", dbType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	redisCache, err := redis.NewCache(redisAddr, redisPassword, redisDB)
	if err != nil {
		dbStore.Close()
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	}

	return &Store{
		sql:   dbStore,
		redis: redisCache,
	}, nil
}

// ========== Mailbox Repository ==========

// CreateMailbox 保存新邮箱并写入缓存。
func (s *Store) CreateMailbox(mailbox *domain.Mailbox) error {
	if err := s.sql.CreateMailbox(mailbox); err != nil {
		return err
	}

	// 缓存失败不影响主流程
	s.redis.CacheMailbox(mailbox, time.Until(mailbox.ExpiresAt))
	return nil
}

// GetActiveMailbox 优先读缓存，未命中回落到数据库并回填。
func (s *Store) GetActiveMailbox(address string) (*domain.Mailbox, error) {
	if mailbox, err := s.redis.GetCachedMailbox(address); err == nil {
		if mailbox.ExpiresAt.After(time.Now()) {
			return mailbox, nil
		}
		s.redis.DeleteCachedMailbox(address)
	}

	mailbox, err := s.sql.GetActiveMailbox(address)
	if err != nil {
		return nil, err
	}

	s.redis.CacheMailbox(mailbox, time.Until(mailbox.ExpiresAt))
	return mailbox, nil
}

// ExtendMailbox 更新数据库中的过期时间并刷新缓存。
func (s *Store) ExtendMailbox(address string, expiresAt time.Time) (*domain.Mailbox, error) {
	mailbox, err := s.sql.ExtendMailbox(address, expiresAt)
	if err != nil {
		return nil, err
	}

	s.redis.CacheMailbox(mailbox, time.Until(mailbox.ExpiresAt))
	return mailbox, nil
}

// DeleteMailbox 删除数据库记录并清理缓存。
func (s *Store) DeleteMailbox(address string) error {
	if err := s.sql.DeleteMailbox(address); err != nil {
		return err
	}

	s.redis.DeleteCachedMailbox(address)
	return nil
}

// ListExpiredAddresses 回收扫描直接走数据库。
func (s *Store) ListExpiredAddresses(now time.Time, limit int) ([]string, error) {
	return s.sql.ListExpiredAddresses(now, limit)
}

// ========== Message Repository ==========

// SaveMessage 保存邮件信息。
func (s *Store) SaveMessage(message *domain.Message) error {
	return s.sql.SaveMessage(message)
}

// ListMessages 按接收时间倒序返回邮件列表。
func (s *Store) ListMessages(ownerAddress string, limit int) ([]domain.Message, error) {
	return s.sql.ListMessages(ownerAddress, limit)
}

// GetMessage 按全局 ID 获取单封邮件。
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	return s.sql.GetMessage(id)
}

// MarkMessageRead 将邮件标记为已读。
func (s *Store) MarkMessageRead(id string) error {
	return s.sql.MarkMessageRead(id)
}

// DeleteMessagesByOwners 批量删除邮件并清理属主缓存。
func (s *Store) DeleteMessagesByOwners(addresses []string) (int, error) {
	count, err := s.sql.DeleteMessagesByOwners(addresses)
	if err != nil {
		return count, err
	}

	s.redis.DeleteCachedMailbox(addresses...)
	return count, nil
}

// ========== 限流 ==========

// IncrementRateLimit 增加限流计数（走 Redis，性能更好）。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	return s.redis.IncrementRateLimit(key, window)
}

// GetRateLimit 获取限流计数。
func (s *Store) GetRateLimit(key string) (int64, error) {
	return s.redis.GetRateLimit(key)
}

// ========== 工具方法 ==========

// Close 关闭所有存储连接。
func (s *Store) Close() error {
	redisErr := s.redis.Close()
	sqlErr := s.sql.Close()
	if sqlErr != nil {
		return sqlErr
	}
	return redisErr
}

// Health 检查所有存储的健康状态。
func (s *Store) Health() error {
	if err := s.sql.Health(); err != nil {
		return fmt.Errorf("database unhealthy: %w", err)
	}
	if err := s.redis.Ping(); err != nil {
		return fmt.Errorf("redis unhealthy: %w", err)
	}
	return nil
}
