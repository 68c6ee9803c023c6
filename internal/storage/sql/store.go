package sql

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"snapmail/backend/internal/domain"
	"snapmail/backend/internal/storage"
)

// Store SQL 数据库存储实现（支持 PostgreSQL 和 MySQL）。
type Store struct {
	db *gorm.DB
}

// rateLimitRow 限流计数表
type rateLimitRow struct {
	Key       string    `gorm:"primaryKey;type:varchar(255)"`
	Count     int64     `gorm:"not null;default:0"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

func (rateLimitRow) TableName() string { return "rate_limits" }

// NewStore 创建 PostgreSQL 存储实例。
func NewStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(postgres.Open(dsn))
}

// NewMySQLStore 创建 MySQL 存储实例。
func NewMySQLStore(dsn string) (*Store, error) {
	return NewStoreWithDialector(mysql.Open(dsn))
}

// NewStoreWithDialector 使用指定的 GORM dialector 创建存储实例。
func NewStoreWithDialector(dialector gorm.Dialector) (*Store, error) {
	config := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(dialector, config)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	store := &Store{db: db}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// migrate 自动迁移数据库表结构。
func (s *Store) migrate() error {
	return s.db.AutoMigrate(
		&domain.Mailbox{},
		&domain.Message{},
		&rateLimitRow{},
	)
}

// ========== Mailbox Repository ==========

// CreateMailbox 保存新邮箱。地址主键冲突时，若占用记录已过期
// 则清理后重试一次，否则返回 ErrAddressTaken。
func (s *Store) CreateMailbox(mailbox *domain.Mailbox) error {
	err := s.db.Create(mailbox).Error
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	res := s.db.Where("address = ? AND expires_at <= ?", mailbox.Address, time.Now()).
		Delete(&domain.Mailbox{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrAddressTaken
	}

	if err := s.db.Create(mailbox).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return storage.ErrAddressTaken
		}
		return err
	}
	return nil
}

// GetActiveMailbox 按地址查询活跃且未过期的邮箱。
func (s *Store) GetActiveMailbox(address string) (*domain.Mailbox, error) {
	var mailbox domain.Mailbox
	err := s.db.Where("address = ? AND expires_at > ?", address, time.Now()).
		First(&mailbox).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMailboxNotFound
		}
		return nil, err
	}
	return &mailbox, nil
}

// ExtendMailbox 把过期时间重置为给定的绝对时刻。
func (s *Store) ExtendMailbox(address string, expiresAt time.Time) (*domain.Mailbox, error) {
	res := s.db.Model(&domain.Mailbox{}).
		Where("address = ? AND expires_at > ?", address, time.Now()).
		Update("expires_at", expiresAt)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, storage.ErrMailboxNotFound
	}
	return s.GetActiveMailbox(address)
}

// DeleteMailbox 删除邮箱及其名下全部邮件，地址不存在不算错误。
func (s *Store) DeleteMailbox(address string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("owner_address = ?", address).Delete(&domain.Message{}).Error; err != nil {
			return err
		}
		return tx.Where("address = ?", address).Delete(&domain.Mailbox{}).Error
	})
}

// ListExpiredAddresses 返回最多 limit 个已过期邮箱的地址。
func (s *Store) ListExpiredAddresses(now time.Time, limit int) ([]string, error) {
	var addresses []string
	query := s.db.Model(&domain.Mailbox{}).
		Where("expires_at <= ?", now).
		Order("expires_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Pluck("address", &addresses).Error; err != nil {
		return nil, err
	}
	return addresses, nil
}

// ========== Message Repository ==========

// SaveMessage 保存邮件信息。
func (s *Store) SaveMessage(message *domain.Message) error {
	return s.db.Create(message).Error
}

// ListMessages 按接收时间倒序返回某地址下最多 limit 封邮件。
func (s *Store) ListMessages(ownerAddress string, limit int) ([]domain.Message, error) {
	messages := make([]domain.Message, 0)
	query := s.db.Where("owner_address = ?", ownerAddress).
		Order("received_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// GetMessage 按全局 ID 获取单封邮件。
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	var message domain.Message
	err := s.db.Where("id = ?", id).First(&message).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, storage.ErrMessageNotFound
		}
		return nil, err
	}
	return &message, nil
}

// MarkMessageRead 将邮件标记为已读。
func (s *Store) MarkMessageRead(id string) error {
	res := s.db.Model(&domain.Message{}).
		Where("id = ?", id).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return storage.ErrMessageNotFound
	}
	return nil
}

// DeleteMessagesByOwners 批量删除多个地址名下的全部邮件，返回删除数量。
func (s *Store) DeleteMessagesByOwners(addresses []string) (int, error) {
	if len(addresses) == 0 {
		return 0, nil
	}
	res := s.db.Where("owner_address IN ?", addresses).Delete(&domain.Message{})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

// ========== 限流 ==========

// IncrementRateLimit 增加限流计数。窗口过期的行会被重置。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	var count int64
	now := time.Now()

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var row rateLimitRow
		err := tx.Where("key = ?", key).First(&row).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			row = rateLimitRow{Key: key, Count: 1, ExpiresAt: now.Add(window)}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case now.After(row.ExpiresAt):
			row.Count = 1
			row.ExpiresAt = now.Add(window)
			if err := tx.Save(&row).Error; err != nil {
				return err
			}
		default:
			row.Count++
			if err := tx.Model(&row).Update("count", row.Count).Error; err != nil {
				return err
			}
		}
		count = row.Count
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// GetRateLimit 获取限流计数。
func (s *Store) GetRateLimit(key string) (int64, error) {
	var row rateLimitRow
	err := s.db.Where("key = ? AND expires_at > ?", key, time.Now()).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return row.Count, nil
}

// ========== 工具方法 ==========

// Close 关闭数据库连接。
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health 检查数据库健康状态。
func (s *Store) Health() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
