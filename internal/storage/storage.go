package storage

import (
	"errors"
	"time"

	"snapmail/backend/internal/domain"
)

var (
	// ErrMailboxNotFound 邮箱不存在或已失效
	ErrMailboxNotFound = errors.New("mailbox not found")
	// ErrMessageNotFound 邮件不存在
	ErrMessageNotFound = errors.New("message not found")
	// ErrAddressTaken 地址已被活跃邮箱占用
	ErrAddressTaken = errors.New("address already taken")
)

// MailboxRepository 定义邮箱数据存取操作。
type MailboxRepository interface {
	// CreateMailbox 保存新邮箱；地址已被活跃邮箱占用时返回
	// ErrAddressTaken，绝不覆盖既有记录。
	CreateMailbox(mailbox *domain.Mailbox) error

	// GetActiveMailbox 按地址查询活跃且未过期的邮箱。
	GetActiveMailbox(address string) (*domain.Mailbox, error)

	// ExtendMailbox 把过期时间重置为给定的绝对时刻。
	ExtendMailbox(address string, expiresAt time.Time) (*domain.Mailbox, error)

	// DeleteMailbox 删除邮箱；地址不存在不算错误（幂等）。
	DeleteMailbox(address string) error

	// ListExpiredAddresses 返回最多 limit 个已过期邮箱的地址，
	// 限制单轮回收的工作量。
	ListExpiredAddresses(now time.Time, limit int) ([]string, error)
}

// MessageRepository 定义邮件数据存取操作。
type MessageRepository interface {
	// SaveMessage 保存邮件；不校验所属邮箱是否存在，
	// 那是投递路由在调用前的职责。
	SaveMessage(message *domain.Message) error

	// ListMessages 按接收时间倒序返回某地址下最多 limit 封邮件。
	ListMessages(ownerAddress string, limit int) ([]domain.Message, error)

	// GetMessage 按全局 ID 获取单封邮件。
	GetMessage(id string) (*domain.Message, error)

	// MarkMessageRead 将邮件置为已读，只翻转一次。
	MarkMessageRead(id string) error

	// DeleteMessagesByOwners 批量删除多个地址名下的全部邮件，
	// 返回删除数量。回收与显式删除共用这条路径。
	DeleteMessagesByOwners(addresses []string) (int, error)
}

// RateLimitRepository 定义限流计数操作。
type RateLimitRepository interface {
	IncrementRateLimit(key string, window time.Duration) (int64, error)
	GetRateLimit(key string) (int64, error)
}

// Store 定义完整的存储接口。
type Store interface {
	MailboxRepository
	MessageRepository
	RateLimitRepository

	Close() error
	Health() error
}
