package memory

import (
	"sort"
	"sync"
	"time"

	"snapmail/backend/internal/domain"
	"snapmail/backend/internal/storage"
)

// Store 使用内存保存邮箱与邮件数据，主要用于开发验证和测试。
type Store struct {
	mu        sync.RWMutex
	mailboxes map[string]*domain.Mailbox            // address -> mailbox
	messages  map[string]map[string]*domain.Message // address -> messageID -> message
	byMessage map[string]string                     // messageID -> address

	// 速率限制相关
	rateLimits        map[string]*rateLimitEntry
	rateLimitsCleanup time.Time // 下次清理过期速率限制的时间
}

// rateLimitEntry 速率限制条目
type rateLimitEntry struct {
	Count     int64
	ExpiresAt time.Time
}

// NewStore 创建一个内存存储实例。
func NewStore() *Store {
	return &Store{
		mailboxes:         make(map[string]*domain.Mailbox),
		messages:          make(map[string]map[string]*domain.Message),
		byMessage:         make(map[string]string),
		rateLimits:        make(map[string]*rateLimitEntry),
		rateLimitsCleanup: time.Now().Add(5 * time.Minute),
	}
}

// CreateMailbox 保存新邮箱。地址仍被活跃邮箱占用时返回
// ErrAddressTaken；占用者已过期则先清理再接管地址。
func (s *Store) CreateMailbox(mailbox *domain.Mailbox) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.mailboxes[mailbox.Address]; ok {
		if !existing.ExpiresAt.Before(time.Now()) {
			return storage.ErrAddressTaken
		}
		s.deleteMailboxLocked(mailbox.Address)
	}

	clone := *mailbox
	s.mailboxes[mailbox.Address] = &clone
	return nil
}

// GetActiveMailbox 按地址查询活跃且未过期的邮箱。
func (s *Store) GetActiveMailbox(address string) (*domain.Mailbox, error) {
	s.mu.RLock()
	mailbox, ok := s.mailboxes[address]
	s.mu.RUnlock()
	if !ok {
		return nil, storage.ErrMailboxNotFound
	}
	if mailbox.ExpiresAt.Before(time.Now()) {
		// 已过期的邮箱对外不可见，等待回收器删除
		return nil, storage.ErrMailboxNotFound
	}

	clone := *mailbox
	return &clone, nil
}

// ExtendMailbox 把过期时间重置为给定的绝对时刻。
func (s *Store) ExtendMailbox(address string, expiresAt time.Time) (*domain.Mailbox, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mailbox, ok := s.mailboxes[address]
	if !ok || mailbox.ExpiresAt.Before(time.Now()) {
		return nil, storage.ErrMailboxNotFound
	}

	mailbox.ExpiresAt = expiresAt
	clone := *mailbox
	return &clone, nil
}

// DeleteMailbox 删除邮箱及其名下全部邮件，地址不存在不算错误。
func (s *Store) DeleteMailbox(address string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.deleteMailboxLocked(address)
	return nil
}

// ListExpiredAddresses 返回最多 limit 个已过期邮箱的地址。
func (s *Store) ListExpiredAddresses(now time.Time, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0)
	for address, mailbox := range s.mailboxes {
		if limit > 0 && len(result) >= limit {
			break
		}
		if mailbox.ExpiresAt.Before(now) {
			result = append(result, address)
		}
	}
	return result, nil
}

func (s *Store) deleteMailboxLocked(address string) {
	if msgMap, ok := s.messages[address]; ok {
		for id := range msgMap {
			delete(s.byMessage, id)
		}
	}
	delete(s.messages, address)
	delete(s.mailboxes, address)
}

// SaveMessage 保存邮件信息。
func (s *Store) SaveMessage(message *domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[message.OwnerAddress]; !ok {
		s.messages[message.OwnerAddress] = make(map[string]*domain.Message)
	}
	clone := *message
	s.messages[message.OwnerAddress][message.ID] = &clone
	s.byMessage[message.ID] = message.OwnerAddress
	return nil
}

// ListMessages 按接收时间倒序返回某地址下最多 limit 封邮件。
func (s *Store) ListMessages(ownerAddress string, limit int) ([]domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgMap, ok := s.messages[ownerAddress]
	if !ok {
		return []domain.Message{}, nil
	}

	result := make([]domain.Message, 0, len(msgMap))
	for _, msg := range msgMap {
		result = append(result, *msg)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ReceivedAt.After(result[j].ReceivedAt)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

// GetMessage 按全局 ID 获取单封邮件。
func (s *Store) GetMessage(id string) (*domain.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	address, ok := s.byMessage[id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}
	msg, ok := s.messages[address][id]
	if !ok {
		return nil, storage.ErrMessageNotFound
	}

	clone := *msg
	return &clone, nil
}

// MarkMessageRead 将邮件标记为已读。
func (s *Store) MarkMessageRead(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	address, ok := s.byMessage[id]
	if !ok {
		return storage.ErrMessageNotFound
	}
	msg, ok := s.messages[address][id]
	if !ok {
		return storage.ErrMessageNotFound
	}

	msg.IsRead = true
	return nil
}

// DeleteMessagesByOwners 批量删除多个地址名下的全部邮件，返回删除数量。
func (s *Store) DeleteMessagesByOwners(addresses []string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, address := range addresses {
		msgMap, ok := s.messages[address]
		if !ok {
			continue
		}
		for id := range msgMap {
			delete(s.byMessage, id)
		}
		count += len(msgMap)
		delete(s.messages, address)
	}
	return count, nil
}

// IncrementRateLimit 增加限流计数。
func (s *Store) IncrementRateLimit(key string, window time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	// 清理过期的速率限制条目（每5分钟清理一次）
	if now.After(s.rateLimitsCleanup) {
		for k, v := range s.rateLimits {
			if now.After(v.ExpiresAt) {
				delete(s.rateLimits, k)
			}
		}
		s.rateLimitsCleanup = now.Add(5 * time.Minute)
	}

	entry, exists := s.rateLimits[key]
	if !exists || now.After(entry.ExpiresAt) {
		entry = &rateLimitEntry{
			Count:     1,
			ExpiresAt: now.Add(window),
		}
		s.rateLimits[key] = entry
		return 1, nil
	}

	entry.Count++
	return entry.Count, nil
}

// GetRateLimit 获取限流计数。
func (s *Store) GetRateLimit(key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.rateLimits[key]
	if !exists || time.Now().After(entry.ExpiresAt) {
		return 0, nil
	}
	return entry.Count, nil
}

// Close 关闭存储连接。
func (s *Store) Close() error {
	// 内存存储不需要关闭连接
	return nil
}

// Health 健康检查。
func (s *Store) Health() error {
	// 内存存储总是健康的
	return nil
}
