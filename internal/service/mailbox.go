package service

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"snapmail/backend/internal/address"
	"snapmail/backend/internal/domain"
	"snapmail/backend/internal/lease"
	"snapmail/backend/internal/storage"
)

// ErrAddressTaken 自定义前缀对应的地址已被活跃邮箱占用
var ErrAddressTaken = storage.ErrAddressTaken

// ErrMailboxNotFound 邮箱不存在或已过期
var ErrMailboxNotFound = storage.ErrMailboxNotFound

// 随机地址冲突时的最大重试次数
const maxGenerateAttempts = 3

// MailboxService 封装邮箱生命周期相关的业务操作。
type MailboxService struct {
	repo      storage.MailboxRepository
	generator *address.Generator
	log       *zap.Logger
}

// NewMailboxService 创建邮箱业务服务。
func NewMailboxService(repo storage.MailboxRepository, generator *address.Generator, log *zap.Logger) *MailboxService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MailboxService{
		repo:      repo,
		generator: generator,
		log:       log,
	}
}

// CreateMailboxInput 定义创建邮箱所需的输入。
type CreateMailboxInput struct {
	Prefix          string // 可选的自定义前缀，清洗后不合格则退回随机生成
	DurationMinutes int    // 生存时长（分钟），只接受 10/30/60
}

// Create 创建新的临时邮箱。
//
// 自定义前缀的地址冲突直接返回 ErrAddressTaken；
// 随机地址冲突则换一个地址重试，最多三次。
func (s *MailboxService) Create(input CreateMailboxInput) (*domain.Mailbox, error) {
	minutes := lease.NormalizeDuration(input.DurationMinutes)
	custom := s.generator.HasCustomPrefix(input.Prefix)

	addr := s.generator.Generate(input.Prefix)
	for attempt := 1; ; attempt++ {
		now := time.Now().UTC()
		mailbox := newMailbox(addr, now, minutes)

		err := s.repo.CreateMailbox(mailbox)
		if err == nil {
			s.log.Info("mailbox created",
				zap.String("address", mailbox.Address),
				zap.Int("duration_minutes", minutes),
			)
			return mailbox, nil
		}
		if !errors.Is(err, storage.ErrAddressTaken) {
			return nil, err
		}
		if custom || attempt >= maxGenerateAttempts {
			return nil, ErrAddressTaken
		}
		addr = s.generator.GenerateRandom()
	}
}

// Get 按地址获取活跃邮箱。
func (s *MailboxService) Get(addr string) (*domain.Mailbox, error) {
	return s.repo.GetActiveMailbox(addr)
}

// Refresh 把邮箱的过期时间重置为从现在起的固定续期时长。
// 无论剩余多少时间，续期后的剩余时间都是同一个值。
func (s *MailboxService) Refresh(addr string) (*domain.Mailbox, error) {
	expiresAt := lease.ComputeExpiry(time.Now().UTC(), lease.RefreshMinutes)
	return s.repo.ExtendMailbox(addr, expiresAt)
}

// Delete 删除邮箱及其全部邮件，地址不存在也返回成功。
func (s *MailboxService) Delete(addr string) error {
	return s.repo.DeleteMailbox(addr)
}

// newMailbox 用完整地址组装邮箱实体。
func newMailbox(addr string, now time.Time, minutes int) *domain.Mailbox {
	localPart, domainPart, _ := strings.Cut(addr, "@")
	return &domain.Mailbox{
		Address:         addr,
		LocalPart:       localPart,
		Domain:          domainPart,
		CreatedAt:       now,
		ExpiresAt:       lease.ComputeExpiry(now, minutes),
		DurationMinutes: minutes,
		Active:          true,
	}
}
