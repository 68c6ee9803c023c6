package service

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"snapmail/backend/internal/domain"
	"snapmail/backend/internal/security"
	"snapmail/backend/internal/storage"
)

var (
	// ErrNoRecipient 入站邮件缺少收件人
	ErrNoRecipient = errors.New("no recipient")
	// ErrInvalidRecipient 收件人地址格式非法
	ErrInvalidRecipient = errors.New("invalid recipient address")
)

// 投递方没有给出发件人或主题时的占位值
const (
	defaultSender  = "unknown@sender.com"
	defaultSubject = "(No Subject)"
)

// InboundMessage 描述一封入站邮件的原始内容。
type InboundMessage struct {
	Recipients []string // 收件人列表，只投递给第一个
	Sender     string
	Subject    string
	BodyText   string
	BodyHTML   string
}

// DeliveryResult 描述一次投递的结果。
type DeliveryResult struct {
	Recipient string // 归一化后的目标地址
	Stored    bool   // false 表示没有匹配的活跃邮箱，邮件被丢弃
	MessageID string // 存储成功时的邮件 ID
}

// DeliveryService 负责入站邮件的路由与落库。
type DeliveryService struct {
	mailboxes storage.MailboxRepository
	messages  storage.MessageRepository
	validator *domain.AddressValidator
	sanitizer *security.HTMLSanitizer
	log       *zap.Logger
}

// NewDeliveryService 创建投递服务。
func NewDeliveryService(mailboxes storage.MailboxRepository, messages storage.MessageRepository, log *zap.Logger) *DeliveryService {
	if log == nil {
		log = zap.NewNop()
	}
	return &DeliveryService{
		mailboxes: mailboxes,
		messages:  messages,
		validator: domain.NewAddressValidator(),
		sanitizer: security.NewHTMLSanitizer(),
		log:       log,
	}
}

// Deliver 接收一封入站邮件并尝试投递。
//
// 收件人缺失或格式非法返回错误；目标邮箱不存在或已过期
// 不算错误，邮件被静默丢弃，结果里 Stored 为 false。
// 超限字段直接截断，HTML 正文在落库前做脚本清洗。
func (s *DeliveryService) Deliver(inbound InboundMessage) (*DeliveryResult, error) {
	recipient, err := s.resolveRecipient(inbound.Recipients)
	if err != nil {
		return nil, err
	}

	if _, err := s.mailboxes.GetActiveMailbox(recipient); err != nil {
		if errors.Is(err, storage.ErrMailboxNotFound) {
			s.log.Debug("inbound message discarded, no active mailbox",
				zap.String("recipient", recipient),
			)
			return &DeliveryResult{Recipient: recipient, Stored: false}, nil
		}
		return nil, err
	}

	sender := inbound.Sender
	if sender == "" {
		sender = defaultSender
	}
	subject := inbound.Subject
	if subject == "" {
		subject = defaultSubject
	}

	message := &domain.Message{
		ID:           uuid.NewString(),
		OwnerAddress: recipient,
		Sender:       domain.Truncate(sender, domain.MaxAddressLength),
		Subject:      domain.Truncate(subject, domain.MaxSubjectLength),
		BodyText:     domain.Truncate(inbound.BodyText, domain.MaxBodyLength),
		BodyHTML:     s.sanitizer.Sanitize(domain.Truncate(inbound.BodyHTML, domain.MaxBodyLength)),
		ReceivedAt:   time.Now().UTC(),
		IsRead:       false,
	}

	if err := s.messages.SaveMessage(message); err != nil {
		return nil, err
	}

	s.log.Info("inbound message stored",
		zap.String("recipient", recipient),
		zap.String("message_id", message.ID),
	)
	return &DeliveryResult{
		Recipient: recipient,
		Stored:    true,
		MessageID: message.ID,
	}, nil
}

// resolveRecipient 取第一个收件人并做归一化与校验。
func (s *DeliveryService) resolveRecipient(recipients []string) (string, error) {
	if len(recipients) == 0 {
		return "", ErrNoRecipient
	}

	recipient := s.validator.NormalizeAddress(recipients[0])
	if recipient == "" {
		return "", ErrNoRecipient
	}
	if err := s.validator.ValidateAddress(recipient); err != nil {
		return "", ErrInvalidRecipient
	}
	return recipient, nil
}
