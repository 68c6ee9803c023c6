package service

import (
	"snapmail/backend/internal/domain"
	"snapmail/backend/internal/storage"
)

// ErrMessageNotFound 邮件不存在
var ErrMessageNotFound = storage.ErrMessageNotFound

// MessageService 封装邮件查询相关的业务操作。
type MessageService struct {
	messages  storage.MessageRepository
	mailboxes storage.MailboxRepository
	listLimit int
}

// NewMessageService 创建邮件业务服务。
func NewMessageService(messages storage.MessageRepository, mailboxes storage.MailboxRepository, listLimit int) *MessageService {
	if listLimit <= 0 {
		listLimit = 50
	}
	return &MessageService{
		messages:  messages,
		mailboxes: mailboxes,
		listLimit: listLimit,
	}
}

// List 返回某个活跃邮箱的邮件摘要列表，按接收时间倒序。
// 邮箱不存在或已过期时返回 ErrMailboxNotFound。
func (s *MessageService) List(ownerAddress string) ([]domain.MessageSummary, error) {
	if _, err := s.mailboxes.GetActiveMailbox(ownerAddress); err != nil {
		return nil, err
	}

	messages, err := s.messages.ListMessages(ownerAddress, s.listLimit)
	if err != nil {
		return nil, err
	}

	summaries := make([]domain.MessageSummary, 0, len(messages))
	for i := range messages {
		summaries = append(summaries, messages[i].Summary())
	}
	return summaries, nil
}

// Get 获取单封邮件的完整内容，同时把它标记为已读。
// 返回的邮件已读标志反映获取之后的状态。
func (s *MessageService) Get(id string) (*domain.Message, error) {
	message, err := s.messages.GetMessage(id)
	if err != nil {
		return nil, err
	}

	if !message.IsRead {
		if err := s.messages.MarkMessageRead(id); err != nil {
			return nil, err
		}
		message.IsRead = true
	}
	return message, nil
}
