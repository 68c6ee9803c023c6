package domain

import "time"

// Message 表示投递到某个临时邮箱的一封邮件。
//
// 邮件通过 OwnerAddress 关联所属邮箱（按键查询，不是所有权指针）；
// 邮箱被回收时其全部邮件必须一并删除，不允许留下孤儿邮件。
type Message struct {
	ID           string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OwnerAddress string    `json:"-" gorm:"type:varchar(255);index;not null"`
	Sender       string    `json:"sender" gorm:"type:varchar(255)"`
	Subject      string    `json:"subject" gorm:"type:varchar(500)"`
	BodyText     string    `json:"body" gorm:"type:text"`
	BodyHTML     string    `json:"body_html" gorm:"type:text"`
	ReceivedAt   time.Time `json:"received_at" gorm:"index"`
	IsRead       bool      `json:"is_read" gorm:"default:false"`
}

// MessageSummary 是邮件列表中的摘要形式：不含正文，只带预览。
type MessageSummary struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Preview    string    `json:"preview"`
	ReceivedAt time.Time `json:"received_at"`
	IsRead     bool      `json:"is_read"`
}

// Summary 生成邮件的摘要形式，预览取正文前 PreviewLength 个字符。
func (m *Message) Summary() MessageSummary {
	return MessageSummary{
		ID:         m.ID,
		Sender:     m.Sender,
		Subject:    m.Subject,
		Preview:    Truncate(m.BodyText, PreviewLength),
		ReceivedAt: m.ReceivedAt,
		IsRead:     m.IsRead,
	}
}
