package domain

import (
	"time"
)

// Mailbox 表示一个临时邮箱的业务实体。
//
// 地址本身就是邮箱的唯一标识，也是唯一的访问凭证：同一地址在任意
// 时刻最多存在一个活跃邮箱，创建冲突必须触发重新生成而不是覆盖。
type Mailbox struct {
	Address         string    `json:"email" gorm:"primaryKey;type:varchar(255)"`
	LocalPart       string    `json:"-" gorm:"type:varchar(255)"`
	Domain          string    `json:"-" gorm:"type:varchar(100);index"`
	CreatedAt       time.Time `json:"created_at"`
	ExpiresAt       time.Time `json:"expires_at" gorm:"index"`
	DurationMinutes int       `json:"duration_minutes"`
	Active          bool      `json:"-" gorm:"default:true;index"`
}
