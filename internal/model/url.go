package model

import (
	"time"
)

// 单条 URL 提交状态
const (
	URLStatusPending = "pending"
	URLStatusSuccess = "success"
	URLStatusFailed  = "failed"
)

// URLSubmission 批次内单条 URL 的提交结果（巡检据此计算未决数量）
type URLSubmission struct {
	ID           int64      `gorm:"primaryKey" json:"id"`
	BatchID      int64      `gorm:"not null;index" json:"batch_id"`
	UserID       int64      `gorm:"not null;index" json:"user_id"`
	URL          string     `gorm:"size:2048;not null" json:"url"`
	Status       string     `gorm:"size:20;default:pending;index" json:"status"`
	Provider     string     `gorm:"size:20" json:"provider,omitempty"` // google, rapid
	ErrorMessage string     `gorm:"type:text" json:"error_message,omitempty"`
	SubmittedAt  *time.Time `json:"submitted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (URLSubmission) TableName() string {
	return "url_submissions"
}
