package model

import (
	"time"
)

// 批次状态机：debited -> submitting -> reconciled（reconciled 为终态，只进入一次）
const (
	BatchStatusDebited    = "debited"
	BatchStatusSubmitting = "submitting"
	BatchStatusReconciled = "reconciled"
)

// Batch 一次上传-提交周期的审计记录
type Batch struct {
	ID              int64      `gorm:"primaryKey" json:"id"`
	UserID          int64      `gorm:"not null;index" json:"user_id"`
	SourceLabel     string     `gorm:"size:255" json:"source_label"` // 原始文件名
	TotalCandidate  int        `gorm:"not null" json:"total_candidate"`
	TotalValid      int        `gorm:"not null" json:"total_valid"`
	TotalAdmissible int        `gorm:"not null" json:"total_admissible"`
	CreditsCharged  int64      `gorm:"not null;default:0" json:"credits_charged"`
	Status          string     `gorm:"size:20;default:debited;index" json:"status"`
	SuccessCount    int        `json:"success_count"`
	FailureCount    int        `json:"failure_count"`
	ArchiveURL      string     `gorm:"size:500" json:"archive_url,omitempty"` // 原始文件 OSS 存档
	CreatedAt       time.Time  `gorm:"index" json:"created_at"`
	ReconciledAt    *time.Time `json:"reconciled_at,omitempty"`
	RefundedAt      *time.Time `json:"refunded_at,omitempty"` // 退款入账标记，对账后欠退的批次由巡检补偿
}

func (Batch) TableName() string {
	return "batches"
}
