package model

import (
	"time"
)

// QuotaViolation 限流触发记录（监控用）
type QuotaViolation struct {
	ID         int64     `gorm:"primaryKey" json:"id"`
	UserID     int64     `gorm:"not null;index" json:"user_id"`
	Category   string    `gorm:"size:50;not null" json:"category"`
	ViolatedAt time.Time `gorm:"index" json:"violated_at"`
}

func (QuotaViolation) TableName() string {
	return "quota_violations"
}

// RateLimitOverride 按用户覆盖默认限额（如 premium 用户），只替换限额不改算法
type RateLimitOverride struct {
	UserID            int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	FilesPerHour      *int      `json:"files_per_hour,omitempty"`
	URLsPerDay        *int      `json:"urls_per_day,omitempty"`
	APICallsPerMinute *int      `json:"api_calls_per_minute,omitempty"`
	CommandsPerMinute *int      `json:"commands_per_minute,omitempty"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func (RateLimitOverride) TableName() string {
	return "rate_limit_overrides"
}
