package model

import (
	"time"
)

// DomainVerification 域名归属校验缓存（只追加，读取最新一条；超过 TTL 视为缺失）
type DomainVerification struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Domain    string    `gorm:"size:255;not null;index" json:"domain"`
	Verified  bool      `gorm:"not null" json:"verified"`
	CheckedAt time.Time `gorm:"not null;index" json:"checked_at"`
}

func (DomainVerification) TableName() string {
	return "domain_verifications"
}

// VerificationFailure 未验证域名拦截记录（用于向用户汇报需要验证的域名）
type VerificationFailure struct {
	ID       int64     `gorm:"primaryKey" json:"id"`
	UserID   int64     `gorm:"not null;index" json:"user_id"`
	Domain   string    `gorm:"size:255;not null;index" json:"domain"`
	URL      string    `gorm:"size:2048;not null" json:"url"`
	Notified bool      `gorm:"default:false" json:"notified"`
	FailedAt time.Time `gorm:"index" json:"failed_at"`
}

func (VerificationFailure) TableName() string {
	return "verification_failures"
}
