package model

import (
	"time"
)

// Account 用户积分账户（user_id 为外部聊天身份，首次接入时创建）
type Account struct {
	UserID            int64     `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	Username          string    `gorm:"size:255" json:"username"`
	Email             *string   `gorm:"size:255" json:"email,omitempty"` // 可选，填了才发批次完成通知
	Credits           int64     `gorm:"not null;default:0" json:"credits"`
	LifetimePurchased int64     `gorm:"not null;default:0" json:"lifetime_purchased"`
	LifetimeUsed      int64     `gorm:"not null;default:0" json:"lifetime_used"`
	PlanTier          string    `gorm:"size:20;default:free" json:"plan_tier"` // free, premium
	Active            bool      `gorm:"default:true" json:"active"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
	LastActivityAt    time.Time `json:"last_activity_at"`
}

func (Account) TableName() string {
	return "accounts"
}
