package model

import (
	"time"
)

// 交易类型
const (
	TxKindPurchase = "purchase"
	TxKindDebit    = "debit"
	TxKindRefund   = "refund"
)

// CreditTransaction 积分流水（只追加，ID 即提交顺序）
//
// 对同一账户按 ID 升序重放，balance_after 必须与当前余额一致；
// 排序依据自增主键而非时间戳，避免时钟偏移打乱顺序。
type CreditTransaction struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	UserID        int64     `gorm:"not null;index" json:"user_id"`
	Kind          string    `gorm:"size:20;not null" json:"kind"` // purchase, debit, refund
	Amount        int64     `gorm:"not null" json:"amount"`       // 恒为正，方向由 kind 决定
	BalanceBefore int64     `gorm:"not null" json:"balance_before"`
	BalanceAfter  int64     `gorm:"not null" json:"balance_after"`
	Description   string    `gorm:"type:text" json:"description"`
	CreatedAt     time.Time `gorm:"index" json:"created_at"`
}

func (CreditTransaction) TableName() string {
	return "credit_transactions"
}
