package repository

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/zr8c/index_go_server/internal/model"
)

var (
	ErrAccountNotFound = errors.New("账户不存在")
	ErrAccountInactive = errors.New("账户已被禁用")
)

// InsufficientCreditsError 余额不足，携带当前余额供调用方提示差额
type InsufficientCreditsError struct {
	Balance int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("积分不足，当前余额 %d", e.Balance)
}

type AccountRepository struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(account *model.Account) error {
	return r.db.Create(account).Error
}

func (r *AccountRepository) GetByID(userID int64) (*model.Account, error) {
	var account model.Account
	err := r.db.Where("user_id = ?", userID).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return &account, nil
}

func (r *AccountRepository) List(offset, limit int) ([]*model.Account, int64, error) {
	var accounts []*model.Account
	var total int64

	if err := r.db.Model(&model.Account{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := r.db.Order("created_at DESC").Offset(offset).Limit(limit).Find(&accounts).Error
	return accounts, total, err
}

func (r *AccountRepository) SetActive(userID int64, active bool) error {
	res := r.db.Model(&model.Account{}).Where("user_id = ?", userID).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// Debit 条件扣减：单条 UPDATE 带 credits >= ? 条件，扣减与流水写入同一事务。
// 失败时无任何副作用。余额不会被并发扣成负数。
func (r *AccountRepository) Debit(userID, amount int64, description string) (int64, error) {
	var balanceAfter int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Account{}).
			Where("user_id = ? AND active = ? AND credits >= ?", userID, true, amount).
			Updates(map[string]interface{}{
				"credits":          gorm.Expr("credits - ?", amount),
				"lifetime_used":    gorm.Expr("lifetime_used + ?", amount),
				"last_activity_at": time.Now(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return r.classifyDebitFailure(tx, userID)
		}

		var account model.Account
		if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
			return err
		}
		balanceAfter = account.Credits

		return tx.Create(&model.CreditTransaction{
			UserID:        userID,
			Kind:          model.TxKindDebit,
			Amount:        amount,
			BalanceBefore: balanceAfter + amount,
			BalanceAfter:  balanceAfter,
			Description:   description,
		}).Error
	})

	return balanceAfter, err
}

// classifyDebitFailure 条件更新未命中时区分具体原因
func (r *AccountRepository) classifyDebitFailure(tx *gorm.DB, userID int64) error {
	var account model.Account
	if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	if !account.Active {
		return ErrAccountInactive
	}
	return &InsufficientCreditsError{Balance: account.Credits}
}

// Credit 无条件加积分（充值/退款），同一事务写入流水
func (r *AccountRepository) Credit(userID, amount int64, kind, description string) (int64, error) {
	var balanceAfter int64

	err := r.db.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"credits": gorm.Expr("credits + ?", amount),
		}
		if kind == model.TxKindPurchase {
			updates["lifetime_purchased"] = gorm.Expr("lifetime_purchased + ?", amount)
		}

		res := tx.Model(&model.Account{}).Where("user_id = ?", userID).Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}

		var account model.Account
		if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
			return err
		}
		balanceAfter = account.Credits

		return tx.Create(&model.CreditTransaction{
			UserID:        userID,
			Kind:          kind,
			Amount:        amount,
			BalanceBefore: balanceAfter - amount,
			BalanceAfter:  balanceAfter,
			Description:   description,
		}).Error
	})

	return balanceAfter, err
}

// RefundForBatch 批次退款，恰好一次：认领 batches.refunded_at 与入账在同一事务，
// 已认领的批次直接返回 false，失败整体回滚后可安全重试。
func (r *AccountRepository) RefundForBatch(batchID, userID, amount int64, description string) (int64, bool, error) {
	var balanceAfter int64
	refunded := false

	err := r.db.Transaction(func(tx *gorm.DB) error {
		claim := tx.Model(&model.Batch{}).
			Where("id = ? AND refunded_at IS NULL", batchID).
			Update("refunded_at", time.Now())
		if claim.Error != nil {
			return claim.Error
		}
		if claim.RowsAffected == 0 {
			return nil
		}

		res := tx.Model(&model.Account{}).Where("user_id = ?", userID).
			Update("credits", gorm.Expr("credits + ?", amount))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAccountNotFound
		}

		var account model.Account
		if err := tx.Where("user_id = ?", userID).First(&account).Error; err != nil {
			return err
		}
		balanceAfter = account.Credits
		refunded = true

		return tx.Create(&model.CreditTransaction{
			UserID:        userID,
			Kind:          model.TxKindRefund,
			Amount:        amount,
			BalanceBefore: balanceAfter - amount,
			BalanceAfter:  balanceAfter,
			Description:   description,
		}).Error
	})
	if err != nil {
		return 0, false, err
	}

	return balanceAfter, refunded, nil
}

// Totals 全局积分统计（管理后台首页）
func (r *AccountRepository) Totals() (users, active, credits, purchased, used int64, err error) {
	type row struct {
		Users     int64
		Active    int64
		Credits   int64
		Purchased int64
		Used      int64
	}
	var res row
	err = r.db.Model(&model.Account{}).
		Select("COUNT(*) AS users, " +
			"SUM(CASE WHEN active THEN 1 ELSE 0 END) AS active, " +
			"COALESCE(SUM(credits), 0) AS credits, " +
			"COALESCE(SUM(lifetime_purchased), 0) AS purchased, " +
			"COALESCE(SUM(lifetime_used), 0) AS used").
		Scan(&res).Error
	return res.Users, res.Active, res.Credits, res.Purchased, res.Used, err
}

// TopByUsage 按累计消耗排序的用户
func (r *AccountRepository) TopByUsage(limit int) ([]*model.Account, error) {
	var accounts []*model.Account
	err := r.db.Order("lifetime_used DESC").Limit(limit).Find(&accounts).Error
	return accounts, err
}
