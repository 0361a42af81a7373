package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/zr8c/index_go_server/internal/model"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListByUser 按提交顺序（ID 升序）返回某账户全部流水
func (r *TransactionRepository) ListByUser(userID int64) ([]*model.CreditTransaction, error) {
	var txs []*model.CreditTransaction
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&txs).Error
	return txs, err
}

// ListRecentByUser 最近流水（管理后台用户详情）
func (r *TransactionRepository) ListRecentByUser(userID int64, limit int) ([]*model.CreditTransaction, error) {
	var txs []*model.CreditTransaction
	err := r.db.Where("user_id = ?", userID).Order("id DESC").Limit(limit).Find(&txs).Error
	return txs, err
}

// ListRecent 全局最近流水
func (r *TransactionRepository) ListRecent(limit int) ([]*model.CreditTransaction, error) {
	var txs []*model.CreditTransaction
	err := r.db.Order("id DESC").Limit(limit).Find(&txs).Error
	return txs, err
}

// TodayStats 当日活动统计
func (r *TransactionRepository) TodayStats(since time.Time) (activeUsers, count, added, used int64, err error) {
	type row struct {
		ActiveUsers int64
		Count       int64
		Added       int64
		Used        int64
	}
	var res row
	err = r.db.Model(&model.CreditTransaction{}).
		Where("created_at >= ?", since).
		Select("COUNT(DISTINCT user_id) AS active_users, COUNT(*) AS count, "+
			"COALESCE(SUM(CASE WHEN kind = ? THEN amount ELSE 0 END), 0) AS added, "+
			"COALESCE(SUM(CASE WHEN kind = ? THEN amount ELSE 0 END), 0) AS used",
			model.TxKindPurchase, model.TxKindDebit).
		Scan(&res).Error
	return res.ActiveUsers, res.Count, res.Added, res.Used, err
}
