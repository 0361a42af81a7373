package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/zr8c/index_go_server/internal/model"
)

type BatchRepository struct {
	db *gorm.DB
}

func NewBatchRepository(db *gorm.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

func (r *BatchRepository) Create(batch *model.Batch) error {
	return r.db.Create(batch).Error
}

func (r *BatchRepository) GetByID(id int64) (*model.Batch, error) {
	var batch model.Batch
	err := r.db.Where("id = ?", id).First(&batch).Error
	if err != nil {
		return nil, err
	}
	return &batch, nil
}

func (r *BatchRepository) Update(batch *model.Batch) error {
	return r.db.Save(batch).Error
}

func (r *BatchRepository) UpdateStatus(id int64, status string) error {
	return r.db.Model(&model.Batch{}).Where("id = ?", id).Update("status", status).Error
}

// MarkReconciled 置为终态；条件带上 status != reconciled，保证终态只进入一次
func (r *BatchRepository) MarkReconciled(id int64, success, failure int, creditsCharged int64) (bool, error) {
	now := time.Now()
	res := r.db.Model(&model.Batch{}).
		Where("id = ? AND status <> ?", id, model.BatchStatusReconciled).
		Updates(map[string]interface{}{
			"status":          model.BatchStatusReconciled,
			"success_count":   success,
			"failure_count":   failure,
			"credits_charged": creditsCharged,
			"reconciled_at":   now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ListByUser 用户批次历史
func (r *BatchRepository) ListByUser(userID int64, limit int) ([]*model.Batch, error) {
	var batches []*model.Batch
	err := r.db.Where("user_id = ?", userID).Order("created_at DESC").Limit(limit).Find(&batches).Error
	return batches, err
}

// CountSince 某时刻以来的上传次数（当日上传统计）
func (r *BatchRepository) CountSince(userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.Batch{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// SumAdmissibleSince url-volume 类目的日累计量：按自然日聚合批次内可提交 URL 数
func (r *BatchRepository) SumAdmissibleSince(userID int64, since time.Time) (int64, error) {
	var total int64
	err := r.db.Model(&model.Batch{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Select("COALESCE(SUM(total_admissible), 0)").
		Scan(&total).Error
	return total, err
}

// ListUnrefunded 已对账但退款未入账的批次（退款失败后由巡检补偿）
func (r *BatchRepository) ListUnrefunded(limit int) ([]*model.Batch, error) {
	var batches []*model.Batch
	err := r.db.Where("status = ? AND refunded_at IS NULL AND credits_charged > success_count",
		model.BatchStatusReconciled).
		Order("reconciled_at ASC").
		Limit(limit).
		Find(&batches).Error
	return batches, err
}

// ListStale 超时仍未对账的批次（巡检回收的输入）
func (r *BatchRepository) ListStale(before time.Time, limit int) ([]*model.Batch, error) {
	var batches []*model.Batch
	err := r.db.Where("status <> ? AND created_at < ?", model.BatchStatusReconciled, before).
		Order("created_at ASC").
		Limit(limit).
		Find(&batches).Error
	return batches, err
}
