package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/zr8c/index_go_server/internal/model"
)

type URLRepository struct {
	db *gorm.DB
}

func NewURLRepository(db *gorm.DB) *URLRepository {
	return &URLRepository{db: db}
}

func (r *URLRepository) BulkCreate(urls []*model.URLSubmission) error {
	if len(urls) == 0 {
		return nil
	}
	return r.db.Create(&urls).Error
}

func (r *URLRepository) ListByBatch(batchID int64) ([]*model.URLSubmission, error) {
	var urls []*model.URLSubmission
	err := r.db.Where("batch_id = ?", batchID).Order("id ASC").Find(&urls).Error
	return urls, err
}

// MarkResult 记录单条 URL 的提交结果
func (r *URLRepository) MarkResult(id int64, status, provider, errMsg string) error {
	updates := map[string]interface{}{
		"status":        status,
		"provider":      provider,
		"error_message": errMsg,
	}
	if status == model.URLStatusSuccess {
		updates["submitted_at"] = time.Now()
	}
	return r.db.Model(&model.URLSubmission{}).Where("id = ?", id).Updates(updates).Error
}

// CountByStatus 批次内某状态的 URL 数量
func (r *URLRepository) CountByStatus(batchID int64, status string) (int64, error) {
	var count int64
	err := r.db.Model(&model.URLSubmission{}).
		Where("batch_id = ? AND status = ?", batchID, status).
		Count(&count).Error
	return count, err
}

// FailPending 将批次内所有未决 URL 置为失败（整批超时 / 巡检回收）
func (r *URLRepository) FailPending(batchID int64, reason string) (int64, error) {
	res := r.db.Model(&model.URLSubmission{}).
		Where("batch_id = ? AND status = ?", batchID, model.URLStatusPending).
		Updates(map[string]interface{}{
			"status":        model.URLStatusFailed,
			"error_message": reason,
		})
	return res.RowsAffected, res.Error
}

// ProviderStats 各提交通道的成败统计（管理后台）
func (r *URLRepository) ProviderStats() (total, success, failed, google, rapid int64, err error) {
	type row struct {
		Total   int64
		Success int64
		Failed  int64
		Google  int64
		Rapid   int64
	}
	var res row
	err = r.db.Model(&model.URLSubmission{}).
		Select("COUNT(*) AS total, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS success, "+
			"SUM(CASE WHEN status = ? THEN 1 ELSE 0 END) AS failed, "+
			"SUM(CASE WHEN provider = ? THEN 1 ELSE 0 END) AS google, "+
			"SUM(CASE WHEN provider = ? THEN 1 ELSE 0 END) AS rapid",
			model.URLStatusSuccess, model.URLStatusFailed, "google", "rapid").
		Scan(&res).Error
	return res.Total, res.Success, res.Failed, res.Google, res.Rapid, err
}
