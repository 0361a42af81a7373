package repository

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/zr8c/index_go_server/internal/model"
)

type RateLimitRepository struct {
	db *gorm.DB
}

func NewRateLimitRepository(db *gorm.DB) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// LogViolation 记录一次限流触发
func (r *RateLimitRepository) LogViolation(userID int64, category string) error {
	return r.db.Create(&model.QuotaViolation{
		UserID:     userID,
		Category:   category,
		ViolatedAt: time.Now(),
	}).Error
}

// CountViolationsSince 某时刻以来的触发次数
func (r *RateLimitRepository) CountViolationsSince(userID int64, since time.Time) (int64, error) {
	var count int64
	err := r.db.Model(&model.QuotaViolation{}).
		Where("user_id = ? AND violated_at >= ?", userID, since).
		Count(&count).Error
	return count, err
}

// GetOverride 按用户的限额覆盖，未配置时返回 nil
func (r *RateLimitRepository) GetOverride(userID int64) (*model.RateLimitOverride, error) {
	var override model.RateLimitOverride
	err := r.db.Where("user_id = ?", userID).First(&override).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &override, nil
}

// UpsertOverride 设置/更新用户限额覆盖
func (r *RateLimitRepository) UpsertOverride(override *model.RateLimitOverride) error {
	return r.db.Save(override).Error
}
