package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/zr8c/index_go_server/internal/model"
)

type VerificationRepository struct {
	db *gorm.DB
}

func NewVerificationRepository(db *gorm.DB) *VerificationRepository {
	return &VerificationRepository{db: db}
}

// GetFresh 返回给定域名中缓存仍然新鲜的校验结果。
// 缓存只追加，同一域名取最新一条；早于 since 的记录视为缺失。
func (r *VerificationRepository) GetFresh(domains []string, since time.Time) (map[string]bool, error) {
	if len(domains) == 0 {
		return map[string]bool{}, nil
	}

	var records []*model.DomainVerification
	err := r.db.Where("domain IN ? AND checked_at >= ?", domains, since).
		Order("checked_at ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	// 升序遍历，后写的覆盖先写的
	result := make(map[string]bool, len(records))
	for _, rec := range records {
		result[rec.Domain] = rec.Verified
	}
	return result, nil
}

func (r *VerificationRepository) BulkCreate(records []*model.DomainVerification) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.Create(&records).Error
}

// PurgeOlderThan 清理过期缓存行
func (r *VerificationRepository) PurgeOlderThan(t time.Time) (int64, error) {
	res := r.db.Where("checked_at < ?", t).Delete(&model.DomainVerification{})
	return res.RowsAffected, res.Error
}

// LogFailures 记录被未验证域名拦截的 URL
func (r *VerificationRepository) LogFailures(failures []*model.VerificationFailure) error {
	if len(failures) == 0 {
		return nil
	}
	return r.db.Create(&failures).Error
}

// UnverifiedReport 某用户未通知过的未验证域名汇总
func (r *VerificationRepository) UnverifiedReport(userID int64) ([]*UnverifiedDomain, error) {
	var rows []*UnverifiedDomain
	err := r.db.Model(&model.VerificationFailure{}).
		Where("user_id = ? AND notified = ?", userID, false).
		Select("domain, COUNT(*) AS blocked_urls, MIN(failed_at) AS first_failure, MAX(failed_at) AS last_failure").
		Group("domain").
		Order("blocked_urls DESC").
		Scan(&rows).Error
	return rows, err
}

// UnverifiedDomain 汇总行
type UnverifiedDomain struct {
	Domain       string
	BlockedURLs  int64
	FirstFailure time.Time
	LastFailure  time.Time
}

// MarkNotified 域名指引已发送
func (r *VerificationRepository) MarkNotified(userID int64, domain string) error {
	return r.db.Model(&model.VerificationFailure{}).
		Where("user_id = ? AND domain = ?", userID, domain).
		Update("notified", true).Error
}
