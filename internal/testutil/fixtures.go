package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/zr8c/index_go_server/internal/model"
)

var nextUserID int64 = 100000

// TestAccount 创建测试账户
func TestAccount(t *testing.T, db *gorm.DB, opts ...func(*model.Account)) *model.Account {
	t.Helper()

	id := atomic.AddInt64(&nextUserID, 1)
	account := &model.Account{
		UserID:   id,
		Username: fmt.Sprintf("testuser_%d", id),
		Credits:  100,
		PlanTier: "free",
		Active:   true,
	}

	for _, opt := range opts {
		opt(account)
	}

	// Active 带 default:true 标签，零值 false 会被 Create 替换成默认值（并回写到结构体），
	// 先记录意图，插入后再写回
	inactive := !account.Active

	if err := db.Create(account).Error; err != nil {
		t.Fatalf("Failed to create test account: %v", err)
	}

	if inactive {
		if err := db.Model(account).Update("active", false).Error; err != nil {
			t.Fatalf("Failed to deactivate test account: %v", err)
		}
		account.Active = false
	}

	return account
}

// WithUserID 设置用户 ID
func WithUserID(id int64) func(*model.Account) {
	return func(a *model.Account) {
		a.UserID = id
	}
}

// WithCredits 设置余额
func WithCredits(credits int64) func(*model.Account) {
	return func(a *model.Account) {
		a.Credits = credits
	}
}

// WithPlanTier 设置套餐级别
func WithPlanTier(tier string) func(*model.Account) {
	return func(a *model.Account) {
		a.PlanTier = tier
	}
}

// WithInactive 停用账户
func WithInactive() func(*model.Account) {
	return func(a *model.Account) {
		a.Active = false
	}
}

// TestBatch 创建测试批次
func TestBatch(t *testing.T, db *gorm.DB, userID int64, opts ...func(*model.Batch)) *model.Batch {
	t.Helper()

	batch := &model.Batch{
		UserID:          userID,
		SourceLabel:     "urls.txt",
		TotalCandidate:  10,
		TotalValid:      10,
		TotalAdmissible: 10,
		CreditsCharged:  10,
		Status:          model.BatchStatusDebited,
	}

	for _, opt := range opts {
		opt(batch)
	}

	if err := db.Create(batch).Error; err != nil {
		t.Fatalf("Failed to create test batch: %v", err)
	}

	return batch
}

// WithBatchStatus 设置批次状态
func WithBatchStatus(status string) func(*model.Batch) {
	return func(b *model.Batch) {
		b.Status = status
	}
}

// WithAdmissible 设置可提交 URL 数
func WithAdmissible(n int) func(*model.Batch) {
	return func(b *model.Batch) {
		b.TotalAdmissible = n
		b.CreditsCharged = int64(n)
	}
}

// WithBatchOutcome 设置对账结果
func WithBatchOutcome(success, failure int) func(*model.Batch) {
	return func(b *model.Batch) {
		b.SuccessCount = success
		b.FailureCount = failure
	}
}

// WithBatchCreatedAt 设置批次创建时间
func WithBatchCreatedAt(at time.Time) func(*model.Batch) {
	return func(b *model.Batch) {
		b.CreatedAt = at
	}
}

// TestURLs 为批次创建测试 URL 记录
func TestURLs(t *testing.T, db *gorm.DB, batch *model.Batch, urls ...string) []*model.URLSubmission {
	t.Helper()

	subs := make([]*model.URLSubmission, 0, len(urls))
	for _, u := range urls {
		subs = append(subs, &model.URLSubmission{
			BatchID: batch.ID,
			UserID:  batch.UserID,
			URL:     u,
			Status:  model.URLStatusPending,
		})
	}
	if err := db.Create(&subs).Error; err != nil {
		t.Fatalf("Failed to create test urls: %v", err)
	}

	return subs
}

// TestVerification 写入一条域名校验缓存
func TestVerification(t *testing.T, db *gorm.DB, domain string, verified bool, checkedAt time.Time) *model.DomainVerification {
	t.Helper()

	rec := &model.DomainVerification{
		Domain:    domain,
		Verified:  verified,
		CheckedAt: checkedAt,
	}
	if err := db.Create(rec).Error; err != nil {
		t.Fatalf("Failed to create test verification: %v", err)
	}

	return rec
}
