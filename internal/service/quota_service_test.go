package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/repository"
	"github.com/zr8c/index_go_server/internal/testutil"
)

func newQuotaService(t *testing.T) (*QuotaService, *gorm.DB) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{}
	cfg.RateLimit.FilesPerHour = 10
	cfg.RateLimit.URLsPerDay = 1000
	cfg.RateLimit.APICallsPerMinute = 3
	cfg.RateLimit.CommandsPerMinute = 30

	svc := NewQuotaService(
		repository.NewRateLimitRepository(db),
		repository.NewBatchRepository(db),
		cfg,
	)
	return svc, db
}

// fakeClock 可推进的测试时钟
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestQuotaService_SlidingWindow(t *testing.T) {
	svc, _ := newQuotaService(t)
	account := int64(42)

	clock := &fakeClock{now: time.Now()}
	svc.now = clock.Now

	// api-calls 限额 3/分钟：前 3 次放行
	for i := 0; i < 3; i++ {
		adm, err := svc.Admit(account, CategoryAPICalls, 1)
		require.NoError(t, err)
		assert.True(t, adm.Allowed, "call %d", i)
	}

	// 第 4 次立即请求被拒，等待时间不超过窗口
	adm, err := svc.Admit(account, CategoryAPICalls, 1)
	require.NoError(t, err)
	assert.False(t, adm.Allowed)
	assert.Greater(t, adm.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, adm.RetryAfter, time.Minute)

	// 时钟推进 61 秒后窗口清空
	clock.Advance(61 * time.Second)
	adm, err = svc.Admit(account, CategoryAPICalls, 1)
	require.NoError(t, err)
	assert.True(t, adm.Allowed)
}

func TestQuotaService_FileUploadsScenario(t *testing.T) {
	svc, db := newQuotaService(t)
	account := testutil.TestAccount(t, db)

	clock := &fakeClock{now: time.Now()}
	svc.now = clock.Now

	// 10/小时：10 次放行，第 11 次拒绝
	for i := 0; i < 10; i++ {
		adm, err := svc.Admit(account.UserID, CategoryFileUploads, 1)
		require.NoError(t, err)
		require.True(t, adm.Allowed, "upload %d", i)
	}

	adm, err := svc.Admit(account.UserID, CategoryFileUploads, 1)
	require.NoError(t, err)
	assert.False(t, adm.Allowed)
	assert.Greater(t, adm.RetryAfter, time.Duration(0))

	clock.Advance(time.Hour + time.Second)
	adm, err = svc.Admit(account.UserID, CategoryFileUploads, 1)
	require.NoError(t, err)
	assert.True(t, adm.Allowed)
}

func TestQuotaService_DenialLogsViolation(t *testing.T) {
	svc, db := newQuotaService(t)
	account := testutil.TestAccount(t, db)

	for i := 0; i < 3; i++ {
		_, err := svc.Admit(account.UserID, CategoryAPICalls, 1)
		require.NoError(t, err)
	}
	adm, err := svc.Admit(account.UserID, CategoryAPICalls, 1)
	require.NoError(t, err)
	require.False(t, adm.Allowed)

	rlRepo := repository.NewRateLimitRepository(db)
	count, err := rlRepo.CountViolationsSince(account.UserID, time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestQuotaService_AdmitVolume(t *testing.T) {
	svc, db := newQuotaService(t)
	account := testutil.TestAccount(t, db)

	// 今日已提交 950 条
	testutil.TestBatch(t, db, account.UserID, testutil.WithAdmissible(950))

	adm, err := svc.AdmitVolume(account.UserID, 40)
	require.NoError(t, err)
	assert.True(t, adm.Allowed)
	assert.Equal(t, int64(10), adm.Remaining)

	// 超量请求被拒，返回剩余额度而非等待时间
	adm, err = svc.AdmitVolume(account.UserID, 60)
	require.NoError(t, err)
	assert.False(t, adm.Allowed)
	assert.Equal(t, int64(50), adm.Remaining)
	assert.Zero(t, adm.RetryAfter)
}

func TestQuotaService_AdmitVolume_IgnoresYesterday(t *testing.T) {
	svc, db := newQuotaService(t)
	account := testutil.TestAccount(t, db)

	testutil.TestBatch(t, db, account.UserID,
		testutil.WithAdmissible(999),
		testutil.WithBatchCreatedAt(time.Now().UTC().Add(-36*time.Hour)))

	adm, err := svc.AdmitVolume(account.UserID, 1000)
	require.NoError(t, err)
	assert.True(t, adm.Allowed)
}

func TestQuotaService_OverrideReplacesLimit(t *testing.T) {
	svc, db := newQuotaService(t)
	account := testutil.TestAccount(t, db, testutil.WithPlanTier("premium"))

	limit := 5
	require.NoError(t, svc.SetOverride(account.UserID, nil, nil, &limit, nil))

	// 覆盖后 api-calls 限额从 3 提升到 5
	for i := 0; i < 5; i++ {
		adm, err := svc.Admit(account.UserID, CategoryAPICalls, 1)
		require.NoError(t, err)
		require.True(t, adm.Allowed, "call %d", i)
	}
	adm, err := svc.Admit(account.UserID, CategoryAPICalls, 1)
	require.NoError(t, err)
	assert.False(t, adm.Allowed)
}

func TestQuotaService_WeightedAdmit(t *testing.T) {
	svc, _ := newQuotaService(t)

	// weight 大于剩余额度直接拒绝
	adm, err := svc.Admit(7, CategoryAPICalls, 2)
	require.NoError(t, err)
	assert.True(t, adm.Allowed)

	adm, err = svc.Admit(7, CategoryAPICalls, 2)
	require.NoError(t, err)
	assert.False(t, adm.Allowed)
}

func TestQuotaService_UnknownCategory(t *testing.T) {
	svc, _ := newQuotaService(t)

	_, err := svc.Admit(7, "nonsense", 1)
	assert.ErrorIs(t, err, ErrUnknownCategory)
}
