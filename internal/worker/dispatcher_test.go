package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/pkg/indexer"
	"github.com/zr8c/index_go_server/internal/pkg/queue"
	"github.com/zr8c/index_go_server/internal/repository"
	"github.com/zr8c/index_go_server/internal/service"
	"github.com/zr8c/index_go_server/internal/testutil"
)

// scriptedSubmitter 按 URL 脚本化提交结果，记录每条 URL 的调用次数
type scriptedSubmitter struct {
	mu      sync.Mutex
	results map[string]error
	calls   map[string]int
}

func newScriptedSubmitter() *scriptedSubmitter {
	return &scriptedSubmitter{
		results: make(map[string]error),
		calls:   make(map[string]int),
	}
}

func (s *scriptedSubmitter) Submit(ctx context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[url]++
	return s.results[url]
}

func (s *scriptedSubmitter) Name() string { return "google" }

func (s *scriptedSubmitter) callCount(url string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[url]
}

func newDispatcher(t *testing.T, submitter indexer.Submitter) (*Dispatcher, *gorm.DB, *service.LedgerService) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	t.Cleanup(func() { testutil.CleanupTestDB(t, db) })

	cfg := &config.Config{}
	cfg.Indexing.MaxRetries = 3
	cfg.Indexing.BatchTimeoutMin = 60
	cfg.Indexing.Parallelism = 4

	accountRepo := repository.NewAccountRepository(db)
	ledger := service.NewLedgerService(accountRepo, repository.NewTransactionRepository(db), cfg)

	d := NewDispatcher(
		repository.NewBatchRepository(db),
		repository.NewURLRepository(db),
		ledger,
		submitter,
		nil,
		nil,
		cfg,
	)
	// 测试不等真实退避
	d.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return d, db, ledger
}

func TestDispatcher_AllSuccess(t *testing.T) {
	submitter := newScriptedSubmitter()
	d, db, _ := newDispatcher(t, submitter)

	account := testutil.TestAccount(t, db, testutil.WithCredits(100))
	batch := testutil.TestBatch(t, db, account.UserID, testutil.WithAdmissible(3))
	testutil.TestURLs(t, db, batch, "https://a.com/1", "https://a.com/2", "https://a.com/3")

	err := d.Process(context.Background(), &queue.DispatchMessage{BatchID: batch.ID, UserID: account.UserID})
	require.NoError(t, err)

	found, err := d.batchRepo.GetByID(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusReconciled, found.Status)
	assert.Equal(t, 3, found.SuccessCount)
	assert.Zero(t, found.FailureCount)
	require.NotNil(t, found.ReconciledAt)

	// 全部成功不退款
	acc, err := repository.NewAccountRepository(db).GetByID(account.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), acc.Credits)
}

func TestDispatcher_PartialFailureRefundsExactly(t *testing.T) {
	submitter := newScriptedSubmitter()
	submitter.results["https://a.com/5"] = errors.New("invalid url")
	submitter.results["https://a.com/6"] = errors.New("rejected")
	d, db, _ := newDispatcher(t, submitter)

	// 余额 10，已为 6 条扣费 6 -> 余额 4
	account := testutil.TestAccount(t, db, testutil.WithCredits(4))
	batch := testutil.TestBatch(t, db, account.UserID, testutil.WithAdmissible(6))
	testutil.TestURLs(t, db, batch,
		"https://a.com/1", "https://a.com/2", "https://a.com/3",
		"https://a.com/4", "https://a.com/5", "https://a.com/6")

	err := d.Process(context.Background(), &queue.DispatchMessage{BatchID: batch.ID, UserID: account.UserID})
	require.NoError(t, err)

	found, err := d.batchRepo.GetByID(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, found.SuccessCount)
	assert.Equal(t, 2, found.FailureCount)

	// 恰好退 2：最终余额 = 扣费前 10 - (6-2) = 6
	acc, err := repository.NewAccountRepository(db).GetByID(account.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), acc.Credits)

	// 退款流水恰好一笔
	var refunds []*model.CreditTransaction
	require.NoError(t, db.Where("user_id = ? AND kind = ?", account.UserID, model.TxKindRefund).Find(&refunds).Error)
	require.Len(t, refunds, 1)
	assert.Equal(t, int64(2), refunds[0].Amount)
}

func TestDispatcher_RedeliveryIsIdempotent(t *testing.T) {
	submitter := newScriptedSubmitter()
	submitter.results["https://a.com/2"] = errors.New("rejected")
	d, db, _ := newDispatcher(t, submitter)

	account := testutil.TestAccount(t, db, testutil.WithCredits(10))
	batch := testutil.TestBatch(t, db, account.UserID, testutil.WithAdmissible(2))
	testutil.TestURLs(t, db, batch, "https://a.com/1", "https://a.com/2")

	msg := &queue.DispatchMessage{BatchID: batch.ID, UserID: account.UserID}
	require.NoError(t, d.Process(context.Background(), msg))
	// 队列重复投递同一批次
	require.NoError(t, d.Process(context.Background(), msg))

	// 退款只发生一次
	acc, err := repository.NewAccountRepository(db).GetByID(account.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), acc.Credits)

	var refunds []*model.CreditTransaction
	require.NoError(t, db.Where("user_id = ? AND kind = ?", account.UserID, model.TxKindRefund).Find(&refunds).Error)
	assert.Len(t, refunds, 1)

	// URL 不被二次提交
	assert.Equal(t, 1, submitter.callCount("https://a.com/1"))
}

func TestDispatcher_TransientRetriedThenFails(t *testing.T) {
	submitter := newScriptedSubmitter()
	submitter.results["https://a.com/1"] = &indexer.TransientError{Err: errors.New("503")}
	d, db, _ := newDispatcher(t, submitter)

	account := testutil.TestAccount(t, db, testutil.WithCredits(10))
	batch := testutil.TestBatch(t, db, account.UserID, testutil.WithAdmissible(1))
	testutil.TestURLs(t, db, batch, "https://a.com/1")

	err := d.Process(context.Background(), &queue.DispatchMessage{BatchID: batch.ID, UserID: account.UserID})
	require.NoError(t, err)

	// 首次 + 3 次重试
	assert.Equal(t, 4, submitter.callCount("https://a.com/1"))

	found, err := d.batchRepo.GetByID(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, found.FailureCount)
}

func TestDispatcher_PermanentNotRetried(t *testing.T) {
	submitter := newScriptedSubmitter()
	submitter.results["https://a.com/1"] = errors.New("malformed url")
	d, db, _ := newDispatcher(t, submitter)

	account := testutil.TestAccount(t, db, testutil.WithCredits(10))
	batch := testutil.TestBatch(t, db, account.UserID, testutil.WithAdmissible(1))
	testutil.TestURLs(t, db, batch, "https://a.com/1")

	err := d.Process(context.Background(), &queue.DispatchMessage{BatchID: batch.ID, UserID: account.UserID})
	require.NoError(t, err)

	assert.Equal(t, 1, submitter.callCount("https://a.com/1"))
}

func TestDispatcher_ResumesOnlyPendingURLs(t *testing.T) {
	submitter := newScriptedSubmitter()
	d, db, _ := newDispatcher(t, submitter)

	account := testutil.TestAccount(t, db, testutil.WithCredits(10))
	batch := testutil.TestBatch(t, db, account.UserID,
		testutil.WithAdmissible(2),
		testutil.WithBatchStatus(model.BatchStatusSubmitting))
	urls := testutil.TestURLs(t, db, batch, "https://a.com/1", "https://a.com/2")

	// 模拟上一次崩溃前已完成一条
	urlRepo := repository.NewURLRepository(db)
	require.NoError(t, urlRepo.MarkResult(urls[0].ID, model.URLStatusSuccess, "google", ""))

	err := d.Process(context.Background(), &queue.DispatchMessage{BatchID: batch.ID, UserID: account.UserID})
	require.NoError(t, err)

	assert.Zero(t, submitter.callCount("https://a.com/1"))
	assert.Equal(t, 1, submitter.callCount("https://a.com/2"))

	found, err := d.batchRepo.GetByID(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.SuccessCount)
}
