package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/testutil"
)

func TestBatchRepository_CreateAndGet(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewBatchRepository(db)
	account := testutil.TestAccount(t, db)

	batch := testutil.TestBatch(t, db, account.UserID)

	found, err := repo.GetByID(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusDebited, found.Status)
	assert.Equal(t, account.UserID, found.UserID)
}

func TestBatchRepository_MarkReconciled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewBatchRepository(db)
	account := testutil.TestAccount(t, db)
	batch := testutil.TestBatch(t, db, account.UserID, testutil.WithBatchStatus(model.BatchStatusSubmitting))

	ok, err := repo.MarkReconciled(batch.ID, 8, 2, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.GetByID(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusReconciled, found.Status)
	assert.Equal(t, 8, found.SuccessCount)
	assert.Equal(t, 2, found.FailureCount)
	require.NotNil(t, found.ReconciledAt)
}

func TestBatchRepository_MarkReconciled_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewBatchRepository(db)
	account := testutil.TestAccount(t, db)
	batch := testutil.TestBatch(t, db, account.UserID)

	ok, err := repo.MarkReconciled(batch.ID, 10, 0, 10)
	require.NoError(t, err)
	assert.True(t, ok)

	// 第二次不命中，结果不被覆盖
	ok, err = repo.MarkReconciled(batch.ID, 0, 10, 10)
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.GetByID(batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, found.SuccessCount)
	assert.Zero(t, found.FailureCount)
}

func TestBatchRepository_SumAdmissibleSince(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewBatchRepository(db)
	account := testutil.TestAccount(t, db)

	now := time.Now()
	testutil.TestBatch(t, db, account.UserID, testutil.WithAdmissible(30))
	testutil.TestBatch(t, db, account.UserID, testutil.WithAdmissible(20))
	// 昨天的批次不计入
	testutil.TestBatch(t, db, account.UserID,
		testutil.WithAdmissible(500),
		testutil.WithBatchCreatedAt(now.Add(-25*time.Hour)))

	total, err := repo.SumAdmissibleSince(account.UserID, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(50), total)
}

func TestBatchRepository_ListStale(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewBatchRepository(db)
	account := testutil.TestAccount(t, db)

	old := time.Now().Add(-2 * time.Hour)
	stale := testutil.TestBatch(t, db, account.UserID,
		testutil.WithBatchStatus(model.BatchStatusSubmitting),
		testutil.WithBatchCreatedAt(old))
	// 已对账的旧批次不算
	testutil.TestBatch(t, db, account.UserID,
		testutil.WithBatchStatus(model.BatchStatusReconciled),
		testutil.WithBatchCreatedAt(old))
	// 新批次不算
	testutil.TestBatch(t, db, account.UserID)

	found, err := repo.ListStale(time.Now().Add(-time.Hour), 100)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, stale.ID, found[0].ID)
}
