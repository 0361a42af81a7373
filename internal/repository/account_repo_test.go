package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/testutil"
)

func TestAccountRepository_GetByID(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)

	created := testutil.TestAccount(t, db, testutil.WithCredits(50))

	found, err := repo.GetByID(created.UserID)
	require.NoError(t, err)
	assert.Equal(t, created.UserID, found.UserID)
	assert.Equal(t, int64(50), found.Credits)
}

func TestAccountRepository_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)

	_, err := repo.GetByID(99999)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountRepository_Debit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithCredits(100))

	balance, err := repo.Debit(account.UserID, 30, "batch #1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	// 扣减与流水同事务落库
	var txs []*model.CreditTransaction
	require.NoError(t, db.Where("user_id = ?", account.UserID).Find(&txs).Error)
	require.Len(t, txs, 1)
	assert.Equal(t, model.TxKindDebit, txs[0].Kind)
	assert.Equal(t, int64(30), txs[0].Amount)
	assert.Equal(t, int64(100), txs[0].BalanceBefore)
	assert.Equal(t, int64(70), txs[0].BalanceAfter)
}

func TestAccountRepository_Debit_Insufficient(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithCredits(10))

	_, err := repo.Debit(account.UserID, 11, "batch #1")
	var insufficient *InsufficientCreditsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, int64(10), insufficient.Balance)

	// 失败无副作用：余额不变、无流水
	found, err := repo.GetByID(account.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), found.Credits)

	var count int64
	require.NoError(t, db.Model(&model.CreditTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestAccountRepository_Debit_ExactBalance(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithCredits(10))

	balance, err := repo.Debit(account.UserID, 10, "batch #1")
	require.NoError(t, err)
	assert.Zero(t, balance)
}

func TestAccountRepository_Debit_Inactive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithCredits(100), testutil.WithInactive())

	_, err := repo.Debit(account.UserID, 1, "batch #1")
	assert.ErrorIs(t, err, ErrAccountInactive)
}

func TestAccountRepository_Debit_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)

	_, err := repo.Debit(99999, 1, "batch #1")
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestAccountRepository_Debit_NeverNegative(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithCredits(25))

	// 余额只够 2 次，第 3 次必须被拒绝
	succeeded := 0
	for i := 0; i < 5; i++ {
		if _, err := repo.Debit(account.UserID, 10, "batch"); err == nil {
			succeeded++
		}
	}
	assert.Equal(t, 2, succeeded)

	found, err := repo.GetByID(account.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), found.Credits)
	assert.GreaterOrEqual(t, found.Credits, int64(0))
}

func TestAccountRepository_Credit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithCredits(0))

	balance, err := repo.Credit(account.UserID, 200, model.TxKindPurchase, "purchase")
	require.NoError(t, err)
	assert.Equal(t, int64(200), balance)

	found, err := repo.GetByID(account.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(200), found.LifetimePurchased)
}

func TestAccountRepository_Credit_RefundDoesNotBumpPurchased(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithCredits(0))

	balance, err := repo.Credit(account.UserID, 3, model.TxKindRefund, "batch #1 refund")
	require.NoError(t, err)
	assert.Equal(t, int64(3), balance)

	found, err := repo.GetByID(account.UserID)
	require.NoError(t, err)
	assert.Zero(t, found.LifetimePurchased)
}

func TestAccountRepository_RefundForBatch_ExactlyOnce(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithCredits(4))
	batch := testutil.TestBatch(t, db, account.UserID, testutil.WithAdmissible(6))

	balance, refunded, err := repo.RefundForBatch(batch.ID, account.UserID, 2, "批次 #1 失败退款")
	require.NoError(t, err)
	assert.True(t, refunded)
	assert.Equal(t, int64(6), balance)

	// 同一批次再退：认领不到 refunded_at，不入账
	_, refunded, err = repo.RefundForBatch(batch.ID, account.UserID, 2, "批次 #1 失败退款")
	require.NoError(t, err)
	assert.False(t, refunded)

	found, err := repo.GetByID(account.UserID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), found.Credits)

	var txs []*model.CreditTransaction
	require.NoError(t, db.Where("user_id = ? AND kind = ?", account.UserID, model.TxKindRefund).Find(&txs).Error)
	require.Len(t, txs, 1)
	assert.Equal(t, int64(2), txs[0].Amount)
}

func TestAccountRepository_RefundForBatch_UnknownAccountRollsBack(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	owner := testutil.TestAccount(t, db)
	batch := testutil.TestBatch(t, db, owner.UserID, testutil.WithAdmissible(3))

	// 入账失败时认领一并回滚，之后可重试
	_, refunded, err := repo.RefundForBatch(batch.ID, 99999, 3, "批次 #1 超时回收退款")
	require.ErrorIs(t, err, ErrAccountNotFound)
	assert.False(t, refunded)

	var found model.Batch
	require.NoError(t, db.First(&found, batch.ID).Error)
	assert.Nil(t, found.RefundedAt)

	balance, refunded, err := repo.RefundForBatch(batch.ID, owner.UserID, 3, "批次 #1 超时回收退款")
	require.NoError(t, err)
	assert.True(t, refunded)
	assert.Equal(t, int64(103), balance)
}

func TestAccountRepository_SetActive(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	account := testutil.TestAccount(t, db)

	require.NoError(t, repo.SetActive(account.UserID, false))

	found, err := repo.GetByID(account.UserID)
	require.NoError(t, err)
	assert.False(t, found.Active)

	assert.ErrorIs(t, repo.SetActive(99999, true), ErrAccountNotFound)
}

func TestAccountRepository_Totals(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	repo := NewAccountRepository(db)
	testutil.TestAccount(t, db, testutil.WithCredits(100))
	testutil.TestAccount(t, db, testutil.WithCredits(50), testutil.WithInactive())

	users, active, credits, _, _, err := repo.Totals()
	require.NoError(t, err)
	assert.Equal(t, int64(2), users)
	assert.Equal(t, int64(1), active)
	assert.Equal(t, int64(150), credits)
}
