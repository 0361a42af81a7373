package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/testutil"
)

func TestTransactionRepository_ListByUser_Order(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	accountRepo := NewAccountRepository(db)
	txRepo := NewTransactionRepository(db)
	account := testutil.TestAccount(t, db, testutil.WithCredits(100))

	// 同一墙钟时刻的多笔操作，顺序由流水 ID 决定
	_, err := accountRepo.Debit(account.UserID, 10, "batch #1")
	require.NoError(t, err)
	_, err = accountRepo.Credit(account.UserID, 5, model.TxKindRefund, "batch #1 refund")
	require.NoError(t, err)
	_, err = accountRepo.Debit(account.UserID, 20, "batch #2")
	require.NoError(t, err)

	txs, err := txRepo.ListByUser(account.UserID)
	require.NoError(t, err)
	require.Len(t, txs, 3)

	// 重放流水应还原余额
	balance := int64(100)
	for _, tx := range txs {
		assert.Equal(t, balance, tx.BalanceBefore)
		switch tx.Kind {
		case model.TxKindDebit:
			balance -= tx.Amount
		default:
			balance += tx.Amount
		}
		assert.Equal(t, balance, tx.BalanceAfter)
	}
	assert.Equal(t, int64(75), balance)

	found, err := accountRepo.GetByID(account.UserID)
	require.NoError(t, err)
	assert.Equal(t, balance, found.Credits)
}

func TestTransactionRepository_TodayStats(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer testutil.CleanupTestDB(t, db)

	accountRepo := NewAccountRepository(db)
	txRepo := NewTransactionRepository(db)

	a := testutil.TestAccount(t, db, testutil.WithCredits(100))
	b := testutil.TestAccount(t, db, testutil.WithCredits(100))

	_, err := accountRepo.Debit(a.UserID, 10, "batch")
	require.NoError(t, err)
	_, err = accountRepo.Credit(b.UserID, 50, model.TxKindPurchase, "purchase")
	require.NoError(t, err)

	activeUsers, count, added, used, err := txRepo.TodayStats(time.Now().Add(-time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(2), activeUsers)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(50), added)
	assert.Equal(t, int64(10), used)
}
