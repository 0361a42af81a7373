package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zr8c/index_go_server/config"
)

func newPendingService(t *testing.T, capacity int) *PendingService {
	t.Helper()

	cfg := &config.Config{}
	cfg.Upload.PendingTTLMin = 30
	cfg.Upload.PendingCapacity = capacity

	svc := NewPendingService(cfg)
	t.Cleanup(svc.Stop)
	return svc
}

func TestPendingService_PutTake(t *testing.T) {
	svc := newPendingService(t, 10)

	token, err := svc.Put(&PendingBatch{UserID: 42, Admissible: []string{"https://a.com/1"}})
	require.NoError(t, err)
	require.NotEmpty(t, token)

	batch, err := svc.Take(token, 42)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.com/1"}, batch.Admissible)

	// 只允许消费一次
	_, err = svc.Take(token, 42)
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestPendingService_WrongUserCannotTake(t *testing.T) {
	svc := newPendingService(t, 10)

	token, err := svc.Put(&PendingBatch{UserID: 42})
	require.NoError(t, err)

	_, err = svc.Take(token, 43)
	assert.ErrorIs(t, err, ErrPendingNotFound)

	// 原持有者仍可取出
	_, err = svc.Take(token, 42)
	assert.NoError(t, err)
}

func TestPendingService_Expiry(t *testing.T) {
	svc := newPendingService(t, 10)

	clock := &fakeClock{now: time.Now()}
	svc.now = clock.Now

	token, err := svc.Put(&PendingBatch{UserID: 42})
	require.NoError(t, err)

	clock.Advance(31 * time.Minute)
	_, err = svc.Take(token, 42)
	assert.ErrorIs(t, err, ErrPendingNotFound)
}

func TestPendingService_CapacityEvictsOldest(t *testing.T) {
	svc := newPendingService(t, 3)

	clock := &fakeClock{now: time.Now()}
	svc.now = clock.Now

	tokens := make([]string, 0, 4)
	for i := 0; i < 4; i++ {
		token, err := svc.Put(&PendingBatch{UserID: 42, SourceLabel: fmt.Sprintf("f%d.txt", i)})
		require.NoError(t, err)
		tokens = append(tokens, token)
		clock.Advance(time.Second)
	}

	assert.Equal(t, 3, svc.Size())

	// 最旧的被淘汰
	_, err := svc.Peek(tokens[0], 42)
	assert.ErrorIs(t, err, ErrPendingNotFound)

	batch, err := svc.Peek(tokens[3], 42)
	require.NoError(t, err)
	assert.Equal(t, "f3.txt", batch.SourceLabel)
}
