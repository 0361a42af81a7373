package worker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/pkg/pubsub"
	"github.com/zr8c/index_go_server/internal/repository"
	"github.com/zr8c/index_go_server/internal/service"
)

const sweepBatchLimit = 500

// Sweeper 对账巡检：回收超时仍未到终态的批次。
// 扣费与提交是两个原子步骤，中间崩溃会留下 debited/submitting 的悬挂批次，
// 不回收的话这些积分就无声消失了。
type Sweeper struct {
	batchRepo *repository.BatchRepository
	urlRepo   *repository.URLRepository
	ledger    *service.LedgerService
	publisher *pubsub.Publisher
	cfg       *config.Config

	now func() time.Time
}

func NewSweeper(
	batchRepo *repository.BatchRepository,
	urlRepo *repository.URLRepository,
	ledger *service.LedgerService,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *Sweeper {
	return &Sweeper{
		batchRepo: batchRepo,
		urlRepo:   urlRepo,
		ledger:    ledger,
		publisher: publisher,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Sweep 处理一轮悬挂批次，返回处理条数。dryRun 只统计不动账。
func (s *Sweeper) Sweep(ctx context.Context, dryRun bool) (int, error) {
	staleAfter := time.Duration(s.cfg.Queue.StaleAfterHours) * time.Hour
	if staleAfter <= 0 {
		staleAfter = 2 * time.Hour
	}

	stale, err := s.batchRepo.ListStale(s.now().Add(-staleAfter), sweepBatchLimit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, batch := range stale {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}
		if dryRun {
			log.Printf("[dry-run] Would reconcile stale batch %d (status=%s, user=%d)", batch.ID, batch.Status, batch.UserID)
			processed++
			continue
		}
		if err := s.reconcileStale(ctx, batch); err != nil {
			log.Printf("Failed to reconcile stale batch %d: %v", batch.ID, err)
			continue
		}
		processed++
	}

	retried, err := s.retryRefunds(ctx, dryRun)
	if err != nil {
		return processed, err
	}
	return processed + retried, nil
}

// retryRefunds 补偿已对账但退款未入账的批次（对账时退款失败留下的欠账）
func (s *Sweeper) retryRefunds(ctx context.Context, dryRun bool) (int, error) {
	unrefunded, err := s.batchRepo.ListUnrefunded(sweepBatchLimit)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, batch := range unrefunded {
		if ctx.Err() != nil {
			return processed, ctx.Err()
		}

		refundDue := batch.CreditsCharged - int64(batch.SuccessCount)
		if refundDue <= 0 {
			continue
		}
		if dryRun {
			log.Printf("[dry-run] Would refund %d credits for reconciled batch %d (user=%d)", refundDue, batch.ID, batch.UserID)
			processed++
			continue
		}

		_, ok, err := s.ledger.RefundBatch(batch.ID, batch.UserID, refundDue, fmt.Sprintf("批次 #%d 补偿退款", batch.ID))
		if err != nil {
			log.Printf("Failed to retry refund for batch %d: %v", batch.ID, err)
			continue
		}
		if ok {
			log.Printf("Refunded %d credits for reconciled batch %d", refundDue, batch.ID)
			processed++
		}
	}
	return processed, nil
}

// reconcileStale 未决 URL 全部判失败后对账退款。
// 应退 = 已扣 - 成功数：扣费后连 URL 行都没落下的批次（入队前崩溃）没有失败行，
// 但扣掉的积分同样要全额退回。
func (s *Sweeper) reconcileStale(ctx context.Context, batch *model.Batch) error {
	failed, err := s.urlRepo.FailPending(batch.ID, "stale batch recovery")
	if err != nil {
		return err
	}

	successCount, err := s.urlRepo.CountByStatus(batch.ID, model.URLStatusSuccess)
	if err != nil {
		return err
	}
	failedCount, err := s.urlRepo.CountByStatus(batch.ID, model.URLStatusFailed)
	if err != nil {
		return err
	}

	won, err := s.batchRepo.MarkReconciled(batch.ID, int(successCount), int(failedCount), batch.CreditsCharged)
	if err != nil {
		return err
	}
	if !won {
		return nil
	}

	refundDue := batch.CreditsCharged - successCount
	if refundDue < 0 {
		refundDue = 0
	}
	if refundDue > 0 {
		if _, _, err := s.ledger.RefundBatch(batch.ID, batch.UserID, refundDue, fmt.Sprintf("批次 #%d 超时回收退款", batch.ID)); err != nil {
			return fmt.Errorf("stale refund of %d credits for batch %d failed: %w", refundDue, batch.ID, err)
		}
	}

	log.Printf("Stale batch %d reconciled: success=%d, failed=%d, refunded=%d (%d were unresolved)",
		batch.ID, successCount, failedCount, refundDue, failed)

	if s.publisher != nil {
		_ = s.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			UserID:       batch.UserID,
			BatchID:      batch.ID,
			Status:       model.BatchStatusReconciled,
			Step:         pubsub.StepReconciled,
			SuccessCount: int(successCount),
			FailureCount: int(failedCount),
			Refunded:     refundDue,
		})
	}
	return nil
}
