package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/pkg/pubsub"
	"github.com/zr8c/index_go_server/internal/pkg/queue"
	"github.com/zr8c/index_go_server/internal/repository"
)

var (
	ErrNothingToSubmit = errors.New("没有可提交的 URL")
	ErrBatchNotFound   = errors.New("批次不存在")
)

// VolumeExceededError 当日 URL 量超限，携带剩余额度
type VolumeExceededError struct {
	Remaining int64
}

func (e *VolumeExceededError) Error() string {
	return fmt.Sprintf("今日 URL 提交量超限，剩余额度 %d", e.Remaining)
}

// DispatchService 确认批次：量级准入 -> 扣费 -> 落库 -> 入队。
// 扣费和提交是两个独立的原子步骤，中间崩溃留下的 debited 批次由巡检回收。
type DispatchService struct {
	ledger    *LedgerService
	quota     *QuotaService
	batchRepo *repository.BatchRepository
	urlRepo   *repository.URLRepository
	queue     *queue.Queue
	publisher *pubsub.Publisher
	cfg       *config.Config
}

func NewDispatchService(
	ledger *LedgerService,
	quota *QuotaService,
	batchRepo *repository.BatchRepository,
	urlRepo *repository.URLRepository,
	q *queue.Queue,
	publisher *pubsub.Publisher,
	cfg *config.Config,
) *DispatchService {
	return &DispatchService{
		ledger:    ledger,
		quota:     quota,
		batchRepo: batchRepo,
		urlRepo:   urlRepo,
		queue:     q,
		publisher: publisher,
		cfg:       cfg,
	}
}

// Confirm 用户确认待提交批次。成功后返回已扣费、已入队的批次记录。
func (s *DispatchService) Confirm(ctx context.Context, pending *PendingBatch) (*model.Batch, error) {
	count := int64(len(pending.Admissible))
	if count == 0 {
		return nil, ErrNothingToSubmit
	}

	adm, err := s.quota.AdmitVolume(pending.UserID, count)
	if err != nil {
		return nil, err
	}
	if !adm.Allowed {
		return nil, &VolumeExceededError{Remaining: adm.Remaining}
	}

	// 先扣费：扣费失败则整批终止，无任何副作用
	if _, err := s.ledger.Debit(pending.UserID, count, fmt.Sprintf("提交 %d 条 URL", count)); err != nil {
		return nil, err
	}

	batch := &model.Batch{
		UserID:          pending.UserID,
		SourceLabel:     pending.SourceLabel,
		TotalCandidate:  pending.TotalCandidate,
		TotalValid:      pending.TotalValid,
		TotalAdmissible: int(count),
		CreditsCharged:  count,
		Status:          model.BatchStatusDebited,
		ArchiveURL:      pending.ArchiveURL,
	}
	if err := s.batchRepo.Create(batch); err != nil {
		// 落库失败但钱已扣：立即全额退款
		if _, rerr := s.ledger.Refund(pending.UserID, count, "批次落库失败退款"); rerr != nil {
			log.Printf("CRITICAL: refund after batch create failure failed for user %d: %v", pending.UserID, rerr)
		}
		return nil, err
	}

	urls := make([]*model.URLSubmission, 0, count)
	for _, u := range pending.Admissible {
		urls = append(urls, &model.URLSubmission{
			BatchID: batch.ID,
			UserID:  pending.UserID,
			URL:     u,
			Status:  model.URLStatusPending,
		})
	}
	if err := s.urlRepo.BulkCreate(urls); err != nil {
		return nil, err
	}

	// 入队失败不回滚：debited 批次会被巡检发现并退款
	if err := s.queue.Push(ctx, &queue.DispatchMessage{BatchID: batch.ID, UserID: pending.UserID}); err != nil {
		log.Printf("Failed to enqueue batch %d, recovery sweep will reconcile: %v", batch.ID, err)
		return batch, nil
	}

	if s.publisher != nil {
		_ = s.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
			UserID:  pending.UserID,
			BatchID: batch.ID,
			Status:  model.BatchStatusDebited,
			Step:    pubsub.StepDebited,
		})
	}

	return batch, nil
}

// GetBatch 查询批次（校验归属）
func (s *DispatchService) GetBatch(batchID, userID int64) (*model.Batch, error) {
	batch, err := s.batchRepo.GetByID(batchID)
	if err != nil {
		return nil, ErrBatchNotFound
	}
	if batch.UserID != userID {
		return nil, ErrBatchNotFound
	}
	return batch, nil
}

// ListBatches 用户批次历史
func (s *DispatchService) ListBatches(userID int64, limit int) ([]*model.Batch, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.batchRepo.ListByUser(userID, limit)
}

// ListBatchURLs 批次内每条 URL 的结果
func (s *DispatchService) ListBatchURLs(batchID, userID int64) ([]*model.URLSubmission, error) {
	if _, err := s.GetBatch(batchID, userID); err != nil {
		return nil, err
	}
	return s.urlRepo.ListByBatch(batchID)
}
