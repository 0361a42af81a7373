package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/pkg/email"
	"github.com/zr8c/index_go_server/internal/pkg/indexer"
	"github.com/zr8c/index_go_server/internal/pkg/pubsub"
	"github.com/zr8c/index_go_server/internal/pkg/queue"
	"github.com/zr8c/index_go_server/internal/repository"
	"github.com/zr8c/index_go_server/internal/service"
)

// Dispatcher 批次分发处理器。队列是 at-least-once 投递，
// 终态转移（MarkReconciled）带条件更新，重复投递不会二次退款。
type Dispatcher struct {
	batchRepo *repository.BatchRepository
	urlRepo   *repository.URLRepository
	ledger    *service.LedgerService
	submitter indexer.Submitter
	publisher *pubsub.Publisher
	emailSvc  *email.Service
	cfg       *config.Config

	// 测试中可替换的重试等待
	sleep func(ctx context.Context, d time.Duration) error
}

func NewDispatcher(
	batchRepo *repository.BatchRepository,
	urlRepo *repository.URLRepository,
	ledger *service.LedgerService,
	submitter indexer.Submitter,
	publisher *pubsub.Publisher,
	emailSvc *email.Service,
	cfg *config.Config,
) *Dispatcher {
	return &Dispatcher{
		batchRepo: batchRepo,
		urlRepo:   urlRepo,
		ledger:    ledger,
		submitter: submitter,
		publisher: publisher,
		emailSvc:  emailSvc,
		cfg:       cfg,
		sleep:     sleepCtx,
	}
}

// Process 处理一个批次：并行提交全部未决 URL，然后对账退款
func (d *Dispatcher) Process(ctx context.Context, msg *queue.DispatchMessage) error {
	batch, err := d.batchRepo.GetByID(msg.BatchID)
	if err != nil {
		return fmt.Errorf("failed to get batch: %w", err)
	}

	// 重复投递：已到终态直接跳过
	if batch.Status == model.BatchStatusReconciled {
		log.Printf("Batch %d already reconciled, skipping redelivery", batch.ID)
		return nil
	}

	if err := d.batchRepo.UpdateStatus(batch.ID, model.BatchStatusSubmitting); err != nil {
		return err
	}
	d.publishProgress(ctx, batch, model.BatchStatusSubmitting, pubsub.StepSubmitting, 0, 0, 0)

	urls, err := d.urlRepo.ListByBatch(batch.ID)
	if err != nil {
		return err
	}

	// 只处理未决 URL，崩溃后重投从断点继续
	var pending []*model.URLSubmission
	for _, u := range urls {
		if u.Status == model.URLStatusPending {
			pending = append(pending, u)
		}
	}

	timeout := time.Duration(d.cfg.Indexing.BatchTimeoutMin) * time.Minute
	if timeout <= 0 {
		timeout = time.Hour
	}
	batchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	d.submitAll(batchCtx, pending)

	// 整批超时：剩余未决全部判失败，触发退款
	if batchCtx.Err() != nil {
		if n, err := d.urlRepo.FailPending(batch.ID, "batch timeout"); err != nil {
			return err
		} else if n > 0 {
			log.Printf("Batch %d timed out with %d urls unresolved", batch.ID, n)
		}
	}

	return d.reconcile(ctx, batch)
}

// submitAll 有界并行提交
func (d *Dispatcher) submitAll(ctx context.Context, urls []*model.URLSubmission) {
	parallelism := d.cfg.Indexing.Parallelism
	if parallelism <= 0 {
		parallelism = 4
	}

	sem := make(chan struct{}, parallelism)
	var wg sync.WaitGroup
	for _, u := range urls {
		select {
		case <-ctx.Done():
			wg.Wait()
			return
		case sem <- struct{}{}:
		}

		wg.Add(1)
		go func(sub *model.URLSubmission) {
			defer wg.Done()
			defer func() { <-sem }()

			err := d.submitWithRetry(ctx, sub.URL)
			if err != nil {
				d.markResult(sub.ID, model.URLStatusFailed, err.Error())
				return
			}
			d.markResult(sub.ID, model.URLStatusSuccess, "")
		}(u)
	}
	wg.Wait()
}

// submitWithRetry 暂时性失败最多重试 3 次，退避 2s/4s/8s；永久失败不重试
func (d *Dispatcher) submitWithRetry(ctx context.Context, url string) error {
	maxRetries := d.cfg.Indexing.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}

	backoff := 2 * time.Second
	for attempt := 0; ; attempt++ {
		err := d.submitter.Submit(ctx, url)
		if err == nil {
			return nil
		}
		if !indexer.IsTransient(err) || attempt >= maxRetries {
			return err
		}
		if serr := d.sleep(ctx, backoff); serr != nil {
			return err
		}
		backoff *= 2
	}
}

// reconcile 对账：应退 = 已扣 - 成功数，终态只进入一次。
// 退款入账失败时批次已是终态，错误上抛并留待巡检补偿。
func (d *Dispatcher) reconcile(ctx context.Context, batch *model.Batch) error {
	success, err := d.urlRepo.CountByStatus(batch.ID, model.URLStatusSuccess)
	if err != nil {
		return err
	}
	failed, err := d.urlRepo.CountByStatus(batch.ID, model.URLStatusFailed)
	if err != nil {
		return err
	}

	won, err := d.batchRepo.MarkReconciled(batch.ID, int(success), int(failed), batch.CreditsCharged)
	if err != nil {
		return err
	}
	if !won {
		// 另一个消费者已完成终态转移
		return nil
	}

	refundDue := batch.CreditsCharged - success
	if refundDue < 0 {
		refundDue = 0
	}

	var refunded int64
	if refundDue > 0 {
		if _, _, err := d.ledger.RefundBatch(batch.ID, batch.UserID, refundDue, fmt.Sprintf("批次 #%d 失败退款", batch.ID)); err != nil {
			return fmt.Errorf("refund of %d credits for batch %d failed: %w", refundDue, batch.ID, err)
		}
		refunded = refundDue
	}

	log.Printf("Batch %d reconciled: success=%d, failed=%d, refunded=%d", batch.ID, success, failed, refunded)
	d.publishProgress(ctx, batch, model.BatchStatusReconciled, pubsub.StepReconciled, int(success), int(failed), refunded)
	d.notifyByEmail(batch, int(success), int(failed), refunded)
	return nil
}

func (d *Dispatcher) publishProgress(ctx context.Context, batch *model.Batch, status, step string, success, failed int, refunded int64) {
	if d.publisher == nil {
		return
	}
	err := d.publisher.PublishProgress(ctx, &pubsub.ProgressMessage{
		UserID:       batch.UserID,
		BatchID:      batch.ID,
		Status:       status,
		Step:         step,
		SuccessCount: success,
		FailureCount: failed,
		Refunded:     refunded,
	})
	if err != nil {
		log.Printf("Failed to publish progress for batch %d: %v", batch.ID, err)
	}
}

func (d *Dispatcher) notifyByEmail(batch *model.Batch, success, failed int, refunded int64) {
	if d.emailSvc == nil {
		return
	}
	account, err := d.ledger.GetAccount(batch.UserID)
	if err != nil || account.Email == nil || *account.Email == "" {
		return
	}
	if err := d.emailSvc.SendBatchReport(*account.Email, batch.ID, success, failed, refunded); err != nil {
		log.Printf("Failed to send batch report email for batch %d: %v", batch.ID, err)
	}
}

func (d *Dispatcher) markResult(id int64, status, errMsg string) {
	provider := d.submitter.Name()
	if err := d.urlRepo.MarkResult(id, status, provider, errMsg); err != nil {
		log.Printf("Failed to mark url %d as %s: %v", id, status, err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
