package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/database"
	"github.com/zr8c/index_go_server/internal/pkg/cron"
	"github.com/zr8c/index_go_server/internal/pkg/email"
	"github.com/zr8c/index_go_server/internal/pkg/indexer"
	"github.com/zr8c/index_go_server/internal/pkg/pubsub"
	"github.com/zr8c/index_go_server/internal/pkg/queue"
	"github.com/zr8c/index_go_server/internal/pkg/verifier"
	"github.com/zr8c/index_go_server/internal/repository"
	"github.com/zr8c/index_go_server/internal/service"
	"github.com/zr8c/index_go_server/internal/worker"
)

func main() {
	// 加载配置
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}
	log.Println("Database connected")

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Fatalf("Failed to connect redis: %v", err)
	}
	log.Println("Redis connected")

	// 初始化提交通道
	submitter, err := indexer.NewSubmitter(&cfg.Indexing)
	if err != nil {
		log.Fatalf("Failed to init submitter: %v", err)
	}
	log.Printf("Submitter initialized: %s", submitter.Name())

	// 初始化域名归属校验源（定时清理缓存用）
	lister, err := verifier.NewClient(&cfg.Verification)
	if err != nil {
		log.Fatalf("Failed to init verification client: %v", err)
	}

	// 初始化 Queue 和 Pub/Sub
	dispatchQueue := queue.NewQueue(rdb, cfg.Queue.DispatchQueue)
	publisher := pubsub.NewPublisher(rdb)

	// 初始化 Repository 和 Service
	accountRepo := repository.NewAccountRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	urlRepo := repository.NewURLRepository(db)

	ledger := service.NewLedgerService(accountRepo, txRepo, cfg)
	emailSvc := email.NewService(&cfg.Email)

	// 创建批次处理器
	dispatcher := worker.NewDispatcher(batchRepo, urlRepo, ledger, submitter, publisher, emailSvc, cfg)

	// 定时任务：悬挂批次回收、缓存清理、日报
	sweeper := worker.NewSweeper(batchRepo, urlRepo, ledger, publisher, cfg)
	verifyService := service.NewVerifyService(repository.NewVerificationRepository(db), lister, cfg)
	statsService := service.NewStatsService(accountRepo, txRepo, urlRepo)
	cronService := cron.NewService(sweeper, verifyService, statsService, emailSvc, cfg.Email.AdminEmail)
	cronService.Start()
	defer cronService.Stop()

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("Received shutdown signal")
		cancel()
	}()

	maxWorkers := cfg.Queue.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}
	log.Printf("Worker started, max workers: %d", maxWorkers)

	// 启动 worker 循环
	for i := 0; i < maxWorkers; i++ {
		go func(workerID int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("Worker %d shutting down", workerID)
					return
				default:
					// 从队列获取任务
					msg, err := dispatchQueue.Pop(ctx, 5*time.Second)
					if err != nil {
						if ctx.Err() != nil {
							return
						}
						log.Printf("Worker %d: failed to pop batch: %v", workerID, err)
						continue
					}

					if msg == nil {
						continue // 超时，继续等待
					}

					log.Printf("Worker %d: processing batch %d", workerID, msg.BatchID)
					if err := dispatcher.Process(ctx, msg); err != nil {
						log.Printf("Worker %d: batch %d failed: %v", workerID, msg.BatchID, err)
					}
				}
			}
		}(i)
	}

	// 等待 context 取消
	<-ctx.Done()
	log.Println("Worker shutdown complete")
}
