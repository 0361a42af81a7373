package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/database"
	"github.com/zr8c/index_go_server/internal/pkg/pubsub"
	"github.com/zr8c/index_go_server/internal/repository"
	"github.com/zr8c/index_go_server/internal/service"
	"github.com/zr8c/index_go_server/internal/worker"
)

var (
	dryRun     = flag.Bool("dry-run", true, "Dry run mode, don't actually reconcile or refund")
	staleAfter = flag.Int("stale-after", 0, "Hours before a batch counts as stale, 0 uses config")
	timeout    = flag.Int("timeout", 10, "Minutes before giving up")
)

func main() {
	flag.Parse()

	log.Println("🧹 Starting batch sweep...")
	log.Printf("Mode: dry-run=%v", *dryRun)

	// 加载配置
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *staleAfter > 0 {
		cfg.Queue.StaleAfterHours = *staleAfter
	}

	// 连接数据库
	db, err := database.NewMySQL(&cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect database: %v", err)
	}

	// 连接 Redis（仅用于推送进度，失败不致命）
	var publisher *pubsub.Publisher
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Printf("Warning: Failed to connect redis, progress push disabled: %v", err)
	} else {
		publisher = pubsub.NewPublisher(rdb)
	}

	accountRepo := repository.NewAccountRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	urlRepo := repository.NewURLRepository(db)

	ledger := service.NewLedgerService(accountRepo, txRepo, cfg)
	sweeper := worker.NewSweeper(batchRepo, urlRepo, ledger, publisher, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(*timeout)*time.Minute)
	defer cancel()

	swept, err := sweeper.Sweep(ctx, *dryRun)
	if err != nil {
		log.Fatalf("Sweep failed: %v", err)
	}

	if *dryRun {
		log.Printf("✨ Sweep complete (dry-run), %d stale batches would be reconciled", swept)
	} else {
		log.Printf("✨ Sweep complete, %d stale batches reconciled", swept)
	}
}
