package main

import (
	"context"
	"fmt"
	"log"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/api"
	"github.com/zr8c/index_go_server/internal/api/handler"
	"github.com/zr8c/index_go_server/internal/database"
	"github.com/zr8c/index_go_server/internal/pkg/oss"
	"github.com/zr8c/index_go_server/internal/pkg/pubsub"
	"github.com/zr8c/index_go_server/internal/pkg/queue"
	"github.com/zr8c/index_go_server/internal/pkg/verifier"
	"github.com/zr8c/index_go_server/internal/pkg/ws"
	"github.com/zr8c/index_go_server/internal/repository"
	"github.com/zr8c/index_go_server/internal/service"
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

	// 初始化 OSS（可选，未配置则不存档原始文件）
	var ossClient *oss.Client
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err = oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Printf("Warning: Failed to init OSS client: %v", err)
			ossClient = nil
		} else {
			log.Println("OSS client initialized")
		}
	}

	// 初始化域名归属校验源
	lister, err := verifier.NewClient(&cfg.Verification)
	if err != nil {
		log.Fatalf("Failed to init verification client: %v", err)
	}

	// 初始化 Queue 和 Pub/Sub
	dispatchQueue := queue.NewQueue(rdb, cfg.Queue.DispatchQueue)
	publisher := pubsub.NewPublisher(rdb)
	subscriber := pubsub.NewSubscriber(rdb)

	// 初始化 WebSocket Hub，转发批次进度
	wsHub := ws.NewHub()
	go func() {
		err := subscriber.Subscribe(context.Background(), func(msg *pubsub.ProgressMessage) {
			if err := wsHub.SendToUser(msg.UserID, &ws.Message{Type: msg.Type, Data: msg}); err != nil {
				log.Printf("Failed to forward progress to user %d: %v", msg.UserID, err)
			}
		})
		if err != nil {
			log.Printf("Progress subscription stopped: %v", err)
		}
	}()
	log.Println("WebSocket hub started")

	// 初始化 Repository
	accountRepo := repository.NewAccountRepository(db)
	txRepo := repository.NewTransactionRepository(db)
	batchRepo := repository.NewBatchRepository(db)
	urlRepo := repository.NewURLRepository(db)
	verifyRepo := repository.NewVerificationRepository(db)
	rlRepo := repository.NewRateLimitRepository(db)

	// 初始化 Service
	ledger := service.NewLedgerService(accountRepo, txRepo, cfg)
	quotaService := service.NewQuotaService(rlRepo, batchRepo, cfg)
	verifyService := service.NewVerifyService(verifyRepo, lister, cfg)
	uploadService := service.NewUploadService(cfg)
	pendingService := service.NewPendingService(cfg)
	defer pendingService.Stop()
	dispatchService := service.NewDispatchService(ledger, quotaService, batchRepo, urlRepo, dispatchQueue, publisher, cfg)
	authService := service.NewAuthService(ledger, cfg)
	statsService := service.NewStatsService(accountRepo, txRepo, urlRepo)

	// 初始化 Handler
	authHandler := handler.NewAuthHandler(authService)
	uploadHandler := handler.NewUploadHandler(uploadService, verifyService, pendingService, ledger, ossClient, cfg)
	dispatchHandler := handler.NewDispatchHandler(dispatchService, pendingService, ledger)
	balanceHandler := handler.NewBalanceHandler(ledger, quotaService)
	verifyHandler := handler.NewVerifyHandler(verifyService)
	adminHandler := handler.NewAdminHandler(statsService, ledger, quotaService)
	websocketHandler := handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret)

	// 初始化 Router
	router := api.NewRouter(
		authHandler,
		uploadHandler,
		dispatchHandler,
		balanceHandler,
		verifyHandler,
		adminHandler,
		websocketHandler,
		quotaService,
		cfg,
	)
	engine := router.Setup()

	// 启动服务器
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	if err := engine.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
