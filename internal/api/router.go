package api

import (
	"github.com/gin-gonic/gin"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/api/handler"
	"github.com/zr8c/index_go_server/internal/api/middleware"
	"github.com/zr8c/index_go_server/internal/service"
)

type Router struct {
	authHandler      *handler.AuthHandler
	uploadHandler    *handler.UploadHandler
	dispatchHandler  *handler.DispatchHandler
	balanceHandler   *handler.BalanceHandler
	verifyHandler    *handler.VerifyHandler
	adminHandler     *handler.AdminHandler
	websocketHandler *handler.WebSocketHandler
	quotaService     *service.QuotaService
	cfg              *config.Config
}

func NewRouter(
	authHandler *handler.AuthHandler,
	uploadHandler *handler.UploadHandler,
	dispatchHandler *handler.DispatchHandler,
	balanceHandler *handler.BalanceHandler,
	verifyHandler *handler.VerifyHandler,
	adminHandler *handler.AdminHandler,
	websocketHandler *handler.WebSocketHandler,
	quotaService *service.QuotaService,
	cfg *config.Config,
) *Router {
	return &Router{
		authHandler:      authHandler,
		uploadHandler:    uploadHandler,
		dispatchHandler:  dispatchHandler,
		balanceHandler:   balanceHandler,
		verifyHandler:    verifyHandler,
		adminHandler:     adminHandler,
		websocketHandler: websocketHandler,
		quotaService:     quotaService,
		cfg:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORS(r.cfg.CORS))

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 公开接口 - 认证
		auth := api.Group("/auth")
		{
			auth.POST("/gateway-token", r.authHandler.GatewayToken)
		}
		api.POST("/admin/login", r.authHandler.AdminLogin)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(middleware.Auth(r.cfg.JWT.Secret))
		{
			// 上传解析走 file-uploads 窗口限流
			uploads := authenticated.Group("/uploads")
			uploads.Use(middleware.RateLimit(r.quotaService, service.CategoryFileUploads))
			{
				uploads.POST("", r.uploadHandler.Upload)
			}
			authenticated.DELETE("/uploads/:token", r.dispatchHandler.Cancel)

			// 确认提交（api-calls 窗口限流；url-volume 限额在服务内检查）
			submissions := authenticated.Group("/submissions")
			submissions.Use(middleware.RateLimit(r.quotaService, service.CategoryAPICalls))
			{
				submissions.POST("", r.dispatchHandler.Confirm)
			}

			// 批次查询
			batches := authenticated.Group("/batches")
			{
				batches.GET("", r.dispatchHandler.ListBatches)
				batches.GET("/:id", r.dispatchHandler.GetBatch)
				batches.GET("/:id/urls", r.dispatchHandler.ListBatchURLs)
			}

			// 积分与用量
			authenticated.GET("/balance", r.balanceHandler.Balance)
			authenticated.GET("/transactions", r.balanceHandler.Transactions)

			// 域名验证指引
			authenticated.GET("/verify/guide", r.verifyHandler.Guide)
		}

		// 管理后台
		admin := api.Group("/admin")
		admin.Use(middleware.AdminAuth(r.cfg.JWT.Secret))
		{
			admin.GET("/dashboard", r.adminHandler.Dashboard)
			admin.GET("/stats/today", r.adminHandler.TodayStats)
			admin.GET("/stats/top-users", r.adminHandler.TopUsers)
			admin.GET("/accounts", r.adminHandler.ListAccounts)
			admin.GET("/accounts/:id", r.adminHandler.GetAccount)
			admin.POST("/accounts/:id/credits", r.adminHandler.AdjustCredits)
			admin.PUT("/accounts/:id/active", r.adminHandler.SetActive)
			admin.PUT("/accounts/:id/limits", r.adminHandler.SetOverride)
			admin.GET("/transactions", r.adminHandler.RecentTransactions)
		}
	}

	return engine
}
