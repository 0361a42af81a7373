package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zr8c/index_go_server/internal/model/dto"
	"github.com/zr8c/index_go_server/internal/pkg/response"
	"github.com/zr8c/index_go_server/internal/service"
)

// AdminHandler 管理后台：统计面板与账户管理
type AdminHandler struct {
	statsService *service.StatsService
	ledger       *service.LedgerService
	quotaService *service.QuotaService
}

func NewAdminHandler(
	statsService *service.StatsService,
	ledger *service.LedgerService,
	quotaService *service.QuotaService,
) *AdminHandler {
	return &AdminHandler{
		statsService: statsService,
		ledger:       ledger,
		quotaService: quotaService,
	}
}

// Dashboard 全局统计
// GET /api/v1/admin/dashboard
func (h *AdminHandler) Dashboard(c *gin.Context) {
	stats, err := h.statsService.Dashboard()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, stats)
}

// TodayStats 当日活动
// GET /api/v1/admin/stats/today
func (h *AdminHandler) TodayStats(c *gin.Context) {
	stats, err := h.statsService.TodayStats()
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, stats)
}

// TopUsers 用量排行
// GET /api/v1/admin/stats/top-users
func (h *AdminHandler) TopUsers(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	items, err := h.statsService.TopUsers(limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, items)
}

// ListAccounts 分页账户列表
// GET /api/v1/admin/accounts
func (h *AdminHandler) ListAccounts(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	accounts, total, err := h.statsService.ListAccounts(page, pageSize)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.SuccessPage(c, total, page, pageSize, accounts)
}

// GetAccount 账户详情（含最近流水）
// GET /api/v1/admin/accounts/:id
func (h *AdminHandler) GetAccount(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户 ID")
		return
	}

	account, err := h.ledger.GetAccount(userID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			response.NotFoundError(c, "账户不存在")
			return
		}
		response.ServerError(c, "")
		return
	}

	txs, err := h.ledger.ListRecentTransactions(userID, 20)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, gin.H{
		"account":      account,
		"transactions": txs,
	})
}

// AdjustCredits 管理员充值（走账本，保留流水）
// POST /api/v1/admin/accounts/:id/credits
func (h *AdminHandler) AdjustCredits(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户 ID")
		return
	}

	var req dto.AdjustCreditsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	description := req.Description
	if description == "" {
		description = "管理员充值"
	}

	balance, err := h.ledger.Purchase(userID, req.Amount, description)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAccountNotFound):
			response.NotFoundError(c, "账户不存在")
		case errors.Is(err, service.ErrInvalidAmount):
			response.ParamError(c, err.Error())
		default:
			response.ServerError(c, "")
		}
		return
	}

	response.SuccessWithMessage(c, "积分已到账", gin.H{"balance": balance})
}

// SetActive 启用/禁用账户
// PUT /api/v1/admin/accounts/:id/active
func (h *AdminHandler) SetActive(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户 ID")
		return
	}

	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	if err := h.ledger.SetActive(userID, req.Active); err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			response.NotFoundError(c, "账户不存在")
			return
		}
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "已更新", nil)
}

// SetOverride 设置用户限额覆盖
// PUT /api/v1/admin/accounts/:id/limits
func (h *AdminHandler) SetOverride(c *gin.Context) {
	userID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的用户 ID")
		return
	}

	var req dto.OverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	err = h.quotaService.SetOverride(userID,
		req.FilesPerHour, req.URLsPerDay, req.APICallsPerMinute, req.CommandsPerMinute)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.SuccessWithMessage(c, "限额已更新", nil)
}

// RecentTransactions 全局最近流水
// GET /api/v1/admin/transactions
func (h *AdminHandler) RecentTransactions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	txs, err := h.statsService.RecentTransactions(limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, txs)
}
