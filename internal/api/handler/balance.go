package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zr8c/index_go_server/internal/api/middleware"
	"github.com/zr8c/index_go_server/internal/model/dto"
	"github.com/zr8c/index_go_server/internal/pkg/response"
	"github.com/zr8c/index_go_server/internal/service"
)

type BalanceHandler struct {
	ledger       *service.LedgerService
	quotaService *service.QuotaService
}

func NewBalanceHandler(ledger *service.LedgerService, quotaService *service.QuotaService) *BalanceHandler {
	return &BalanceHandler{
		ledger:       ledger,
		quotaService: quotaService,
	}
}

// Balance 积分余额与当日用量
// GET /api/v1/balance
func (h *BalanceHandler) Balance(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
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

	uploads, urls, err := h.quotaService.DailyUsage(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	response.Success(c, &dto.BalanceResponse{
		UserID:            account.UserID,
		Credits:           account.Credits,
		LifetimePurchased: account.LifetimePurchased,
		LifetimeUsed:      account.LifetimeUsed,
		PlanTier:          account.PlanTier,
		Active:            account.Active,
		UploadsToday:      uploads,
		URLsToday:         urls,
		URLsDailyLimit:    h.quotaService.URLsPerDayLimit(userID),
	})
}

// Transactions 积分流水
// GET /api/v1/transactions
func (h *BalanceHandler) Transactions(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	txs, err := h.ledger.ListRecentTransactions(userID, limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}
	response.Success(c, txs)
}
