package handler

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zr8c/index_go_server/internal/api/middleware"
	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/model/dto"
	"github.com/zr8c/index_go_server/internal/pkg/response"
	"github.com/zr8c/index_go_server/internal/repository"
	"github.com/zr8c/index_go_server/internal/service"
)

type DispatchHandler struct {
	dispatchService *service.DispatchService
	pendingService  *service.PendingService
	ledger          *service.LedgerService
}

func NewDispatchHandler(
	dispatchService *service.DispatchService,
	pendingService *service.PendingService,
	ledger *service.LedgerService,
) *DispatchHandler {
	return &DispatchHandler{
		dispatchService: dispatchService,
		pendingService:  pendingService,
		ledger:          ledger,
	}
}

type confirmRequest struct {
	Token string `json:"token" binding:"required"`
}

// Confirm 确认待提交批次：扣费并进入提交队列
// POST /api/v1/submissions
func (h *DispatchHandler) Confirm(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	var req confirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ParamError(c, err.Error())
		return
	}

	pending, err := h.pendingService.Take(req.Token, userID)
	if err != nil {
		response.NotFoundError(c, "待确认批次不存在或已过期")
		return
	}

	batch, err := h.dispatchService.Confirm(c.Request.Context(), pending)
	if err != nil {
		var volErr *service.VolumeExceededError
		var insufErr *repository.InsufficientCreditsError
		switch {
		case errors.Is(err, service.ErrNothingToSubmit):
			response.ParamError(c, err.Error())
		case errors.As(err, &volErr):
			response.QuotaError(c, err.Error(), gin.H{"remaining": volErr.Remaining})
		case errors.As(err, &insufErr):
			response.InsufficientError(c, err.Error())
		case errors.Is(err, service.ErrAccountInactive):
			response.DisabledError(c, "")
		default:
			response.ServerError(c, "")
		}
		return
	}

	balance, err := h.ledger.GetAccount(userID)
	var credits int64
	if err == nil {
		credits = balance.Credits
	}

	response.SuccessWithMessage(c, "批次已进入提交队列", &dto.DispatchResponse{
		BatchID:        batch.ID,
		URLCount:       batch.TotalAdmissible,
		CreditsCharged: batch.CreditsCharged,
		Balance:        credits,
	})
}

// Cancel 放弃待确认批次
// DELETE /api/v1/uploads/:token
func (h *DispatchHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	if _, err := h.pendingService.Take(c.Param("token"), userID); err != nil {
		response.NotFoundError(c, "待确认批次不存在或已过期")
		return
	}
	response.SuccessWithMessage(c, "已取消", nil)
}

// GetBatch 批次状态查询
// GET /api/v1/batches/:id
func (h *DispatchHandler) GetBatch(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	batchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的批次 ID")
		return
	}

	batch, err := h.dispatchService.GetBatch(batchID, userID)
	if err != nil {
		response.NotFoundError(c, "批次不存在")
		return
	}

	response.Success(c, batchStatusDTO(batch))
}

// ListBatches 用户批次历史
// GET /api/v1/batches
func (h *DispatchHandler) ListBatches(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	batches, err := h.dispatchService.ListBatches(userID, limit)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	items := make([]*dto.BatchStatusResponse, 0, len(batches))
	for _, b := range batches {
		items = append(items, batchStatusDTO(b))
	}
	response.Success(c, items)
}

// ListBatchURLs 批次内每条 URL 的提交结果
// GET /api/v1/batches/:id/urls
func (h *DispatchHandler) ListBatchURLs(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	batchID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.ParamError(c, "无效的批次 ID")
		return
	}

	urls, err := h.dispatchService.ListBatchURLs(batchID, userID)
	if err != nil {
		response.NotFoundError(c, "批次不存在")
		return
	}
	response.Success(c, urls)
}

func batchStatusDTO(b *model.Batch) *dto.BatchStatusResponse {
	resp := &dto.BatchStatusResponse{
		BatchID:        b.ID,
		Status:         b.Status,
		URLCount:       b.TotalAdmissible,
		SuccessCount:   b.SuccessCount,
		FailureCount:   b.FailureCount,
		CreditsCharged: b.CreditsCharged,
		CreatedAt:      b.CreatedAt.UTC().Format(time.RFC3339),
	}
	if b.ReconciledAt != nil {
		resp.ReconciledAt = b.ReconciledAt.UTC().Format(time.RFC3339)
	}
	return resp
}
