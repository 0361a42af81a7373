package handler

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zr8c/index_go_server/internal/api/middleware"
	"github.com/zr8c/index_go_server/internal/model/dto"
	"github.com/zr8c/index_go_server/internal/pkg/response"
	"github.com/zr8c/index_go_server/internal/service"
)

const verifyInstructions = "请在 Google Search Console 中添加并验证以下域名的所有权，" +
	"验证通过后重新上传即可提交。验证结果最长缓存 24 小时。"

type VerifyHandler struct {
	verifyService *service.VerifyService
}

func NewVerifyHandler(verifyService *service.VerifyService) *VerifyHandler {
	return &VerifyHandler{
		verifyService: verifyService,
	}
}

// Guide 未验证域名汇总与验证指引
// GET /api/v1/verify/guide
func (h *VerifyHandler) Guide(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	report, err := h.verifyService.UnverifiedReport(userID)
	if err != nil {
		response.ServerError(c, "")
		return
	}

	items := make([]dto.UnverifiedDomainItem, 0, len(report))
	for _, r := range report {
		items = append(items, dto.UnverifiedDomainItem{
			Domain:       r.Domain,
			BlockedURLs:  r.BlockedURLs,
			FirstFailure: r.FirstFailure.UTC().Format(time.RFC3339),
			LastFailure:  r.LastFailure.UTC().Format(time.RFC3339),
		})
		// 展示过即视为已通知，后续报告不再重复
		if err := h.verifyService.MarkGuideSent(userID, r.Domain); err != nil {
			log.Printf("Failed to mark guide sent for user %d domain %s: %v", userID, r.Domain, err)
		}
	}

	response.Success(c, &dto.VerifyGuideResponse{
		Domains:      items,
		Instructions: verifyInstructions,
	})
}
