package handler

import (
	"errors"
	"io"
	"log"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/api/middleware"
	"github.com/zr8c/index_go_server/internal/model/dto"
	"github.com/zr8c/index_go_server/internal/pkg/oss"
	"github.com/zr8c/index_go_server/internal/pkg/response"
	"github.com/zr8c/index_go_server/internal/service"
)

type UploadHandler struct {
	uploadService  *service.UploadService
	verifyService  *service.VerifyService
	pendingService *service.PendingService
	ledger         *service.LedgerService
	ossClient      *oss.Client
	cfg            *config.Config
}

func NewUploadHandler(
	uploadService *service.UploadService,
	verifyService *service.VerifyService,
	pendingService *service.PendingService,
	ledger *service.LedgerService,
	ossClient *oss.Client,
	cfg *config.Config,
) *UploadHandler {
	return &UploadHandler{
		uploadService:  uploadService,
		verifyService:  verifyService,
		pendingService: pendingService,
		ledger:         ledger,
		ossClient:      ossClient,
		cfg:            cfg,
	}
}

// Upload 解析 URL 文件并按域名归属划分，暂存待确认
// POST /api/v1/uploads
func (h *UploadHandler) Upload(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.AuthError(c, "")
		return
	}

	account, err := h.ledger.GetAccount(userID)
	if err != nil {
		if errors.Is(err, service.ErrAccountNotFound) {
			response.AuthError(c, "账户不存在")
			return
		}
		response.ServerError(c, "")
		return
	}
	if !account.Active {
		response.DisabledError(c, "")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.ParamError(c, "请上传文件")
		return
	}
	defer file.Close()

	if h.cfg.Upload.MaxSize > 0 && header.Size > h.cfg.Upload.MaxSize {
		response.ParamError(c, "文件过大")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		response.ServerError(c, "文件读取失败")
		return
	}

	extraction, err := h.uploadService.Extract(header.Filename, data)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrFileTooLarge):
			response.ParamError(c, "文件过大")
		case errors.Is(err, service.ErrInvalidFormat):
			response.ParamError(c, "仅支持文本格式（.txt）")
		case errors.Is(err, service.ErrNoURLs):
			response.ParamError(c, "未找到有效 URL")
		case errors.Is(err, service.ErrTooManyURLs):
			response.ParamError(c, "单个文件 URL 数量超过上限")
		default:
			response.ServerError(c, "解析失败")
		}
		return
	}

	partition, err := h.verifyService.Partition(c.Request.Context(), userID, extraction.URLs)
	if err != nil {
		response.ServerError(c, "域名校验失败")
		return
	}

	// 原始文件存档，失败不阻断流程
	archiveURL := ""
	if h.ossClient != nil {
		archiveURL, err = h.ossClient.UploadArchive(userID, data)
		if err != nil {
			log.Printf("Failed to archive upload for user %d: %v", userID, err)
			archiveURL = ""
		}
	}

	resp := &dto.UploadResultResponse{
		TotalURLs:         extraction.TotalCandidate,
		UniqueURLs:        len(extraction.URLs),
		ValidURLs:         extraction.TotalCandidate - len(extraction.Invalid),
		Admissible:        len(partition.Admissible),
		Inadmissible:      len(partition.Inadmissible),
		UnverifiedDomains: domainsOf(partition.Inadmissible),
		SourceUnavailable: partition.SourceUnavailable,
		Credits:           account.Credits,
		CreditsRequired:   int64(len(partition.Admissible)),
	}

	// 没有可提交的 URL 就不发确认口令
	if len(partition.Admissible) == 0 {
		response.Success(c, resp)
		return
	}

	token, err := h.pendingService.Put(&service.PendingBatch{
		UserID:            userID,
		SourceLabel:       extraction.SourceLabel,
		TotalCandidate:    extraction.TotalCandidate,
		TotalValid:        len(extraction.URLs),
		Admissible:        partition.Admissible,
		InadmissibleCount: len(partition.Inadmissible),
		SourceUnavailable: partition.SourceUnavailable,
		ArchiveURL:        archiveURL,
	})
	if err != nil {
		response.ServerError(c, "")
		return
	}

	ttl := time.Duration(h.cfg.Upload.PendingTTLMin) * time.Minute
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	resp.ConfirmToken = token
	resp.ExpiresAt = time.Now().Add(ttl).UTC().Format(time.RFC3339)

	response.Success(c, resp)
}

// domainsOf 提取去重后的域名列表（未验证域名提示用）
func domainsOf(urls []string) []string {
	seen := make(map[string]struct{})
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || u.Hostname() == "" {
			continue
		}
		seen[strings.ToLower(u.Hostname())] = struct{}{}
	}

	domains := make([]string, 0, len(seen))
	for d := range seen {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}
