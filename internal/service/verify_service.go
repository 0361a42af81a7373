package service

import (
	"context"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/zr8c/index_go_server/config"
	"github.com/zr8c/index_go_server/internal/model"
	"github.com/zr8c/index_go_server/internal/pkg/verifier"
	"github.com/zr8c/index_go_server/internal/repository"
)

// PartitionResult 域名归属划分结果。SourceUnavailable 表示外部校验源不可达，
// 此时全部按未验证处理（宁可拒绝不可错放），调用方应提示用户这是暂时状况。
type PartitionResult struct {
	Admissible        []string `json:"admissible"`
	Inadmissible      []string `json:"inadmissible"`
	SourceUnavailable bool     `json:"source_unavailable"`
}

// VerifyService 域名归属门禁
type VerifyService struct {
	verifyRepo *repository.VerificationRepository
	lister     verifier.SourceLister
	cfg        *config.Config

	now func() time.Time
}

func NewVerifyService(
	verifyRepo *repository.VerificationRepository,
	lister verifier.SourceLister,
	cfg *config.Config,
) *VerifyService {
	return &VerifyService{
		verifyRepo: verifyRepo,
		lister:     lister,
		cfg:        cfg,
		now:        time.Now,
	}
}

// Partition 按域名归属把 URL 划分为可提交/不可提交两组。
// 每个未命中缓存的域名只触发一次外部查询（整批一次调用），结果回写缓存。
func (s *VerifyService) Partition(ctx context.Context, userID int64, urls []string) (*PartitionResult, error) {
	now := s.now()
	ttl := time.Duration(s.cfg.Verification.CacheTTLHours) * time.Hour

	// 按域名分组
	byDomain := make(map[string][]string)
	var badURLs []string
	for _, raw := range urls {
		domain := extractDomain(raw)
		if domain == "" {
			badURLs = append(badURLs, raw)
			continue
		}
		byDomain[domain] = append(byDomain[domain], raw)
	}

	domains := make([]string, 0, len(byDomain))
	for d := range byDomain {
		domains = append(domains, d)
	}

	verdicts, err := s.verifyRepo.GetFresh(domains, now.Add(-ttl))
	if err != nil {
		return nil, err
	}

	var missing []string
	for _, d := range domains {
		if _, ok := verdicts[d]; !ok {
			missing = append(missing, d)
		}
	}

	sourceUnavailable := false
	if len(missing) > 0 {
		verified, err := s.lister.ListVerifiedDomains(ctx)
		if err != nil {
			// 失败关闭：缺失域名全部视为未验证，且不写缓存
			log.Printf("Verification source unavailable: %v", err)
			sourceUnavailable = true
			for _, d := range missing {
				verdicts[d] = false
			}
		} else {
			records := make([]*model.DomainVerification, 0, len(missing))
			for _, d := range missing {
				ok := domainVerified(d, verified)
				verdicts[d] = ok
				records = append(records, &model.DomainVerification{
					Domain:    d,
					Verified:  ok,
					CheckedAt: now,
				})
			}
			if err := s.verifyRepo.BulkCreate(records); err != nil {
				log.Printf("Failed to cache verification results: %v", err)
			}
		}
	}

	result := &PartitionResult{SourceUnavailable: sourceUnavailable}
	var failures []*model.VerificationFailure
	for domain, group := range byDomain {
		if verdicts[domain] {
			result.Admissible = append(result.Admissible, group...)
			continue
		}
		result.Inadmissible = append(result.Inadmissible, group...)
		if !sourceUnavailable {
			for _, u := range group {
				failures = append(failures, &model.VerificationFailure{
					UserID:   userID,
					Domain:   domain,
					URL:      u,
					FailedAt: now,
				})
			}
		}
	}
	result.Inadmissible = append(result.Inadmissible, badURLs...)

	if err := s.verifyRepo.LogFailures(failures); err != nil {
		log.Printf("Failed to log verification failures: %v", err)
	}

	return result, nil
}

// UnverifiedReport 返回用户尚未被通知的未验证域名汇总
func (s *VerifyService) UnverifiedReport(userID int64) ([]*repository.UnverifiedDomain, error) {
	return s.verifyRepo.UnverifiedReport(userID)
}

// MarkGuideSent 域名验证指引已发送
func (s *VerifyService) MarkGuideSent(userID int64, domain string) error {
	return s.verifyRepo.MarkNotified(userID, domain)
}

// PurgeCache 清理过期缓存行（定时任务调用）
func (s *VerifyService) PurgeCache() (int64, error) {
	ttl := time.Duration(s.cfg.Verification.CacheTTLHours) * time.Hour
	return s.verifyRepo.PurgeOlderThan(s.now().Add(-ttl))
}

// domainVerified 精确匹配，或是某个已验证域名的子域（点边界后缀匹配）
func domainVerified(domain string, verified []string) bool {
	for _, v := range verified {
		if domain == v || strings.HasSuffix(domain, "."+v) {
			return true
		}
	}
	return false
}

// extractDomain 从 URL 提取小写域名，非法 URL 返回空串
func extractDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := u.Hostname()
	if host == "" {
		return ""
	}
	return strings.ToLower(host)
}
