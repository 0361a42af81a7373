package dto

// UploadResultResponse 文件解析 + 域名校验结果
type UploadResultResponse struct {
	TotalURLs         int      `json:"total_urls"`
	UniqueURLs        int      `json:"unique_urls"`
	ValidURLs         int      `json:"valid_urls"`
	Admissible        int      `json:"admissible"`
	Inadmissible      int      `json:"inadmissible"`
	UnverifiedDomains []string `json:"unverified_domains,omitempty"`
	// SourceUnavailable 为 true 时空的 admissible 可能是校验源不可用而非域名未验证
	SourceUnavailable bool   `json:"source_unavailable"`
	Credits           int64  `json:"credits"`
	CreditsRequired   int64  `json:"credits_required"`
	ConfirmToken      string `json:"confirm_token,omitempty"`
	ExpiresAt         string `json:"expires_at,omitempty"`
}
