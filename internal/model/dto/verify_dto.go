package dto

// UnverifiedDomainItem 某域名被拦截的汇总
type UnverifiedDomainItem struct {
	Domain       string `json:"domain"`
	BlockedURLs  int64  `json:"blocked_urls"`
	FirstFailure string `json:"first_failure"`
	LastFailure  string `json:"last_failure"`
}

// VerifyGuideResponse 域名验证指引
type VerifyGuideResponse struct {
	Domains      []UnverifiedDomainItem `json:"domains"`
	Instructions string                 `json:"instructions"`
}
