package dto

// BalanceResponse 积分与当日用量
type BalanceResponse struct {
	UserID            int64  `json:"user_id"`
	Credits           int64  `json:"credits"`
	LifetimePurchased int64  `json:"lifetime_purchased"`
	LifetimeUsed      int64  `json:"lifetime_used"`
	PlanTier          string `json:"plan_tier"`
	Active            bool   `json:"active"`
	UploadsToday      int64  `json:"uploads_today"`
	URLsToday         int64  `json:"urls_today"`
	URLsDailyLimit    int    `json:"urls_daily_limit"`
}

// UsageResponse 限流用量信息
type UsageResponse struct {
	Category  string `json:"category"`
	Limit     int    `json:"limit"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
}
