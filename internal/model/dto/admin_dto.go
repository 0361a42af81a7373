package dto

// DashboardResponse 管理后台首页统计
type DashboardResponse struct {
	TotalUsers         int64 `json:"total_users"`
	ActiveUsers        int64 `json:"active_users"`
	CreditsOutstanding int64 `json:"credits_outstanding"`
	CreditsPurchased   int64 `json:"credits_purchased"`
	CreditsUsed        int64 `json:"credits_used"`
	TotalSubmissions   int64 `json:"total_submissions"`
	SuccessSubmissions int64 `json:"success_submissions"`
	FailedSubmissions  int64 `json:"failed_submissions"`
	GoogleSubmissions  int64 `json:"google_submissions"`
	RapidSubmissions   int64 `json:"rapid_submissions"`
}

// TodayStatsResponse 当日活动
type TodayStatsResponse struct {
	ActiveUsers       int64 `json:"active_users"`
	Transactions      int64 `json:"transactions"`
	CreditsAddedToday int64 `json:"credits_added_today"`
	CreditsUsedToday  int64 `json:"credits_used_today"`
}

// TopUserItem 用量排行项
type TopUserItem struct {
	UserID       int64  `json:"user_id"`
	Username     string `json:"username"`
	LifetimeUsed int64  `json:"lifetime_used"`
	Credits      int64  `json:"credits"`
}

// AdjustCreditsRequest 管理员加积分（走 Ledger，保留流水）
type AdjustCreditsRequest struct {
	UserID      int64  `json:"user_id" binding:"required"`
	Amount      int64  `json:"amount" binding:"required"`
	Description string `json:"description"`
}

// SetActiveRequest 启用/禁用账户
type SetActiveRequest struct {
	Active bool `json:"active"`
}

// OverrideRequest 用户限额覆盖，nil 字段表示不修改
type OverrideRequest struct {
	FilesPerHour      *int `json:"files_per_hour"`
	URLsPerDay        *int `json:"urls_per_day"`
	APICallsPerMinute *int `json:"api_calls_per_minute"`
	CommandsPerMinute *int `json:"commands_per_minute"`
}
