package dto

// DispatchResponse 确认提交后的扣费与排队结果
type DispatchResponse struct {
	BatchID        int64 `json:"batch_id"`
	URLCount       int   `json:"url_count"`
	CreditsCharged int64 `json:"credits_charged"`
	Balance        int64 `json:"balance"`
}

// BatchStatusResponse 批次状态查询
type BatchStatusResponse struct {
	BatchID        int64  `json:"batch_id"`
	Status         string `json:"status"`
	URLCount       int    `json:"url_count"`
	SuccessCount   int    `json:"success_count"`
	FailureCount   int    `json:"failure_count"`
	CreditsCharged int64  `json:"credits_charged"`
	CreatedAt      string `json:"created_at"`
	ReconciledAt   string `json:"reconciled_at,omitempty"`
}
