package dto

// GatewayTokenRequest 网关为聊天用户换取 token
type GatewayTokenRequest struct {
	Secret   string `json:"secret" binding:"required"`
	UserID   int64  `json:"user_id" binding:"required"`
	Username string `json:"username"`
}

// GatewayTokenResponse 换取结果（首次接入会自动建号并赠送积分）
type GatewayTokenResponse struct {
	Token      string `json:"token"`
	NewAccount bool   `json:"new_account"`
	Credits    int64  `json:"credits"`
	PlanTier   string `json:"plan_tier"`
}

// AdminLoginRequest 管理员登录
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLoginResponse 管理员登录结果
type AdminLoginResponse struct {
	Token string `json:"token"`
}
