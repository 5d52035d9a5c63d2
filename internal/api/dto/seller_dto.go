package dto

// ==================== 认证 ====================

// CredentialsRequest 注册 / 登录请求
type CredentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SellerInfo 对外暴露的卖家信息
type SellerInfo struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

// AuthResponse 注册 / 登录响应
type AuthResponse struct {
	Token string     `json:"token"`
	User  SellerInfo `json:"user"`
}

// ==================== 设置页 ====================

// SetupSaveRequest 保存设置页
// 字段名沿用前端表单的驼峰命名
type SetupSaveRequest struct {
	PacklinkAPIKey    string `json:"packlinkApiKey"`
	AutomationEnabled bool   `json:"automationEnabled"`
}
