package model

import "time"

// Seller 卖家账号
// 一行对应一个注册卖家：登录凭证 + 三方凭证 (TikTok / Packlink / Stripe)
type Seller struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Email        string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`

	// TikTok Shop OAuth 凭证，授权完成后才有值
	TikTokAccessToken  string `gorm:"column:tiktok_access_token;size:512" json:"-"`
	TikTokRefreshToken string `gorm:"column:tiktok_refresh_token;size:512" json:"-"`

	// Packlink API Key，卖家在设置页配置
	PacklinkAPIKey string `gorm:"column:packlink_api_key;size:255" json:"-"`

	// 自动打单开关；允许在未配置凭证时就打开，流水线运行时再校验
	AutomationEnabled bool `gorm:"default:false" json:"automation_enabled"`

	// Stripe 订阅绑定，只由 billing webhook 一次性写入三个字段
	StripeCustomerID         string `gorm:"column:stripe_customer_id;size:64" json:"-"`
	StripeSubscriptionID     string `gorm:"column:stripe_subscription_id;size:64" json:"-"`
	StripeSubscriptionItemID string `gorm:"column:stripe_subscription_item_id;size:64" json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"-"`
}

func (Seller) TableName() string {
	return "sellers"
}

// TikTokConnected 是否已完成 TikTok 授权
func (s *Seller) TikTokConnected() bool {
	return s.TikTokAccessToken != ""
}

// PacklinkConnected 是否已配置 Packlink
func (s *Seller) PacklinkConnected() bool {
	return s.PacklinkAPIKey != ""
}
