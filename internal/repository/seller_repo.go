package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"shiplink/internal/model"
)

// ==================== SellerRepository 卖家仓库 ====================

// SellerRepository 卖家仓库接口
type SellerRepository interface {
	Create(ctx context.Context, seller *model.Seller) error
	GetByID(ctx context.Context, id int64) (*model.Seller, error)
	GetByEmail(ctx context.Context, email string) (*model.Seller, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateSetup(ctx context.Context, id int64, packlinkAPIKey string, automationEnabled bool) error
	UpdateAutomation(ctx context.Context, id int64, enabled bool) error
	UpdateTikTokTokens(ctx context.Context, id int64, accessToken, refreshToken string) error
	UpdateStripeBinding(ctx context.Context, id int64, customerID, subscriptionID, itemID string) error
	ListTikTokConnected(ctx context.Context) ([]model.Seller, error)
}

// ==================== 实现 ====================

type sellerRepository struct {
	db *gorm.DB
}

// NewSellerRepository 创建卖家仓库
func NewSellerRepository(db *gorm.DB) SellerRepository {
	return &sellerRepository{db: db}
}

// Create 创建卖家
func (r *sellerRepository) Create(ctx context.Context, seller *model.Seller) error {
	return r.db.WithContext(ctx).Create(seller).Error
}

// GetByID 根据 ID 获取卖家
func (r *sellerRepository) GetByID(ctx context.Context, id int64) (*model.Seller, error) {
	var seller model.Seller
	err := r.db.WithContext(ctx).First(&seller, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &seller, err
}

// GetByEmail 根据邮箱获取卖家
func (r *sellerRepository) GetByEmail(ctx context.Context, email string) (*model.Seller, error) {
	var seller model.Seller
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&seller).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return &seller, err
}

// ExistsByEmail 检查邮箱是否已注册
func (r *sellerRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Seller{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// UpdateSetup 保存设置页：Packlink Key + 自动化开关
// Key 传空串即视为清除，两个字段总是一起写（后写覆盖先写，无冲突检测）
func (r *sellerRepository) UpdateSetup(ctx context.Context, id int64, packlinkAPIKey string, automationEnabled bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Seller{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"packlink_api_key":   packlinkAPIKey,
			"automation_enabled": automationEnabled,
		}).Error
}

// UpdateAutomation 更新自动化开关
func (r *sellerRepository) UpdateAutomation(ctx context.Context, id int64, enabled bool) error {
	return r.db.WithContext(ctx).
		Model(&model.Seller{}).
		Where("id = ?", id).
		Update("automation_enabled", enabled).Error
}

// UpdateTikTokTokens 更新 TikTok 授权凭证
func (r *sellerRepository) UpdateTikTokTokens(ctx context.Context, id int64, accessToken, refreshToken string) error {
	return r.db.WithContext(ctx).
		Model(&model.Seller{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"tiktok_access_token":  accessToken,
			"tiktok_refresh_token": refreshToken,
		}).Error
}

// UpdateStripeBinding 绑定 Stripe 订阅（三个字段只由 webhook 一起写入）
func (r *sellerRepository) UpdateStripeBinding(ctx context.Context, id int64, customerID, subscriptionID, itemID string) error {
	return r.db.WithContext(ctx).
		Model(&model.Seller{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"stripe_customer_id":          customerID,
			"stripe_subscription_id":      subscriptionID,
			"stripe_subscription_item_id": itemID,
		}).Error
}

// ListTikTokConnected 列出已完成 TikTok 授权的卖家（供 Token 刷新任务使用）
func (r *sellerRepository) ListTikTokConnected(ctx context.Context) ([]model.Seller, error) {
	var sellers []model.Seller
	err := r.db.WithContext(ctx).
		Where("tiktok_refresh_token <> ''").
		Find(&sellers).Error
	return sellers, err
}
