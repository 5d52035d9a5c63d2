package repository

import (
	"context"

	"gorm.io/gorm"

	"shiplink/internal/model"
)

// ==================== FulfillmentRepository 履约记录仓库 ====================

// FulfillmentRepository 履约记录仓库接口
type FulfillmentRepository interface {
	Create(ctx context.Context, record *model.FulfillmentRecord) error
	ListByOrderID(ctx context.Context, orderID string) ([]model.FulfillmentRecord, error)
}

type fulfillmentRepository struct {
	db *gorm.DB
}

// NewFulfillmentRepository 创建履约记录仓库
func NewFulfillmentRepository(db *gorm.DB) FulfillmentRepository {
	return &fulfillmentRepository{db: db}
}

// Create 写入一条处理记录
func (r *fulfillmentRepository) Create(ctx context.Context, record *model.FulfillmentRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

// ListByOrderID 查询某订单的全部处理记录（重放会产生多条）
func (r *fulfillmentRepository) ListByOrderID(ctx context.Context, orderID string) ([]model.FulfillmentRecord, error) {
	var records []model.FulfillmentRecord
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&records).Error
	return records, err
}
