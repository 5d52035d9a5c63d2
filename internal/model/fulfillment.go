package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 履约结果常量 ====================

const (
	FulfillmentStatusGenerated = "generated" // 已出单
	FulfillmentStatusDisabled  = "disabled"  // 自动化关闭，主动跳过
	FulfillmentStatusFailed    = "failed"    // 外部调用失败
)

// ==================== FulfillmentRecord 履约记录 ====================

// FulfillmentRecord 订单事件处理记录
// 只做留痕，不参与去重判断：同一订单事件重放仍会重新走一遍流水线
type FulfillmentRecord struct {
	ID       int64  `gorm:"primaryKey;autoIncrement"`
	SellerID int64  `gorm:"index"`
	OrderID  string `gorm:"size:64;index"`
	Status   string `gorm:"size:32"`
	Tracking string `gorm:"size:64"`

	// 原始事件（PostgreSQL JSONB）
	RawEvent datatypes.JSON `gorm:"type:jsonb"`

	CreatedAt time.Time
}

func (FulfillmentRecord) TableName() string {
	return "fulfillment_records"
}
