package service

import (
	"context"
	"errors"
	"log"

	"github.com/google/uuid"

	"shiplink/internal/api/dto"
	"shiplink/internal/model"
	"shiplink/internal/repository"
)

// 流水线状态文案（对外响应原样使用）
const (
	StatusLabelGenerated     = "Label generated"
	StatusAutomationDisabled = "Automation disabled"

	// FallbackTracking 运单响应缺少 tracking_number 时的兜底字面量
	FallbackTracking = "TRACK"
)

// FulfillResult 单次订单事件的处理结果
type FulfillResult struct {
	Status   string
	Tracking string

	// UsageErr 用量上报的内部失败：已记日志、不影响对外响应，
	// 单独暴露出来是为了让测试能断言“应答成功但内部吞了错”
	UsageErr error
}

// ==================== FulfillmentService 订单履约流水线 ====================

// FulfillmentService 订单事件 -> 出单 -> 回传 -> 计费 的同步流水线
// 所有步骤顺序执行、互不成事务：回传失败时运单已在承运商处生成，无补偿动作
type FulfillmentService struct {
	sellers repository.SellerRepository
	records repository.FulfillmentRepository
	carrier *PacklinkClient
	tiktok  *TikTokService
	billing *BillingService
}

// NewFulfillmentService 创建流水线
func NewFulfillmentService(
	sellers repository.SellerRepository,
	records repository.FulfillmentRepository,
	carrier *PacklinkClient,
	tiktok *TikTokService,
	billing *BillingService,
) *FulfillmentService {
	return &FulfillmentService{
		sellers: sellers,
		records: records,
		carrier: carrier,
		tiktok:  tiktok,
		billing: billing,
	}
}

// HandleOrderEvent 处理一条市场订单事件
// 没有幂等键：同一事件重放会再次出单（已知行为，留痕表可查）
func (s *FulfillmentService) HandleOrderEvent(ctx context.Context, event *dto.OrderEvent, raw []byte) (*FulfillResult, error) {
	// 1. 校验
	if event.SellerEmail == "" {
		return nil, ErrMissingSellerInfo
	}

	// 2. 定位卖家
	seller, err := s.sellers.GetByEmail(ctx, event.SellerEmail)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		return nil, ErrSellerNotFound
	}

	// 3. 自动化门槛：开关关闭或没配 Packlink Key 都算主动跳过，不是错误
	if !seller.AutomationEnabled || seller.PacklinkAPIKey == "" {
		s.record(ctx, seller.ID, event, raw, model.FulfillmentStatusDisabled, "")
		return &FulfillResult{Status: StatusAutomationDisabled}, nil
	}

	// 4. 创建运单
	shipment, err := s.carrier.CreateShipment(ctx, seller.PacklinkAPIKey, &dto.CreateShipmentRequest{
		Reference: uuid.NewString(),
		OrderID:   event.OrderID,
	})
	if err != nil {
		s.record(ctx, seller.ID, event, raw, model.FulfillmentStatusFailed, "")
		return nil, err
	}

	tracking := shipment.TrackingNumber
	if tracking == "" {
		tracking = FallbackTracking
	}

	// 5. 回传运单号；此时运单已存在，失败不做补偿
	if err := s.tiktok.ShipOrder(ctx, seller.TikTokAccessToken, event.OrderID, tracking); err != nil {
		s.record(ctx, seller.ID, event, raw, model.FulfillmentStatusFailed, tracking)
		return nil, err
	}

	// 6. 按单计费，尽力而为
	result := &FulfillResult{Status: StatusLabelGenerated, Tracking: tracking}
	if seller.StripeSubscriptionItemID != "" {
		if err := s.billing.RecordUsage(ctx, seller.StripeSubscriptionItemID); err != nil {
			result.UsageErr = err
		}
	}

	// 7. 留痕 + 应答
	s.record(ctx, seller.ID, event, raw, model.FulfillmentStatusGenerated, tracking)
	return result, nil
}

// record 写入履约记录，失败只记日志
func (s *FulfillmentService) record(ctx context.Context, sellerID int64, event *dto.OrderEvent, raw []byte, status, tracking string) {
	rec := &model.FulfillmentRecord{
		SellerID: sellerID,
		OrderID:  event.OrderID,
		Status:   status,
		Tracking: tracking,
		RawEvent: raw,
	}
	if err := s.records.Create(ctx, rec); err != nil {
		log.Printf("[Fulfillment] 履约记录写入失败 (order %s): %v", event.OrderID, err)
	}
}

// ==================== 错误定义 ====================

var (
	ErrMissingSellerInfo = errors.New("Missing seller info")
)
