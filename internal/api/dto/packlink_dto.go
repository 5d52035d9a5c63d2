package dto

// ==================== Packlink 运单 ====================

// CreateShipmentRequest 创建运单请求
// 完整下单还需要寄件人/收件人/包裹尺寸，这里只带订单来源信息
type CreateShipmentRequest struct {
	Reference string `json:"reference,omitempty"`
	OrderID   string `json:"order_id,omitempty"`
}

// ShipmentResponse 运单响应
type ShipmentResponse struct {
	ID             string `json:"id"`
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
}

// PacklinkErrorResponse 错误响应
type PacklinkErrorResponse struct {
	Messages []struct {
		Message string `json:"message"`
	} `json:"messages"`
}
