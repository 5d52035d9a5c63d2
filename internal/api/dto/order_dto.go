package dto

// OrderEvent 市场侧订单 webhook 事件
// 瞬态数据：处理完即丢弃，不做重放保护
type OrderEvent struct {
	OrderID     string `json:"order_id"`
	SellerEmail string `json:"seller_email"`
}
