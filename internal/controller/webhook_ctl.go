package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"shiplink/internal/api/dto"
	"shiplink/internal/service"
)

// ==================== WebhookController 订单 webhook 控制器 ====================

// WebhookController TikTok 订单事件入口
// 注意：市场侧签名在本设计中不校验，事件体直接可信
type WebhookController struct {
	fulfillmentService *service.FulfillmentService
}

// NewWebhookController 创建 webhook 控制器
func NewWebhookController(fulfillmentService *service.FulfillmentService) *WebhookController {
	return &WebhookController{fulfillmentService: fulfillmentService}
}

// OrderEvent 处理一条订单事件
func (c *WebhookController) OrderEvent(ctx *gin.Context) {
	raw, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Cannot read body"})
		return
	}

	var event dto.OrderEvent
	if err := json.Unmarshal(raw, &event); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event body"})
		return
	}

	result, err := c.fulfillmentService.HandleOrderEvent(ctx.Request.Context(), &event, raw)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMissingSellerInfo):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing seller info"})
		case errors.Is(err, service.ErrSellerNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": "Seller not found"})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process webhook"})
		}
		return
	}

	if result.Status == service.StatusAutomationDisabled {
		ctx.JSON(http.StatusOK, gin.H{"status": result.Status})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": result.Status, "tracking": result.Tracking})
}
