package controller

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"shiplink/internal/middleware"
	"shiplink/internal/service"
)

// ==================== BillingController 结算控制器 ====================

// BillingController Stripe Checkout 和 webhook
type BillingController struct {
	billingService *service.BillingService
}

// NewBillingController 创建结算控制器
func NewBillingController(billingService *service.BillingService) *BillingController {
	return &BillingController{billingService: billingService}
}

// CreateSession 创建订阅 Checkout 会话
func (c *BillingController) CreateSession(ctx *gin.Context) {
	seller := middleware.GetSeller(ctx)

	url, err := c.billingService.CreateCheckoutSession(ctx.Request.Context(), seller)
	if err != nil {
		if errors.Is(err, service.ErrBillingUnconfigured) {
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Stripe not configured"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create checkout session"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"url": url})
}

// Webhook Stripe webhook 入口
// 验签失败是唯一同步拒收的情况；其余失败内部吞掉，照常应答 received:true
func (c *BillingController) Webhook(ctx *gin.Context) {
	payload, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.String(http.StatusBadRequest, "Webhook Error: cannot read body")
		return
	}

	_, err = c.billingService.HandleWebhook(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		ctx.String(http.StatusBadRequest, "Webhook Error: "+err.Error())
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"received": true})
}
