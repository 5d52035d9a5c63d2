package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shiplink/internal/middleware"
	"shiplink/internal/service"
)

// ==================== AuthController TikTok 授权控制器 ====================

// AuthController TikTok Shop OAuth
type AuthController struct {
	tiktokService *service.TikTokService
}

// NewAuthController 创建授权控制器
func NewAuthController(tiktokService *service.TikTokService) *AuthController {
	return &AuthController{tiktokService: tiktokService}
}

// AuthURL 生成授权链接，前端引导卖家跳转
func (c *AuthController) AuthURL(ctx *gin.Context) {
	seller := middleware.GetSeller(ctx)

	url, err := c.tiktokService.BuildAuthURL(ctx.Request.Context(), seller)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build authorization URL"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"url": url})
}

// Callback 授权回调：code + state 换 Token
func (c *AuthController) Callback(ctx *gin.Context) {
	code := ctx.Query("code")
	state := ctx.Query("state")
	if code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing code"})
		return
	}

	_, err := c.tiktokService.ExchangeCode(ctx.Request.Context(), code, state)
	if err != nil {
		if errors.Is(err, service.ErrInvalidState) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid state"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to exchange code"})
		return
	}

	ctx.String(http.StatusOK, "TikTok connected. You can close this window.")
}
