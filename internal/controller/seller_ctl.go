package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"shiplink/internal/api/dto"
	"shiplink/internal/middleware"
	"shiplink/internal/service"
)

// ==================== SellerController 卖家控制器 ====================

// SellerController 注册、登录、设置页
type SellerController struct {
	sellerService *service.SellerService
}

// NewSellerController 创建卖家控制器
func NewSellerController(sellerService *service.SellerService) *SellerController {
	return &SellerController{sellerService: sellerService}
}

// ==================== 认证接口 ====================

// Signup 注册
func (c *SellerController) Signup(ctx *gin.Context) {
	var req dto.CredentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing email or password"})
		return
	}

	resp, err := c.sellerService.Signup(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailExists) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Email already exists"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to sign up"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"token": resp.Token, "user": resp.User})
}

// Login 登录
func (c *SellerController) Login(ctx *gin.Context) {
	var req dto.CredentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil || req.Email == "" || req.Password == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Missing email or password"})
		return
	}

	resp, err := c.sellerService.Login(ctx.Request.Context(), req.Email, req.Password)
	if err != nil {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"token": resp.Token, "user": resp.User})
}

// Me 当前卖家信息
func (c *SellerController) Me(ctx *gin.Context) {
	seller := middleware.GetSeller(ctx)
	ctx.JSON(http.StatusOK, gin.H{"id": seller.ID, "email": seller.Email})
}

// ==================== 设置页 ====================

// SetupStatus 设置页状态：布尔值只反映凭证是否存在
func (c *SellerController) SetupStatus(ctx *gin.Context) {
	seller := middleware.GetSeller(ctx)
	ctx.JSON(http.StatusOK, gin.H{
		"id":                 seller.ID,
		"email":              seller.Email,
		"tiktok_connected":   seller.TikTokConnected(),
		"packlink_connected": seller.PacklinkConnected(),
		"automation_enabled": seller.AutomationEnabled,
	})
}

// SetupSave 保存设置页
func (c *SellerController) SetupSave(ctx *gin.Context) {
	seller := middleware.GetSeller(ctx)

	var req dto.SetupSaveRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	updated, err := c.sellerService.SaveSetup(ctx.Request.Context(), seller.ID, &req)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save setup"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":            "Saved",
		"automation_enabled": updated.AutomationEnabled,
		"packlink_connected": updated.PacklinkConnected(),
	})
}

// AutomationToggle 自动化开关取反
func (c *SellerController) AutomationToggle(ctx *gin.Context) {
	seller := middleware.GetSeller(ctx)

	newState, err := c.sellerService.ToggleAutomation(ctx.Request.Context(), seller)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to toggle automation"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"automation_enabled": newState})
}
