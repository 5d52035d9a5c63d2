package router

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"shiplink/internal/controller"
	"shiplink/internal/middleware"
)

// Controllers 控制器集合
type Controllers struct {
	Seller  *controller.SellerController
	Billing *controller.BillingController
	Auth    *controller.AuthController
	Webhook *controller.WebhookController
}

// SetupRouter 注册所有路由
func SetupRouter(ctrls *Controllers, auth *middleware.Authenticator) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// 前后端分离部署，放开所有来源（生产环境按需收紧）
	r.Use(cors.Default())

	api := r.Group("/api")
	{
		// 开放接口
		api.POST("/signup", ctrls.Seller.Signup)
		api.POST("/login", ctrls.Seller.Login)

		// 外部回调（各自带签名 / state 校验）
		api.POST("/billing/webhook", ctrls.Billing.Webhook)
		api.GET("/auth/tiktok/callback", ctrls.Auth.Callback)
		api.POST("/webhooks/tiktok", ctrls.Webhook.OrderEvent)

		// 需要 Bearer 认证的接口
		authed := api.Group("", auth.Middleware())
		{
			authed.GET("/me", ctrls.Seller.Me)
			authed.GET("/setup/status", ctrls.Seller.SetupStatus)
			authed.POST("/setup/save", ctrls.Seller.SetupSave)
			authed.POST("/automation/toggle", ctrls.Seller.AutomationToggle)
			authed.POST("/billing/create-session", ctrls.Billing.CreateSession)
			authed.GET("/auth/tiktok", ctrls.Auth.AuthURL)
		}
	}

	return r
}
