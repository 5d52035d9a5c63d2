package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gorm.io/gorm"

	"shiplink/internal/controller"
	"shiplink/internal/middleware"
	"shiplink/internal/model"
	"shiplink/internal/repository"
	"shiplink/internal/router"
	"shiplink/internal/service"
	"shiplink/internal/task"
	"shiplink/pkg/database"
)

func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	deps.TokenTask.Start()

	// 4. 初始化路由并启动服务
	r := router.SetupRouter(deps.Controllers, deps.Auth)
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Auth        *middleware.Authenticator
	Services    *Services
	Controllers *router.Controllers
	TokenTask   *task.TokenTask
}

// Services 服务集合
type Services struct {
	Seller      *service.SellerService
	TikTok      *service.TikTokService
	Billing     *service.BillingService
	Fulfillment *service.FulfillmentService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	return database.InitDB(
		getEnv("DATABASE_URL", "host=localhost user=shiplink password=shiplink dbname=shiplink port=5432 sslmode=disable"),
		&model.Seller{},
		&model.FulfillmentRecord{},
	)
}

// initDependencies 初始化所有依赖
// 配置全部来自环境变量，在这里一次性读进显式配置结构体再注入
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- Repo 层 --------
	sellerRepo := repository.NewSellerRepository(db)
	fulfillmentRepo := repository.NewFulfillmentRepository(db)

	// -------- 认证 --------
	auth := middleware.NewAuthenticator(middleware.AuthConfig{
		SecretKey: getEnv("JWT_SECRET", "changeme"),
		TokenTTL:  7 * 24 * time.Hour,
		Issuer:    "shiplink",
	}, sellerRepo)

	// -------- 业务服务 --------
	tiktokSvc := service.NewTikTokService(service.TikTokConfig{
		AppKey:      getEnv("TIKTOK_CLIENT_KEY", ""),
		AppSecret:   getEnv("TIKTOK_CLIENT_SECRET", ""),
		RedirectURI: getEnv("TIKTOK_REDIRECT_URI", ""),
	}, sellerRepo)

	packlinkClient := service.NewPacklinkClient(service.PacklinkConfig{
		BaseURL: getEnv("PACKLINK_BASE_URL", ""),
	})

	billingSvc := service.NewBillingService(service.BillingConfig{
		SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		WebhookSecret:  getEnv("STRIPE_WEBHOOK_SECRET", ""),
		PriceID:        getEnv("STRIPE_PRICE_ID", ""),
		MeteredPriceID: getEnv("STRIPE_METERED_PRICE_ID", ""),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
	}, sellerRepo)

	services := &Services{
		Seller:      service.NewSellerService(sellerRepo, auth),
		TikTok:      tiktokSvc,
		Billing:     billingSvc,
		Fulfillment: service.NewFulfillmentService(sellerRepo, fulfillmentRepo, packlinkClient, tiktokSvc, billingSvc),
	}

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Seller:  controller.NewSellerController(services.Seller),
		Billing: controller.NewBillingController(services.Billing),
		Auth:    controller.NewAuthController(services.TikTok),
		Webhook: controller.NewWebhookController(services.Fulfillment),
	}

	return &Dependencies{
		DB:          db,
		Auth:        auth,
		Services:    services,
		Controllers: controllers,
		TokenTask:   task.NewTokenTask(sellerRepo, tiktokSvc),
	}
}

// ==================== 服务启动 ====================

// startServer 启动 HTTP 服务并优雅退出
func startServer(handler http.Handler) {
	port := getEnv("PORT", "3000")
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: handler,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
