package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"shiplink/internal/repository"
	"shiplink/internal/service"
)

// ==================== TokenTask TikTok Token 保活任务 ====================

// TokenTask 周期性刷新已授权卖家的 TikTok 凭证
type TokenTask struct {
	sellers repository.SellerRepository
	tiktok  *service.TikTokService
	Cron    *cron.Cron

	// 每个卖家刷新之间的间隔，平滑波峰
	sleepTime time.Duration
}

// NewTokenTask 创建任务
func NewTokenTask(sellers repository.SellerRepository, tiktok *service.TikTokService) *TokenTask {
	return &TokenTask{
		sellers:   sellers,
		tiktok:    tiktok,
		Cron:      cron.New(cron.WithSeconds()), // 支持秒级控制
		sleepTime: 50 * time.Millisecond,
	}
}

// Start 启动定时任务
func (t *TokenTask) Start() {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		log.Println("[Task] 服务启动，正在执行首次 Token 检查...")
		t.refreshJob(ctx)
	}()

	// 定时策略
	_, err := t.Cron.AddFunc("0 0/40 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		t.refreshJob(ctx)
	})

	if err != nil {
		log.Fatalf("无法启动 Token 定时任务: %v", err)
	}

	t.Cron.Start()
	log.Println("Token 保活任务已启动 (每40分钟检查一次)")
}

// Stop 停止任务
func (t *TokenTask) Stop() {
	t.Cron.Stop()
}

// refreshJob 自动刷新逻辑
func (t *TokenTask) refreshJob(ctx context.Context) {
	sellers, err := t.sellers.ListTikTokConnected(ctx)
	if err != nil {
		log.Printf("[Cron] 已授权卖家查询失败: %v", err)
		return
	}

	for i := range sellers {
		seller := &sellers[i]
		if err := t.tiktok.RefreshToken(ctx, seller); err != nil {
			// 刷新失败不中断其他卖家，等下一轮重试
			log.Printf("[Cron] 卖家 %d Token 刷新失败: %v", seller.ID, err)
		}
		time.Sleep(t.sleepTime)
	}
}
