package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/checkout/session"
	"github.com/stripe/stripe-go/v76/subscription"
	"github.com/stripe/stripe-go/v76/usagerecord"
	"github.com/stripe/stripe-go/v76/webhook"

	"shiplink/internal/model"
	"shiplink/internal/repository"
)

// BillingConfig Stripe 配置
type BillingConfig struct {
	SecretKey      string
	WebhookSecret  string
	PriceID        string // 固定月费价格
	MeteredPriceID string // 按单计量价格
	FrontendURL    string
}

// WebhookOutcome billing webhook 的内部处理结果
// 对外应答始终是 received:true，内部结果单独建模，便于测试区分
// “确实绑定了订阅”和“吞掉了一个内部失败”这两种情况
type WebhookOutcome int

const (
	OutcomeIgnored         WebhookOutcome = iota // 事件无需处理或匹配不上
	OutcomeBound                                 // 已把订阅绑定到卖家
	OutcomeInternalFailure                       // 内部失败，已记日志并吞掉
)

// BillingService Stripe 结算网关
type BillingService struct {
	cfg     BillingConfig
	sellers repository.SellerRepository

	// 测试时替换，避免真打 Stripe
	retrieveSubscription func(id string) (*stripe.Subscription, error)
}

// NewBillingService 创建结算服务
// SecretKey 为空表示未配置 Stripe，此时开通会话直接报错、用量上报变为 no-op
func NewBillingService(cfg BillingConfig, sellers repository.SellerRepository) *BillingService {
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:3001"
	}
	if cfg.SecretKey != "" {
		stripe.Key = cfg.SecretKey
	}
	return &BillingService{
		cfg:     cfg,
		sellers: sellers,
		retrieveSubscription: func(id string) (*stripe.Subscription, error) {
			return subscription.Get(id, nil)
		},
	}
}

// Configured 是否已配置 Stripe
func (s *BillingService) Configured() bool {
	return s.cfg.SecretKey != ""
}

// ==================== Checkout ====================

// CreateCheckoutSession 为卖家创建订阅 Checkout：固定月费 + 零数量计量项
func (s *BillingService) CreateCheckoutSession(ctx context.Context, seller *model.Seller) (string, error) {
	if !s.Configured() {
		return "", ErrBillingUnconfigured
	}

	params := &stripe.CheckoutSessionParams{
		Params:             stripe.Params{Context: ctx},
		Mode:               stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		CustomerEmail:      stripe.String(seller.Email),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(s.cfg.PriceID), Quantity: stripe.Int64(1)},
			{Price: stripe.String(s.cfg.MeteredPriceID), Quantity: stripe.Int64(0)},
		},
		SuccessURL: stripe.String(s.cfg.FrontendURL + "/dashboard?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(s.cfg.FrontendURL + "/dashboard?canceled=true"),
	}

	sess, err := session.New(params)
	if err != nil {
		return "", fmt.Errorf("创建 Checkout 会话失败: %w", err)
	}
	return sess.URL, nil
}

// ==================== Webhook ====================

// HandleWebhook 处理 Stripe webhook
// 验签失败返回 ErrInvalidSignature（由 HTTP 层回 400）；
// 其余一切失败只记日志不拒收，Stripe 按至少一次投递，no-op 是安全的
func (s *BillingService) HandleWebhook(ctx context.Context, payload []byte, sigHeader string) (WebhookOutcome, error) {
	event, err := webhook.ConstructEvent(payload, sigHeader, s.cfg.WebhookSecret)
	if err != nil {
		return OutcomeIgnored, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	if event.Type != "checkout.session.completed" {
		return OutcomeIgnored, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		log.Printf("[Billing] checkout session 解析失败: %v", err)
		return OutcomeInternalFailure, nil
	}

	return s.bindSubscription(ctx, &cs), nil
}

// bindSubscription 把 checkout 完成的订阅绑定到卖家
// 定位卖家用的是 checkout 时的 customer_email，而不是 customer id：
// 若卖家在 checkout 和 webhook 之间改过邮箱，这次绑定会被直接跳过
func (s *BillingService) bindSubscription(ctx context.Context, cs *stripe.CheckoutSession) WebhookOutcome {
	if cs.Subscription == nil || cs.Subscription.ID == "" {
		log.Printf("[Billing] checkout session %s 没有订阅 ID", cs.ID)
		return OutcomeInternalFailure
	}

	sub, err := s.retrieveSubscription(cs.Subscription.ID)
	if err != nil {
		log.Printf("[Billing] 拉取订阅 %s 失败: %v", cs.Subscription.ID, err)
		return OutcomeInternalFailure
	}

	// 找计量价格对应的 subscription item
	var itemID string
	if sub.Items != nil {
		for _, item := range sub.Items.Data {
			if item.Price != nil && item.Price.ID == s.cfg.MeteredPriceID {
				itemID = item.ID
				break
			}
		}
	}

	// 邮箱和 item 必须同时命中才落库
	if cs.CustomerEmail == "" || itemID == "" {
		return OutcomeIgnored
	}

	seller, err := s.sellers.GetByEmail(ctx, cs.CustomerEmail)
	if err != nil {
		log.Printf("[Billing] 查找卖家 %s 失败: %v", cs.CustomerEmail, err)
		return OutcomeInternalFailure
	}
	if seller == nil {
		return OutcomeIgnored
	}

	var customerID string
	if cs.Customer != nil {
		customerID = cs.Customer.ID
	}

	if err := s.sellers.UpdateStripeBinding(ctx, seller.ID, customerID, cs.Subscription.ID, itemID); err != nil {
		log.Printf("[Billing] 绑定订阅到卖家 %d 失败: %v", seller.ID, err)
		return OutcomeInternalFailure
	}

	return OutcomeBound
}

// ==================== 用量上报 ====================

// RecordUsage 追加一单用量，未配置或未绑定时 no-op
// 远端失败只记日志并返回错误，由调用方决定是否吞掉（流水线不因此失败）
func (s *BillingService) RecordUsage(ctx context.Context, subscriptionItemID string) error {
	if !s.Configured() || subscriptionItemID == "" {
		return nil
	}

	params := &stripe.UsageRecordParams{
		Params:           stripe.Params{Context: ctx},
		SubscriptionItem: stripe.String(subscriptionItemID),
		Quantity:         stripe.Int64(1),
		Timestamp:        stripe.Int64(time.Now().Unix()),
		Action:           stripe.String(string(stripe.UsageRecordActionIncrement)),
	}

	if _, err := usagerecord.New(params); err != nil {
		log.Printf("[Billing] 用量上报失败 (item %s): %v", subscriptionItemID, err)
		return err
	}
	return nil
}

// ==================== 错误定义 ====================

var (
	ErrBillingUnconfigured = errors.New("Stripe not configured")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
)
