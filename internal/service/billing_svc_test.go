package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"shiplink/internal/model"
	"shiplink/internal/repository"
)

const testWebhookSecret = "whsec_test_secret"

// ==================== 测试辅助 ====================

func newTestBilling(t *testing.T, sub *stripe.Subscription, subErr error) (*BillingService, repository.SellerRepository) {
	repo := repository.NewSellerRepository(setupSvcTestDB(t))
	svc := NewBillingService(BillingConfig{
		WebhookSecret:  testWebhookSecret,
		MeteredPriceID: "price_metered",
	}, repo)
	svc.retrieveSubscription = func(id string) (*stripe.Subscription, error) {
		return sub, subErr
	}
	return svc, repo
}

// signedPayload 用官方签名算法构造带合法签名头的事件
func signedPayload(eventType, sessionJSON string) ([]byte, string) {
	payload := []byte(fmt.Sprintf(
		`{"id":"evt_1","object":"event","api_version":%q,"type":%q,"data":{"object":%s}}`,
		stripe.APIVersion, eventType, sessionJSON,
	))
	ts := time.Now()
	sig := webhook.ComputeSignature(ts, payload, testWebhookSecret)
	header := fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(sig))
	return payload, header
}

func meteredSubscription(priceID string) *stripe.Subscription {
	return &stripe.Subscription{
		ID: "sub_1",
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{ID: "si_flat", Price: &stripe.Price{ID: "price_flat"}},
				{ID: "si_metered", Price: &stripe.Price{ID: priceID}},
			},
		},
	}
}

const checkoutSessionJSON = `{"id":"cs_1","object":"checkout.session","customer":"cus_1","customer_email":"buyer@example.com","subscription":"sub_1"}`

// ==================== 单元测试 ====================

func TestBilling_CreateSessionUnconfigured(t *testing.T) {
	repo := repository.NewSellerRepository(setupSvcTestDB(t))
	svc := NewBillingService(BillingConfig{}, repo)

	_, err := svc.CreateCheckoutSession(context.Background(), &model.Seller{Email: "a@b.com"})
	if !errors.Is(err, ErrBillingUnconfigured) {
		t.Fatalf("err = %v, want ErrBillingUnconfigured", err)
	}
}

func TestBilling_WebhookBadSignature(t *testing.T) {
	svc, _ := newTestBilling(t, nil, nil)

	payload, _ := signedPayload("checkout.session.completed", checkoutSessionJSON)
	_, err := svc.HandleWebhook(context.Background(), payload, "t=1,v1=deadbeef")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("err = %v, want ErrInvalidSignature", err)
	}
}

func TestBilling_WebhookOtherEventTypeIgnored(t *testing.T) {
	svc, _ := newTestBilling(t, nil, nil)

	payload, header := signedPayload("invoice.paid", `{"id":"in_1"}`)
	outcome, err := svc.HandleWebhook(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("其他事件应直接确认: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Errorf("outcome = %v, want OutcomeIgnored", outcome)
	}
}

func TestBilling_WebhookBindsSubscription(t *testing.T) {
	svc, repo := newTestBilling(t, meteredSubscription("price_metered"), nil)
	ctx := context.Background()
	repo.Create(ctx, &model.Seller{Email: "buyer@example.com", PasswordHash: "h"})

	payload, header := signedPayload("checkout.session.completed", checkoutSessionJSON)
	outcome, err := svc.HandleWebhook(ctx, payload, header)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if outcome != OutcomeBound {
		t.Fatalf("outcome = %v, want OutcomeBound", outcome)
	}

	seller, _ := repo.GetByEmail(ctx, "buyer@example.com")
	if seller.StripeCustomerID != "cus_1" ||
		seller.StripeSubscriptionID != "sub_1" ||
		seller.StripeSubscriptionItemID != "si_metered" {
		t.Errorf("绑定字段不符: %+v", seller)
	}
}

func TestBilling_WebhookUnmatchedMeteredPrice(t *testing.T) {
	// 订阅里没有配置的计量价格：不更新任何卖家，仍然确认收到
	svc, repo := newTestBilling(t, meteredSubscription("price_other"), nil)
	ctx := context.Background()
	repo.Create(ctx, &model.Seller{Email: "buyer@example.com", PasswordHash: "h"})

	payload, header := signedPayload("checkout.session.completed", checkoutSessionJSON)
	outcome, err := svc.HandleWebhook(ctx, payload, header)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Errorf("outcome = %v, want OutcomeIgnored", outcome)
	}

	seller, _ := repo.GetByEmail(ctx, "buyer@example.com")
	if seller.StripeSubscriptionItemID != "" {
		t.Errorf("不应绑定任何字段: %+v", seller)
	}
}

func TestBilling_WebhookUnknownEmailIgnored(t *testing.T) {
	// checkout 邮箱找不到卖家（比如 checkout 后改过邮箱）：跳过，不报错
	svc, _ := newTestBilling(t, meteredSubscription("price_metered"), nil)

	payload, header := signedPayload("checkout.session.completed", checkoutSessionJSON)
	outcome, err := svc.HandleWebhook(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if outcome != OutcomeIgnored {
		t.Errorf("outcome = %v, want OutcomeIgnored", outcome)
	}
}

func TestBilling_WebhookRetrieveFailureSwallowed(t *testing.T) {
	// 拉订阅失败：内部吞掉并记日志，外层照常 ack，但结果要能区分出来
	svc, _ := newTestBilling(t, nil, errors.New("stripe down"))

	payload, header := signedPayload("checkout.session.completed", checkoutSessionJSON)
	outcome, err := svc.HandleWebhook(context.Background(), payload, header)
	if err != nil {
		t.Fatalf("内部失败不应拒收: %v", err)
	}
	if outcome != OutcomeInternalFailure {
		t.Errorf("outcome = %v, want OutcomeInternalFailure", outcome)
	}
}

func TestBilling_RecordUsageNoopWhenUnbound(t *testing.T) {
	repo := repository.NewSellerRepository(setupSvcTestDB(t))
	svc := NewBillingService(BillingConfig{}, repo)

	// 未配置 + 未绑定都必须是安静的 no-op
	if err := svc.RecordUsage(context.Background(), ""); err != nil {
		t.Errorf("no-op 不应报错: %v", err)
	}
	if err := svc.RecordUsage(context.Background(), "si_1"); err != nil {
		t.Errorf("未配置时应 no-op: %v", err)
	}
}
