package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"shiplink/internal/model"
	"shiplink/internal/repository"
	"shiplink/pkg/utils"
)

// 业务常量
const (
	// TikTokAuthScope 只申请履约相关权限
	TikTokAuthScope = "shop.fulfillment.readonly,shop.fulfillment.update"

	stateCachePrefix = "tiktok_state:"
)

// TikTokConfig TikTok Shop 开放平台配置
type TikTokConfig struct {
	AppKey      string
	AppSecret   string
	RedirectURI string
	AuthBaseURL string // e.g. https://auth.tiktok-shops.com
	APIBaseURL  string // e.g. https://open-api.tiktokglobalshop.com
	Timeout     time.Duration
}

// TikTokService TikTok 授权 + 物流回传
type TikTokService struct {
	cfg     TikTokConfig
	client  *resty.Client
	sellers repository.SellerRepository
}

// NewTikTokService 创建服务
func NewTikTokService(cfg TikTokConfig, sellers repository.SellerRepository) *TikTokService {
	if cfg.AuthBaseURL == "" {
		cfg.AuthBaseURL = "https://auth.tiktok-shops.com"
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "https://open-api.tiktokglobalshop.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}

	// 交换 Token 不做重试，失败直接回给调用方
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetHeader("User-Agent", "Shiplink-Go-App/1.0")

	return &TikTokService{cfg: cfg, client: client, sellers: sellers}
}

// ==================== OAuth 授权 ====================

// BuildAuthURL 生成授权链接
// state 为随机不透明串，服务端缓存 state -> seller_id 映射，10 分钟有效、用完即焚，
// 不再把卖家 ID 明文拼进 state
func (s *TikTokService) BuildAuthURL(ctx context.Context, seller *model.Seller) (string, error) {
	state, err := utils.GenerateRandomString(16)
	if err != nil {
		return "", err
	}
	utils.SetCache(stateCachePrefix+state, strconv.FormatInt(seller.ID, 10))

	authURL := fmt.Sprintf(
		"%s/api/authorize?app_key=%s&redirect_uri=%s&state=%s&scope=%s&response_type=code",
		s.cfg.AuthBaseURL, s.cfg.AppKey, url.QueryEscape(s.cfg.RedirectURI), state, url.QueryEscape(TikTokAuthScope),
	)
	return authURL, nil
}

// tiktokTokenResp Token 端点响应
type tiktokTokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// ExchangeCode 处理回调：校验 state -> 换 Token -> 落库
func (s *TikTokService) ExchangeCode(ctx context.Context, code, state string) (*model.Seller, error) {
	// 1. 校验 State 取缓存
	cachedVal, exists := utils.GetCache(stateCachePrefix + state)
	if !exists {
		return nil, ErrInvalidState
	}
	utils.DeleteCache(stateCachePrefix + state) // 用完即焚

	sellerID, err := strconv.ParseInt(cachedVal, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("缓存中的 SellerID 无效: %v", err)
	}

	seller, err := s.sellers.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		return nil, ErrSellerNotFound
	}

	// 2. 换 Token
	var tokenResp tiktokTokenResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"app_key":    s.cfg.AppKey,
			"app_secret": s.cfg.AppSecret,
			"auth_code":  code,
			"grant_type": "authorized_code",
		}).
		SetResult(&tokenResp).
		Post(s.cfg.AuthBaseURL + "/api/token")
	if err != nil {
		return nil, fmt.Errorf("换取 Token 失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("TikTok refused token exchange: status %d", resp.StatusCode())
	}

	// 3. 落库
	if err := s.sellers.UpdateTikTokTokens(ctx, seller.ID, tokenResp.AccessToken, tokenResp.RefreshToken); err != nil {
		return nil, err
	}
	seller.TikTokAccessToken = tokenResp.AccessToken
	seller.TikTokRefreshToken = tokenResp.RefreshToken
	return seller, nil
}

// RefreshToken 用 refresh_token 换新凭证（定时任务调用）
func (s *TikTokService) RefreshToken(ctx context.Context, seller *model.Seller) error {
	if seller.TikTokRefreshToken == "" {
		return errors.New("卖家没有 refresh_token")
	}

	var tokenResp tiktokTokenResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{
			"app_key":       s.cfg.AppKey,
			"app_secret":    s.cfg.AppSecret,
			"refresh_token": seller.TikTokRefreshToken,
			"grant_type":    "refresh_token",
		}).
		SetResult(&tokenResp).
		Post(s.cfg.AuthBaseURL + "/api/token")
	if err != nil {
		return fmt.Errorf("刷新 Token 失败: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("TikTok refused token refresh: status %d", resp.StatusCode())
	}

	return s.sellers.UpdateTikTokTokens(ctx, seller.ID, tokenResp.AccessToken, tokenResp.RefreshToken)
}

// ==================== 物流回传 ====================

// ShipOrder 回传运单号到 TikTok 物流接口
func (s *TikTokService) ShipOrder(ctx context.Context, accessToken, orderID, trackingNumber string) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Access-Token", accessToken).
		SetBody(map[string]string{
			"order_id":        orderID,
			"tracking_number": trackingNumber,
			"carrier_code":    "Packlink",
			"service":         "standard",
		}).
		Post(s.cfg.APIBaseURL + "/api/logistics/ship")
	if err != nil {
		return fmt.Errorf("回传运单号失败: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("TikTok logistics/ship 错误 [%d]: %s", resp.StatusCode(), resp.String())
	}
	return nil
}

// ==================== 错误定义 ====================

var (
	ErrInvalidState   = errors.New("Invalid state")
	ErrSellerNotFound = errors.New("Seller not found")
)
