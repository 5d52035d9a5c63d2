package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"shiplink/internal/api/dto"
)

// PacklinkConfig Packlink 配置
type PacklinkConfig struct {
	BaseURL string // e.g. https://api.packlink.com
	Timeout time.Duration
}

// PacklinkClient Packlink API 客户端
// API Key 属于卖家而非进程，因此按调用传入
type PacklinkClient struct {
	config     PacklinkConfig
	httpClient *http.Client
}

// NewPacklinkClient 创建客户端
func NewPacklinkClient(cfg PacklinkConfig) *PacklinkClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.packlink.com"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &PacklinkClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// ==================== Shipment 运单 ====================

// CreateShipment 创建运单
func (c *PacklinkClient) CreateShipment(ctx context.Context, apiKey string, req *dto.CreateShipmentRequest) (*dto.ShipmentResponse, error) {
	var resp dto.ShipmentResponse
	err := c.doRequest(ctx, http.MethodPost, "/v1/shipments", apiKey, req, &resp)
	if err != nil {
		return nil, fmt.Errorf("创建运单失败: %w", err)
	}
	return &resp, nil
}

// GetShipment 获取运单详情
func (c *PacklinkClient) GetShipment(ctx context.Context, apiKey, shipmentID string) (*dto.ShipmentResponse, error) {
	var resp dto.ShipmentResponse
	err := c.doRequest(ctx, http.MethodGet, "/v1/shipments/"+shipmentID, apiKey, nil, &resp)
	if err != nil {
		return nil, fmt.Errorf("获取运单失败: %w", err)
	}
	return &resp, nil
}

// ==================== HTTP 请求封装 ====================

func (c *PacklinkClient) doRequest(ctx context.Context, method, path, apiKey string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("序列化请求失败: %w", err)
		}
		reqBody = bytes.NewReader(jsonBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp dto.PacklinkErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil && len(errResp.Messages) > 0 {
			return fmt.Errorf("Packlink API 错误 [%d]: %s", resp.StatusCode, errResp.Messages[0].Message)
		}
		return fmt.Errorf("Packlink API 错误 [%d]: %s", resp.StatusCode, string(respBody))
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("解析响应失败: %w", err)
		}
	}

	return nil
}
