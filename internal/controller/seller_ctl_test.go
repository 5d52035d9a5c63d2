package controller_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"shiplink/internal/controller"
	"shiplink/internal/middleware"
	"shiplink/internal/model"
	"shiplink/internal/repository"
	"shiplink/internal/router"
	"shiplink/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ==================== 测试辅助 ====================

// ctlFixture 全链路测试夹具：内存库 + 完整路由
type ctlFixture struct {
	engine  *gin.Engine
	sellers repository.SellerRepository
	records repository.FulfillmentRepository
}

// setupCtlFixture 组装带内存库的完整路由
// carrierURL / marketplaceURL 为空时指向不存在的地址，只做不打外呼的用例
func setupCtlFixture(t *testing.T, carrierURL, marketplaceURL string) *ctlFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("打开内存库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.Seller{}, &model.FulfillmentRecord{}); err != nil {
		t.Fatalf("迁移失败: %v", err)
	}

	if carrierURL == "" {
		carrierURL = "http://127.0.0.1:1"
	}
	if marketplaceURL == "" {
		marketplaceURL = "http://127.0.0.1:1"
	}

	sellers := repository.NewSellerRepository(db)
	records := repository.NewFulfillmentRepository(db)

	auth := middleware.NewAuthenticator(middleware.AuthConfig{SecretKey: "test-secret"}, sellers)
	sellerSvc := service.NewSellerService(sellers, auth)
	tiktokSvc := service.NewTikTokService(service.TikTokConfig{
		AppKey:      "k",
		AppSecret:   "s",
		RedirectURI: "http://localhost/api/auth/tiktok/callback",
		AuthBaseURL: marketplaceURL,
		APIBaseURL:  marketplaceURL,
	}, sellers)
	carrier := service.NewPacklinkClient(service.PacklinkConfig{BaseURL: carrierURL})
	billingSvc := service.NewBillingService(service.BillingConfig{}, sellers) // 未配置 Stripe
	fulfillSvc := service.NewFulfillmentService(sellers, records, carrier, tiktokSvc, billingSvc)

	engine := router.SetupRouter(&router.Controllers{
		Seller:  controller.NewSellerController(sellerSvc),
		Billing: controller.NewBillingController(billingSvc),
		Auth:    controller.NewAuthController(tiktokSvc),
		Webhook: controller.NewWebhookController(fulfillSvc),
	}, auth)

	return &ctlFixture{engine: engine, sellers: sellers, records: records}
}

// doJSON 发送 JSON 请求，token 非空时附带 Bearer 头
func (f *ctlFixture) doJSON(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	reqBody := bytes.NewBuffer(nil)
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("序列化请求失败: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBytes)
	}

	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var got map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("响应不是 JSON: %v, body=%s", err, w.Body.String())
	}
	return got
}

// signup 注册并返回 token
func (f *ctlFixture) signup(t *testing.T, email, password string) string {
	t.Helper()
	w := f.doJSON(t, http.MethodPost, "/api/signup", gin.H{"email": email, "password": password}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("注册失败: %d %s", w.Code, w.Body.String())
	}
	token, _ := decodeBody(t, w)["token"].(string)
	if token == "" {
		t.Fatal("注册响应缺少 token")
	}
	return token
}

// ==================== 认证接口 ====================

func TestAPI_SignupReturnsTokenAndUser(t *testing.T) {
	f := setupCtlFixture(t, "", "")

	w := f.doJSON(t, http.MethodPost, "/api/signup", gin.H{"email": "a@example.com", "password": "pw123456"}, "")
	assert.Equal(t, http.StatusOK, w.Code, "注册应成功: %s", w.Body.String())

	got := decodeBody(t, w)
	assert.NotEmpty(t, got["token"], "响应缺少 token")

	user, ok := got["user"].(map[string]interface{})
	assert.True(t, ok, "响应缺少 user")
	assert.Equal(t, "a@example.com", user["email"])
}

func TestAPI_SignupMissingFields(t *testing.T) {
	f := setupCtlFixture(t, "", "")

	w := f.doJSON(t, http.MethodPost, "/api/signup", gin.H{"email": "a@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing email or password", decodeBody(t, w)["error"])
}

func TestAPI_SignupDuplicateEmail(t *testing.T) {
	f := setupCtlFixture(t, "", "")
	f.signup(t, "dup@example.com", "pw123456")

	w := f.doJSON(t, http.MethodPost, "/api/signup", gin.H{"email": "dup@example.com", "password": "other"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Email already exists", decodeBody(t, w)["error"])
}

func TestAPI_LoginWrongPassword(t *testing.T) {
	f := setupCtlFixture(t, "", "")
	f.signup(t, "a@example.com", "pw123456")

	w := f.doJSON(t, http.MethodPost, "/api/login", gin.H{"email": "a@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid credentials", decodeBody(t, w)["error"])
}

func TestAPI_MeRequiresToken(t *testing.T) {
	f := setupCtlFixture(t, "", "")

	// 无 token
	w := f.doJSON(t, http.MethodGet, "/api/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", decodeBody(t, w)["error"])

	// 伪造 token
	w = f.doJSON(t, http.MethodGet, "/api/me", nil, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Unauthorized", decodeBody(t, w)["error"])
}

func TestAPI_MeReturnsCurrentSeller(t *testing.T) {
	f := setupCtlFixture(t, "", "")
	token := f.signup(t, "me@example.com", "pw123456")

	w := f.doJSON(t, http.MethodGet, "/api/me", nil, token)
	assert.Equal(t, http.StatusOK, w.Code, "body=%s", w.Body.String())
	assert.Equal(t, "me@example.com", decodeBody(t, w)["email"])
}

// ==================== 设置页 ====================

func TestAPI_SetupSaveAndStatus(t *testing.T) {
	f := setupCtlFixture(t, "", "")
	token := f.signup(t, "s@example.com", "pw123456")

	w := f.doJSON(t, http.MethodPost, "/api/setup/save",
		gin.H{"packlinkApiKey": "pk_key", "automationEnabled": true}, token)
	assert.Equal(t, http.StatusOK, w.Code, "body=%s", w.Body.String())

	got := decodeBody(t, w)
	assert.Equal(t, "Saved", got["message"])
	assert.Equal(t, true, got["packlink_connected"])
	assert.Equal(t, true, got["automation_enabled"])

	w = f.doJSON(t, http.MethodGet, "/api/setup/status", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)

	got = decodeBody(t, w)
	assert.Equal(t, true, got["packlink_connected"])
	assert.Equal(t, false, got["tiktok_connected"])
	assert.Equal(t, true, got["automation_enabled"])
}

func TestAPI_AutomationToggle(t *testing.T) {
	f := setupCtlFixture(t, "", "")
	token := f.signup(t, "t@example.com", "pw123456")

	w := f.doJSON(t, http.MethodPost, "/api/automation/toggle", nil, token)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decodeBody(t, w)["automation_enabled"], "第一次翻转应打开")

	w = f.doJSON(t, http.MethodPost, "/api/automation/toggle", nil, token)
	assert.Equal(t, false, decodeBody(t, w)["automation_enabled"], "第二次翻转应关闭")
}

// ==================== 计费接口 ====================

func TestAPI_CreateSessionUnconfigured(t *testing.T) {
	f := setupCtlFixture(t, "", "")
	token := f.signup(t, "b@example.com", "pw123456")

	w := f.doJSON(t, http.MethodPost, "/api/billing/create-session", nil, token)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Stripe not configured", decodeBody(t, w)["error"])
}

// ==================== TikTok 授权接口 ====================

func TestAPI_TikTokAuthURL(t *testing.T) {
	f := setupCtlFixture(t, "", "")
	token := f.signup(t, "tk@example.com", "pw123456")

	w := f.doJSON(t, http.MethodGet, "/api/auth/tiktok", nil, token)
	assert.Equal(t, http.StatusOK, w.Code, "body=%s", w.Body.String())
	assert.NotEmpty(t, decodeBody(t, w)["url"], "响应缺少授权 url")
}

func TestAPI_TikTokCallbackMissingCode(t *testing.T) {
	f := setupCtlFixture(t, "", "")

	w := f.doJSON(t, http.MethodGet, "/api/auth/tiktok/callback?state=whatever", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing code", decodeBody(t, w)["error"])
}

func TestAPI_TikTokCallbackBadState(t *testing.T) {
	f := setupCtlFixture(t, "", "")

	w := f.doJSON(t, http.MethodGet, "/api/auth/tiktok/callback?code=c&state=forged", nil, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid state", decodeBody(t, w)["error"])
}
