package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"shiplink/internal/model"
	"shiplink/internal/repository"
)

// ==================== JWT 配置 ====================

// AuthConfig JWT 配置
type AuthConfig struct {
	SecretKey string        // 签名密钥
	TokenTTL  time.Duration // Token 有效期
	Issuer    string        // 签发者
}

// DefaultAuthConfig 默认配置
func DefaultAuthConfig() AuthConfig {
	return AuthConfig{
		SecretKey: "changeme",
		TokenTTL:  7 * 24 * time.Hour,
		Issuer:    "shiplink",
	}
}

// ==================== Claims 定义 ====================

// SellerClaims 卖家声明
type SellerClaims struct {
	SellerID int64  `json:"id"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

// ==================== Authenticator ====================

// Authenticator Bearer 认证器
// 配置与仓库均由构造注入，不使用包级全局状态，测试时可换入内存库
type Authenticator struct {
	cfg     AuthConfig
	sellers repository.SellerRepository
}

// NewAuthenticator 创建认证器
func NewAuthenticator(cfg AuthConfig, sellers repository.SellerRepository) *Authenticator {
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = 7 * 24 * time.Hour
	}
	return &Authenticator{cfg: cfg, sellers: sellers}
}

// GenerateToken 为卖家签发 Token
func (a *Authenticator) GenerateToken(seller *model.Seller) (string, error) {
	now := time.Now()
	claims := &SellerClaims{
		SellerID: seller.ID,
		Email:    seller.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(a.cfg.SecretKey))
}

// ParseToken 解析 Token
func (a *Authenticator) ParseToken(tokenString string) (*SellerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SellerClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(a.cfg.SecretKey), nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*SellerClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// ==================== Gin 中间件 ====================

// Context Keys
const (
	ContextKeySeller = "seller"
)

// Middleware Bearer 认证中间件
// 无论是签名错误、格式错误、过期还是卖家已不存在，统一返回 401，不对外区分原因
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c)
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			abortUnauthorized(c)
			return
		}

		claims, err := a.ParseToken(parts[1])
		if err != nil {
			abortUnauthorized(c)
			return
		}

		// 按 ID 回查卖家，保证后续 handler 拿到的是最新的一行
		seller, err := a.sellers.GetByID(c.Request.Context(), claims.SellerID)
		if err != nil || seller == nil {
			abortUnauthorized(c)
			return
		}

		c.Set(ContextKeySeller, seller)
		c.Next()
	}
}

func abortUnauthorized(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	c.Abort()
}

// ==================== 辅助函数 ====================

// GetSeller 从 Context 获取当前卖家
func GetSeller(c *gin.Context) *model.Seller {
	if v, exists := c.Get(ContextKeySeller); exists {
		return v.(*model.Seller)
	}
	return nil
}
