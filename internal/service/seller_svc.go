package service

import (
	"context"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"shiplink/internal/api/dto"
	"shiplink/internal/middleware"
	"shiplink/internal/model"
	"shiplink/internal/repository"
)

// ==================== SellerService 卖家服务 ====================

// SellerService 卖家服务
type SellerService struct {
	sellers repository.SellerRepository
	auth    *middleware.Authenticator
}

// NewSellerService 创建卖家服务
func NewSellerService(sellers repository.SellerRepository, auth *middleware.Authenticator) *SellerService {
	return &SellerService{sellers: sellers, auth: auth}
}

// ==================== 注册 / 登录 ====================

// Signup 注册
func (s *SellerService) Signup(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	// 检查邮箱是否已注册
	exists, err := s.sellers.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrEmailExists
	}

	// 加密密码
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	seller := &model.Seller{
		Email:        email,
		PasswordHash: string(hashedPassword),
	}
	if err := s.sellers.Create(ctx, seller); err != nil {
		return nil, err
	}

	return s.issueToken(seller)
}

// Login 登录
func (s *SellerService) Login(ctx context.Context, email, password string) (*dto.AuthResponse, error) {
	seller, err := s.sellers.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		return nil, ErrInvalidCredentials
	}

	// 验证密码
	if err := bcrypt.CompareHashAndPassword([]byte(seller.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.issueToken(seller)
}

func (s *SellerService) issueToken(seller *model.Seller) (*dto.AuthResponse, error) {
	token, err := s.auth.GenerateToken(seller)
	if err != nil {
		return nil, err
	}
	return &dto.AuthResponse{
		Token: token,
		User:  dto.SellerInfo{ID: seller.ID, Email: seller.Email},
	}, nil
}

// ==================== 设置页 ====================

// SaveSetup 保存 Packlink Key 和自动化开关，返回保存后的状态
func (s *SellerService) SaveSetup(ctx context.Context, sellerID int64, req *dto.SetupSaveRequest) (*model.Seller, error) {
	if err := s.sellers.UpdateSetup(ctx, sellerID, req.PacklinkAPIKey, req.AutomationEnabled); err != nil {
		return nil, err
	}

	// 回读一次，保证响应反映的是落库后的行
	seller, err := s.sellers.GetByID(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if seller == nil {
		return nil, ErrSellerNotFound
	}
	return seller, nil
}

// ToggleAutomation 取反自动化开关，返回新状态
func (s *SellerService) ToggleAutomation(ctx context.Context, seller *model.Seller) (bool, error) {
	newState := !seller.AutomationEnabled
	if err := s.sellers.UpdateAutomation(ctx, seller.ID, newState); err != nil {
		return seller.AutomationEnabled, err
	}
	return newState, nil
}

// ==================== 错误定义 ====================

var (
	ErrEmailExists        = errors.New("Email already exists")
	ErrInvalidCredentials = errors.New("Invalid credentials")
)
