// Package auth 提供管理员认证服务
package auth

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/dumeirei/market-merchant-backend/internal/common/cache"
	"github.com/dumeirei/market-merchant-backend/internal/common/crypto"
	"github.com/dumeirei/market-merchant-backend/internal/common/errors"
	"github.com/dumeirei/market-merchant-backend/internal/common/jwt"
	"github.com/dumeirei/market-merchant-backend/internal/common/logger"
	"github.com/dumeirei/market-merchant-backend/internal/common/metrics"
	"github.com/dumeirei/market-merchant-backend/internal/models"
	"github.com/dumeirei/market-merchant-backend/internal/repository"
)

// AuthService 管理员认证服务
type AuthService struct {
	adminRepo  *repository.AdminRepository
	jwtManager *jwt.Manager
	blacklist  *cache.TokenBlacklist
	now        func() time.Time
}

// NewAuthService 创建管理员认证服务，blacklist 可为 nil
func NewAuthService(adminRepo *repository.AdminRepository, jwtManager *jwt.Manager, blacklist *cache.TokenBlacklist) *AuthService {
	return &AuthService{
		adminRepo:  adminRepo,
		jwtManager: jwtManager,
		blacklist:  blacklist,
		now:        time.Now,
	}
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	IP       string `json:"-"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Admin *AdminInfo     `json:"admin"`
	Token *jwt.TokenPair `json:"token"`
}

// AdminInfo 管理员信息（不含敏感字段）
type AdminInfo struct {
	ID          int64      `json:"id"`
	Username    string     `json:"username"`
	Name        string     `json:"name"`
	Role        string     `json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6,max=32"`
}

// Login 管理员登录
// 用户不存在与密码错误返回同一错误
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	admin, err := s.adminRepo.GetByUsername(ctx, strings.TrimSpace(req.Username))
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			metrics.GetMetrics().RecordLogin(false)
			return nil, errors.ErrPasswordError
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}

	if !crypto.VerifyPassword(req.Password, admin.PasswordHash) {
		metrics.GetMetrics().RecordLogin(false)
		logger.Warn("管理员密码错误", logger.AdminID(admin.ID), logger.IP(req.IP))
		return nil, errors.ErrPasswordError
	}
	if admin.Status != models.AdminStatusActive {
		metrics.GetMetrics().RecordLogin(false)
		return nil, errors.ErrAccountDisabled
	}

	pair, err := s.jwtManager.GenerateTokenPair(admin.ID, admin.Username, admin.Role)
	if err != nil {
		return nil, errors.ErrInternalError.WithError(err)
	}

	now := s.now()
	if err := s.adminRepo.UpdateLoginInfo(ctx, admin.ID, req.IP, now); err != nil {
		// 不阻塞登录
		logger.Warn("更新登录信息失败", logger.AdminID(admin.ID), logger.Err(err))
	} else {
		admin.LastLoginAt = &now
	}

	metrics.GetMetrics().RecordLogin(true)
	logger.Info("管理员登录", logger.AdminID(admin.ID), logger.IP(req.IP))
	return &LoginResponse{Admin: toAdminInfo(admin), Token: pair}, nil
}

// Refresh 使用刷新令牌换取新的令牌对，已注销或已禁用的管理员不能刷新
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*jwt.TokenPair, error) {
	claims, err := s.jwtManager.ParseToken(refreshToken)
	if err != nil {
		if stderrors.Is(err, jwt.ErrTokenExpired) {
			return nil, errors.ErrTokenExpired
		}
		return nil, errors.ErrTokenRefreshFail.WithError(err)
	}
	if s.blacklist != nil && s.blacklist.IsRevoked(ctx, claims.ID) {
		return nil, errors.ErrTokenInvalid
	}

	admin, err := s.adminRepo.GetByID(ctx, claims.AdminID)
	if err != nil {
		return nil, errors.ErrTokenRefreshFail.WithError(err)
	}
	if admin.Status != models.AdminStatusActive {
		return nil, errors.ErrAccountDisabled
	}

	pair, err := s.jwtManager.RefreshToken(refreshToken)
	if err != nil {
		return nil, errors.ErrTokenRefreshFail.WithError(err)
	}
	return pair, nil
}

// Profile 当前管理员信息
func (s *AuthService) Profile(ctx context.Context, adminID int64) (*AdminInfo, error) {
	admin, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.ErrNotFound.WithMessage("管理员不存在")
		}
		return nil, errors.ErrDatabaseError.WithError(err)
	}
	return toAdminInfo(admin), nil
}

// Logout 注销访问令牌直至其过期
func (s *AuthService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil || claims == nil || claims.ExpiresAt == nil {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return errors.ErrCacheError.WithError(err)
	}
	return nil
}

// ChangePassword 修改密码
func (s *AuthService) ChangePassword(ctx context.Context, adminID int64, req *ChangePasswordRequest) error {
	admin, err := s.adminRepo.GetByID(ctx, adminID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.ErrNotFound.WithMessage("管理员不存在")
		}
		return errors.ErrDatabaseError.WithError(err)
	}

	if !crypto.VerifyPassword(req.OldPassword, admin.PasswordHash) {
		return errors.ErrPasswordError.WithMessage("原密码错误")
	}

	hash, err := crypto.HashPassword(req.NewPassword)
	if err != nil {
		return errors.ErrInternalError.WithError(err)
	}
	if err := s.adminRepo.UpdatePassword(ctx, adminID, hash); err != nil {
		return errors.ErrDatabaseError.WithError(err)
	}
	logger.Info("管理员修改密码", logger.AdminID(adminID))
	return nil
}

// EnsureSuperAdmin 管理员表为空时创建初始超级管理员，返回是否创建
func (s *AuthService) EnsureSuperAdmin(ctx context.Context, username, password, name string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}
	count, err := s.adminRepo.Count(ctx)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return false, err
	}
	if name == "" {
		name = username
	}
	admin := &models.Admin{
		Username:     username,
		PasswordHash: hash,
		Name:         name,
		Role:         models.RoleSuperAdmin,
		Status:       models.AdminStatusActive,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return false, err
	}
	logger.Info("已创建初始超级管理员", logger.AdminID(admin.ID), logger.String("username", username))
	return true, nil
}

func toAdminInfo(admin *models.Admin) *AdminInfo {
	return &AdminInfo{
		ID:          admin.ID,
		Username:    admin.Username,
		Name:        admin.Name,
		Role:        admin.Role,
		LastLoginAt: admin.LastLoginAt,
	}
}
