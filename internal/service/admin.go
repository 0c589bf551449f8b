package service

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/logger"
	"github.com/kalepail/blendizzard/internal/models"
	"github.com/kalepail/blendizzard/internal/repository"
	"github.com/kalepail/blendizzard/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 角色常量
const (
	RoleAdmin  = "admin"
	RoleGame   = "game"
	RolePlayer = "player"
)

// AdminService 管理员服务
type AdminService struct {
	db         *gorm.DB
	adminRepo  repository.AdminRepository
	jwtManager *utils.JWTManager
	log        *zap.Logger
}

// NewAdminService 创建管理员服务
func NewAdminService(db *gorm.DB, jwtManager *utils.JWTManager) *AdminService {
	return &AdminService{
		db:         db,
		adminRepo:  repository.NewAdminRepository(db),
		jwtManager: jwtManager,
		log:        logger.GetModuleLogger("admin"),
	}
}

// LoginResult 登录结果
type LoginResult struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login 管理员登录
func (s *AdminService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	admin, err := s.adminRepo.FindByUsername(ctx, username)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrAuthentication, "用户名或密码错误")
		}
		return nil, errors.Wrap(err, errors.ErrDatabase)
	}

	ok, err := utils.VerifyPassword(password, admin.Password)
	if err != nil || !ok {
		s.log.Warn("管理员登录失败", zap.String("username", username))
		return nil, errors.New(errors.ErrAuthentication, "用户名或密码错误")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(admin.Username, RoleAdmin)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown)
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(admin.Username, RoleAdmin)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown)
	}

	if err := s.adminRepo.UpdateLastLogin(ctx, admin.Username, time.Now()); err != nil {
		s.log.Warn("更新登录时间失败", zap.Error(err))
	}

	s.log.Info("管理员登录成功", zap.String("username", username))

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
	}, nil
}

// RefreshToken 刷新访问令牌
func (s *AdminService) RefreshToken(ctx context.Context, refreshToken string) (*LoginResult, error) {
	accessToken, err := s.jwtManager.RefreshAccessToken(refreshToken)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrTokenInvalid)
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
	}, nil
}

// CreateAdmin 创建管理员账号
func (s *AdminService) CreateAdmin(ctx context.Context, username, password string) error {
	if username == "" || len(password) < 8 {
		return errors.New(errors.ErrInvalidParam, "用户名不能为空且密码至少8位")
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return errors.Wrap(err, errors.ErrUnknown)
	}

	admin := &models.AdminUser{
		Username: username,
		Password: hashed,
		Role:     RoleAdmin,
	}
	if err := s.adminRepo.Create(ctx, admin); err != nil {
		return errors.Wrap(err, errors.ErrDatabase)
	}

	s.log.Info("管理员账号已创建", zap.String("username", username))
	return nil
}

// EnsureDefaultAdmin 确保存在默认管理员（首次部署时创建）
func (s *AdminService) EnsureDefaultAdmin(ctx context.Context, username, password string) error {
	if username == "" || password == "" {
		return nil
	}

	_, err := s.adminRepo.FindByUsername(ctx, username)
	if err == nil {
		return nil
	}
	if !stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.Wrap(err, errors.ErrDatabase)
	}

	return s.CreateAdmin(ctx, username, password)
}
