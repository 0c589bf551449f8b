package service

import (
	"context"
	"testing"
	"time"

	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/repository"
	"github.com/kalepail/blendizzard/internal/utils"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// AdminServiceTestSuite 管理员服务测试套件
type AdminServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *AdminService
}

func (suite *AdminServiceTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	jwtManager := utils.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	suite.service = NewAdminService(suite.db, jwtManager)
}

func (suite *AdminServiceTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// TestLoginFlow 测试创建账号与登录
func (suite *AdminServiceTestSuite) TestLoginFlow() {
	ctx := context.Background()

	err := suite.service.CreateAdmin(ctx, "operator", "very-secret-pass")
	suite.NoError(err)

	result, err := suite.service.Login(ctx, "operator", "very-secret-pass")
	suite.NoError(err)
	suite.NotEmpty(result.AccessToken)
	suite.NotEmpty(result.RefreshToken)

	// 刷新令牌可换取新的访问令牌
	refreshed, err := suite.service.RefreshToken(ctx, result.RefreshToken)
	suite.NoError(err)
	suite.NotEmpty(refreshed.AccessToken)
}

// TestLoginRejected 测试错误凭证被拒绝
func (suite *AdminServiceTestSuite) TestLoginRejected() {
	ctx := context.Background()

	suite.Require().NoError(suite.service.CreateAdmin(ctx, "operator", "very-secret-pass"))

	_, err := suite.service.Login(ctx, "operator", "wrong-pass")
	suite.Error(err)
	suite.True(errors.Is(err, errors.ErrAuthentication))

	_, err = suite.service.Login(ctx, "ghost", "very-secret-pass")
	suite.Error(err)
	suite.True(errors.Is(err, errors.ErrAuthentication))
}

// TestCreateAdminValidation 测试账号参数校验
func (suite *AdminServiceTestSuite) TestCreateAdminValidation() {
	ctx := context.Background()

	err := suite.service.CreateAdmin(ctx, "", "very-secret-pass")
	suite.True(errors.Is(err, errors.ErrInvalidParam))

	err = suite.service.CreateAdmin(ctx, "operator", "short")
	suite.True(errors.Is(err, errors.ErrInvalidParam))
}

// TestEnsureDefaultAdmin 测试默认管理员幂等创建
func (suite *AdminServiceTestSuite) TestEnsureDefaultAdmin() {
	ctx := context.Background()

	suite.NoError(suite.service.EnsureDefaultAdmin(ctx, "root", "initial-password"))
	suite.NoError(suite.service.EnsureDefaultAdmin(ctx, "root", "different-password"))

	// 第二次调用不覆盖原密码
	_, err := suite.service.Login(ctx, "root", "initial-password")
	suite.NoError(err)

	// 空凭证直接跳过
	suite.NoError(suite.service.EnsureDefaultAdmin(ctx, "", ""))
}

func TestAdminServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AdminServiceTestSuite))
}
