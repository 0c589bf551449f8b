package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

// JWTTestSuite JWT工具测试套件
type JWTTestSuite struct {
	suite.Suite
	manager *JWTManager
}

func (suite *JWTTestSuite) SetupTest() {
	suite.manager = NewJWTManager(
		"test-secret-key",
		1*time.Hour,    // access token expiry
		7*24*time.Hour, // refresh token expiry
	)
}

// 测试创建JWT管理器
func (suite *JWTTestSuite) TestNewJWTManager() {
	manager := NewJWTManager("secret", 1*time.Hour, 24*time.Hour)
	suite.NotNil(manager)
	// 私有字段无法直接访问，通过GetTokenExpiry间接验证
	suite.Equal(1*time.Hour, manager.GetTokenExpiry("access"))
	suite.Equal(24*time.Hour, manager.GetTokenExpiry("refresh"))
}

// 测试生成与验证访问令牌
func (suite *JWTTestSuite) TestGenerateAccessToken() {
	token, err := suite.manager.GenerateAccessToken("admin-user", "admin")
	suite.NoError(err)
	suite.NotEmpty(token)

	claims, err := suite.manager.ValidateToken(token)
	suite.NoError(err)
	suite.NotNil(claims)
	suite.Equal("admin-user", claims.Subject)
	suite.Equal("admin", claims.Role)
	suite.Equal("access", claims.TokenType)
}

// 测试游戏角色令牌
func (suite *JWTTestSuite) TestGameRoleToken() {
	token, err := suite.manager.GenerateAccessToken("GGAMEADDR", "game")
	suite.NoError(err)

	claims, err := suite.manager.ValidateToken(token)
	suite.NoError(err)
	suite.Equal("GGAMEADDR", claims.Subject)
	suite.Equal("game", claims.Role)
}

// 测试验证无效令牌
func (suite *JWTTestSuite) TestValidateInvalidToken() {
	_, err := suite.manager.ValidateToken("not-a-token")
	suite.Error(err)

	_, err = suite.manager.ValidateToken("")
	suite.Error(err)

	// 错误密钥签发的令牌
	other := NewJWTManager("other-secret", time.Hour, time.Hour)
	token, _ := other.GenerateAccessToken("admin-user", "admin")
	_, err = suite.manager.ValidateToken(token)
	suite.Error(err)
}

// 测试过期令牌
func (suite *JWTTestSuite) TestExpiredToken() {
	expired := NewJWTManager("test-secret-key", -time.Minute, -time.Minute)
	token, err := expired.GenerateAccessToken("admin-user", "admin")
	suite.NoError(err)

	_, err = suite.manager.ValidateToken(token)
	suite.Error(err)
}

// 测试刷新令牌流程
func (suite *JWTTestSuite) TestRefreshAccessToken() {
	refreshToken, err := suite.manager.GenerateRefreshToken("admin-user", "admin")
	suite.NoError(err)

	newAccess, err := suite.manager.RefreshAccessToken(refreshToken)
	suite.NoError(err)
	suite.NotEmpty(newAccess)

	claims, err := suite.manager.ValidateToken(newAccess)
	suite.NoError(err)
	suite.Equal("admin-user", claims.Subject)
	suite.Equal("access", claims.TokenType)

	// 访问令牌不能当刷新令牌用
	accessToken, _ := suite.manager.GenerateAccessToken("admin-user", "admin")
	_, err = suite.manager.RefreshAccessToken(accessToken)
	suite.Error(err)
}

func TestJWTSuite(t *testing.T) {
	suite.Run(t, new(JWTTestSuite))
}
