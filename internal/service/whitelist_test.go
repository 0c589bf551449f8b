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

// WhitelistServiceTestSuite 游戏白名单服务测试套件
type WhitelistServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *WhitelistService
}

func (suite *WhitelistServiceTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	jwtManager := utils.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	suite.service = NewWhitelistService(suite.db, jwtManager)
}

func (suite *WhitelistServiceTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// TestRegisterAndIssueToken 测试登记游戏并换取令牌
func (suite *WhitelistServiceTestSuite) TestRegisterAndIssueToken() {
	ctx := context.Background()

	key, err := suite.service.RegisterGame(ctx, "GGAME1")
	suite.NoError(err)
	suite.Len(key, 64)

	result, err := suite.service.IssueGameToken(ctx, "GGAME1", key)
	suite.NoError(err)
	suite.NotEmpty(result.AccessToken)

	// 错误密钥被拒绝
	_, err = suite.service.IssueGameToken(ctx, "GGAME1", "wrong-key")
	suite.True(errors.Is(err, errors.ErrAuthentication))

	// 未登记的游戏被拒绝
	_, err = suite.service.IssueGameToken(ctx, "GGHOST", key)
	suite.True(errors.Is(err, errors.ErrAuthentication))
}

// TestDisabledGame 测试停用游戏不能换取令牌
func (suite *WhitelistServiceTestSuite) TestDisabledGame() {
	ctx := context.Background()

	key, err := suite.service.RegisterGame(ctx, "GGAME2")
	suite.Require().NoError(err)

	suite.Require().NoError(suite.service.SetGameEnabled(ctx, "GGAME2", false))

	_, err = suite.service.IssueGameToken(ctx, "GGAME2", key)
	suite.True(errors.Is(err, errors.ErrGameNotWhitelisted))

	// 重新启用后恢复
	suite.Require().NoError(suite.service.SetGameEnabled(ctx, "GGAME2", true))
	_, err = suite.service.IssueGameToken(ctx, "GGAME2", key)
	suite.NoError(err)
}

// TestRemoveGame 测试移除游戏
func (suite *WhitelistServiceTestSuite) TestRemoveGame() {
	ctx := context.Background()

	key, err := suite.service.RegisterGame(ctx, "GGAME3")
	suite.Require().NoError(err)

	suite.NoError(suite.service.RemoveGame(ctx, "GGAME3"))

	_, err = suite.service.IssueGameToken(ctx, "GGAME3", key)
	suite.True(errors.Is(err, errors.ErrAuthentication))
}

// TestListGames 测试分页查询
func (suite *WhitelistServiceTestSuite) TestListGames() {
	ctx := context.Background()

	for _, id := range []string{"GA", "GB", "GC"} {
		_, err := suite.service.RegisterGame(ctx, id)
		suite.Require().NoError(err)
	}

	pagination := repository.NewPagination(1, 2)
	games, err := suite.service.ListGames(ctx, pagination)
	suite.NoError(err)
	suite.Len(games, 2)
	suite.Equal(int64(3), pagination.Total)
}

func TestWhitelistServiceTestSuite(t *testing.T) {
	suite.Run(t, new(WhitelistServiceTestSuite))
}
