package service

import (
	"context"
	"testing"
	"time"

	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/ledger"
	"github.com/kalepail/blendizzard/internal/repository"
	"github.com/kalepail/blendizzard/internal/utils"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// PlayerServiceTestSuite 玩家服务测试套件
type PlayerServiceTestSuite struct {
	suite.Suite
	db         *gorm.DB
	jwtManager *utils.JWTManager
	service    *PlayerService
}

func (suite *PlayerServiceTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.jwtManager = utils.NewJWTManager("test-secret", time.Hour, 24*time.Hour)
	fpLedger := ledger.NewGormLedger(suite.db, &ledger.StaticVaultOracle{Balances: map[string]int64{}}, ledger.DefaultParams())
	suite.service = NewPlayerService(suite.db, fpLedger, suite.jwtManager, 4)
}

func (suite *PlayerServiceTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// TestIssuePlayerToken 测试玩家凭意图密钥换取令牌
func (suite *PlayerServiceTestSuite) TestIssuePlayerToken() {
	ctx := context.Background()

	key, err := suite.service.RotateIntentKey(ctx, "GPLAYER")
	suite.Require().NoError(err)
	suite.Len(key, 64)

	result, err := suite.service.IssuePlayerToken(ctx, "GPLAYER", key)
	suite.NoError(err)
	suite.NotEmpty(result.AccessToken)

	// 令牌主体即玩家地址，角色为player
	claims, err := suite.jwtManager.ValidateToken(result.AccessToken)
	suite.NoError(err)
	suite.Equal("GPLAYER", claims.Subject)
	suite.Equal(RolePlayer, claims.Role)
}

// TestIssuePlayerToken_Rejected 测试凭证不符时拒绝签发
func (suite *PlayerServiceTestSuite) TestIssuePlayerToken_Rejected() {
	ctx := context.Background()

	key, err := suite.service.RotateIntentKey(ctx, "GPLAYER")
	suite.Require().NoError(err)

	// 错误密钥被拒绝
	_, err = suite.service.IssuePlayerToken(ctx, "GPLAYER", "wrong-key")
	suite.True(errors.Is(err, errors.ErrAuthentication))

	// 未登记的地址被拒绝
	_, err = suite.service.IssuePlayerToken(ctx, "GGHOST", key)
	suite.True(errors.Is(err, errors.ErrAuthentication))

	// 未设置密钥的玩家被拒绝
	playerRepo := repository.NewPlayerRepository(suite.db)
	_, err = playerRepo.GetOrCreate(ctx, "GNOKEY")
	suite.Require().NoError(err)
	_, err = suite.service.IssuePlayerToken(ctx, "GNOKEY", "")
	suite.True(errors.Is(err, errors.ErrAuthentication))
}

// TestSelectFaction 测试阵营偏好选择
func (suite *PlayerServiceTestSuite) TestSelectFaction() {
	ctx := context.Background()

	suite.NoError(suite.service.SelectFaction(ctx, "GPLAYER", 2))

	profile, err := suite.service.GetProfile(ctx, "GPLAYER", 0)
	suite.NoError(err)
	suite.Equal(2, profile.SelectedFaction)

	// 阵营编号越界被拒绝
	err = suite.service.SelectFaction(ctx, "GPLAYER", 0)
	suite.True(errors.Is(err, errors.ErrInvalidParam))
	err = suite.service.SelectFaction(ctx, "GPLAYER", 5)
	suite.True(errors.Is(err, errors.ErrInvalidParam))
}

func TestPlayerServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PlayerServiceTestSuite))
}
