package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kalepail/blendizzard/internal/event"
	"github.com/kalepail/blendizzard/internal/fixedpoint"
	"github.com/kalepail/blendizzard/internal/repository"
	"github.com/kalepail/blendizzard/internal/reward"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// RewardHandlerTestSuite 奖励接口测试套件
type RewardHandlerTestSuite struct {
	suite.Suite
	db      *gorm.DB
	handler *RewardHandler
}

func (suite *RewardHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.db = repository.SetupTestDB()
	distributor := reward.NewDistributor(suite.db, &reward.DBTokenTransfer{}, event.NoopEmitter{})
	suite.handler = NewRewardHandler(distributor)
}

func (suite *RewardHandlerTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// seedFinalizedEpoch 播种已定局周期与两个胜方玩家
func (suite *RewardHandlerTestSuite) seedFinalizedEpoch(addresses ...string) {
	ctx := context.Background()
	epochRepo := repository.NewEpochRepository(suite.db)

	epoch := repository.CreateTestEpoch(1, 1000*fixedpoint.Scalar7)
	suite.Require().NoError(epochRepo.Create(ctx, epoch))
	suite.Require().NoError(epochRepo.Finalize(ctx, 1, 1))

	standingRepo := repository.NewFactionStandingRepository(suite.db)
	suite.Require().NoError(standingRepo.AddFP(ctx, 1, 1, 500*fixedpoint.Scalar7))

	for _, addr := range addresses {
		ep := repository.CreateTestEpochPlayer(1, addr, 1, 0)
		ep.TotalFPContributed = 100 * fixedpoint.Scalar7
		suite.Require().NoError(suite.db.Create(ep).Error)
	}
}

// claimRouter 构造领取路由，subject 非空时模拟已认证主体
func (suite *RewardHandlerTestSuite) claimRouter(subject string) *gin.Engine {
	router := gin.New()
	router.POST("/reward/claim", func(c *gin.Context) {
		if subject != "" {
			c.Set("subject", subject)
		}
		suite.handler.Claim(c)
	})
	return router
}

// hasClaimed 查询玩家是否已领取
func (suite *RewardHandlerTestSuite) hasClaimed(address string) bool {
	claimed, err := repository.NewClaimRepository(suite.db).HasClaimed(context.Background(), address, 1)
	suite.Require().NoError(err)
	return claimed
}

// TestClaim_PaysAuthenticatedSubject 测试领取人取自令牌主体而非请求体
func (suite *RewardHandlerTestSuite) TestClaim_PaysAuthenticatedSubject() {
	suite.seedFinalizedEpoch("GSELF", "GVICTIM")

	// 请求体中夹带他人地址，应被忽略
	body := bytes.NewBufferString(`{"address":"GVICTIM","epoch_id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/reward/claim", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.claimRouter("GSELF").ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.True(suite.T(), suite.hasClaimed("GSELF"))
	assert.False(suite.T(), suite.hasClaimed("GVICTIM"))
}

// TestClaim_MissingSubject 测试缺少认证主体时拒绝领取
func (suite *RewardHandlerTestSuite) TestClaim_MissingSubject() {
	suite.seedFinalizedEpoch("GSELF")

	body := bytes.NewBufferString(`{"epoch_id":1}`)
	req := httptest.NewRequest(http.MethodPost, "/reward/claim", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.claimRouter("").ServeHTTP(w, req)

	assert.Equal(suite.T(), http.StatusUnauthorized, w.Code)
	assert.False(suite.T(), suite.hasClaimed("GSELF"))
}

func TestRewardHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(RewardHandlerTestSuite))
}
