package repository

import (
	"context"
	"testing"
	"time"

	"github.com/kalepail/blendizzard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// EpochRepositoryTestSuite 周期仓储测试套件
type EpochRepositoryTestSuite struct {
	suite.Suite
	db           *gorm.DB
	epochRepo    EpochRepository
	standingRepo FactionStandingRepository
	stateRepo    EpochStateRepository
	claimRepo    ClaimRepository
}

func (suite *EpochRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.epochRepo = NewEpochRepository(suite.db)
	suite.standingRepo = NewFactionStandingRepository(suite.db)
	suite.stateRepo = NewEpochStateRepository(suite.db)
	suite.claimRepo = NewClaimRepository(suite.db)
}

func (suite *EpochRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestEpochRepository_CreateAndFind 测试创建与查找周期
func (suite *EpochRepositoryTestSuite) TestEpochRepository_CreateAndFind() {
	ctx := context.Background()

	epoch := CreateTestEpoch(1, 10000000000)
	err := suite.epochRepo.Create(ctx, epoch)
	assert.NoError(suite.T(), err)

	found, err := suite.epochRepo.FindByEpochID(ctx, 1)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(10000000000), found.RewardPool)
	assert.False(suite.T(), found.IsFinalized)
	assert.Nil(suite.T(), found.WinningFaction)
}

// TestEpochRepository_Finalize 测试周期结算单向性
func (suite *EpochRepositoryTestSuite) TestEpochRepository_Finalize() {
	ctx := context.Background()

	epoch := CreateTestEpoch(2, 0)
	err := suite.epochRepo.Create(ctx, epoch)
	assert.NoError(suite.T(), err)

	err = suite.epochRepo.Finalize(ctx, 2, 1)
	assert.NoError(suite.T(), err)

	found, err := suite.epochRepo.FindByEpochID(ctx, 2)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), found.IsFinalized)
	assert.Equal(suite.T(), 1, *found.WinningFaction)

	// 已结算的周期不可改写获胜阵营
	err = suite.epochRepo.Finalize(ctx, 2, 3)
	assert.NoError(suite.T(), err)

	found, err = suite.epochRepo.FindByEpochID(ctx, 2)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 1, *found.WinningFaction)
}

// TestEpochRepository_AddRewardPool 测试奖池注资
func (suite *EpochRepositoryTestSuite) TestEpochRepository_AddRewardPool() {
	ctx := context.Background()

	epoch := CreateTestEpoch(3, 100)
	err := suite.epochRepo.Create(ctx, epoch)
	assert.NoError(suite.T(), err)

	err = suite.epochRepo.AddRewardPool(ctx, 3, 900)
	assert.NoError(suite.T(), err)

	found, err := suite.epochRepo.FindByEpochID(ctx, 3)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1000), found.RewardPool)
}

// TestFactionStandingRepository_AddFP 测试阵营战绩累加
func (suite *EpochRepositoryTestSuite) TestFactionStandingRepository_AddFP() {
	ctx := context.Background()

	// 缺失战绩视为0
	total, err := suite.standingRepo.GetTotalFP(ctx, 1, 1)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), total)

	err = suite.standingRepo.AddFP(ctx, 1, 1, 300)
	assert.NoError(suite.T(), err)
	err = suite.standingRepo.AddFP(ctx, 1, 1, 200)
	assert.NoError(suite.T(), err)
	err = suite.standingRepo.AddFP(ctx, 1, 2, 100)
	assert.NoError(suite.T(), err)

	total, err = suite.standingRepo.GetTotalFP(ctx, 1, 1)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(500), total)

	standings, err := suite.standingRepo.ListByEpoch(ctx, 1)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), standings, 2)
	assert.Equal(suite.T(), 1, standings[0].Faction)
	assert.Equal(suite.T(), 2, standings[1].Faction)
}

// TestEpochStateRepository_CurrentPointer 测试当前周期指针
func (suite *EpochRepositoryTestSuite) TestEpochStateRepository_CurrentPointer() {
	ctx := context.Background()

	current, err := suite.stateRepo.GetCurrent(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), uint32(0), current)

	err = suite.stateRepo.SetCurrent(ctx, 7)
	assert.NoError(suite.T(), err)

	current, err = suite.stateRepo.GetCurrent(ctx)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), uint32(7), current)
}

// TestClaimRepository_UniquePerEpoch 测试领取记录唯一约束
func (suite *EpochRepositoryTestSuite) TestClaimRepository_UniquePerEpoch() {
	ctx := context.Background()

	claim := &models.ClaimRecord{
		Address:   "GADDR1",
		EpochID:   1,
		Faction:   1,
		Amount:    500,
		ClaimedAt: time.Now(),
	}
	err := suite.claimRepo.Create(ctx, claim)
	assert.NoError(suite.T(), err)

	claimed, err := suite.claimRepo.HasClaimed(ctx, "GADDR1", 1)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), claimed)

	// 同地址同周期二次写入被唯一索引拒绝
	dup := &models.ClaimRecord{
		Address:   "GADDR1",
		EpochID:   1,
		Faction:   1,
		Amount:    500,
		ClaimedAt: time.Now(),
	}
	err = suite.claimRepo.Create(ctx, dup)
	assert.Error(suite.T(), err)

	// 不同周期可以领取
	other := &models.ClaimRecord{
		Address:   "GADDR1",
		EpochID:   2,
		Faction:   1,
		Amount:    300,
		ClaimedAt: time.Now(),
	}
	err = suite.claimRepo.Create(ctx, other)
	assert.NoError(suite.T(), err)

	total, err := suite.claimRepo.SumByEpoch(ctx, 1)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(500), total)
}

func TestEpochRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(EpochRepositoryTestSuite))
}
