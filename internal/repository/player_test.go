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

// PlayerRepositoryTestSuite 玩家仓储测试套件
type PlayerRepositoryTestSuite struct {
	suite.Suite
	db              *gorm.DB
	playerRepo      PlayerRepository
	epochPlayerRepo EpochPlayerRepository
	vaultRepo       VaultRepository
}

func (suite *PlayerRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.playerRepo = NewPlayerRepository(suite.db)
	suite.epochPlayerRepo = NewEpochPlayerRepository(suite.db)
	suite.vaultRepo = NewVaultRepository(suite.db)
}

func (suite *PlayerRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestPlayerRepository_GetOrCreate 测试查找或创建玩家
func (suite *PlayerRepositoryTestSuite) TestPlayerRepository_GetOrCreate() {
	ctx := context.Background()

	player, err := suite.playerRepo.GetOrCreate(ctx, "GADDR1")
	assert.NoError(suite.T(), err)
	assert.NotZero(suite.T(), player.ID)
	assert.Equal(suite.T(), models.FactionNone, player.SelectedFaction)

	// 再次调用返回同一条记录
	again, err := suite.playerRepo.GetOrCreate(ctx, "GADDR1")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), player.ID, again.ID)
}

// TestPlayerRepository_UpdateSelectedFaction 测试更新全局阵营
func (suite *PlayerRepositoryTestSuite) TestPlayerRepository_UpdateSelectedFaction() {
	ctx := context.Background()

	_, err := suite.playerRepo.GetOrCreate(ctx, "GADDR2")
	assert.NoError(suite.T(), err)

	err = suite.playerRepo.UpdateSelectedFaction(ctx, "GADDR2", 2)
	assert.NoError(suite.T(), err)

	found, err := suite.playerRepo.FindByAddress(ctx, "GADDR2")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, found.SelectedFaction)
	assert.True(suite.T(), found.HasSelectedFaction())
}

// TestEpochPlayerRepository_MoveToLocked 测试下注锁定阵营点
func (suite *PlayerRepositoryTestSuite) TestEpochPlayerRepository_MoveToLocked() {
	ctx := context.Background()

	ep := CreateTestEpochPlayer(1, "GADDR3", 1, 1000)
	err := suite.epochPlayerRepo.Create(ctx, ep)
	assert.NoError(suite.T(), err)

	err = suite.epochPlayerRepo.MoveToLocked(ctx, 1, "GADDR3", 400)
	assert.NoError(suite.T(), err)

	found, err := suite.epochPlayerRepo.Find(ctx, 1, "GADDR3")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(600), found.AvailableFP)
	assert.Equal(suite.T(), int64(400), found.LockedFP)

	// 可用不足时拒绝
	err = suite.epochPlayerRepo.MoveToLocked(ctx, 1, "GADDR3", 601)
	assert.Error(suite.T(), err)
}

// TestEpochPlayerRepository_ReleaseAndConsume 测试释放与消耗锁定
func (suite *PlayerRepositoryTestSuite) TestEpochPlayerRepository_ReleaseAndConsume() {
	ctx := context.Background()

	ep := CreateTestEpochPlayer(1, "GADDR4", 1, 1000)
	err := suite.epochPlayerRepo.Create(ctx, ep)
	assert.NoError(suite.T(), err)

	err = suite.epochPlayerRepo.MoveToLocked(ctx, 1, "GADDR4", 500)
	assert.NoError(suite.T(), err)

	// 释放一部分回可用
	err = suite.epochPlayerRepo.ReleaseLocked(ctx, 1, "GADDR4", 200)
	assert.NoError(suite.T(), err)

	// 消耗剩余锁定
	err = suite.epochPlayerRepo.ConsumeLocked(ctx, 1, "GADDR4", 300)
	assert.NoError(suite.T(), err)

	found, err := suite.epochPlayerRepo.Find(ctx, 1, "GADDR4")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(700), found.AvailableFP)
	assert.Equal(suite.T(), int64(0), found.LockedFP)

	// 锁定不足时拒绝
	err = suite.epochPlayerRepo.ConsumeLocked(ctx, 1, "GADDR4", 1)
	assert.Error(suite.T(), err)
}

// TestEpochPlayerRepository_LockFaction 测试周期阵营锁定幂等
func (suite *PlayerRepositoryTestSuite) TestEpochPlayerRepository_LockFaction() {
	ctx := context.Background()

	ep := &models.EpochPlayer{
		EpochID:       2,
		Address:       "GADDR5",
		AvailableFP:   100,
		LastTouchedAt: time.Now(),
	}
	err := suite.epochPlayerRepo.Create(ctx, ep)
	assert.NoError(suite.T(), err)

	err = suite.epochPlayerRepo.LockFaction(ctx, 2, "GADDR5", 3)
	assert.NoError(suite.T(), err)

	found, err := suite.epochPlayerRepo.Find(ctx, 2, "GADDR5")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), found.FactionLocked())
	assert.Equal(suite.T(), 3, *found.EpochFaction)

	// 已锁定后再次调用不覆盖
	err = suite.epochPlayerRepo.LockFaction(ctx, 2, "GADDR5", 1)
	assert.NoError(suite.T(), err)

	found, err = suite.epochPlayerRepo.Find(ctx, 2, "GADDR5")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 3, *found.EpochFaction)
}

// TestEpochPlayerRepository_AddContribution 测试累加贡献
func (suite *PlayerRepositoryTestSuite) TestEpochPlayerRepository_AddContribution() {
	ctx := context.Background()

	ep := CreateTestEpochPlayer(3, "GADDR6", 1, 0)
	err := suite.epochPlayerRepo.Create(ctx, ep)
	assert.NoError(suite.T(), err)

	err = suite.epochPlayerRepo.AddContribution(ctx, 3, "GADDR6", 250)
	assert.NoError(suite.T(), err)
	err = suite.epochPlayerRepo.AddContribution(ctx, 3, "GADDR6", 150)
	assert.NoError(suite.T(), err)

	found, err := suite.epochPlayerRepo.Find(ctx, 3, "GADDR6")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(400), found.TotalFPContributed)
}

// TestEpochPlayerRepository_DeleteTouchedBefore 测试过期清理
func (suite *PlayerRepositoryTestSuite) TestEpochPlayerRepository_DeleteTouchedBefore() {
	ctx := context.Background()

	old := CreateTestEpochPlayer(1, "GOLD", 1, 10)
	old.LastTouchedAt = time.Now().Add(-48 * time.Hour)
	err := suite.epochPlayerRepo.Create(ctx, old)
	assert.NoError(suite.T(), err)

	fresh := CreateTestEpochPlayer(2, "GFRESH", 1, 10)
	err = suite.epochPlayerRepo.Create(ctx, fresh)
	assert.NoError(suite.T(), err)

	deleted, err := suite.epochPlayerRepo.DeleteTouchedBefore(ctx, time.Now().Add(-24*time.Hour))
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1), deleted)

	_, err = suite.epochPlayerRepo.Find(ctx, 1, "GOLD")
	assert.Error(suite.T(), err)

	_, err = suite.epochPlayerRepo.Find(ctx, 2, "GFRESH")
	assert.NoError(suite.T(), err)
}

// TestVaultRepository_Balance 测试金库余额
func (suite *PlayerRepositoryTestSuite) TestVaultRepository_Balance() {
	ctx := context.Background()

	// 未知账户余额为0
	balance, err := suite.vaultRepo.GetBalance(ctx, "GNOBODY")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), balance)

	err = suite.vaultRepo.SetBalance(ctx, "GADDR7", 5000000000)
	assert.NoError(suite.T(), err)

	balance, err = suite.vaultRepo.GetBalance(ctx, "GADDR7")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(5000000000), balance)
}

func TestPlayerRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(PlayerRepositoryTestSuite))
}
