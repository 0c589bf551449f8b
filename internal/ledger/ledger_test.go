package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/fixedpoint"
	"github.com/kalepail/blendizzard/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// LedgerTestSuite 阵营点账本测试套件
type LedgerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	oracle *StaticVaultOracle
	ledger *GormLedger
	now    time.Time
}

func (suite *LedgerTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.oracle = &StaticVaultOracle{Balances: map[string]int64{}, ResetPercent: 50}
	suite.ledger = NewGormLedger(suite.db, suite.oracle, DefaultParams())
	suite.now = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.ledger.SetTimeSource(func() time.Time { return suite.now })
}

func (suite *LedgerTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// TestInitializeEpochFP_ZeroBalance 测试零余额玩家预算为0
func (suite *LedgerTestSuite) TestInitializeEpochFP_ZeroBalance() {
	ctx := context.Background()

	ep, _, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 1, "GEMPTY")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(0), ep.AvailableFP)
}

// TestInitializeEpochFP_NewHolder 测试新持有者的预算
func (suite *LedgerTestSuite) TestInitializeEpochFP_NewHolder() {
	ctx := context.Background()

	// 余额1000枚：金额乘数 = 1 + 1000/(1000+1000) = 1.5，时间乘数 = 1（刚开始持有）
	balance := int64(1000) * fixedpoint.Scalar7
	suite.oracle.Balances["GNEW"] = balance

	ep, _, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 1, "GNEW")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), int64(1500)*fixedpoint.Scalar7, ep.AvailableFP)
}

// TestInitializeEpochFP_LongHolder 测试长期持有者的时间乘数
func (suite *LedgerTestSuite) TestInitializeEpochFP_LongHolder() {
	ctx := context.Background()

	balance := int64(1000) * fixedpoint.Scalar7
	suite.oracle.Balances["GHODL"] = balance

	// 先初始化周期1记录时间起点
	_, _, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 1, "GHODL")
	assert.NoError(suite.T(), err)

	// 30天后进入周期2：时间乘数 = 1 + 30d/(30d+30d) = 1.5
	suite.now = suite.now.Add(30 * 24 * time.Hour)

	ep, _, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 2, "GHODL")
	assert.NoError(suite.T(), err)
	// 1000 × 1.5 × 1.5 = 2250
	assert.Equal(suite.T(), int64(2250)*fixedpoint.Scalar7, ep.AvailableFP)
}

// TestInitializeEpochFP_Idempotent 测试重复初始化不改变预算
func (suite *LedgerTestSuite) TestInitializeEpochFP_Idempotent() {
	ctx := context.Background()

	suite.oracle.Balances["GIDEM"] = 1000 * fixedpoint.Scalar7

	first, _, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 1, "GIDEM")
	assert.NoError(suite.T(), err)

	// 余额变化后重复初始化仍返回原记录
	suite.oracle.Balances["GIDEM"] = 9999 * fixedpoint.Scalar7
	second, _, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 1, "GIDEM")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), first.AvailableFP, second.AvailableFP)
	assert.Equal(suite.T(), first.ID, second.ID)
}

// TestInitializeEpochFP_WithdrawReset 测试大额提现重置时间乘数
func (suite *LedgerTestSuite) TestInitializeEpochFP_WithdrawReset() {
	ctx := context.Background()

	balance := int64(1000) * fixedpoint.Scalar7
	suite.oracle.Balances["GWD"] = balance

	_, reset, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 1, "GWD")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), reset)

	// 30天后提走60%再进入周期2
	suite.now = suite.now.Add(30 * 24 * time.Hour)
	suite.oracle.Balances["GWD"] = 400 * fixedpoint.Scalar7

	ep, reset, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 2, "GWD")
	assert.NoError(suite.T(), err)
	suite.Require().NotNil(reset)
	assert.Equal(suite.T(), "GWD", reset.Address)
	assert.Equal(suite.T(), balance, reset.OldBalance)
	assert.Equal(suite.T(), int64(400)*fixedpoint.Scalar7, reset.NewBalance)

	// 时间乘数被重置为1：400 × (1 + 400/1400) × 1 = 400 + floor部分
	newBalance := int64(400) * fixedpoint.Scalar7
	denom := newBalance + 1000*fixedpoint.Scalar7
	frac, _ := fixedpoint.DivFloor(newBalance, denom)
	expected, _ := fixedpoint.MulFloor(newBalance, fixedpoint.Scalar7+frac)
	assert.Equal(suite.T(), expected, ep.AvailableFP)
}

// TestInitializeEpochFP_SmallWithdrawKeepsMultiplier 测试小额提现不重置
func (suite *LedgerTestSuite) TestInitializeEpochFP_SmallWithdrawKeepsMultiplier() {
	ctx := context.Background()

	suite.oracle.Balances["GKEEP"] = 1000 * fixedpoint.Scalar7

	_, _, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 1, "GKEEP")
	assert.NoError(suite.T(), err)

	// 提走40%（低于50%阈值）
	suite.now = suite.now.Add(30 * 24 * time.Hour)
	suite.oracle.Balances["GKEEP"] = 600 * fixedpoint.Scalar7

	_, reset, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 2, "GKEEP")
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), reset)
}

// TestLockUnlockConsume 测试锁定、释放与消耗
func (suite *LedgerTestSuite) TestLockUnlockConsume() {
	ctx := context.Background()

	suite.oracle.Balances["GLOCK"] = 1000 * fixedpoint.Scalar7
	ep, _, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 1, "GLOCK")
	assert.NoError(suite.T(), err)
	budget := ep.AvailableFP

	err = suite.ledger.LockFP(ctx, suite.db, 1, "GLOCK", 100)
	assert.NoError(suite.T(), err)

	available, err := suite.ledger.AvailableFP(ctx, 1, "GLOCK")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), budget-100, available)

	// 超出可用量的锁定被拒绝
	err = suite.ledger.LockFP(ctx, suite.db, 1, "GLOCK", budget)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), errors.Is(err, errors.ErrInsufficientFactionPoints))

	// 释放一半，消耗一半
	err = suite.ledger.UnlockFP(ctx, suite.db, 1, "GLOCK", 50)
	assert.NoError(suite.T(), err)
	err = suite.ledger.ConsumeFP(ctx, suite.db, 1, "GLOCK", 50)
	assert.NoError(suite.T(), err)

	available, err = suite.ledger.AvailableFP(ctx, 1, "GLOCK")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), budget-50, available)
}

// TestLockEpochFaction 测试阵营锁定语义
func (suite *LedgerTestSuite) TestLockEpochFaction() {
	ctx := context.Background()

	suite.oracle.Balances["GFAC"] = 100 * fixedpoint.Scalar7
	_, _, err := suite.ledger.InitializeEpochFP(ctx, suite.db, 1, "GFAC")
	assert.NoError(suite.T(), err)

	err = suite.ledger.LockEpochFaction(ctx, suite.db, 1, "GFAC", 2)
	assert.NoError(suite.T(), err)

	// 同阵营幂等
	err = suite.ledger.LockEpochFaction(ctx, suite.db, 1, "GFAC", 2)
	assert.NoError(suite.T(), err)

	// 不同阵营报错
	err = suite.ledger.LockEpochFaction(ctx, suite.db, 1, "GFAC", 3)
	assert.Error(suite.T(), err)
	assert.True(suite.T(), errors.Is(err, errors.ErrFactionAlreadyLocked))
}

func TestLedgerTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}
