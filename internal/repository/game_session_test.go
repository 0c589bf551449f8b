package repository

import (
	"context"
	"testing"

	"github.com/kalepail/blendizzard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// GameSessionRepositoryTestSuite 对局会话仓储测试套件
type GameSessionRepositoryTestSuite struct {
	suite.Suite
	db            *gorm.DB
	sessionRepo   GameSessionRepository
	whitelistRepo WhitelistRepository
}

func (suite *GameSessionRepositoryTestSuite) SetupTest() {
	suite.db = SetupTestDB()
	suite.sessionRepo = NewGameSessionRepository(suite.db)
	suite.whitelistRepo = NewWhitelistRepository(suite.db)
}

func (suite *GameSessionRepositoryTestSuite) TearDownTest() {
	CleanupTestDB(suite.db)
}

// TestGameSessionRepository_Create 测试创建会话
func (suite *GameSessionRepositoryTestSuite) TestGameSessionRepository_Create() {
	ctx := context.Background()

	session := CreateTestSession("sess-1", "GGAME1", 1, "GP1", "GP2", 100, 200)
	err := suite.sessionRepo.Create(ctx, session)
	assert.NoError(suite.T(), err)
	assert.NotZero(suite.T(), session.ID)

	found, err := suite.sessionRepo.FindBySessionID(ctx, "sess-1")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "GGAME1", found.GameID)
	assert.True(suite.T(), found.IsPending())
}

// TestGameSessionRepository_DuplicateSessionID 测试会话号唯一约束
func (suite *GameSessionRepositoryTestSuite) TestGameSessionRepository_DuplicateSessionID() {
	ctx := context.Background()

	first := CreateTestSession("sess-dup", "GGAME1", 1, "GP1", "GP2", 100, 200)
	err := suite.sessionRepo.Create(ctx, first)
	assert.NoError(suite.T(), err)

	// 不同游戏相同会话号也被拒绝
	second := CreateTestSession("sess-dup", "GGAME2", 1, "GP3", "GP4", 300, 400)
	err = suite.sessionRepo.Create(ctx, second)
	assert.Error(suite.T(), err)

	exists, err := suite.sessionRepo.Exists(ctx, "sess-dup")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), exists)
}

// TestGameSessionRepository_MarkEnded 测试结束会话
func (suite *GameSessionRepositoryTestSuite) TestGameSessionRepository_MarkEnded() {
	ctx := context.Background()

	session := CreateTestSession("sess-end", "GGAME1", 1, "GP1", "GP2", 100, 200)
	err := suite.sessionRepo.Create(ctx, session)
	assert.NoError(suite.T(), err)

	err = suite.sessionRepo.MarkEnded(ctx, "sess-end", true)
	assert.NoError(suite.T(), err)

	found, err := suite.sessionRepo.FindBySessionID(ctx, "sess-end")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.SessionStatusEnded, found.Status)
	assert.NotNil(suite.T(), found.Player1Won)
	assert.True(suite.T(), *found.Player1Won)
	assert.NotNil(suite.T(), found.SettledAt)

	winner, loser, winnerWager, loserWager := found.Winner()
	assert.Equal(suite.T(), "GP1", winner)
	assert.Equal(suite.T(), "GP2", loser)
	assert.Equal(suite.T(), int64(100), winnerWager)
	assert.Equal(suite.T(), int64(200), loserWager)

	// 再次结束被拒绝（终态不可变）
	err = suite.sessionRepo.MarkEnded(ctx, "sess-end", false)
	assert.Error(suite.T(), err)

	found, err = suite.sessionRepo.FindBySessionID(ctx, "sess-end")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), *found.Player1Won)
}

// TestGameSessionRepository_MarkAbandoned 测试废弃会话
func (suite *GameSessionRepositoryTestSuite) TestGameSessionRepository_MarkAbandoned() {
	ctx := context.Background()

	session := CreateTestSession("sess-ab", "GGAME1", 1, "GP1", "GP2", 100, 200)
	err := suite.sessionRepo.Create(ctx, session)
	assert.NoError(suite.T(), err)

	err = suite.sessionRepo.MarkAbandoned(ctx, "sess-ab")
	assert.NoError(suite.T(), err)

	found, err := suite.sessionRepo.FindBySessionID(ctx, "sess-ab")
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.SessionStatusAbandoned, found.Status)
	assert.Nil(suite.T(), found.Player1Won)

	// 已废弃的会话不能再结束
	err = suite.sessionRepo.MarkEnded(ctx, "sess-ab", true)
	assert.Error(suite.T(), err)
}

// TestGameSessionRepository_ListByEpoch 测试周期内分页查询
func (suite *GameSessionRepositoryTestSuite) TestGameSessionRepository_ListByEpoch() {
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		session := CreateTestSession("sess-list-"+string(rune('a'+i)), "GGAME1", 5, "GP1", "GP2", 100, 200)
		err := suite.sessionRepo.Create(ctx, session)
		assert.NoError(suite.T(), err)
	}

	other := CreateTestSession("sess-other", "GGAME1", 6, "GP1", "GP2", 100, 200)
	err := suite.sessionRepo.Create(ctx, other)
	assert.NoError(suite.T(), err)

	pagination := NewPagination(1, 10)
	sessions, err := suite.sessionRepo.ListByEpoch(ctx, 5, pagination)
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), sessions, 3)
	assert.Equal(suite.T(), int64(3), pagination.Total)
}

// TestWhitelistRepository_AddAndCheck 测试白名单增删查
func (suite *GameSessionRepositoryTestSuite) TestWhitelistRepository_AddAndCheck() {
	ctx := context.Background()

	entry := &models.GameWhitelist{GameID: "GGAMEWL", Enabled: true}
	err := suite.whitelistRepo.Add(ctx, entry)
	assert.NoError(suite.T(), err)

	ok, err := suite.whitelistRepo.IsWhitelisted(ctx, "GGAMEWL")
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), ok)

	// 未登记的游戏不在白名单
	ok, err = suite.whitelistRepo.IsWhitelisted(ctx, "GUNKNOWN")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	// 禁用后视为不在白名单
	err = suite.whitelistRepo.SetEnabled(ctx, "GGAMEWL", false)
	assert.NoError(suite.T(), err)

	ok, err = suite.whitelistRepo.IsWhitelisted(ctx, "GGAMEWL")
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), ok)

	// 删除
	err = suite.whitelistRepo.Remove(ctx, "GGAMEWL")
	assert.NoError(suite.T(), err)

	_, err = suite.whitelistRepo.FindByGameID(ctx, "GGAMEWL")
	assert.Error(suite.T(), err)
}

func TestGameSessionRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(GameSessionRepositoryTestSuite))
}
