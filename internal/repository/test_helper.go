package repository

import (
	"time"

	"github.com/kalepail/blendizzard/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SetupTestDB 为测试套件设置测试数据库
func SetupTestDB() *gorm.DB {
	// 使用内存数据库进行测试（更快，不需要文件系统，在所有环境中都能工作）
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(err)
	}

	// 自动迁移所有模型
	err = db.AutoMigrate(
		// 玩家系统
		&models.Player{},
		&models.EpochPlayer{},
		&models.VaultAccount{},

		// 周期系统
		&models.EpochInfo{},
		&models.FactionStanding{},
		&models.EpochState{},

		// 会话系统
		&models.GameSession{},
		&models.GameWhitelist{},

		// 奖励系统
		&models.ClaimRecord{},
		&models.TransferRecord{},

		// 系统管理
		&models.AdminUser{},
	)
	if err != nil {
		panic(err)
	}

	return db
}

// CleanupTestDB 清理测试数据库
func CleanupTestDB(db *gorm.DB) {
	// 关闭数据库连接
	sqlDB, _ := db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// CreateTestEpoch 创建测试周期
func CreateTestEpoch(epochID uint32, rewardPool int64) *models.EpochInfo {
	now := time.Now()
	return &models.EpochInfo{
		EpochID:       epochID,
		StartTime:     now,
		EndTime:       now.Add(7 * 24 * time.Hour),
		RewardPool:    rewardPool,
		LastTouchedAt: now,
	}
}

// CreateTestEpochPlayer 创建测试玩家周期状态
func CreateTestEpochPlayer(epochID uint32, address string, faction int, availableFP int64) *models.EpochPlayer {
	return &models.EpochPlayer{
		EpochID:       epochID,
		Address:       address,
		EpochFaction:  &faction,
		AvailableFP:   availableFP,
		LastTouchedAt: time.Now(),
	}
}

// CreateTestSession 创建测试会话
func CreateTestSession(sessionID, gameID string, epochID uint32, p1, p2 string, w1, w2 int64) *models.GameSession {
	return &models.GameSession{
		SessionID:     sessionID,
		GameID:        gameID,
		EpochID:       epochID,
		Player1:       p1,
		Player2:       p2,
		Player1Wager:  w1,
		Player2Wager:  w2,
		Status:        models.SessionStatusPending,
		LastTouchedAt: time.Now(),
	}
}
