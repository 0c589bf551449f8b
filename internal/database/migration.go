package database

import (
	"fmt"

	"github.com/kalepail/blendizzard/internal/logger"
	"github.com/kalepail/blendizzard/internal/models"
	"go.uber.org/zap"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 清理过期锁文件
	CleanupStaleLocks()

	// 获取迁移锁，避免多个进程同时迁移
	dbPath := getDBPath()
	if dbPath != "" {
		lockFile, err := acquireMigrationLock(dbPath)
		if err != nil {
			logger.Error("无法获取迁移锁", zap.Error(err))
			return fmt.Errorf("获取迁移锁失败: %w", err)
		}
		defer releaseMigrationLock(lockFile)
	}

	// 定义需要迁移的模型
	migrationModels := []interface{}{
		// 玩家相关
		&models.Player{},
		&models.EpochPlayer{},
		&models.VaultAccount{},

		// 周期相关
		&models.EpochInfo{},
		&models.FactionStanding{},
		&models.EpochState{},

		// 会话相关
		&models.GameSession{},
		&models.GameWhitelist{},

		// 奖励相关
		&models.ClaimRecord{},
		&models.TransferRecord{},

		// 系统相关
		&models.AdminUser{},
	}

	// 执行迁移
	logger.Info("开始数据库迁移...")

	// 设置 SQLite 专用配置，避免锁定问题
	if DB.Dialector.Name() == "sqlite" {
		DB.Exec("PRAGMA foreign_keys = OFF")
		defer DB.Exec("PRAGMA foreign_keys = ON")
	}

	for _, model := range migrationModels {
		if err := DB.AutoMigrate(model); err != nil {
			logger.Error("迁移失败",
				zap.String("model", fmt.Sprintf("%T", model)),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("迁移成功", zap.String("model", fmt.Sprintf("%T", model)))
	}

	// 创建索引
	if err := createIndexes(); err != nil {
		return err
	}

	// 初始化默认数据
	if err := initDefaultData(); err != nil {
		return err
	}

	logger.Info("数据库迁移完成")
	return nil
}

// createIndexes 创建数据库索引
func createIndexes() error {
	// 会话表索引
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_game_id ON game_sessions(game_id)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_game_sessions_game_id"), zap.Error(err))
	}

	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_status ON game_sessions(status)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_game_sessions_status"), zap.Error(err))
	}

	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_game_sessions_epoch_id ON game_sessions(epoch_id)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_game_sessions_epoch_id"), zap.Error(err))
	}

	// 周期玩家索引
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_epoch_players_address ON epoch_players(address)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_epoch_players_address"), zap.Error(err))
	}

	// 支付流水索引
	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_transfer_records_to_address ON transfer_records(to_address)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_transfer_records_to_address"), zap.Error(err))
	}

	if err := DB.Exec("CREATE INDEX IF NOT EXISTS idx_transfer_records_created_at ON transfer_records(created_at)").Error; err != nil {
		logger.Warn("创建索引失败", zap.String("index", "idx_transfer_records_created_at"), zap.Error(err))
	}

	logger.Info("数据库索引创建完成")
	return nil
}

// initDefaultData 初始化默认数据
func initDefaultData() error {
	// 初始化当前周期指针（单例行，id恒为1）
	var count int64
	DB.Model(&models.EpochState{}).Count(&count)
	if count == 0 {
		state := models.EpochState{ID: 1, CurrentEpoch: 0}
		if err := DB.Create(&state).Error; err != nil {
			logger.Error("创建周期指针失败", zap.Error(err))
			return err
		}
		logger.Info("周期指针已初始化", zap.Uint32("current_epoch", 0))
	}

	logger.Info("默认数据初始化完成")
	return nil
}

// DropAllTables 删除所有表（仅用于测试环境）
func DropAllTables() error {
	if DB == nil {
		return fmt.Errorf("数据库未初始化")
	}

	// 获取所有表名
	var tables []string
	if err := DB.Raw("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'").Scan(&tables).Error; err != nil {
		return err
	}

	// 删除所有表
	for _, table := range tables {
		if err := DB.Exec(fmt.Sprintf("DROP TABLE IF EXISTS %s", table)).Error; err != nil {
			logger.Error("删除表失败", zap.String("table", table), zap.Error(err))
			return err
		}
	}

	logger.Info("所有表已删除")
	return nil
}
