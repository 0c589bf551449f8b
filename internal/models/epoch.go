package models

import (
	"time"
)

// EpochInfo 周期信息表（每周期一条）
type EpochInfo struct {
	BaseModel
	EpochID        uint32    `gorm:"uniqueIndex;not null" json:"epoch_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	RewardPool     int64     `gorm:"default:0" json:"reward_pool"`    // 外部注资的奖池
	WinningFaction *int      `json:"winning_faction"`                 // nil=未定；结算时写入
	IsFinalized    bool      `gorm:"default:false" json:"is_finalized"` // 单向 false→true
	LastTouchedAt  time.Time `gorm:"index" json:"last_touched_at"`
}

// FactionStanding 阵营战绩表（每周期每阵营一条，缺失视为0）
type FactionStanding struct {
	BaseModel
	EpochID uint32 `gorm:"uniqueIndex:idx_epoch_faction;not null" json:"epoch_id"`
	Faction int    `gorm:"uniqueIndex:idx_epoch_faction;not null" json:"faction"`
	TotalFP int64  `gorm:"default:0" json:"total_fp"` // 该阵营累计获胜FP
}

// EpochState 当前周期指针（单例，id恒为1）
type EpochState struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	CurrentEpoch uint32    `gorm:"default:0" json:"current_epoch"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName 指定表名
func (EpochState) TableName() string {
	return "epoch_states"
}
