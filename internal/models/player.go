package models

import (
	"time"
)

// 阵营常量
// 阵营0表示未选择（中立），有效阵营从1开始，上限由配置决定
const (
	FactionNone = 0
)

// Player 玩家表（跨周期，按地址唯一，只增不删）
type Player struct {
	BaseModel
	Address             string `gorm:"uniqueIndex;size:64;not null" json:"address"`
	SelectedFaction     int    `gorm:"default:0" json:"selected_faction"`            // 0=未选择
	IntentKey           string `gorm:"size:128" json:"-"`                            // 意图签名密钥（注册时设置）
	TimeMultiplierStart int64  `gorm:"default:0" json:"time_multiplier_start"`       // 首次非零余额时间戳（秒），0=未设置
	LastEpochBalance    int64  `gorm:"default:0" json:"last_epoch_balance"`          // 上一周期余额快照（跨周期提现检测用）
}

// HasSelectedFaction 是否已选择阵营
func (p *Player) HasSelectedFaction() bool {
	return p.SelectedFaction != FactionNone
}

// EpochPlayer 玩家周期表（每玩家每周期一条，周期结束后过期）
type EpochPlayer struct {
	BaseModel
	EpochID            uint32    `gorm:"uniqueIndex:idx_epoch_player;not null" json:"epoch_id"`
	Address            string    `gorm:"uniqueIndex:idx_epoch_player;size:64;not null" json:"address"`
	EpochFaction       *int      `json:"epoch_faction"`                          // nil=未锁定；锁定后本周期不可变
	AvailableFP        int64     `gorm:"default:0" json:"available_fp"`          // 可用阵营点（下注时扣减）
	LockedFP           int64     `gorm:"default:0" json:"locked_fp"`             // 进行中对局锁定的阵营点
	TotalFPContributed int64     `gorm:"default:0" json:"total_fp_contributed"`  // 获胜对局累计贡献（奖励计算唯一输入）
	LastTouchedAt      time.Time `gorm:"index" json:"last_touched_at"`
}

// FactionLocked 本周期阵营是否已锁定
func (ep *EpochPlayer) FactionLocked() bool {
	return ep.EpochFaction != nil
}

// VaultAccount 金库账户表（余额预言机的数据源）
type VaultAccount struct {
	BaseModel
	Address string `gorm:"uniqueIndex;size:64;not null" json:"address"`
	Balance int64  `gorm:"default:0" json:"balance"`
}
