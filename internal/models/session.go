package models

import (
	"time"
)

// 会话状态
const (
	SessionStatusPending   = "pending"   // 进行中（等待结果）
	SessionStatusEnded     = "ended"     // 已结束（结果已提交，终态）
	SessionStatusAbandoned = "abandoned" // 已废弃（管理员操作，终态）
)

// GameSession 对局会话表（每会话一条，归属创建时的周期）
type GameSession struct {
	BaseModel
	SessionID     string     `gorm:"uniqueIndex;size:64;not null" json:"session_id"`
	GameID        string     `gorm:"index;size:64;not null" json:"game_id"` // 发起对局的游戏合约地址
	EpochID       uint32     `gorm:"index;not null" json:"epoch_id"`        // 创建时周期，不可变
	Player1       string     `gorm:"size:64;not null" json:"player1"`
	Player2       string     `gorm:"size:64;not null" json:"player2"`
	Player1Wager  int64      `gorm:"not null" json:"player1_wager"`
	Player2Wager  int64      `gorm:"not null" json:"player2_wager"`
	Player1Won    *bool      `json:"player1_won"` // nil=未定；写入后会话不可变
	Status        string     `gorm:"size:20;default:'pending';index" json:"status"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
	LastTouchedAt time.Time  `gorm:"index" json:"last_touched_at"`
}

// IsPending 会话是否仍在等待结果
func (s *GameSession) IsPending() bool {
	return s.Status == SessionStatusPending && s.Player1Won == nil
}

// Winner 返回胜者与败者及各自注金（仅对已结束会话有意义）
func (s *GameSession) Winner() (winner, loser string, winnerWager, loserWager int64) {
	if s.Player1Won != nil && *s.Player1Won {
		return s.Player1, s.Player2, s.Player1Wager, s.Player2Wager
	}
	return s.Player2, s.Player1, s.Player2Wager, s.Player1Wager
}

// GameWhitelist 游戏白名单表
type GameWhitelist struct {
	BaseModel
	GameID  string `gorm:"uniqueIndex;size:64;not null" json:"game_id"`
	GameKey string `gorm:"size:128" json:"-"` // 游戏合约凭证密钥
	Enabled bool   `gorm:"default:true" json:"enabled"`
}
