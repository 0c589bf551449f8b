package models

import (
	"time"
)

// ClaimRecord 奖励领取记录表（每用户每周期至多一条，只写不清）
type ClaimRecord struct {
	BaseModel
	Address   string    `gorm:"uniqueIndex:idx_claim;size:64;not null" json:"address"`
	EpochID   uint32    `gorm:"uniqueIndex:idx_claim;not null" json:"epoch_id"`
	Faction   int       `json:"faction"`
	Amount    int64     `json:"amount"`
	ClaimedAt time.Time `json:"claimed_at"`
}

// TransferRecord 支付流水表（奖励打款记录）
type TransferRecord struct {
	BaseModel
	OrderNo   string  `gorm:"uniqueIndex;size:64;not null" json:"order_no"`
	ToAddress string  `gorm:"index;size:64;not null" json:"to_address"`
	Amount    int64   `gorm:"not null" json:"amount"`
	RefType   string  `gorm:"size:50" json:"ref_type"` // reward_claim 等
	RefID     string  `gorm:"size:100;index" json:"ref_id"`
	Metadata  JSONMap `gorm:"type:json" json:"metadata"`
}

// AdminUser 管理员表
type AdminUser struct {
	BaseModel
	Username    string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password    string     `gorm:"size:255;not null" json:"-"` // argon2id哈希
	Role        string     `gorm:"size:20;default:'admin'" json:"role"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}
