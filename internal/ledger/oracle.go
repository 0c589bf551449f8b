package ledger

import (
	"context"

	apperrors "github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/fixedpoint"
	"github.com/kalepail/blendizzard/internal/repository"
	"gorm.io/gorm"
)

// VaultOracle 金库预言机
// 提供周期预算计算所需的玩家存款余额，并裁定跨周期提现是否触发时间乘数重置。
type VaultOracle interface {
	GetVaultBalance(ctx context.Context, address string) (int64, error)
	// CheckCrossEpochWithdrawalReset 判断相对上一周期快照的余额下降是否超过重置阈值
	CheckCrossEpochWithdrawalReset(ctx context.Context, address string, lastEpochBalance, balance int64) (bool, error)
}

// withdrawalExceedsReset 余额较快照下降超过 resetPercent% 时返回 true
func withdrawalExceedsReset(lastEpochBalance, balance int64, resetPercent int) (bool, error) {
	if lastEpochBalance <= 0 {
		return false, nil
	}
	threshold, err := fixedpoint.RatioFloor(lastEpochBalance, int64(resetPercent), 100)
	if err != nil {
		return false, err
	}
	return balance < lastEpochBalance-threshold, nil
}

// DBVaultOracle 基于本地金库账户表的预言机
type DBVaultOracle struct {
	repo         repository.VaultRepository
	resetPercent int
}

// NewDBVaultOracle 创建金库预言机
func NewDBVaultOracle(db *gorm.DB, resetPercent int) *DBVaultOracle {
	return &DBVaultOracle{
		repo:         repository.NewVaultRepository(db),
		resetPercent: resetPercent,
	}
}

// GetVaultBalance 查询玩家金库余额（无账户视为0）
func (o *DBVaultOracle) GetVaultBalance(ctx context.Context, address string) (int64, error) {
	balance, err := o.repo.GetBalance(ctx, address)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return balance, nil
}

// CheckCrossEpochWithdrawalReset 判断跨周期提现是否触发重置
func (o *DBVaultOracle) CheckCrossEpochWithdrawalReset(ctx context.Context, address string, lastEpochBalance, balance int64) (bool, error) {
	return withdrawalExceedsReset(lastEpochBalance, balance, o.resetPercent)
}

// StaticVaultOracle 固定余额表预言机（测试用）
type StaticVaultOracle struct {
	Balances     map[string]int64
	ResetPercent int
}

// GetVaultBalance 查询固定余额
func (o *StaticVaultOracle) GetVaultBalance(ctx context.Context, address string) (int64, error) {
	return o.Balances[address], nil
}

// CheckCrossEpochWithdrawalReset 按固定阈值判断重置
func (o *StaticVaultOracle) CheckCrossEpochWithdrawalReset(ctx context.Context, address string, lastEpochBalance, balance int64) (bool, error) {
	return withdrawalExceedsReset(lastEpochBalance, balance, o.ResetPercent)
}
