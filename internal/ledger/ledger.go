package ledger

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/fixedpoint"
	"github.com/kalepail/blendizzard/internal/logger"
	"github.com/kalepail/blendizzard/internal/models"
	"github.com/kalepail/blendizzard/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FPLedger 阵营点账本接口
// 负责玩家周期预算的初始化与下注期间的锁定/释放/消耗。
type FPLedger interface {
	// InitializeEpochFP 确保玩家在指定周期有预算记录（已存在则直接返回）。
	// 触发时间乘数重置时返回非空的ResetEvent，由调用方在事务提交后发布。
	InitializeEpochFP(ctx context.Context, tx *gorm.DB, epochID uint32, address string) (*models.EpochPlayer, *ResetEvent, error)
	// LockEpochFaction 锁定玩家本周期阵营（幂等，锁定后不可变）
	LockEpochFaction(ctx context.Context, tx *gorm.DB, epochID uint32, address string, faction int) error
	// LockFP 将可用阵营点转入锁定
	LockFP(ctx context.Context, tx *gorm.DB, epochID uint32, address string, amount int64) error
	// UnlockFP 将锁定阵营点退回可用
	UnlockFP(ctx context.Context, tx *gorm.DB, epochID uint32, address string, amount int64) error
	// ConsumeFP 消耗锁定阵营点（结算时点数离开玩家）
	ConsumeFP(ctx context.Context, tx *gorm.DB, epochID uint32, address string, amount int64) error
	// AvailableFP 查询玩家当前可用阵营点
	AvailableFP(ctx context.Context, epochID uint32, address string) (int64, error)
}

// Params 预算计算参数
type Params struct {
	// BalanceHalfLife 金额乘数半饱和余额（7位定点）。余额等于该值时金额乘数为1.5。
	BalanceHalfLife int64
	// TimeHalfLife 时间乘数半饱和时长。持有时长等于该值时时间乘数为1.5。
	TimeHalfLife time.Duration
}

// DefaultParams 默认预算参数
func DefaultParams() Params {
	return Params{
		BalanceHalfLife: 1000 * fixedpoint.Scalar7,
		TimeHalfLife:    30 * 24 * time.Hour,
	}
}

// ResetEvent 时间乘数重置通知
// 在事务内产生但不对外发布，调用方提交事务后再发事件，回滚时事件随之丢弃。
type ResetEvent struct {
	Address    string
	OldBalance int64
	NewBalance int64
}

// GormLedger 基于GORM的阵营点账本实现
type GormLedger struct {
	db         *gorm.DB
	oracle     VaultOracle
	params     Params
	log        *zap.Logger
	timeSource func() time.Time
}

// NewGormLedger 创建阵营点账本
func NewGormLedger(db *gorm.DB, oracle VaultOracle, params Params) *GormLedger {
	return &GormLedger{
		db:         db,
		oracle:     oracle,
		params:     params,
		log:        logger.GetModuleLogger("ledger"),
		timeSource: time.Now,
	}
}

// SetTimeSource 替换时间源（测试用）
func (l *GormLedger) SetTimeSource(fn func() time.Time) {
	l.timeSource = fn
}

// InitializeEpochFP 确保玩家在指定周期有预算记录
// 首次进入周期时按金库余额与持有时长计算本周期可用阵营点；
// 预言机裁定跨周期大额提现时重置时间乘数。
func (l *GormLedger) InitializeEpochFP(ctx context.Context, tx *gorm.DB, epochID uint32, address string) (*models.EpochPlayer, *ResetEvent, error) {
	epRepo := repository.NewEpochPlayerRepository(tx)
	playerRepo := repository.NewPlayerRepository(tx)

	// 已有记录直接返回
	ep, err := epRepo.Find(ctx, epochID, address)
	if err == nil {
		return ep, nil, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	player, err := playerRepo.GetOrCreate(ctx, address)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	balance, err := l.oracle.GetVaultBalance(ctx, address)
	if err != nil {
		return nil, nil, err
	}

	now := l.timeSource()

	// 首次持有非零余额时记录时间乘数起点
	if player.TimeMultiplierStart == 0 && balance > 0 {
		if err := playerRepo.UpdateTimeMultiplierStart(ctx, address, now.Unix()); err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.ErrDatabase)
		}
		player.TimeMultiplierStart = now.Unix()
	}

	// 跨周期提现超过阈值时重置时间乘数起点
	var reset *ResetEvent
	shouldReset, err := l.oracle.CheckCrossEpochWithdrawalReset(ctx, address, player.LastEpochBalance, balance)
	if err != nil {
		return nil, nil, err
	}
	if shouldReset {
		l.log.Info("时间乘数已重置",
			zap.String("address", address),
			zap.Int64("old_balance", player.LastEpochBalance),
			zap.Int64("new_balance", balance),
		)
		if err := playerRepo.UpdateTimeMultiplierStart(ctx, address, now.Unix()); err != nil {
			return nil, nil, apperrors.Wrap(err, apperrors.ErrDatabase)
		}
		player.TimeMultiplierStart = now.Unix()
		reset = &ResetEvent{
			Address:    address,
			OldBalance: player.LastEpochBalance,
			NewBalance: balance,
		}
	}

	available, err := l.computeBudget(balance, player.TimeMultiplierStart, now)
	if err != nil {
		return nil, nil, err
	}

	// 刷新余额快照供下一周期提现检测
	if err := playerRepo.UpdateLastEpochBalance(ctx, address, balance); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	ep = &models.EpochPlayer{
		EpochID:       epochID,
		Address:       address,
		AvailableFP:   available,
		LastTouchedAt: now,
	}
	if err := epRepo.Create(ctx, ep); err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	l.log.Debug("周期预算已初始化",
		zap.Uint32("epoch_id", epochID),
		zap.String("address", address),
		zap.Int64("balance", balance),
		zap.Int64("available_fp", available),
	)

	return ep, reset, nil
}

// computeBudget 计算周期预算：balance × 金额乘数 × 时间乘数
// 两个乘数均为渐近式 1 + x/(x+halfLife)，上界2，逐步向下取整。
func (l *GormLedger) computeBudget(balance int64, multiplierStart int64, now time.Time) (int64, error) {
	if balance <= 0 {
		return 0, nil
	}

	// 金额乘数: 1 + balance/(balance + BalanceHalfLife)
	denom, err := fixedpoint.CheckedAdd(balance, l.params.BalanceHalfLife)
	if err != nil {
		return 0, err
	}
	amountFrac, err := fixedpoint.DivFloor(balance, denom)
	if err != nil {
		return 0, err
	}
	amountMult, err := fixedpoint.CheckedAdd(fixedpoint.Scalar7, amountFrac)
	if err != nil {
		return 0, err
	}

	// 时间乘数: 1 + held/(held + TimeHalfLife)
	var held int64
	if multiplierStart > 0 && now.Unix() > multiplierStart {
		held = now.Unix() - multiplierStart
	}
	halfLifeSecs := int64(l.params.TimeHalfLife / time.Second)
	timeMult := fixedpoint.Scalar7
	if held > 0 && halfLifeSecs > 0 {
		timeFrac, err := fixedpoint.DivFloor(held, held+halfLifeSecs)
		if err != nil {
			return 0, err
		}
		timeMult, err = fixedpoint.CheckedAdd(fixedpoint.Scalar7, timeFrac)
		if err != nil {
			return 0, err
		}
	}

	budget, err := fixedpoint.MulFloor(balance, amountMult)
	if err != nil {
		return 0, err
	}
	return fixedpoint.MulFloor(budget, timeMult)
}

// LockEpochFaction 锁定玩家本周期阵营
// 已锁定时：同阵营为幂等成功，不同阵营报错。
func (l *GormLedger) LockEpochFaction(ctx context.Context, tx *gorm.DB, epochID uint32, address string, faction int) error {
	epRepo := repository.NewEpochPlayerRepository(tx)

	ep, err := epRepo.Find(ctx, epochID, address)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	if ep.FactionLocked() {
		if *ep.EpochFaction != faction {
			return apperrors.Newf(apperrors.ErrFactionAlreadyLocked,
				"本周期已锁定阵营%d", *ep.EpochFaction)
		}
		return nil
	}

	if err := epRepo.LockFaction(ctx, epochID, address, faction); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return nil
}

// LockFP 将可用阵营点转入锁定
func (l *GormLedger) LockFP(ctx context.Context, tx *gorm.DB, epochID uint32, address string, amount int64) error {
	epRepo := repository.NewEpochPlayerRepository(tx)
	if err := epRepo.MoveToLocked(ctx, epochID, address, amount); err != nil {
		return apperrors.Newf(apperrors.ErrInsufficientFactionPoints,
			"锁定%d失败: %v", amount, err)
	}
	return nil
}

// UnlockFP 将锁定阵营点退回可用
func (l *GormLedger) UnlockFP(ctx context.Context, tx *gorm.DB, epochID uint32, address string, amount int64) error {
	epRepo := repository.NewEpochPlayerRepository(tx)
	if err := epRepo.ReleaseLocked(ctx, epochID, address, amount); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return nil
}

// ConsumeFP 消耗锁定阵营点
func (l *GormLedger) ConsumeFP(ctx context.Context, tx *gorm.DB, epochID uint32, address string, amount int64) error {
	epRepo := repository.NewEpochPlayerRepository(tx)
	if err := epRepo.ConsumeLocked(ctx, epochID, address, amount); err != nil {
		return apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return nil
}

// AvailableFP 查询玩家当前可用阵营点（无记录视为0）
func (l *GormLedger) AvailableFP(ctx context.Context, epochID uint32, address string) (int64, error) {
	epRepo := repository.NewEpochPlayerRepository(l.db)
	ep, err := epRepo.Find(ctx, epochID, address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return ep.AvailableFP, nil
}
