package reward

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/event"
	"github.com/kalepail/blendizzard/internal/fixedpoint"
	"github.com/kalepail/blendizzard/internal/logger"
	"github.com/kalepail/blendizzard/internal/models"
	"github.com/kalepail/blendizzard/internal/repository"
	"github.com/kalepail/blendizzard/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TokenTransfer 奖励打款接口
// 领取成功后负责把奖励实际转给玩家，返回支付流水订单号。
type TokenTransfer interface {
	Transfer(ctx context.Context, tx *gorm.DB, toAddress string, amount int64, refType, refID string) (string, error)
}

// DBTokenTransfer 落库打款实现：写入支付流水表，由外部出纳任务对账执行
type DBTokenTransfer struct{}

// Transfer 记录打款流水
func (t *DBTokenTransfer) Transfer(ctx context.Context, tx *gorm.DB, toAddress string, amount int64, refType, refID string) (string, error) {
	orderNo := utils.GenerateOrderNo("RW")
	record := &models.TransferRecord{
		OrderNo:   orderNo,
		ToAddress: toAddress,
		Amount:    amount,
		RefType:   refType,
		RefID:     refID,
	}
	if err := repository.NewTransferRepository(tx).Create(ctx, record); err != nil {
		return "", errors.Wrap(err, errors.ErrDatabase)
	}
	return orderNo, nil
}

// Distributor 奖励分配器
// 周期定局后按贡献比例计算并发放奖励，每玩家每周期只能领取一次。
type Distributor struct {
	db       *gorm.DB
	transfer TokenTransfer
	emitter  event.Emitter
	log      *zap.Logger
}

// NewDistributor 创建奖励分配器
func NewDistributor(db *gorm.DB, transfer TokenTransfer, emitter event.Emitter) *Distributor {
	return &Distributor{
		db:       db,
		transfer: transfer,
		emitter:  emitter,
		log:      logger.GetModuleLogger("reward"),
	}
}

// ClaimEpochReward 领取指定周期的阵营奖励
//
// 份额 = 玩家贡献 ÷ 阵营总战绩，奖励 = 奖池 × 份额，两步均向下取整。
// 检查顺序固定：重复领取 → 周期定局 → 胜方已知 → 有参与记录 →
// 阵营已锁定 → 阵营为胜方 → 贡献非零 → 战绩非零 → 奖励非零。
func (d *Distributor) ClaimEpochReward(ctx context.Context, address string, epochID uint32) (*models.ClaimRecord, error) {
	var claim *models.ClaimRecord

	err := d.db.Transaction(func(tx *gorm.DB) error {
		claimRepo := repository.NewClaimRepository(tx)

		claimed, err := claimRepo.HasClaimed(ctx, address, epochID)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}
		if claimed {
			return errors.New(errors.ErrRewardAlreadyClaimed)
		}

		epoch, err := repository.NewEpochRepository(tx).LockForUpdate(ctx, epochID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.ErrEpochNotFinalized)
			}
			return errors.Wrap(err, errors.ErrDatabase)
		}
		if !epoch.IsFinalized || epoch.WinningFaction == nil {
			return errors.New(errors.ErrEpochNotFinalized)
		}
		winningFaction := *epoch.WinningFaction

		player, err := repository.NewEpochPlayerRepository(tx).Find(ctx, epochID, address)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.ErrNoRewardsAvailable)
			}
			return errors.Wrap(err, errors.ErrDatabase)
		}

		// 从未锁定阵营的参与记录视同无奖励可领
		if player.EpochFaction == nil {
			return errors.New(errors.ErrNoRewardsAvailable)
		}
		if *player.EpochFaction != winningFaction {
			return errors.New(errors.ErrNotWinningFaction)
		}

		if player.TotalFPContributed == 0 {
			return errors.New(errors.ErrNoRewardsAvailable)
		}

		standing, err := repository.NewFactionStandingRepository(tx).GetTotalFP(ctx, epochID, winningFaction)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}
		if standing == 0 {
			return errors.New(errors.ErrDivisionByZero)
		}

		amount, err := computeReward(epoch.RewardPool, standing, player.TotalFPContributed)
		if err != nil {
			return err
		}
		if amount == 0 {
			return errors.New(errors.ErrNoRewardsAvailable)
		}

		// 先落领取记录再打款，唯一索引兜底防并发重复领取
		claim = &models.ClaimRecord{
			Address:   address,
			EpochID:   epochID,
			Faction:   winningFaction,
			Amount:    amount,
			ClaimedAt: time.Now(),
		}
		if err := claimRepo.Create(ctx, claim); err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}

		refID := fmt.Sprintf("%s:%d", address, epochID)
		if _, err := d.transfer.Transfer(ctx, tx, address, amount, "reward_claim", refID); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.LogRewardEvent("rewards_claimed", address, epochID, claim.Amount)
	d.emitter.RewardsClaimed(address, epochID, claim.Faction, claim.Amount)

	return claim, nil
}

// GetClaimableAmount 查询可领取金额
// 与 ClaimEpochReward 的检查逐项对应，任何不满足的条件都返回 0 而非报错。
func (d *Distributor) GetClaimableAmount(ctx context.Context, address string, epochID uint32) (int64, error) {
	claimRepo := repository.NewClaimRepository(d.db)

	claimed, err := claimRepo.HasClaimed(ctx, address, epochID)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabase)
	}
	if claimed {
		return 0, nil
	}

	epoch, err := repository.NewEpochRepository(d.db).FindByEpochID(ctx, epochID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, errors.Wrap(err, errors.ErrDatabase)
	}
	if !epoch.IsFinalized || epoch.WinningFaction == nil {
		return 0, nil
	}
	winningFaction := *epoch.WinningFaction

	player, err := repository.NewEpochPlayerRepository(d.db).Find(ctx, epochID, address)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, errors.Wrap(err, errors.ErrDatabase)
	}

	if player.EpochFaction == nil {
		return 0, nil
	}
	if *player.EpochFaction != winningFaction {
		return 0, nil
	}
	if player.TotalFPContributed == 0 {
		return 0, nil
	}

	standing, err := repository.NewFactionStandingRepository(d.db).GetTotalFP(ctx, epochID, winningFaction)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabase)
	}
	if standing == 0 {
		return 0, nil
	}

	amount, err := computeReward(epoch.RewardPool, standing, player.TotalFPContributed)
	if err != nil {
		return 0, nil
	}
	return amount, nil
}

// ListClaims 分页查询周期内领取记录
func (d *Distributor) ListClaims(ctx context.Context, epochID uint32, pagination *repository.Pagination) ([]*models.ClaimRecord, error) {
	claims, err := repository.NewClaimRepository(d.db).ListByEpoch(ctx, epochID, pagination)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase)
	}
	return claims, nil
}

// GetEpochClaimedTotal 统计周期已发放总额
func (d *Distributor) GetEpochClaimedTotal(ctx context.Context, epochID uint32) (int64, error) {
	total, err := repository.NewClaimRepository(d.db).SumByEpoch(ctx, epochID)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabase)
	}
	return total, nil
}

// computeReward 按比例计算奖励
// 先算份额 floor(contribution / standing)，再算 floor(pool × share)。
// 取整点的位置决定结果，不能交换两步顺序。
func computeReward(pool, standing, contribution int64) (int64, error) {
	share, err := fixedpoint.DivFloor(contribution, standing)
	if err != nil {
		return 0, err
	}
	return fixedpoint.MulFloor(pool, share)
}
