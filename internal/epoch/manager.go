package epoch

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/kalepail/blendizzard/internal/config"
	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/event"
	"github.com/kalepail/blendizzard/internal/fixedpoint"
	"github.com/kalepail/blendizzard/internal/logger"
	"github.com/kalepail/blendizzard/internal/models"
	"github.com/kalepail/blendizzard/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager 周期管理器
// 维护全局周期指针、周期推进与结算，以及过期数据的后台清理。
type Manager struct {
	db           *gorm.DB
	emitter      event.Emitter
	cfg          *config.EpochConfig
	factionCount int
	log          *zap.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewManager 创建周期管理器
func NewManager(db *gorm.DB, emitter event.Emitter, cfg *config.EpochConfig, factionCount int) *Manager {
	return &Manager{
		db:           db,
		emitter:      emitter,
		cfg:          cfg,
		factionCount: factionCount,
		log:          logger.GetModuleLogger("epoch"),
		stopCh:       make(chan struct{}),
	}
}

// InitGenesis 确保当前周期的信息行存在（首次启动时创建创世周期）
func (m *Manager) InitGenesis(ctx context.Context) error {
	return m.db.Transaction(func(tx *gorm.DB) error {
		current, err := repository.NewEpochStateRepository(tx).GetCurrent(ctx)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}

		epochRepo := repository.NewEpochRepository(tx)
		_, err = epochRepo.FindByEpochID(ctx, current)
		if err == nil {
			return nil
		}
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return errors.Wrap(err, errors.ErrDatabase)
		}

		now := time.Now()
		epoch := &models.EpochInfo{
			EpochID:       current,
			StartTime:     now,
			EndTime:       now.Add(m.cfg.Duration),
			LastTouchedAt: now,
		}
		if err := epochRepo.Create(ctx, epoch); err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}

		m.log.Info("创世周期已创建", zap.Uint32("epoch_id", current))
		return nil
	})
}

// CurrentEpoch 获取当前周期号
func (m *Manager) CurrentEpoch(ctx context.Context) (uint32, error) {
	current, err := repository.NewEpochStateRepository(m.db).GetCurrent(ctx)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrDatabase)
	}
	return current, nil
}

// GetEpochInfo 查询周期信息
func (m *Manager) GetEpochInfo(ctx context.Context, epochID uint32) (*models.EpochInfo, error) {
	epoch, err := repository.NewEpochRepository(m.db).FindByEpochID(ctx, epochID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrEpochNotFound)
		}
		return nil, errors.Wrap(err, errors.ErrDatabase)
	}
	return epoch, nil
}

// GetStandings 查询周期阵营战绩，缺失的阵营补零行
func (m *Manager) GetStandings(ctx context.Context, epochID uint32) ([]*models.FactionStanding, error) {
	rows, err := repository.NewFactionStandingRepository(m.db).ListByEpoch(ctx, epochID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase)
	}

	byFaction := make(map[int]*models.FactionStanding, len(rows))
	for _, row := range rows {
		byFaction[row.Faction] = row
	}

	standings := make([]*models.FactionStanding, 0, m.factionCount)
	for faction := 1; faction <= m.factionCount; faction++ {
		if row, ok := byFaction[faction]; ok {
			standings = append(standings, row)
			continue
		}
		standings = append(standings, &models.FactionStanding{
			EpochID: epochID,
			Faction: faction,
		})
	}
	return standings, nil
}

// FundRewardPool 为周期奖池注资
func (m *Manager) FundRewardPool(ctx context.Context, epochID uint32, amount int64) error {
	if amount <= 0 {
		return errors.New(errors.ErrInvalidAmount)
	}

	err := m.db.Transaction(func(tx *gorm.DB) error {
		epochRepo := repository.NewEpochRepository(tx)

		epoch, err := epochRepo.LockForUpdate(ctx, epochID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.ErrEpochNotFound)
			}
			return errors.Wrap(err, errors.ErrDatabase)
		}
		if epoch.IsFinalized {
			return errors.New(errors.ErrInvalidParam, "周期已定局，奖池不可再注资")
		}

		if _, err := fixedpoint.CheckedAdd(epoch.RewardPool, amount); err != nil {
			return err
		}

		if err := epochRepo.AddRewardPool(ctx, epochID, amount); err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.LogEpochEvent("reward_pool_funded", epochID, map[string]interface{}{
		"amount": amount,
	})
	return nil
}

// Advance 推进到下一周期
// 新周期的信息行随指针一并创建；旧周期留待 Finalize 结算。
func (m *Manager) Advance(ctx context.Context) (uint32, error) {
	var next uint32

	err := m.db.Transaction(func(tx *gorm.DB) error {
		stateRepo := repository.NewEpochStateRepository(tx)

		current, err := stateRepo.GetCurrent(ctx)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}
		next = current + 1

		now := time.Now()
		epoch := &models.EpochInfo{
			EpochID:       next,
			StartTime:     now,
			EndTime:       now.Add(m.cfg.Duration),
			LastTouchedAt: now,
		}
		if err := repository.NewEpochRepository(tx).Create(ctx, epoch); err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}

		if err := stateRepo.SetCurrent(ctx, next); err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.LogEpochEvent("epoch_advanced", next, nil)
	m.emitter.EpochAdvanced(next)

	return next, nil
}

// Finalize 结算指定周期：写入获胜阵营（战绩最高者，并列取编号最小者）
// 只能结算已经被推进指针越过的周期，且每个周期只能结算一次。
func (m *Manager) Finalize(ctx context.Context, epochID uint32) (int, error) {
	var (
		winner int
		pool   int64
	)

	err := m.db.Transaction(func(tx *gorm.DB) error {
		current, err := repository.NewEpochStateRepository(tx).GetCurrent(ctx)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}
		if epochID >= current {
			return errors.New(errors.ErrInvalidParam, "周期尚未结束，不能结算")
		}

		epochRepo := repository.NewEpochRepository(tx)
		epoch, err := epochRepo.LockForUpdate(ctx, epochID)
		if err != nil {
			if stderrors.Is(err, gorm.ErrRecordNotFound) {
				return errors.New(errors.ErrEpochNotFound)
			}
			return errors.Wrap(err, errors.ErrDatabase)
		}
		if epoch.IsFinalized {
			return errors.New(errors.ErrInvalidParam, "周期已定局")
		}
		pool = epoch.RewardPool

		standings, err := repository.NewFactionStandingRepository(tx).ListByEpoch(ctx, epochID)
		if err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}

		winner = pickWinner(standings)

		if err := epochRepo.Finalize(ctx, epochID, winner); err != nil {
			return errors.Wrap(err, errors.ErrDatabase)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	logger.LogEpochEvent("epoch_finalized", epochID, map[string]interface{}{
		"winning_faction": winner,
		"reward_pool":     pool,
	})
	m.emitter.EpochFinalized(epochID, winner, pool)

	return winner, nil
}

// pickWinner 选出战绩最高的阵营，并列时取编号最小者；无战绩时1号阵营胜出
func pickWinner(standings []*models.FactionStanding) int {
	winner := 1
	var best int64 = -1
	for _, s := range standings {
		if s.TotalFP > best || (s.TotalFP == best && s.Faction < winner) {
			winner = s.Faction
			best = s.TotalFP
		}
	}
	if best <= 0 {
		return 1
	}
	return winner
}

// Run 启动后台任务：到期自动推进与过期数据清理
func (m *Manager) Run(ctx context.Context) {
	if m.cfg.AutoAdvance {
		m.wg.Add(1)
		go m.runAutoAdvance(ctx)
	}
	if m.cfg.GCEnabled {
		m.wg.Add(1)
		go m.runGC(ctx)
	}
}

// Stop 停止后台任务并等待退出
func (m *Manager) Stop() {
	m.stopOnce.Do(func() {
		close(m.stopCh)
	})
	m.wg.Wait()
}

// runAutoAdvance 周期到期检查：当前周期结束后推进并结算旧周期
func (m *Manager) runAutoAdvance(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkAdvance(ctx)
		}
	}
}

func (m *Manager) checkAdvance(ctx context.Context) {
	current, err := m.CurrentEpoch(ctx)
	if err != nil {
		m.log.Error("读取当前周期失败", zap.Error(err))
		return
	}

	epoch, err := m.GetEpochInfo(ctx, current)
	if err != nil {
		m.log.Error("读取周期信息失败", zap.Uint32("epoch_id", current), zap.Error(err))
		return
	}

	if time.Now().Before(epoch.EndTime) {
		return
	}

	next, err := m.Advance(ctx)
	if err != nil {
		m.log.Error("周期推进失败", zap.Uint32("epoch_id", current), zap.Error(err))
		return
	}
	m.log.Info("周期已自动推进", zap.Uint32("from", current), zap.Uint32("to", next))

	if _, err := m.Finalize(ctx, current); err != nil {
		m.log.Error("周期结算失败", zap.Uint32("epoch_id", current), zap.Error(err))
	}
}

// runGC 定期清理长期未访问的周期数据
func (m *Manager) runGC(ctx context.Context) {
	defer m.wg.Done()

	ticker := time.NewTicker(m.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.collectGarbage(ctx)
		}
	}
}

func (m *Manager) collectGarbage(ctx context.Context) {
	cutoff := time.Now().Add(-m.cfg.GCRetention)

	players, err := repository.NewEpochPlayerRepository(m.db).DeleteTouchedBefore(ctx, cutoff)
	if err != nil {
		m.log.Error("清理周期玩家数据失败", zap.Error(err))
	}

	sessions, err := repository.NewGameSessionRepository(m.db).DeleteTouchedBefore(ctx, cutoff)
	if err != nil {
		m.log.Error("清理会话数据失败", zap.Error(err))
	}

	epochs, err := repository.NewEpochRepository(m.db).DeleteTouchedBefore(ctx, cutoff)
	if err != nil {
		m.log.Error("清理周期数据失败", zap.Error(err))
	}

	if players+sessions+epochs > 0 {
		m.log.Info("过期数据清理完成",
			zap.Int64("epoch_players", players),
			zap.Int64("sessions", sessions),
			zap.Int64("epochs", epochs))
	}
}
