package repository

import (
	"context"
	"time"

	"github.com/kalepail/blendizzard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EpochRepository 周期信息仓储接口
type EpochRepository interface {
	BaseRepository
	Create(ctx context.Context, epoch *models.EpochInfo) error
	FindByEpochID(ctx context.Context, epochID uint32) (*models.EpochInfo, error)
	LockForUpdate(ctx context.Context, epochID uint32) (*models.EpochInfo, error)
	AddRewardPool(ctx context.Context, epochID uint32, amount int64) error
	Finalize(ctx context.Context, epochID uint32, winningFaction int) error
	Touch(ctx context.Context, epochID uint32) error
	DeleteTouchedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// epochRepo 周期信息仓储实现
type epochRepo struct {
	*BaseRepo
}

// NewEpochRepository 创建周期信息仓储
func NewEpochRepository(db *gorm.DB) EpochRepository {
	return &epochRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建周期
func (r *epochRepo) Create(ctx context.Context, epoch *models.EpochInfo) error {
	return r.db.WithContext(ctx).Create(epoch).Error
}

// FindByEpochID 根据周期号查找
func (r *epochRepo) FindByEpochID(ctx context.Context, epochID uint32) (*models.EpochInfo, error) {
	var epoch models.EpochInfo
	err := r.db.WithContext(ctx).Where("epoch_id = ?", epochID).First(&epoch).Error
	if err != nil {
		return nil, err
	}
	return &epoch, nil
}

// LockForUpdate 锁定周期行（悲观锁）
func (r *epochRepo) LockForUpdate(ctx context.Context, epochID uint32) (*models.EpochInfo, error) {
	var epoch models.EpochInfo
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("epoch_id = ?", epochID).
		First(&epoch).Error
	if err != nil {
		return nil, err
	}
	return &epoch, nil
}

// AddRewardPool 注资奖池
func (r *epochRepo) AddRewardPool(ctx context.Context, epochID uint32, amount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.EpochInfo{}).
		Where("epoch_id = ?", epochID).
		Updates(map[string]interface{}{
			"reward_pool":     gorm.Expr("reward_pool + ?", amount),
			"last_touched_at": time.Now(),
		}).Error
}

// Finalize 结算周期（写入获胜阵营，单向）
func (r *epochRepo) Finalize(ctx context.Context, epochID uint32, winningFaction int) error {
	return r.db.WithContext(ctx).
		Model(&models.EpochInfo{}).
		Where("epoch_id = ? AND is_finalized = ?", epochID, false).
		Updates(map[string]interface{}{
			"winning_faction": winningFaction,
			"is_finalized":    true,
			"last_touched_at": time.Now(),
		}).Error
}

// Touch 刷新访问时间
func (r *epochRepo) Touch(ctx context.Context, epochID uint32) error {
	return r.db.WithContext(ctx).
		Model(&models.EpochInfo{}).
		Where("epoch_id = ?", epochID).
		Update("last_touched_at", time.Now()).Error
}

// DeleteTouchedBefore 清理长期未访问的周期
func (r *epochRepo) DeleteTouchedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("last_touched_at < ?", cutoff).
		Delete(&models.EpochInfo{})
	return result.RowsAffected, result.Error
}

// WithTx 使用事务
func (r *epochRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &epochRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// FactionStandingRepository 阵营战绩仓储接口
type FactionStandingRepository interface {
	BaseRepository
	Find(ctx context.Context, epochID uint32, faction int) (*models.FactionStanding, error)
	GetTotalFP(ctx context.Context, epochID uint32, faction int) (int64, error)
	AddFP(ctx context.Context, epochID uint32, faction int, amount int64) error
	ListByEpoch(ctx context.Context, epochID uint32) ([]*models.FactionStanding, error)
}

// factionStandingRepo 阵营战绩仓储实现
type factionStandingRepo struct {
	*BaseRepo
}

// NewFactionStandingRepository 创建阵营战绩仓储
func NewFactionStandingRepository(db *gorm.DB) FactionStandingRepository {
	return &factionStandingRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Find 查找阵营战绩
func (r *factionStandingRepo) Find(ctx context.Context, epochID uint32, faction int) (*models.FactionStanding, error) {
	var standing models.FactionStanding
	err := r.db.WithContext(ctx).
		Where("epoch_id = ? AND faction = ?", epochID, faction).
		First(&standing).Error
	if err != nil {
		return nil, err
	}
	return &standing, nil
}

// GetTotalFP 查询阵营累计战绩（缺失视为0）
func (r *factionStandingRepo) GetTotalFP(ctx context.Context, epochID uint32, faction int) (int64, error) {
	standing, err := r.Find(ctx, epochID, faction)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return 0, nil
		}
		return 0, err
	}
	return standing.TotalFP, nil
}

// AddFP 累加阵营战绩（不存在则先创建）
func (r *factionStandingRepo) AddFP(ctx context.Context, epochID uint32, faction int, amount int64) error {
	var standing models.FactionStanding
	err := r.db.WithContext(ctx).
		Where(models.FactionStanding{EpochID: epochID, Faction: faction}).
		FirstOrCreate(&standing).Error
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&models.FactionStanding{}).
		Where("epoch_id = ? AND faction = ?", epochID, faction).
		Update("total_fp", gorm.Expr("total_fp + ?", amount)).Error
}

// ListByEpoch 列出周期内所有阵营战绩
func (r *factionStandingRepo) ListByEpoch(ctx context.Context, epochID uint32) ([]*models.FactionStanding, error) {
	var standings []*models.FactionStanding
	err := r.db.WithContext(ctx).
		Where("epoch_id = ?", epochID).
		Order("faction ASC").
		Find(&standings).Error
	return standings, err
}

// WithTx 使用事务
func (r *factionStandingRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &factionStandingRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// EpochStateRepository 当前周期指针仓储接口
type EpochStateRepository interface {
	BaseRepository
	GetCurrent(ctx context.Context) (uint32, error)
	SetCurrent(ctx context.Context, epochID uint32) error
}

// epochStateRepo 当前周期指针仓储实现
type epochStateRepo struct {
	*BaseRepo
}

// NewEpochStateRepository 创建当前周期指针仓储
func NewEpochStateRepository(db *gorm.DB) EpochStateRepository {
	return &epochStateRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// GetCurrent 获取当前周期号（单例行缺失时初始化为0）
func (r *epochStateRepo) GetCurrent(ctx context.Context) (uint32, error) {
	var state models.EpochState
	err := r.db.WithContext(ctx).First(&state, 1).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			state = models.EpochState{ID: 1, CurrentEpoch: 0}
			if err := r.db.WithContext(ctx).Create(&state).Error; err != nil {
				return 0, err
			}
			return 0, nil
		}
		return 0, err
	}
	return state.CurrentEpoch, nil
}

// SetCurrent 更新当前周期号
func (r *epochStateRepo) SetCurrent(ctx context.Context, epochID uint32) error {
	return r.db.WithContext(ctx).
		Model(&models.EpochState{}).
		Where("id = ?", 1).
		Update("current_epoch", epochID).Error
}

// WithTx 使用事务
func (r *epochStateRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &epochStateRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
