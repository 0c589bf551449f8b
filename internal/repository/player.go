package repository

import (
	"context"
	"errors"
	"time"

	"github.com/kalepail/blendizzard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlayerRepository 玩家仓储接口
type PlayerRepository interface {
	BaseRepository
	Create(ctx context.Context, player *models.Player) error
	FindByAddress(ctx context.Context, address string) (*models.Player, error)
	GetOrCreate(ctx context.Context, address string) (*models.Player, error)
	UpdateSelectedFaction(ctx context.Context, address string, faction int) error
	UpdateIntentKey(ctx context.Context, address string, key string) error
	UpdateTimeMultiplierStart(ctx context.Context, address string, startAt int64) error
	UpdateLastEpochBalance(ctx context.Context, address string, balance int64) error
}

// playerRepo 玩家仓储实现
type playerRepo struct {
	*BaseRepo
}

// NewPlayerRepository 创建玩家仓储
func NewPlayerRepository(db *gorm.DB) PlayerRepository {
	return &playerRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建玩家
func (r *playerRepo) Create(ctx context.Context, player *models.Player) error {
	return r.db.WithContext(ctx).Create(player).Error
}

// FindByAddress 根据地址查找玩家
func (r *playerRepo) FindByAddress(ctx context.Context, address string) (*models.Player, error) {
	var player models.Player
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&player).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &player, nil
}

// GetOrCreate 查找玩家，不存在则创建
func (r *playerRepo) GetOrCreate(ctx context.Context, address string) (*models.Player, error) {
	var player models.Player
	err := r.db.WithContext(ctx).
		Where(models.Player{Address: address}).
		FirstOrCreate(&player).Error
	if err != nil {
		return nil, err
	}
	return &player, nil
}

// UpdateSelectedFaction 更新全局阵营选择
func (r *playerRepo) UpdateSelectedFaction(ctx context.Context, address string, faction int) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("address = ?", address).
		Update("selected_faction", faction).Error
}

// UpdateIntentKey 更新意图签名密钥
func (r *playerRepo) UpdateIntentKey(ctx context.Context, address string, key string) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("address = ?", address).
		Update("intent_key", key).Error
}

// UpdateTimeMultiplierStart 更新时间乘数起点
func (r *playerRepo) UpdateTimeMultiplierStart(ctx context.Context, address string, startAt int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("address = ?", address).
		Update("time_multiplier_start", startAt).Error
}

// UpdateLastEpochBalance 更新上一周期余额快照
func (r *playerRepo) UpdateLastEpochBalance(ctx context.Context, address string, balance int64) error {
	return r.db.WithContext(ctx).
		Model(&models.Player{}).
		Where("address = ?", address).
		Update("last_epoch_balance", balance).Error
}

// WithTx 使用事务
func (r *playerRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &playerRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// EpochPlayerRepository 玩家周期状态仓储接口
type EpochPlayerRepository interface {
	BaseRepository
	Create(ctx context.Context, ep *models.EpochPlayer) error
	Find(ctx context.Context, epochID uint32, address string) (*models.EpochPlayer, error)
	LockForUpdate(ctx context.Context, epochID uint32, address string) (*models.EpochPlayer, error)
	LockFaction(ctx context.Context, epochID uint32, address string, faction int) error
	MoveToLocked(ctx context.Context, epochID uint32, address string, amount int64) error
	ReleaseLocked(ctx context.Context, epochID uint32, address string, amount int64) error
	ConsumeLocked(ctx context.Context, epochID uint32, address string, amount int64) error
	AddContribution(ctx context.Context, epochID uint32, address string, amount int64) error
	Touch(ctx context.Context, epochID uint32, address string) error
	DeleteTouchedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// epochPlayerRepo 玩家周期状态仓储实现
type epochPlayerRepo struct {
	*BaseRepo
}

// NewEpochPlayerRepository 创建玩家周期状态仓储
func NewEpochPlayerRepository(db *gorm.DB) EpochPlayerRepository {
	return &epochPlayerRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建玩家周期状态
func (r *epochPlayerRepo) Create(ctx context.Context, ep *models.EpochPlayer) error {
	return r.db.WithContext(ctx).Create(ep).Error
}

// Find 查找玩家周期状态
func (r *epochPlayerRepo) Find(ctx context.Context, epochID uint32, address string) (*models.EpochPlayer, error) {
	var ep models.EpochPlayer
	err := r.db.WithContext(ctx).
		Where("epoch_id = ? AND address = ?", epochID, address).
		First(&ep).Error
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// LockForUpdate 锁定玩家周期状态（悲观锁）
func (r *epochPlayerRepo) LockForUpdate(ctx context.Context, epochID uint32, address string) (*models.EpochPlayer, error) {
	var ep models.EpochPlayer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("epoch_id = ? AND address = ?", epochID, address).
		First(&ep).Error
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

// LockFaction 锁定本周期阵营（仅当未锁定时生效）
func (r *epochPlayerRepo) LockFaction(ctx context.Context, epochID uint32, address string, faction int) error {
	return r.db.WithContext(ctx).
		Model(&models.EpochPlayer{}).
		Where("epoch_id = ? AND address = ? AND epoch_faction IS NULL", epochID, address).
		Update("epoch_faction", faction).Error
}

// MoveToLocked 将可用阵营点转入锁定（下注）
func (r *epochPlayerRepo) MoveToLocked(ctx context.Context, epochID uint32, address string, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.EpochPlayer{}).
		Where("epoch_id = ? AND address = ? AND available_fp >= ?", epochID, address, amount).
		Updates(map[string]interface{}{
			"available_fp":    gorm.Expr("available_fp - ?", amount),
			"locked_fp":       gorm.Expr("locked_fp + ?", amount),
			"last_touched_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("可用阵营点不足")
	}

	return nil
}

// ReleaseLocked 将锁定阵营点退回可用（废弃会话）
func (r *epochPlayerRepo) ReleaseLocked(ctx context.Context, epochID uint32, address string, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.EpochPlayer{}).
		Where("epoch_id = ? AND address = ? AND locked_fp >= ?", epochID, address, amount).
		Updates(map[string]interface{}{
			"available_fp":    gorm.Expr("available_fp + ?", amount),
			"locked_fp":       gorm.Expr("locked_fp - ?", amount),
			"last_touched_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("锁定阵营点不足")
	}

	return nil
}

// ConsumeLocked 消耗锁定阵营点（对局结算，点数离开玩家）
func (r *epochPlayerRepo) ConsumeLocked(ctx context.Context, epochID uint32, address string, amount int64) error {
	result := r.db.WithContext(ctx).
		Model(&models.EpochPlayer{}).
		Where("epoch_id = ? AND address = ? AND locked_fp >= ?", epochID, address, amount).
		Updates(map[string]interface{}{
			"locked_fp":       gorm.Expr("locked_fp - ?", amount),
			"last_touched_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("锁定阵营点不足")
	}

	return nil
}

// AddContribution 累加获胜贡献
func (r *epochPlayerRepo) AddContribution(ctx context.Context, epochID uint32, address string, amount int64) error {
	return r.db.WithContext(ctx).
		Model(&models.EpochPlayer{}).
		Where("epoch_id = ? AND address = ?", epochID, address).
		Updates(map[string]interface{}{
			"total_fp_contributed": gorm.Expr("total_fp_contributed + ?", amount),
			"last_touched_at":      time.Now(),
		}).Error
}

// Touch 刷新访问时间
func (r *epochPlayerRepo) Touch(ctx context.Context, epochID uint32, address string) error {
	return r.db.WithContext(ctx).
		Model(&models.EpochPlayer{}).
		Where("epoch_id = ? AND address = ?", epochID, address).
		Update("last_touched_at", time.Now()).Error
}

// DeleteTouchedBefore 清理长期未访问的周期状态
func (r *epochPlayerRepo) DeleteTouchedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("last_touched_at < ?", cutoff).
		Delete(&models.EpochPlayer{})
	return result.RowsAffected, result.Error
}

// WithTx 使用事务
func (r *epochPlayerRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &epochPlayerRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// VaultRepository 金库账户仓储接口
type VaultRepository interface {
	BaseRepository
	FindByAddress(ctx context.Context, address string) (*models.VaultAccount, error)
	GetBalance(ctx context.Context, address string) (int64, error)
	SetBalance(ctx context.Context, address string, balance int64) error
}

// vaultRepo 金库账户仓储实现
type vaultRepo struct {
	*BaseRepo
}

// NewVaultRepository 创建金库账户仓储
func NewVaultRepository(db *gorm.DB) VaultRepository {
	return &vaultRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// FindByAddress 根据地址查找金库账户
func (r *vaultRepo) FindByAddress(ctx context.Context, address string) (*models.VaultAccount, error) {
	var account models.VaultAccount
	err := r.db.WithContext(ctx).Where("address = ?", address).First(&account).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetBalance 查询余额（账户不存在视为0）
func (r *vaultRepo) GetBalance(ctx context.Context, address string) (int64, error) {
	account, err := r.FindByAddress(ctx, address)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return account.Balance, nil
}

// SetBalance 设置余额（不存在则创建）
func (r *vaultRepo) SetBalance(ctx context.Context, address string, balance int64) error {
	var account models.VaultAccount
	err := r.db.WithContext(ctx).
		Where(models.VaultAccount{Address: address}).
		FirstOrCreate(&account).Error
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).
		Model(&models.VaultAccount{}).
		Where("address = ?", address).
		Update("balance", balance).Error
}

// WithTx 使用事务
func (r *vaultRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &vaultRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
