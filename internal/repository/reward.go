package repository

import (
	"context"
	"time"

	"github.com/kalepail/blendizzard/internal/models"
	"gorm.io/gorm"
)

// ClaimRepository 奖励领取记录仓储接口
type ClaimRepository interface {
	BaseRepository
	Create(ctx context.Context, claim *models.ClaimRecord) error
	Find(ctx context.Context, address string, epochID uint32) (*models.ClaimRecord, error)
	HasClaimed(ctx context.Context, address string, epochID uint32) (bool, error)
	ListByEpoch(ctx context.Context, epochID uint32, pagination *Pagination) ([]*models.ClaimRecord, error)
	SumByEpoch(ctx context.Context, epochID uint32) (int64, error)
}

// claimRepo 奖励领取记录仓储实现
type claimRepo struct {
	*BaseRepo
}

// NewClaimRepository 创建奖励领取记录仓储
func NewClaimRepository(db *gorm.DB) ClaimRepository {
	return &claimRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建领取记录
func (r *claimRepo) Create(ctx context.Context, claim *models.ClaimRecord) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

// Find 查找领取记录
func (r *claimRepo) Find(ctx context.Context, address string, epochID uint32) (*models.ClaimRecord, error) {
	var claim models.ClaimRecord
	err := r.db.WithContext(ctx).
		Where("address = ? AND epoch_id = ?", address, epochID).
		First(&claim).Error
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

// HasClaimed 检查是否已领取
func (r *claimRepo) HasClaimed(ctx context.Context, address string, epochID uint32) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ClaimRecord{}).
		Where("address = ? AND epoch_id = ?", address, epochID).
		Count(&count).Error
	return count > 0, err
}

// ListByEpoch 分页查询周期内的领取记录
func (r *claimRepo) ListByEpoch(ctx context.Context, epochID uint32, pagination *Pagination) ([]*models.ClaimRecord, error) {
	var claims []*models.ClaimRecord
	query := r.db.WithContext(ctx).Model(&models.ClaimRecord{}).Where("epoch_id = ?", epochID)

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("claimed_at DESC").
		Find(&claims).Error

	return claims, err
}

// SumByEpoch 统计周期内已领取总额
func (r *claimRepo) SumByEpoch(ctx context.Context, epochID uint32) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.ClaimRecord{}).
		Where("epoch_id = ?", epochID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

// WithTx 使用事务
func (r *claimRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &claimRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// TransferRepository 支付流水仓储接口
type TransferRepository interface {
	BaseRepository
	Create(ctx context.Context, transfer *models.TransferRecord) error
	FindByOrderNo(ctx context.Context, orderNo string) (*models.TransferRecord, error)
	ListByAddress(ctx context.Context, address string, pagination *Pagination) ([]*models.TransferRecord, error)
}

// transferRepo 支付流水仓储实现
type transferRepo struct {
	*BaseRepo
}

// NewTransferRepository 创建支付流水仓储
func NewTransferRepository(db *gorm.DB) TransferRepository {
	return &transferRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建流水记录
func (r *transferRepo) Create(ctx context.Context, transfer *models.TransferRecord) error {
	return r.db.WithContext(ctx).Create(transfer).Error
}

// FindByOrderNo 根据订单号查找
func (r *transferRepo) FindByOrderNo(ctx context.Context, orderNo string) (*models.TransferRecord, error) {
	var transfer models.TransferRecord
	err := r.db.WithContext(ctx).Where("order_no = ?", orderNo).First(&transfer).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// ListByAddress 分页查询地址的流水
func (r *transferRepo) ListByAddress(ctx context.Context, address string, pagination *Pagination) ([]*models.TransferRecord, error) {
	var transfers []*models.TransferRecord
	query := r.db.WithContext(ctx).Model(&models.TransferRecord{}).Where("to_address = ?", address)

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&transfers).Error

	return transfers, err
}

// WithTx 使用事务
func (r *transferRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &transferRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// AdminRepository 管理员仓储接口
type AdminRepository interface {
	BaseRepository
	Create(ctx context.Context, admin *models.AdminUser) error
	FindByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	UpdateLastLogin(ctx context.Context, username string, at time.Time) error
}

// adminRepo 管理员仓储实现
type adminRepo struct {
	*BaseRepo
}

// NewAdminRepository 创建管理员仓储
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建管理员
func (r *adminRepo) Create(ctx context.Context, admin *models.AdminUser) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

// FindByUsername 根据用户名查找管理员
func (r *adminRepo) FindByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var admin models.AdminUser
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

// UpdateLastLogin 更新最后登录时间
func (r *adminRepo) UpdateLastLogin(ctx context.Context, username string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.AdminUser{}).
		Where("username = ?", username).
		Update("last_login_at", at).Error
}

// WithTx 使用事务
func (r *adminRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &adminRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
