package repository

import (
	"context"
	"time"

	"github.com/kalepail/blendizzard/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GameSessionRepository 对局会话仓储接口
type GameSessionRepository interface {
	BaseRepository
	Create(ctx context.Context, session *models.GameSession) error
	FindBySessionID(ctx context.Context, sessionID string) (*models.GameSession, error)
	LockForUpdate(ctx context.Context, sessionID string) (*models.GameSession, error)
	Exists(ctx context.Context, sessionID string) (bool, error)
	MarkEnded(ctx context.Context, sessionID string, player1Won bool) error
	MarkAbandoned(ctx context.Context, sessionID string) error
	ListByEpoch(ctx context.Context, epochID uint32, pagination *Pagination) ([]*models.GameSession, error)
	ListPendingByGame(ctx context.Context, gameID string) ([]*models.GameSession, error)
	DeleteTouchedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// gameSessionRepo 对局会话仓储实现
type gameSessionRepo struct {
	*BaseRepo
}

// NewGameSessionRepository 创建对局会话仓储
func NewGameSessionRepository(db *gorm.DB) GameSessionRepository {
	return &gameSessionRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Create 创建会话
func (r *gameSessionRepo) Create(ctx context.Context, session *models.GameSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

// FindBySessionID 根据会话号查找
func (r *gameSessionRepo) FindBySessionID(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// LockForUpdate 锁定会话行（悲观锁）
func (r *gameSessionRepo) LockForUpdate(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var session models.GameSession
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_id = ?", sessionID).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Exists 检查会话号是否已被占用
func (r *gameSessionRepo) Exists(ctx context.Context, sessionID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("session_id = ?", sessionID).
		Count(&count).Error
	return count > 0, err
}

// MarkEnded 写入对局结果并进入终态（仅对进行中会话生效）
func (r *gameSessionRepo) MarkEnded(ctx context.Context, sessionID string, player1Won bool) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("session_id = ? AND status = ?", sessionID, models.SessionStatusPending).
		Updates(map[string]interface{}{
			"player1_won":     player1Won,
			"status":          models.SessionStatusEnded,
			"settled_at":      now,
			"last_touched_at": now,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// MarkAbandoned 废弃会话（仅对进行中会话生效）
func (r *gameSessionRepo) MarkAbandoned(ctx context.Context, sessionID string) error {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.GameSession{}).
		Where("session_id = ? AND status = ?", sessionID, models.SessionStatusPending).
		Updates(map[string]interface{}{
			"status":          models.SessionStatusAbandoned,
			"settled_at":      now,
			"last_touched_at": now,
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// ListByEpoch 分页查询周期内的会话
func (r *gameSessionRepo) ListByEpoch(ctx context.Context, epochID uint32, pagination *Pagination) ([]*models.GameSession, error) {
	var sessions []*models.GameSession
	query := r.db.WithContext(ctx).Model(&models.GameSession{}).Where("epoch_id = ?", epochID)

	// 获取总数
	var total int64
	query.Count(&total)
	pagination.Total = total

	// 分页查询
	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&sessions).Error

	return sessions, err
}

// ListPendingByGame 查询某游戏的全部进行中会话
func (r *gameSessionRepo) ListPendingByGame(ctx context.Context, gameID string) ([]*models.GameSession, error) {
	var sessions []*models.GameSession
	err := r.db.WithContext(ctx).
		Where("game_id = ? AND status = ?", gameID, models.SessionStatusPending).
		Order("created_at ASC").
		Find(&sessions).Error
	return sessions, err
}

// DeleteTouchedBefore 清理长期未访问的会话
func (r *gameSessionRepo) DeleteTouchedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("last_touched_at < ? AND status <> ?", cutoff, models.SessionStatusPending).
		Delete(&models.GameSession{})
	return result.RowsAffected, result.Error
}

// WithTx 使用事务
func (r *gameSessionRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &gameSessionRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}

// WhitelistRepository 游戏白名单仓储接口
type WhitelistRepository interface {
	BaseRepository
	Add(ctx context.Context, entry *models.GameWhitelist) error
	Remove(ctx context.Context, gameID string) error
	FindByGameID(ctx context.Context, gameID string) (*models.GameWhitelist, error)
	IsWhitelisted(ctx context.Context, gameID string) (bool, error)
	SetEnabled(ctx context.Context, gameID string, enabled bool) error
	List(ctx context.Context, pagination *Pagination) ([]*models.GameWhitelist, error)
}

// whitelistRepo 游戏白名单仓储实现
type whitelistRepo struct {
	*BaseRepo
}

// NewWhitelistRepository 创建游戏白名单仓储
func NewWhitelistRepository(db *gorm.DB) WhitelistRepository {
	return &whitelistRepo{
		BaseRepo: &BaseRepo{db: db},
	}
}

// Add 添加白名单条目
func (r *whitelistRepo) Add(ctx context.Context, entry *models.GameWhitelist) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// Remove 删除白名单条目
func (r *whitelistRepo) Remove(ctx context.Context, gameID string) error {
	return r.db.WithContext(ctx).
		Where("game_id = ?", gameID).
		Delete(&models.GameWhitelist{}).Error
}

// FindByGameID 根据游戏号查找
func (r *whitelistRepo) FindByGameID(ctx context.Context, gameID string) (*models.GameWhitelist, error) {
	var entry models.GameWhitelist
	err := r.db.WithContext(ctx).Where("game_id = ?", gameID).First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// IsWhitelisted 检查游戏是否在白名单且启用
func (r *whitelistRepo) IsWhitelisted(ctx context.Context, gameID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.GameWhitelist{}).
		Where("game_id = ? AND enabled = ?", gameID, true).
		Count(&count).Error
	return count > 0, err
}

// SetEnabled 启用/禁用白名单条目
func (r *whitelistRepo) SetEnabled(ctx context.Context, gameID string, enabled bool) error {
	return r.db.WithContext(ctx).
		Model(&models.GameWhitelist{}).
		Where("game_id = ?", gameID).
		Update("enabled", enabled).Error
}

// List 分页查询白名单
func (r *whitelistRepo) List(ctx context.Context, pagination *Pagination) ([]*models.GameWhitelist, error) {
	var entries []*models.GameWhitelist
	query := r.db.WithContext(ctx).Model(&models.GameWhitelist{})

	var total int64
	query.Count(&total)
	pagination.Total = total

	err := query.
		Scopes(Paginate(pagination)).
		Order("created_at DESC").
		Find(&entries).Error

	return entries, err
}

// WithTx 使用事务
func (r *whitelistRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &whitelistRepo{
		BaseRepo: &BaseRepo{db: tx},
	}
}
