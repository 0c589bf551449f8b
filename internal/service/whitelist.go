package service

import (
	"context"
	"crypto/subtle"
	stderrors "errors"

	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/logger"
	"github.com/kalepail/blendizzard/internal/models"
	"github.com/kalepail/blendizzard/internal/repository"
	"github.com/kalepail/blendizzard/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// WhitelistService 游戏白名单服务
// 管理员维护可开局的游戏列表；游戏凭密钥换取访问令牌。
type WhitelistService struct {
	db            *gorm.DB
	whitelistRepo repository.WhitelistRepository
	jwtManager    *utils.JWTManager
	log           *zap.Logger
}

// NewWhitelistService 创建游戏白名单服务
func NewWhitelistService(db *gorm.DB, jwtManager *utils.JWTManager) *WhitelistService {
	return &WhitelistService{
		db:            db,
		whitelistRepo: repository.NewWhitelistRepository(db),
		jwtManager:    jwtManager,
		log:           logger.GetModuleLogger("whitelist"),
	}
}

// RegisterGame 登记游戏并生成其凭证密钥，返回明文密钥（仅此一次）
func (s *WhitelistService) RegisterGame(ctx context.Context, gameID string) (string, error) {
	if gameID == "" {
		return "", errors.New(errors.ErrInvalidParam, "游戏地址不能为空")
	}

	key, err := utils.GenerateRandomString(64)
	if err != nil {
		return "", errors.Wrap(err, errors.ErrUnknown)
	}

	entry := &models.GameWhitelist{
		GameID:  gameID,
		GameKey: key,
		Enabled: true,
	}
	if err := s.whitelistRepo.Add(ctx, entry); err != nil {
		return "", errors.Wrap(err, errors.ErrDatabase)
	}

	s.log.Info("游戏已登记白名单", zap.String("game_id", gameID))
	return key, nil
}

// RemoveGame 移除游戏
func (s *WhitelistService) RemoveGame(ctx context.Context, gameID string) error {
	if err := s.whitelistRepo.Remove(ctx, gameID); err != nil {
		return errors.Wrap(err, errors.ErrDatabase)
	}
	s.log.Info("游戏已移出白名单", zap.String("game_id", gameID))
	return nil
}

// SetGameEnabled 启用/停用游戏
func (s *WhitelistService) SetGameEnabled(ctx context.Context, gameID string, enabled bool) error {
	if err := s.whitelistRepo.SetEnabled(ctx, gameID, enabled); err != nil {
		return errors.Wrap(err, errors.ErrDatabase)
	}
	s.log.Info("游戏白名单状态变更", zap.String("game_id", gameID), zap.Bool("enabled", enabled))
	return nil
}

// ListGames 分页查询白名单
func (s *WhitelistService) ListGames(ctx context.Context, pagination *repository.Pagination) ([]*models.GameWhitelist, error) {
	games, err := s.whitelistRepo.List(ctx, pagination)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrDatabase)
	}
	return games, nil
}

// IssueGameToken 游戏凭密钥换取访问令牌
func (s *WhitelistService) IssueGameToken(ctx context.Context, gameID, gameKey string) (*LoginResult, error) {
	entry, err := s.whitelistRepo.FindByGameID(ctx, gameID)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrAuthentication, "游戏地址或密钥错误")
		}
		return nil, errors.Wrap(err, errors.ErrDatabase)
	}

	if !entry.Enabled {
		return nil, errors.New(errors.ErrGameNotWhitelisted)
	}
	if entry.GameKey == "" ||
		subtle.ConstantTimeCompare([]byte(entry.GameKey), []byte(gameKey)) != 1 {
		s.log.Warn("游戏令牌签发失败", zap.String("game_id", gameID))
		return nil, errors.New(errors.ErrAuthentication, "游戏地址或密钥错误")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(gameID, RoleGame)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown)
	}

	return &LoginResult{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
	}, nil
}
