package service

import (
	"context"
	"crypto/subtle"
	stderrors "errors"

	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/ledger"
	"github.com/kalepail/blendizzard/internal/logger"
	"github.com/kalepail/blendizzard/internal/models"
	"github.com/kalepail/blendizzard/internal/repository"
	"github.com/kalepail/blendizzard/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PlayerService 玩家服务
// 负责阵营选择、意图密钥登记与玩家状态查询。
type PlayerService struct {
	db           *gorm.DB
	playerRepo   repository.PlayerRepository
	fpLedger     ledger.FPLedger
	jwtManager   *utils.JWTManager
	factionCount int
	log          *zap.Logger
}

// NewPlayerService 创建玩家服务
func NewPlayerService(db *gorm.DB, fpLedger ledger.FPLedger, jwtManager *utils.JWTManager, factionCount int) *PlayerService {
	return &PlayerService{
		db:           db,
		playerRepo:   repository.NewPlayerRepository(db),
		fpLedger:     fpLedger,
		jwtManager:   jwtManager,
		factionCount: factionCount,
		log:          logger.GetModuleLogger("player"),
	}
}

// SelectFaction 选择阵营偏好
// 偏好随时可改，但每周期首次开局时锁定的周期阵营在该周期内不再变化。
func (s *PlayerService) SelectFaction(ctx context.Context, address string, faction int) error {
	if faction < 1 || faction > s.factionCount {
		return errors.New(errors.ErrInvalidParam, "无效的阵营编号")
	}

	if _, err := s.playerRepo.GetOrCreate(ctx, address); err != nil {
		return errors.Wrap(err, errors.ErrDatabase)
	}
	if err := s.playerRepo.UpdateSelectedFaction(ctx, address, faction); err != nil {
		return errors.Wrap(err, errors.ErrDatabase)
	}

	s.log.Info("玩家选择阵营", zap.String("address", address), zap.Int("faction", faction))
	return nil
}

// RotateIntentKey 生成并登记新的意图签名密钥，返回明文密钥（仅此一次）
func (s *PlayerService) RotateIntentKey(ctx context.Context, address string) (string, error) {
	key, err := utils.GenerateIntentKey()
	if err != nil {
		return "", errors.Wrap(err, errors.ErrUnknown)
	}

	if _, err := s.playerRepo.GetOrCreate(ctx, address); err != nil {
		return "", errors.Wrap(err, errors.ErrDatabase)
	}
	if err := s.playerRepo.UpdateIntentKey(ctx, address, key); err != nil {
		return "", errors.Wrap(err, errors.ErrDatabase)
	}

	s.log.Info("玩家意图密钥已更新", zap.String("address", address))
	return key, nil
}

// IssuePlayerToken 玩家凭意图密钥换取访问令牌
// 领奖等必须以本人身份发起的操作使用该令牌，令牌主体即玩家地址。
func (s *PlayerService) IssuePlayerToken(ctx context.Context, address, intentKey string) (*LoginResult, error) {
	player, err := s.playerRepo.FindByAddress(ctx, address)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrAuthentication, "地址或密钥错误")
		}
		return nil, errors.Wrap(err, errors.ErrDatabase)
	}

	if player.IntentKey == "" ||
		subtle.ConstantTimeCompare([]byte(player.IntentKey), []byte(intentKey)) != 1 {
		s.log.Warn("玩家令牌签发失败", zap.String("address", address))
		return nil, errors.New(errors.ErrAuthentication, "地址或密钥错误")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(address, RolePlayer)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrUnknown)
	}

	return &LoginResult{
		AccessToken: accessToken,
		ExpiresIn:   int64(s.jwtManager.GetTokenExpiry("access").Seconds()),
	}, nil
}

// PlayerProfile 玩家状态视图
type PlayerProfile struct {
	Address         string              `json:"address"`
	SelectedFaction int                 `json:"selected_faction"`
	HasIntentKey    bool                `json:"has_intent_key"`
	EpochState      *models.EpochPlayer `json:"epoch_state,omitempty"` // 当前周期状态，未参与时为空
}

// GetProfile 查询玩家档案与当前周期状态
func (s *PlayerService) GetProfile(ctx context.Context, address string, epochID uint32) (*PlayerProfile, error) {
	player, err := s.playerRepo.FindByAddress(ctx, address)
	if err != nil {
		if stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.New(errors.ErrPlayerNotFound)
		}
		return nil, errors.Wrap(err, errors.ErrDatabase)
	}

	profile := &PlayerProfile{
		Address:         player.Address,
		SelectedFaction: player.SelectedFaction,
		HasIntentKey:    player.IntentKey != "",
	}

	epochState, err := repository.NewEpochPlayerRepository(s.db).Find(ctx, epochID, address)
	if err != nil {
		if !stderrors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrap(err, errors.ErrDatabase)
		}
	} else {
		profile.EpochState = epochState
	}

	return profile, nil
}

// GetAvailableFP 查询玩家当前周期可用阵营点
// 玩家本周期尚未初始化时返回0（开局时才会计算预算）。
func (s *PlayerService) GetAvailableFP(ctx context.Context, epochID uint32, address string) (int64, error) {
	return s.fpLedger.AvailableFP(ctx, epochID, address)
}
