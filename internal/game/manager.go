package game

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/event"
	"github.com/kalepail/blendizzard/internal/fixedpoint"
	"github.com/kalepail/blendizzard/internal/ledger"
	"github.com/kalepail/blendizzard/internal/logger"
	"github.com/kalepail/blendizzard/internal/models"
	"github.com/kalepail/blendizzard/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Manager 对局会话管理器
// 负责开局、结算与废弃的完整生命周期，所有写操作在单个数据库事务中完成。
type Manager struct {
	db      *gorm.DB
	ledger  ledger.FPLedger
	emitter event.Emitter
	log     *zap.Logger
}

// NewManager 创建对局会话管理器
func NewManager(db *gorm.DB, fpLedger ledger.FPLedger, emitter event.Emitter) *Manager {
	return &Manager{
		db:      db,
		ledger:  fpLedger,
		emitter: emitter,
		log:     logger.GetModuleLogger("game"),
	}
}

// StartGameParams 开局参数
type StartGameParams struct {
	GameID        string `json:"game_id"`
	SessionID     string `json:"session_id"`
	Player1       string `json:"player1"`
	Player2       string `json:"player2"`
	Player1Wager  int64  `json:"player1_wager"`
	Player2Wager  int64  `json:"player2_wager"`
	Player1Intent string `json:"player1_intent"`
	Player2Intent string `json:"player2_intent"`
}

// StartGame 开局
// 前置检查顺序：白名单 → 会话号唯一 → 注金合法 → 逐玩家（意图授权 →
// 阵营已选择 → 周期预算初始化 → 阵营锁定 → 注金锁定）→ 持久化会话。
func (m *Manager) StartGame(ctx context.Context, params *StartGameParams) (*models.GameSession, error) {
	var session *models.GameSession
	var availableFP1, availableFP2 int64
	var faction1, faction2 int
	var resets []*ledger.ResetEvent
	var epochID uint32

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		whitelistRepo := repository.NewWhitelistRepository(tx)
		sessionRepo := repository.NewGameSessionRepository(tx)
		stateRepo := repository.NewEpochStateRepository(tx)
		playerRepo := repository.NewPlayerRepository(tx)

		// 游戏必须在白名单中
		whitelisted, err := whitelistRepo.IsWhitelisted(ctx, params.GameID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}
		if !whitelisted {
			return apperrors.Newf(apperrors.ErrGameNotWhitelisted, "game_id=%s", params.GameID)
		}

		// 会话号全局唯一
		exists, err := sessionRepo.Exists(ctx, params.SessionID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}
		if exists {
			return apperrors.Newf(apperrors.ErrSessionAlreadyExists, "session_id=%s", params.SessionID)
		}

		// 注金必须为正
		if params.Player1Wager <= 0 || params.Player2Wager <= 0 {
			return apperrors.New(apperrors.ErrInvalidAmount, "注金必须大于0")
		}

		epochID, err = stateRepo.GetCurrent(ctx)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}

		// 逐玩家执行授权、阵营与锁定检查
		var reset *ledger.ResetEvent
		availableFP1, faction1, reset, err = m.preparePlayer(ctx, tx, playerRepo, epochID,
			params.Player1, params.GameID, params.SessionID, params.Player1Wager, params.Player1Intent)
		if err != nil {
			return err
		}
		if reset != nil {
			resets = append(resets, reset)
		}

		availableFP2, faction2, reset, err = m.preparePlayer(ctx, tx, playerRepo, epochID,
			params.Player2, params.GameID, params.SessionID, params.Player2Wager, params.Player2Intent)
		if err != nil {
			return err
		}
		if reset != nil {
			resets = append(resets, reset)
		}

		session = &models.GameSession{
			SessionID:     params.SessionID,
			GameID:        params.GameID,
			EpochID:       epochID,
			Player1:       params.Player1,
			Player2:       params.Player2,
			Player1Wager:  params.Player1Wager,
			Player2Wager:  params.Player2Wager,
			Status:        models.SessionStatusPending,
			LastTouchedAt: time.Now(),
		}
		if err := sessionRepo.Create(ctx, session); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("对局已开始",
		zap.String("session_id", session.SessionID),
		zap.String("game_id", session.GameID),
		zap.Uint32("epoch_id", session.EpochID),
	)

	// 事务提交后才对外发布事件，先发预算初始化期间产生的重置通知
	for _, reset := range resets {
		m.emitter.TimeMultiplierReset(reset.Address, reset.OldBalance, reset.NewBalance)
	}

	// 开局事件携带双方锁定的周期阵营与锁定后的剩余可用阵营点
	m.emitter.GameStarted(session.SessionID, epochID,
		params.Player1, params.Player2,
		faction1, faction2,
		params.Player1Wager, params.Player2Wager,
		availableFP1, availableFP2)

	return session, nil
}

// preparePlayer 单个玩家的开局前置处理
// 返回锁定后的剩余可用阵营点、本周期锁定的阵营，以及预算初始化产生的重置通知。
func (m *Manager) preparePlayer(ctx context.Context, tx *gorm.DB, playerRepo repository.PlayerRepository,
	epochID uint32, address, gameID, sessionID string, wager int64, intent string) (int64, int, *ledger.ResetEvent, error) {

	player, err := playerRepo.GetOrCreate(ctx, address)
	if err != nil {
		return 0, 0, nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}

	// 玩家必须对 (game_id, session_id, wager) 显式授权
	if err := VerifyIntent(player.IntentKey, intent, address, gameID, sessionID, wager); err != nil {
		return 0, 0, nil, err
	}

	// 玩家必须已选择阵营
	if !player.HasSelectedFaction() {
		return 0, 0, nil, apperrors.Newf(apperrors.ErrFactionNotSelected, "address=%s", address)
	}

	// 确保本周期预算已初始化
	_, reset, err := m.ledger.InitializeEpochFP(ctx, tx, epochID, address)
	if err != nil {
		return 0, 0, nil, err
	}

	// 锁定本周期阵营（首次下注时生效，此后不可变）
	if err := m.ledger.LockEpochFaction(ctx, tx, epochID, address, player.SelectedFaction); err != nil {
		return 0, 0, nil, err
	}

	// 锁定注金
	if err := m.ledger.LockFP(ctx, tx, epochID, address, wager); err != nil {
		return 0, 0, nil, err
	}

	available, err := m.lockedAvailable(ctx, tx, epochID, address)
	if err != nil {
		return 0, 0, nil, err
	}
	return available, player.SelectedFaction, reset, nil
}

// lockedAvailable 在事务内读取锁定后的剩余可用阵营点
func (m *Manager) lockedAvailable(ctx context.Context, tx *gorm.DB, epochID uint32, address string) (int64, error) {
	epRepo := repository.NewEpochPlayerRepository(tx)
	ep, err := epRepo.Find(ctx, epochID, address)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return ep.AvailableFP, nil
}

// EndGame 结算对局
// 双方注金均被消耗，只有胜者自己的注金计入贡献与阵营战绩。
// 跨周期的会话拒绝结算（注金已在上一周期消逝）。
func (m *Manager) EndGame(ctx context.Context, gameID, sessionID string, player1Won bool) (*models.GameSession, error) {
	var session *models.GameSession
	var winner, loser string
	var winnerWager int64
	var epochID uint32

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessionRepo := repository.NewGameSessionRepository(tx)
		stateRepo := repository.NewEpochStateRepository(tx)
		epRepo := repository.NewEpochPlayerRepository(tx)
		standingRepo := repository.NewFactionStandingRepository(tx)

		var err error
		session, err = sessionRepo.LockForUpdate(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.ErrSessionNotFound, "session_id=%s", sessionID)
			}
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}

		// 只有开局的游戏才能提交结果
		if session.GameID != gameID {
			return apperrors.Newf(apperrors.ErrUnauthorized,
				"会话属于游戏%s", session.GameID)
		}

		// 只有进行中的会话可以结算
		if !session.IsPending() {
			return apperrors.Newf(apperrors.ErrInvalidSessionState, "status=%s", session.Status)
		}

		// 跨周期会话已过期
		epochID, err = stateRepo.GetCurrent(ctx)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}
		if session.EpochID != epochID {
			return apperrors.Newf(apperrors.ErrGameExpired,
				"会话属于周期%d，当前周期%d", session.EpochID, epochID)
		}

		var loserWager int64
		if player1Won {
			winner, loser = session.Player1, session.Player2
			winnerWager, loserWager = session.Player1Wager, session.Player2Wager
		} else {
			winner, loser = session.Player2, session.Player1
			winnerWager, loserWager = session.Player2Wager, session.Player1Wager
		}

		// 双方注金均被消耗
		if err := m.ledger.ConsumeFP(ctx, tx, epochID, winner, winnerWager); err != nil {
			return err
		}
		if err := m.ledger.ConsumeFP(ctx, tx, epochID, loser, loserWager); err != nil {
			return err
		}

		// 胜者自己的注金计入贡献
		winnerState, err := epRepo.Find(ctx, epochID, winner)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}
		if _, err := fixedpoint.CheckedAdd(winnerState.TotalFPContributed, winnerWager); err != nil {
			return err
		}
		if err := epRepo.AddContribution(ctx, epochID, winner, winnerWager); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}

		// 同步累加胜者阵营战绩
		if winnerState.EpochFaction == nil {
			return apperrors.Newf(apperrors.ErrFactionNotSelected, "address=%s", winner)
		}
		standing, err := standingRepo.GetTotalFP(ctx, epochID, *winnerState.EpochFaction)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}
		if _, err := fixedpoint.CheckedAdd(standing, winnerWager); err != nil {
			return err
		}
		if err := standingRepo.AddFP(ctx, epochID, *winnerState.EpochFaction, winnerWager); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}

		// 写入结果并进入终态
		if err := sessionRepo.MarkEnded(ctx, sessionID, player1Won); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Info("对局已结算",
		zap.String("session_id", sessionID),
		zap.String("winner", winner),
		zap.Int64("winner_contribution", winnerWager),
	)

	m.emitter.GameEnded(sessionID, epochID, winner, loser, winnerWager)

	// 返回结算后的会话
	return repository.NewGameSessionRepository(m.db).FindBySessionID(ctx, sessionID)
}

// AbandonSession 废弃进行中的会话（管理员操作）
// 双方锁定注金退回可用，会话进入废弃终态，不产生贡献与战绩。
// 跨周期的会话锁定记录可能已过期，此时仅标记废弃。
func (m *Manager) AbandonSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	var session *models.GameSession

	err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sessionRepo := repository.NewGameSessionRepository(tx)
		stateRepo := repository.NewEpochStateRepository(tx)

		var err error
		session, err = sessionRepo.LockForUpdate(ctx, sessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.Newf(apperrors.ErrSessionNotFound, "session_id=%s", sessionID)
			}
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}

		if !session.IsPending() {
			return apperrors.Newf(apperrors.ErrInvalidSessionState, "status=%s", session.Status)
		}

		currentEpoch, err := stateRepo.GetCurrent(ctx)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}

		// 仅当会话仍在其创建周期内时退回注金
		if session.EpochID == currentEpoch {
			if err := m.ledger.UnlockFP(ctx, tx, session.EpochID, session.Player1, session.Player1Wager); err != nil {
				return err
			}
			if err := m.ledger.UnlockFP(ctx, tx, session.EpochID, session.Player2, session.Player2Wager); err != nil {
				return err
			}
		}

		if err := sessionRepo.MarkAbandoned(ctx, sessionID); err != nil {
			return apperrors.Wrap(err, apperrors.ErrDatabase)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	m.log.Warn("会话已废弃",
		zap.String("session_id", sessionID),
		zap.String("game_id", session.GameID),
	)

	return repository.NewGameSessionRepository(m.db).FindBySessionID(ctx, sessionID)
}

// GetSession 查询会话
func (m *Manager) GetSession(ctx context.Context, sessionID string) (*models.GameSession, error) {
	session, err := repository.NewGameSessionRepository(m.db).FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Newf(apperrors.ErrSessionNotFound, "session_id=%s", sessionID)
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabase)
	}
	return session, nil
}
