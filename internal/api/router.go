package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kalepail/blendizzard/internal/config"
	"github.com/kalepail/blendizzard/internal/epoch"
	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/event"
	"github.com/kalepail/blendizzard/internal/game"
	"github.com/kalepail/blendizzard/internal/ledger"
	"github.com/kalepail/blendizzard/internal/middleware"
	"github.com/kalepail/blendizzard/internal/reward"
	"github.com/kalepail/blendizzard/internal/service"
	"github.com/kalepail/blendizzard/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Router API路由器
type Router struct {
	engine         *gin.Engine
	db             *gorm.DB
	epochManager   *epoch.Manager
	authMiddleware *middleware.AuthMiddleware

	authHandler      *AuthHandler
	gameHandler      *GameHandler
	playerHandler    *PlayerHandler
	epochHandler     *EpochHandler
	rewardHandler    *RewardHandler
	adminHandler     *AdminHandler
	websocketHandler *WebSocketHandler

	log *zap.Logger
}

// NewRouter 创建路由器并装配全部处理器
func NewRouter(db *gorm.DB, cfg *config.Config, hub *event.Hub, log *zap.Logger) *Router {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gin.Logger())

	emitter := event.NewHubEmitter(hub)

	jwtManager := utils.NewJWTManager(
		cfg.Security.JWT.Secret,
		time.Duration(cfg.Security.JWT.ExpireHours)*time.Hour,
		time.Duration(cfg.Security.JWT.RefreshHours)*time.Hour,
	)

	oracle := ledger.NewDBVaultOracle(db, cfg.Reward.WithdrawResetPercent)
	fpLedger := ledger.NewGormLedger(db, oracle, ledger.Params{
		BalanceHalfLife: cfg.Reward.BalanceHalfLife,
		TimeHalfLife:    cfg.Reward.TimeMultiplierHalfLife,
	})

	gameManager := game.NewManager(db, fpLedger, emitter)
	epochManager := epoch.NewManager(db, emitter, &cfg.Epoch, cfg.Faction.Count)
	distributor := reward.NewDistributor(db, &reward.DBTokenTransfer{}, emitter)

	adminService := service.NewAdminService(db, jwtManager)
	whitelistService := service.NewWhitelistService(db, jwtManager)
	playerService := service.NewPlayerService(db, fpLedger, jwtManager, cfg.Faction.Count)

	authMiddleware := middleware.NewAuthMiddleware(jwtManager)

	router := &Router{
		engine:         engine,
		db:             db,
		epochManager:   epochManager,
		authMiddleware: authMiddleware,

		authHandler:      NewAuthHandler(adminService, whitelistService, playerService),
		gameHandler:      NewGameHandler(gameManager),
		playerHandler:    NewPlayerHandler(playerService, epochManager),
		epochHandler:     NewEpochHandler(epochManager),
		rewardHandler:    NewRewardHandler(distributor),
		adminHandler:     NewAdminHandler(whitelistService, adminService),
		websocketHandler: NewWebSocketHandler(hub, log),

		log: log,
	}

	router.setupRoutes()

	return router
}

// setupRoutes 设置路由
func (r *Router) setupRoutes() {
	r.engine.GET("/health", r.healthCheck)

	v1 := r.engine.Group("/api/v1")
	v1.Use(middleware.PauseGuard())
	{
		// 认证相关路由（不需要认证）
		auth := v1.Group("/auth")
		{
			auth.POST("/admin/login", r.authHandler.AdminLogin)
			auth.POST("/refresh", r.authHandler.Refresh)
			auth.POST("/game/token", r.authHandler.GameToken)
			auth.POST("/player/token", r.authHandler.PlayerToken)
		}

		// 对局路由（游戏服务端调用）
		gameGroup := v1.Group("/game")
		{
			gameGroup.GET("/sessions/:session_id", r.gameHandler.GetSession)

			gameAuth := gameGroup.Group("")
			gameAuth.Use(r.authMiddleware.RequireRole(service.RoleGame))
			{
				gameAuth.POST("/start", r.gameHandler.StartGame)
				gameAuth.POST("/end", r.gameHandler.EndGame)
			}
		}

		// 玩家路由
		player := v1.Group("/player")
		{
			player.GET("/:address", r.playerHandler.GetProfile)
			player.GET("/:address/fp", r.playerHandler.GetAvailableFP)

			playerAuth := player.Group("")
			playerAuth.Use(r.authMiddleware.RequireRole(service.RoleGame, service.RoleAdmin))
			{
				playerAuth.POST("/faction", r.playerHandler.SelectFaction)
				playerAuth.POST("/intent-key", r.playerHandler.RotateIntentKey)
			}
		}

		// 周期路由
		epochGroup := v1.Group("/epoch")
		{
			epochGroup.GET("/current", r.epochHandler.GetCurrent)
			epochGroup.GET("/:epoch_id", r.epochHandler.GetEpoch)
			epochGroup.GET("/:epoch_id/standings", r.epochHandler.GetStandings)
		}

		// 奖励路由
		rewardGroup := v1.Group("/reward")
		{
			rewardGroup.GET("/:epoch_id/claimable/:address", r.rewardHandler.GetClaimable)
			rewardGroup.GET("/:epoch_id/claims", r.rewardHandler.ListClaims)

			// 领奖必须以玩家本人身份调用
			rewardAuth := rewardGroup.Group("")
			rewardAuth.Use(r.authMiddleware.RequireRole(service.RolePlayer))
			{
				rewardAuth.POST("/claim", r.rewardHandler.Claim)
			}
		}

		// 管理员路由
		admin := v1.Group("/admin")
		admin.Use(r.authMiddleware.RequireRole(service.RoleAdmin))
		{
			admin.POST("/games", r.adminHandler.RegisterGame)
			admin.GET("/games", r.adminHandler.ListGames)
			admin.DELETE("/games/:game_id", r.adminHandler.RemoveGame)
			admin.PUT("/games/:game_id/enabled", r.adminHandler.SetGameEnabled)

			admin.POST("/epoch/advance", r.epochHandler.Advance)
			admin.POST("/epoch/:epoch_id/fund", r.epochHandler.FundPool)
			admin.POST("/epoch/:epoch_id/finalize", r.epochHandler.Finalize)

			admin.POST("/sessions/:session_id/abandon", r.gameHandler.AbandonSession)
			admin.PUT("/system/paused", r.adminHandler.SetPaused)
		}
	}

	// WebSocket路由
	r.engine.GET("/ws/events", r.websocketHandler.HandleEvents)

	// Swagger文档（-tags swagger 时启用）
	registerSwaggerRoutes(r.engine)

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errors.NewErrorResponse(
			errors.New(errors.ErrNotFound, "接口不存在"), ""))
	})
}

// healthCheck 健康检查
func (r *Router) healthCheck(c *gin.Context) {
	sqlDB, err := r.db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "unhealthy",
			"message": "数据库连接失败",
		})
		return
	}

	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  "unhealthy",
			"message": "数据库ping失败",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "服务运行正常",
	})
}

// EpochManager 获取周期管理器（用于后台任务启动）
func (r *Router) EpochManager() *epoch.Manager {
	return r.epochManager
}

// Run 运行服务器
func (r *Router) Run(addr string) error {
	r.log.Info("Starting API server", zap.String("address", addr))
	return r.engine.Run(addr)
}

// GetEngine 获取Gin引擎（用于测试）
func (r *Router) GetEngine() *gin.Engine {
	return r.engine
}
