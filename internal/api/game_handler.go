package api

import (
	"github.com/gin-gonic/gin"
	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/game"
	"github.com/kalepail/blendizzard/internal/middleware"
)

// GameHandler 对局处理器
// 开局与结算由游戏服务端凭自身令牌调用，身份即为游戏地址。
type GameHandler struct {
	gameManager *game.Manager
}

// NewGameHandler 创建对局处理器
func NewGameHandler(gameManager *game.Manager) *GameHandler {
	return &GameHandler{
		gameManager: gameManager,
	}
}

// StartGameRequest 开局请求
type StartGameRequest struct {
	SessionID     string `json:"session_id" binding:"required"`
	Player1       string `json:"player1" binding:"required"`
	Player2       string `json:"player2" binding:"required"`
	Player1Wager  int64  `json:"player1_wager" binding:"required"`
	Player2Wager  int64  `json:"player2_wager" binding:"required"`
	Player1Intent string `json:"player1_intent" binding:"required"`
	Player2Intent string `json:"player2_intent" binding:"required"`
}

// StartGame 开局
// @Summary 创建对局会话
// @Description 校验双方下注意图并锁定注金，创建进行中的对局会话
// @Tags Game
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body StartGameRequest true "开局参数"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /api/v1/game/start [post]
func (h *GameHandler) StartGame(c *gin.Context) {
	var req StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	gameID, ok := middleware.GetSubject(c)
	if !ok {
		respondError(c, errors.New(errors.ErrUnauthorized))
		return
	}

	session, err := h.gameManager.StartGame(c.Request.Context(), &game.StartGameParams{
		GameID:        gameID,
		SessionID:     req.SessionID,
		Player1:       req.Player1,
		Player2:       req.Player2,
		Player1Wager:  req.Player1Wager,
		Player2Wager:  req.Player2Wager,
		Player1Intent: req.Player1Intent,
		Player2Intent: req.Player2Intent,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, session)
}

// EndGameRequest 结算请求
type EndGameRequest struct {
	SessionID  string `json:"session_id" binding:"required"`
	Player1Won *bool  `json:"player1_won" binding:"required"`
}

// EndGame 提交对局结果
// @Summary 结算对局
// @Description 只有开局的游戏可以提交结果；结果写入后会话不可变
// @Tags Game
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body EndGameRequest true "结算参数"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /api/v1/game/end [post]
func (h *GameHandler) EndGame(c *gin.Context) {
	var req EndGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	gameID, ok := middleware.GetSubject(c)
	if !ok {
		respondError(c, errors.New(errors.ErrUnauthorized))
		return
	}

	session, err := h.gameManager.EndGame(c.Request.Context(), gameID, req.SessionID, *req.Player1Won)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, session)
}

// GetSession 查询会话
// @Summary 查询对局会话
// @Tags Game
// @Produce json
// @Param session_id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/game/sessions/{session_id} [get]
func (h *GameHandler) GetSession(c *gin.Context) {
	session, err := h.gameManager.GetSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, session)
}

// AbandonSession 废弃会话（管理员操作）
// @Summary 废弃对局会话
// @Description 解锁双方注金并将会话置为废弃态
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param session_id path string true "会话ID"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /api/v1/admin/sessions/{session_id}/abandon [post]
func (h *GameHandler) AbandonSession(c *gin.Context) {
	session, err := h.gameManager.AbandonSession(c.Request.Context(), c.Param("session_id"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, session)
}
