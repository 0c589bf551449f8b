package api

import (
	"github.com/gin-gonic/gin"
	"github.com/kalepail/blendizzard/internal/epoch"
	"github.com/kalepail/blendizzard/internal/service"
)

// PlayerHandler 玩家处理器
type PlayerHandler struct {
	playerService *service.PlayerService
	epochManager  *epoch.Manager
}

// NewPlayerHandler 创建玩家处理器
func NewPlayerHandler(playerService *service.PlayerService, epochManager *epoch.Manager) *PlayerHandler {
	return &PlayerHandler{
		playerService: playerService,
		epochManager:  epochManager,
	}
}

// SelectFactionRequest 选择阵营请求
type SelectFactionRequest struct {
	Address string `json:"address" binding:"required"`
	Faction int    `json:"faction" binding:"required"`
}

// SelectFaction 选择阵营偏好
// @Summary 选择阵营
// @Description 更新玩家的阵营偏好；周期阵营在每周期首次开局时锁定
// @Tags Player
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body SelectFactionRequest true "阵营选择"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/player/faction [post]
func (h *PlayerHandler) SelectFaction(c *gin.Context) {
	var req SelectFactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.playerService.SelectFaction(c.Request.Context(), req.Address, req.Faction); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"address": req.Address, "faction": req.Faction})
}

// RotateIntentKeyRequest 更新意图密钥请求
type RotateIntentKeyRequest struct {
	Address string `json:"address" binding:"required"`
}

// RotateIntentKey 生成并登记新的意图密钥
// @Summary 更新意图密钥
// @Description 生成新密钥并返回明文，旧密钥即刻失效
// @Tags Player
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body RotateIntentKeyRequest true "玩家地址"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/player/intent-key [post]
func (h *PlayerHandler) RotateIntentKey(c *gin.Context) {
	var req RotateIntentKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	key, err := h.playerService.RotateIntentKey(c.Request.Context(), req.Address)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"address": req.Address, "intent_key": key})
}

// GetProfile 查询玩家档案
// @Summary 查询玩家档案
// @Description 返回玩家的阵营偏好与当前周期状态
// @Tags Player
// @Produce json
// @Param address path string true "玩家地址"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/player/{address} [get]
func (h *PlayerHandler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()

	current, err := h.epochManager.CurrentEpoch(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	profile, err := h.playerService.GetProfile(ctx, c.Param("address"), current)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, profile)
}

// GetAvailableFP 查询玩家可用阵营点
// @Summary 查询可用阵营点
// @Tags Player
// @Produce json
// @Param address path string true "玩家地址"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/player/{address}/fp [get]
func (h *PlayerHandler) GetAvailableFP(c *gin.Context) {
	ctx := c.Request.Context()

	current, err := h.epochManager.CurrentEpoch(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	available, err := h.playerService.GetAvailableFP(ctx, current, c.Param("address"))
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"address":      c.Param("address"),
		"epoch_id":     current,
		"available_fp": available,
	})
}
