package api

import (
	"github.com/gin-gonic/gin"
	"github.com/kalepail/blendizzard/internal/service"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	adminService     *service.AdminService
	whitelistService *service.WhitelistService
	playerService    *service.PlayerService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(adminService *service.AdminService, whitelistService *service.WhitelistService, playerService *service.PlayerService) *AuthHandler {
	return &AuthHandler{
		adminService:     adminService,
		whitelistService: whitelistService,
		playerService:    playerService,
	}
}

// AdminLoginRequest 管理员登录请求
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// AdminLogin 管理员登录
// @Summary 管理员登录
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body AdminLoginRequest true "登录信息"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/admin/login [post]
func (h *AuthHandler) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.adminService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, result)
}

// RefreshRequest 刷新令牌请求
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// Refresh 刷新访问令牌
// @Summary 刷新访问令牌
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "刷新令牌"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/refresh [post]
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.adminService.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, result)
}

// GameTokenRequest 游戏令牌请求
type GameTokenRequest struct {
	GameID  string `json:"game_id" binding:"required"`
	GameKey string `json:"game_key" binding:"required"`
}

// GameToken 游戏凭密钥换取访问令牌
// @Summary 游戏令牌签发
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body GameTokenRequest true "游戏凭证"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/game/token [post]
func (h *AuthHandler) GameToken(c *gin.Context) {
	var req GameTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.whitelistService.IssueGameToken(c.Request.Context(), req.GameID, req.GameKey)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, result)
}

// PlayerTokenRequest 玩家令牌请求
type PlayerTokenRequest struct {
	Address   string `json:"address" binding:"required"`
	IntentKey string `json:"intent_key" binding:"required"`
}

// PlayerToken 玩家凭意图密钥换取访问令牌
// @Summary 玩家令牌签发
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body PlayerTokenRequest true "玩家凭证"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /api/v1/auth/player/token [post]
func (h *AuthHandler) PlayerToken(c *gin.Context) {
	var req PlayerTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	result, err := h.playerService.IssuePlayerToken(c.Request.Context(), req.Address, req.IntentKey)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, result)
}
