package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kalepail/blendizzard/internal/config"
	"github.com/kalepail/blendizzard/internal/repository"
	"github.com/kalepail/blendizzard/internal/service"
)

// AdminHandler 管理处理器
type AdminHandler struct {
	whitelistService *service.WhitelistService
	adminService     *service.AdminService
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(whitelistService *service.WhitelistService, adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{
		whitelistService: whitelistService,
		adminService:     adminService,
	}
}

// RegisterGameRequest 登记游戏请求
type RegisterGameRequest struct {
	GameID string `json:"game_id" binding:"required"`
}

// RegisterGame 登记游戏白名单
// @Summary 登记游戏
// @Description 将游戏加入白名单并返回其凭证密钥（仅此一次）
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body RegisterGameRequest true "游戏地址"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/admin/games [post]
func (h *AdminHandler) RegisterGame(c *gin.Context) {
	var req RegisterGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	key, err := h.whitelistService.RegisterGame(c.Request.Context(), req.GameID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"game_id": req.GameID, "game_key": key})
}

// RemoveGame 移除游戏白名单
// @Summary 移除游戏
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param game_id path string true "游戏地址"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/admin/games/{game_id} [delete]
func (h *AdminHandler) RemoveGame(c *gin.Context) {
	gameID := c.Param("game_id")

	if err := h.whitelistService.RemoveGame(c.Request.Context(), gameID); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"game_id": gameID})
}

// SetGameEnabledRequest 启停游戏请求
type SetGameEnabledRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// SetGameEnabled 启用/停用游戏
// @Summary 启停游戏
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param game_id path string true "游戏地址"
// @Param request body SetGameEnabledRequest true "启用状态"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/admin/games/{game_id}/enabled [put]
func (h *AdminHandler) SetGameEnabled(c *gin.Context) {
	var req SetGameEnabledRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}
	gameID := c.Param("game_id")

	if err := h.whitelistService.SetGameEnabled(c.Request.Context(), gameID, *req.Enabled); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"game_id": gameID, "enabled": *req.Enabled})
}

// ListGames 查询游戏白名单
// @Summary 查询游戏白名单
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/admin/games [get]
func (h *AdminHandler) ListGames(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := repository.NewPagination(page, pageSize)

	games, err := h.whitelistService.ListGames(c.Request.Context(), pagination)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"games":      games,
		"pagination": pagination,
	})
}

// SetPausedRequest 系统暂停请求
type SetPausedRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

// SetPaused 设置全局暂停开关
// @Summary 系统暂停开关
// @Description 暂停期间拒绝所有写操作
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body SetPausedRequest true "暂停状态"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/admin/system/paused [put]
func (h *AdminHandler) SetPaused(c *gin.Context) {
	var req SetPausedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	config.Set("system.paused", *req.Paused)

	respondOK(c, gin.H{"paused": *req.Paused})
}
