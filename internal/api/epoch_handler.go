package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kalepail/blendizzard/internal/epoch"
	"github.com/kalepail/blendizzard/internal/errors"
)

// EpochHandler 周期处理器
type EpochHandler struct {
	epochManager *epoch.Manager
}

// NewEpochHandler 创建周期处理器
func NewEpochHandler(epochManager *epoch.Manager) *EpochHandler {
	return &EpochHandler{
		epochManager: epochManager,
	}
}

// parseEpochID 解析路径中的周期号
func parseEpochID(c *gin.Context) (uint32, error) {
	id, err := strconv.ParseUint(c.Param("epoch_id"), 10, 32)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrInvalidParam, "无效的周期号")
	}
	return uint32(id), nil
}

// GetCurrent 查询当前周期
// @Summary 查询当前周期
// @Tags Epoch
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /api/v1/epoch/current [get]
func (h *EpochHandler) GetCurrent(c *gin.Context) {
	ctx := c.Request.Context()

	current, err := h.epochManager.CurrentEpoch(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	info, err := h.epochManager.GetEpochInfo(ctx, current)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, info)
}

// GetEpoch 查询指定周期
// @Summary 查询周期信息
// @Tags Epoch
// @Produce json
// @Param epoch_id path int true "周期号"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /api/v1/epoch/{epoch_id} [get]
func (h *EpochHandler) GetEpoch(c *gin.Context) {
	epochID, err := parseEpochID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	info, err := h.epochManager.GetEpochInfo(c.Request.Context(), epochID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, info)
}

// GetStandings 查询周期阵营战绩
// @Summary 查询阵营战绩
// @Tags Epoch
// @Produce json
// @Param epoch_id path int true "周期号"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/epoch/{epoch_id}/standings [get]
func (h *EpochHandler) GetStandings(c *gin.Context) {
	epochID, err := parseEpochID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	standings, err := h.epochManager.GetStandings(c.Request.Context(), epochID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, standings)
}

// FundPoolRequest 奖池注资请求
type FundPoolRequest struct {
	Amount int64 `json:"amount" binding:"required"`
}

// FundPool 为周期奖池注资（管理员操作）
// @Summary 奖池注资
// @Tags Admin
// @Accept json
// @Produce json
// @Security Bearer
// @Param epoch_id path int true "周期号"
// @Param request body FundPoolRequest true "注资金额"
// @Success 200 {object} SuccessResponse
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/admin/epoch/{epoch_id}/fund [post]
func (h *EpochHandler) FundPool(c *gin.Context) {
	epochID, err := parseEpochID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	var req FundPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.epochManager.FundRewardPool(c.Request.Context(), epochID, req.Amount); err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"epoch_id": epochID, "amount": req.Amount})
}

// Advance 推进周期（管理员操作）
// @Summary 推进周期
// @Tags Admin
// @Produce json
// @Security Bearer
// @Success 200 {object} SuccessResponse
// @Router /api/v1/admin/epoch/advance [post]
func (h *EpochHandler) Advance(c *gin.Context) {
	next, err := h.epochManager.Advance(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"epoch_id": next})
}

// Finalize 结算周期（管理员操作）
// @Summary 结算周期
// @Description 写入获胜阵营；并列时取编号最小的阵营
// @Tags Admin
// @Produce json
// @Security Bearer
// @Param epoch_id path int true "周期号"
// @Success 200 {object} SuccessResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /api/v1/admin/epoch/{epoch_id}/finalize [post]
func (h *EpochHandler) Finalize(c *gin.Context) {
	epochID, err := parseEpochID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	winner, err := h.epochManager.Finalize(c.Request.Context(), epochID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{"epoch_id": epochID, "winning_faction": winner})
}
