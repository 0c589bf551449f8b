package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/middleware"
	"github.com/kalepail/blendizzard/internal/repository"
	"github.com/kalepail/blendizzard/internal/reward"
)

// RewardHandler 奖励处理器
type RewardHandler struct {
	distributor *reward.Distributor
}

// NewRewardHandler 创建奖励处理器
func NewRewardHandler(distributor *reward.Distributor) *RewardHandler {
	return &RewardHandler{
		distributor: distributor,
	}
}

// ClaimRequest 领取奖励请求
type ClaimRequest struct {
	EpochID uint32 `json:"epoch_id"`
}

// Claim 领取周期奖励
// @Summary 领取周期奖励
// @Description 周期定局后按贡献比例领取，每玩家每周期一次；领取人取自令牌主体
// @Tags Reward
// @Accept json
// @Produce json
// @Security Bearer
// @Param request body ClaimRequest true "领取参数"
// @Success 200 {object} SuccessResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /api/v1/reward/claim [post]
func (h *RewardHandler) Claim(c *gin.Context) {
	var req ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	// 领取人只能是认证主体本人，请求体无法替他人领取
	address, ok := middleware.GetSubject(c)
	if !ok || address == "" {
		respondError(c, errors.New(errors.ErrUnauthorized, "缺少认证主体"))
		return
	}

	claim, err := h.distributor.ClaimEpochReward(c.Request.Context(), address, req.EpochID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, claim)
}

// GetClaimable 查询可领取金额
// @Summary 查询可领取金额
// @Description 任何不满足领取条件的情况都返回0
// @Tags Reward
// @Produce json
// @Param epoch_id path int true "周期号"
// @Param address path string true "玩家地址"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/reward/{epoch_id}/claimable/{address} [get]
func (h *RewardHandler) GetClaimable(c *gin.Context) {
	epochID, err := parseEpochID(c)
	if err != nil {
		respondError(c, err)
		return
	}
	address := c.Param("address")

	amount, err := h.distributor.GetClaimableAmount(c.Request.Context(), address, epochID)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"address":   address,
		"epoch_id":  epochID,
		"claimable": amount,
	})
}

// ListClaims 查询周期领取记录
// @Summary 查询周期领取记录
// @Tags Reward
// @Produce json
// @Param epoch_id path int true "周期号"
// @Param page query int false "页码"
// @Param page_size query int false "每页数量"
// @Success 200 {object} SuccessResponse
// @Router /api/v1/reward/{epoch_id}/claims [get]
func (h *RewardHandler) ListClaims(c *gin.Context) {
	epochID, err := parseEpochID(c)
	if err != nil {
		respondError(c, err)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	pagination := repository.NewPagination(page, pageSize)

	claims, err := h.distributor.ListClaims(c.Request.Context(), epochID, pagination)
	if err != nil {
		respondError(c, err)
		return
	}

	respondOK(c, gin.H{
		"claims":     claims,
		"pagination": pagination,
	})
}
