package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kalepail/blendizzard/internal/errors"
)

// SuccessResponse API成功响应结构
type SuccessResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// respondOK 写成功响应
func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, SuccessResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}

// respondError 按错误码写错误响应
func respondError(c *gin.Context, err error) {
	appErr, ok := err.(*errors.AppError)
	if !ok {
		appErr = errors.Wrap(err, errors.ErrUnknown)
	}
	c.JSON(appErr.HTTPStatus(), errors.NewErrorResponse(appErr, c.GetHeader("X-Request-ID")))
}

// respondBadRequest 写参数错误响应
func respondBadRequest(c *gin.Context, err error) {
	respondError(c, errors.Wrap(err, errors.ErrInvalidParam))
}
