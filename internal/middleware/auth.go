package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kalepail/blendizzard/internal/config"
	"github.com/kalepail/blendizzard/internal/errors"
	"github.com/kalepail/blendizzard/internal/utils"
)

// AuthMiddleware JWT认证中间件
type AuthMiddleware struct {
	jwtManager *utils.JWTManager
}

// NewAuthMiddleware 创建认证中间件
func NewAuthMiddleware(jwtManager *utils.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
	}
}

// RequireAuth 需要认证的中间件
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.authenticate(c)
		if !ok {
			return
		}

		m.setContext(c, claims)
		c.Next()
	}
}

// RequireRole 需要特定角色的中间件
func (m *AuthMiddleware) RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := m.authenticate(c)
		if !ok {
			return
		}

		hasRole := false
		for _, role := range roles {
			if claims.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			c.JSON(http.StatusForbidden, errors.NewErrorResponse(
				errors.New(errors.ErrNotAdmin, "权限不足"), requestID(c)))
			c.Abort()
			return
		}

		m.setContext(c, claims)
		c.Next()
	}
}

// authenticate 提取并验证令牌，失败时写响应并中止
func (m *AuthMiddleware) authenticate(c *gin.Context) (*utils.JWTClaims, bool) {
	token := m.extractToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, errors.NewErrorResponse(
			errors.New(errors.ErrTokenInvalid, "缺少认证令牌"), requestID(c)))
		c.Abort()
		return nil, false
	}

	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		code := errors.ErrTokenInvalid
		if err == utils.ErrExpiredToken {
			code = errors.ErrTokenExpired
		}
		c.JSON(http.StatusUnauthorized, errors.NewErrorResponse(errors.Wrap(err, code), requestID(c)))
		c.Abort()
		return nil, false
	}

	if claims.TokenType != "access" {
		c.JSON(http.StatusUnauthorized, errors.NewErrorResponse(
			errors.New(errors.ErrTokenInvalid, "令牌类型错误"), requestID(c)))
		c.Abort()
		return nil, false
	}

	return claims, true
}

// setContext 将身份信息存入请求上下文
func (m *AuthMiddleware) setContext(c *gin.Context, claims *utils.JWTClaims) {
	c.Set("subject", claims.Subject)
	c.Set("role", claims.Role)
}

// extractToken 从请求中提取令牌
func (m *AuthMiddleware) extractToken(c *gin.Context) string {
	// 1. 从Authorization Header获取 (Bearer Token)
	bearerToken := c.GetHeader("Authorization")
	if bearerToken != "" {
		parts := strings.Split(bearerToken, " ")
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return parts[1]
		}
	}

	// 2. 从X-Access-Token Header获取
	if token := c.GetHeader("X-Access-Token"); token != "" {
		return token
	}

	return ""
}

// GetSubject 从上下文获取认证主体（管理员用户名或游戏地址）
func GetSubject(c *gin.Context) (string, bool) {
	if subject, exists := c.Get("subject"); exists {
		if s, ok := subject.(string); ok {
			return s, true
		}
	}
	return "", false
}

// GetRole 从上下文获取角色
func GetRole(c *gin.Context) (string, bool) {
	if role, exists := c.Get("role"); exists {
		if r, ok := role.(string); ok {
			return r, true
		}
	}
	return "", false
}

// PauseGuard 全局暂停开关：暂停时拒绝所有写操作
func PauseGuard() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && config.Get().System.Paused {
			c.JSON(http.StatusServiceUnavailable, errors.NewErrorResponse(
				errors.New(errors.ErrSystemPaused), requestID(c)))
			c.Abort()
			return
		}
		c.Next()
	}
}

// requestID 读取请求标识（由接入层注入）
func requestID(c *gin.Context) string {
	return c.GetHeader("X-Request-ID")
}
