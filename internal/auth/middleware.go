package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Gin 上下文键
const (
	// ContextUserID 当前用户ID
	ContextUserID = "user_id"
	// ContextUserRole 当前用户角色
	ContextUserRole = "user_role"
)

// AuthMiddleware JWT 认证中间件
func AuthMiddleware(jwtService *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "缺少认证令牌"})
			c.Abort()
			return
		}

		token := ExtractTokenFromBearer(authHeader)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "无效的令牌格式"})
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateToken(c.Request.Context(), token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "令牌验证失败: " + err.Error()})
			c.Abort()
			return
		}

		// 确保是访问令牌
		if claims.TokenType != "access" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "令牌类型错误"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, claims.Role)

		c.Next()
	}
}

// RequireAdmin 管理员权限守卫
// 审批工作流的增删改仅管理员可操作
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(ContextUserRole) != "admin" {
			c.JSON(http.StatusForbidden, gin.H{"error": "需要管理员权限"})
			c.Abort()
			return
		}
		c.Next()
	}
}

// CurrentUserID 从 Gin 上下文获取当前用户ID
func CurrentUserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}
