package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/zr8c/index_go_server/internal/pkg/jwt"
	"github.com/zr8c/index_go_server/internal/pkg/response"
)

const (
	UserIDKey = "userID"
	RoleKey   = "role"
)

// Auth JWT 认证中间件
func Auth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseAuthHeader(c, jwtSecret)
		if !ok {
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

// AdminAuth 管理员认证中间件，仅放行 role 为 admin 的 token
func AdminAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseAuthHeader(c, jwtSecret)
		if !ok {
			return
		}

		if claims.Role != "admin" {
			response.PermissionError(c, "需要管理员权限")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(RoleKey, claims.Role)
		c.Next()
	}
}

func parseAuthHeader(c *gin.Context, jwtSecret string) (*jwt.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		response.AuthError(c, "请提供认证信息")
		c.Abort()
		return nil, false
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	if tokenString == authHeader {
		response.AuthError(c, "认证格式错误")
		c.Abort()
		return nil, false
	}

	claims, err := jwt.ParseToken(tokenString, jwtSecret)
	if err != nil {
		response.AuthError(c, "认证失败或已过期")
		c.Abort()
		return nil, false
	}
	return claims, true
}

// GetUserID 从上下文获取用户 ID
func GetUserID(c *gin.Context) (int64, bool) {
	userID, exists := c.Get(UserIDKey)
	if !exists {
		return 0, false
	}
	id, ok := userID.(int64)
	return id, ok
}
