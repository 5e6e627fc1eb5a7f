package middleware

import (
	"net/http"
	"strings"

	"felicidade/internal/api/auth"

	"github.com/gin-gonic/gin"
)

// TokenHeader 携带认证令牌的请求头。
const TokenHeader = "x-auth-token"

const (
	// ContextUserID 认证中间件写入上下文的用户 ID 键。
	ContextUserID = "userID"
	// ContextIsAdmin 认证中间件写入上下文的管理员标记键。
	ContextIsAdmin = "isAdmin"
)

// Auth 校验 x-auth-token 并将身份信息写入上下文。
//
// 缺少令牌返回 401，令牌非法返回 400，两者必须区分。
func Auth(jwtSecret string) gin.HandlerFunc {
	secret := []byte(jwtSecret)
	return func(c *gin.Context) {
		tokenStr := strings.TrimSpace(c.GetHeader(TokenHeader))
		if tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "access denied, no token provided"})
			c.Abort()
			return
		}

		claims, err := auth.VerifyToken(secret, tokenStr)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextIsAdmin, claims.IsAdmin)
		c.Next()
	}
}

// RequireAdmin 拒绝非管理员请求，必须在 Auth 之后使用。
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		isAdmin, ok := c.Get(ContextIsAdmin)
		if !ok || isAdmin != true {
			c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
			c.Abort()
			return
		}
		c.Next()
	}
}
