package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// ClaimsKey 上下文中保存令牌声明的键
const ClaimsKey = "claims"

// JWTAuthMiddleware JWT认证中间件
func JWTAuthMiddleware(jwtManager *JWTManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			abortUnauthorized(c, ErrNoAuthHeader)
			return
		}

		// 验证Authorization格式
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			abortUnauthorized(c, ErrInvalidAuthFormat)
			return
		}

		claims, err := jwtManager.ValidateToken(c.Request.Context(), parts[1])
		if err != nil {
			if errors.Is(err, ErrInvalidToken) || errors.Is(err, ErrExpiredToken) || errors.Is(err, ErrRevokedToken) {
				abortUnauthorized(c, err)
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{
				"code":    http.StatusInternalServerError,
				"message": "failed to validate token",
			})
			c.Abort()
			return
		}

		// 将用户信息存储到上下文
		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set(ClaimsKey, claims)

		c.Next()
	}
}

func abortUnauthorized(c *gin.Context, err error) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    http.StatusUnauthorized,
		"message": err.Error(),
	})
	c.Abort()
}

// ClaimsFromContext 获取认证中间件保存的令牌声明
func ClaimsFromContext(c *gin.Context) (*Claims, bool) {
	value, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := value.(*Claims)
	return claims, ok
}
