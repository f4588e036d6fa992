package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"cyber-shield/internal/auth"
	"cyber-shield/internal/logging"
)

// AuthController 认证控制器
type AuthController struct {
	userManager *auth.UserManager
	jwtManager  *auth.JWTManager
}

// NewAuthController 创建认证控制器实例
func NewAuthController(userManager *auth.UserManager, jwtManager *auth.JWTManager) *AuthController {
	return &AuthController{
		userManager: userManager,
		jwtManager:  jwtManager,
	}
}

// CheckFirstRun 检查是否是首次运行
func (c *AuthController) CheckFirstRun(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data": gin.H{
			"isFirstRun": c.userManager.IsFirstRun(),
		},
	})
}

// Login 用户登录，首次登录时创建管理员账号
func (c *AuthController) Login(ctx *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "Invalid request"})
		return
	}

	var user *auth.User
	var err error
	action := "login"

	if c.userManager.IsFirstRun() {
		action = "initialize"
		user, err = c.userManager.CreateUser(req.Username, req.Password)
		if err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, auth.ErrWeakPassword) || errors.Is(err, auth.ErrInvalidCredentials) {
				status = http.StatusBadRequest
			}
			ctx.JSON(status, gin.H{
				"code":    status,
				"message": "Failed to create user: " + err.Error(),
			})
			return
		}
	} else {
		user, err = c.userManager.AuthenticateUser(req.Username, req.Password)
		if err != nil {
			logging.DefaultLogger.LogAdminAction(req.Username, ctx.ClientIP(), action, "session", nil, "failure", "Invalid username or password")
			ctx.JSON(http.StatusUnauthorized, gin.H{
				"code":    http.StatusUnauthorized,
				"message": "Invalid username or password",
			})
			return
		}
	}

	token, err := c.jwtManager.GenerateToken(user.ID, user.Username)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to generate token",
		})
		return
	}

	logging.DefaultLogger.LogAdminAction(user.Username, ctx.ClientIP(), action, "session", nil, "success", "Login successful")
	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Login successful",
		"data": gin.H{
			"token":    token,
			"username": user.Username,
		},
	})
}

// Logout 用户退出登录，携带有效令牌时将其注销
func (c *AuthController) Logout(ctx *gin.Context) {
	header := ctx.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		claims, err := c.jwtManager.ValidateToken(ctx.Request.Context(), token)
		if err == nil {
			if err := c.jwtManager.RevokeToken(ctx.Request.Context(), claims); err != nil {
				ctx.JSON(http.StatusInternalServerError, gin.H{
					"code":    http.StatusInternalServerError,
					"message": "Failed to revoke token",
				})
				return
			}
			logging.DefaultLogger.LogAdminAction(claims.Username, ctx.ClientIP(), "logout", "session", nil, "success", "Token revoked")
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "Logout successful",
	})
}
