package routes

import (
	"github.com/gin-gonic/gin"

	"cyber-shield/internal/auth"
)

// RegisterAllRoutes 注册所有API路由
func RegisterAllRoutes(ginRouter *gin.Engine, controllers *Controllers, jwtManager *auth.JWTManager) {
	apiGroup := ginRouter.Group("/api/v1")
	{
		// 认证相关API - 不需要JWT验证
		authGroup := apiGroup.Group("/auth")
		{
			authGroup.GET("/first-run", controllers.AuthController.CheckFirstRun)
			authGroup.POST("/login", controllers.AuthController.Login)
			authGroup.POST("/logout", controllers.AuthController.Logout)
		}

		// 系统相关API - 不需要JWT验证
		apiGroup.GET("/health", controllers.SystemController.Health)
		apiGroup.GET("/version", controllers.SystemController.Version)

		// 需要JWT验证的API组
		protectedGroup := apiGroup.Group("")
		protectedGroup.Use(auth.JWTAuthMiddleware(jwtManager))
		{
			protectedGroup.GET("/monitoring/stats", controllers.MonitoringController.GetStats)

			threatsGroup := protectedGroup.Group("/threats")
			{
				threatsGroup.POST("/analyze", controllers.ThreatController.Analyze)
				threatsGroup.POST("/analyze/batch", controllers.ThreatController.AnalyzeBatch)
				threatsGroup.GET("", controllers.ThreatController.List)
				threatsGroup.GET("/summary", controllers.ThreatController.Summary)
				threatsGroup.GET("/stats", controllers.ThreatController.Stats)
				threatsGroup.GET("/:id", controllers.ThreatController.Get)
			}
		}
	}
}
