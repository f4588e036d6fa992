package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 添加安全头中间件
func addSecurityHeaders(ginRouter *gin.Engine) {
	ginRouter.Use(func(c *gin.Context) {
		// 接口只返回JSON，禁止加载任何资源
		c.Header("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")

		// X-Frame-Options 头，防止Clickjacking攻击
		c.Header("X-Frame-Options", "DENY")

		// X-Content-Type-Options 头，防止MIME类型嗅探
		c.Header("X-Content-Type-Options", "nosniff")

		// Referrer-Policy 头，控制Referrer信息的发送
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")

		// Strict-Transport-Security (HSTS) 头，强制使用HTTPS
		c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

		// 分析结果不允许被中间代理缓存
		c.Header("Cache-Control", "no-store")

		c.Next()
	})
}

// 添加CORS中间件
func addCorsMiddleware(ginRouter *gin.Engine) {
	ginRouter.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})
}

// notFound 未匹配路由的统一响应
func notFound(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{
		"code":    http.StatusNotFound,
		"message": "Not Found",
		"data":    nil,
	})
}
