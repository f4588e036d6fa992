package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"cyber-shield/internal/logging"
)

// GlobalErrorHandler 全局错误处理中间件，恢复panic并返回统一错误响应
func GlobalErrorHandler(logger logging.LoggerInterface) gin.HandlerFunc {
	if logger == nil {
		logger = logging.DefaultLogger
	}
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered on %s %s: %v\nStack: %s", c.Request.Method, c.Request.URL.Path, err, string(debug.Stack()))

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"code":    http.StatusInternalServerError,
					"message": "Internal Server Error",
					"data":    nil,
				})
			}
		}()
		c.Next()
	}
}
