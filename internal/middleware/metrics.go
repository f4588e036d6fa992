package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// RequestRecorder 请求指标记录接口，由 monitoring.Monitor 实现
type RequestRecorder interface {
	RecordRequest(method, path string, status int, duration time.Duration)
}

// RequestMetrics 记录每个请求的方法、路由、状态码和耗时
func RequestMetrics(recorder RequestRecorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// 使用路由模板避免路径参数导致指标基数膨胀
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		recorder.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
