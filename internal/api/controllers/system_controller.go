package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cyber-shield/internal/redis"
)

// Version 服务版本
const Version = "1.0.0"

// SystemController 系统控制器
type SystemController struct {
	redisClient *redis.Client
}

// NewSystemController 创建系统控制器实例，redisClient可为nil
func NewSystemController(redisClient *redis.Client) *SystemController {
	return &SystemController{
		redisClient: redisClient,
	}
}

// Health 健康检查接口
func (c *SystemController) Health(ctx *gin.Context) {
	status := "running"
	redisStatus := "disabled"

	if c.redisClient != nil {
		if err := c.redisClient.GetRawClient().Ping(ctx.Request.Context()).Err(); err != nil {
			redisStatus = "disconnected"
			status = "degraded"
		} else {
			redisStatus = "connected"
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data": gin.H{
			"status":       status,
			"service":      "cyber-shield",
			"redis_status": redisStatus,
			"timestamp":    time.Now().Unix(),
		},
	})
}

// Version 版本信息接口
func (c *SystemController) Version(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data": gin.H{
			"version": Version,
			"name":    "cyber-shield",
		},
	})
}
