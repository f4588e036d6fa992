package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"cyber-shield/internal/monitoring"
	"cyber-shield/internal/scheduler"
)

// MonitoringController 监控控制器
type MonitoringController struct {
	monitor   *monitoring.Monitor
	scheduler *scheduler.Scheduler
}

// NewMonitoringController 创建监控控制器实例，未启用定时分析时scheduler为nil
func NewMonitoringController(monitor *monitoring.Monitor, scheduler *scheduler.Scheduler) *MonitoringController {
	return &MonitoringController{
		monitor:   monitor,
		scheduler: scheduler,
	}
}

// GetStats 获取监控统计数据
func (c *MonitoringController) GetStats(ctx *gin.Context) {
	stats := c.monitor.GetStats(ctx.Request.Context())

	if c.scheduler != nil {
		schedule := gin.H{"last_run": c.scheduler.LastRun()}
		if next, ok := c.scheduler.NextRun(); ok {
			schedule["next_run"] = next
		}
		stats["scheduler"] = schedule
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    stats,
	})
}
