package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"cyber-shield/internal/repository"
	"cyber-shield/internal/services"
	"cyber-shield/internal/threat/types"
)

const (
	defaultListLimit = 50
	maxListLimit     = 1000
	maxBatchSize     = 1000
)

// ThreatController 威胁分析控制器
type ThreatController struct {
	processor *services.ThreatProcessor
}

// NewThreatController 创建威胁分析控制器实例
func NewThreatController(processor *services.ThreatProcessor) *ThreatController {
	return &ThreatController{processor: processor}
}

// Analyze 分析单条日志
func (c *ThreatController) Analyze(ctx *gin.Context) {
	var entry types.LogEntry
	if err := ctx.ShouldBindJSON(&entry); err != nil || entry == nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "Invalid log entry"})
		return
	}

	report, err := c.processor.Process(ctx.Request.Context(), entry)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to analyze log entry: " + err.Error(),
		})
		return
	}

	if report == nil {
		ctx.JSON(http.StatusOK, gin.H{
			"code":    200,
			"message": "no threat detected",
			"data":    nil,
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "threat detected",
		"data":    report,
	})
}

// AnalyzeBatch 批量分析日志
func (c *ThreatController) AnalyzeBatch(ctx *gin.Context) {
	var req struct {
		Entries []types.LogEntry `json:"entries"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "Invalid request"})
		return
	}
	if len(req.Entries) > maxBatchSize {
		ctx.JSON(http.StatusBadRequest, gin.H{
			"code":    http.StatusBadRequest,
			"message": fmt.Sprintf("Batch exceeds %d entries", maxBatchSize),
		})
		return
	}

	// 跳过数组中的null元素
	entries := make([]types.LogEntry, 0, len(req.Entries))
	for _, entry := range req.Entries {
		if entry != nil {
			entries = append(entries, entry)
		}
	}

	reports, summary, err := c.processor.ProcessBatch(ctx.Request.Context(), entries)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to analyze log entries: " + err.Error(),
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data": gin.H{
			"results": reports,
			"summary": summary,
		},
	})
}

// List 获取最近的威胁记录
func (c *ThreatController) List(ctx *gin.Context) {
	limit := defaultListLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			ctx.JSON(http.StatusBadRequest, gin.H{"code": http.StatusBadRequest, "message": "Invalid limit"})
			return
		}
		limit = min(parsed, maxListLimit)
	}

	results, err := c.processor.Recent(ctx.Request.Context(), limit)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to list threats",
		})
		return
	}
	if results == nil {
		results = []*types.AnalysisResult{}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    results,
	})
}

// Get 获取单条威胁记录
func (c *ThreatController) Get(ctx *gin.Context) {
	result, err := c.processor.Get(ctx.Request.Context(), ctx.Param("id"))
	if errors.Is(err, repository.ErrThreatNotFound) {
		ctx.JSON(http.StatusNotFound, gin.H{"code": http.StatusNotFound, "message": "Threat not found"})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to get threat",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    result,
	})
}

// Stats 返回存储后端的统计计数
func (c *ThreatController) Stats(ctx *gin.Context) {
	stats, err := c.processor.StoredStats(ctx.Request.Context())
	if errors.Is(err, services.ErrStatsUnsupported) {
		ctx.JSON(http.StatusNotImplemented, gin.H{
			"code":    http.StatusNotImplemented,
			"message": "Threat stats not supported by storage backend",
		})
		return
	}
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to get threat stats",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    stats,
	})
}

// Summary 汇总威胁记录
func (c *ThreatController) Summary(ctx *gin.Context) {
	summary, err := c.processor.Summary(ctx.Request.Context())
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{
			"code":    http.StatusInternalServerError,
			"message": "Failed to summarize threats",
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"code":    200,
		"message": "success",
		"data":    summary,
	})
}
