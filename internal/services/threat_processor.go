package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cyber-shield/internal/logging"
	"cyber-shield/internal/monitoring"
	"cyber-shield/internal/repository"
	"cyber-shield/internal/threat"
	"cyber-shield/internal/threat/types"
)

// ErrStatsUnsupported 存储后端不维护统计计数
var ErrStatsUnsupported = errors.New("storage backend does not keep threat stats")

// Analyzer 威胁分析接口，由 threat.Engine 实现
type Analyzer interface {
	Analyze(ctx context.Context, entry types.LogEntry) (*types.AnalysisResult, error)
	AnalyzeEach(ctx context.Context, entries []types.LogEntry) ([]*types.AnalysisResult, error)
}

// Locator IP地理位置查询接口
type Locator interface {
	GetLocation(ip string) (*GeoLocation, error)
}

// Report 分析结果及来源位置
type Report struct {
	*types.AnalysisResult
	Origin *GeoLocation `json:"origin,omitempty"`
}

// ProcessorOption 处理器可选项
type ProcessorOption func(*ThreatProcessor)

// WithMonitor 记录分析指标
func WithMonitor(monitor *monitoring.Monitor) ProcessorOption {
	return func(p *ThreatProcessor) {
		p.monitor = monitor
	}
}

// WithAlerts 发布高危告警
func WithAlerts(notifier *AlertNotifier) ProcessorOption {
	return func(p *ThreatProcessor) {
		p.alerts = notifier
	}
}

// WithGeoIP 为结果附加来源位置
func WithGeoIP(locator Locator) ProcessorOption {
	return func(p *ThreatProcessor) {
		p.geoIP = locator
	}
}

// ThreatProcessor 分析日志并保存、告警、记录指标
type ThreatProcessor struct {
	analyzer Analyzer
	repo     repository.ThreatRepository
	monitor  *monitoring.Monitor
	alerts   *AlertNotifier
	geoIP    Locator
}

// NewThreatProcessor 创建威胁处理器
func NewThreatProcessor(analyzer Analyzer, repo repository.ThreatRepository, opts ...ProcessorOption) *ThreatProcessor {
	p := &ThreatProcessor{
		analyzer: analyzer,
		repo:     repo,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process 分析单条日志，未检测到威胁时返回 (nil, nil)
func (p *ThreatProcessor) Process(ctx context.Context, entry types.LogEntry) (*Report, error) {
	start := time.Now()
	result, err := p.analyzer.Analyze(ctx, entry)
	if err != nil {
		return nil, err
	}
	if p.monitor != nil {
		p.monitor.RecordAnalysis(result, time.Since(start))
	}
	if result == nil {
		return nil, nil
	}

	p.handle(ctx, result)
	return p.report(result, entry), nil
}

// ProcessBatch 批量分析日志，结果保持输入顺序
func (p *ThreatProcessor) ProcessBatch(ctx context.Context, entries []types.LogEntry) ([]*Report, threat.Summary, error) {
	start := time.Now()
	slots, err := p.analyzer.AnalyzeEach(ctx, entries)
	if err != nil {
		return nil, threat.Summary{}, err
	}

	var perEntry time.Duration
	if len(entries) > 0 {
		perEntry = time.Since(start) / time.Duration(len(entries))
	}

	reports := make([]*Report, 0, len(slots))
	results := make([]*types.AnalysisResult, 0, len(slots))
	for i, result := range slots {
		if p.monitor != nil {
			p.monitor.RecordAnalysis(result, perEntry)
		}
		if result == nil {
			continue
		}
		p.handle(ctx, result)
		reports = append(reports, p.report(result, entries[i]))
		results = append(results, result)
	}
	return reports, threat.Summarize(results), nil
}

// Recent 获取最近的威胁记录
func (p *ThreatProcessor) Recent(ctx context.Context, limit int) ([]*types.AnalysisResult, error) {
	return p.repo.List(ctx, limit)
}

// Get 获取单条威胁记录
func (p *ThreatProcessor) Get(ctx context.Context, id string) (*types.AnalysisResult, error) {
	return p.repo.Get(ctx, id)
}

// Summary 汇总已保存的威胁记录
func (p *ThreatProcessor) Summary(ctx context.Context) (threat.Summary, error) {
	results, err := p.repo.List(ctx, 0)
	if err != nil {
		return threat.Summary{}, fmt.Errorf("failed to load threat history: %w", err)
	}
	return threat.Summarize(results), nil
}

// StoredStats 读取存储后端维护的统计计数
func (p *ThreatProcessor) StoredStats(ctx context.Context) (map[string]int64, error) {
	repo, ok := p.repo.(repository.StatsRepository)
	if !ok {
		return nil, ErrStatsUnsupported
	}
	stats, err := repo.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load threat stats: %w", err)
	}
	return stats, nil
}

// handle 保存结果并发布告警，失败只记录日志
func (p *ThreatProcessor) handle(ctx context.Context, result *types.AnalysisResult) {
	status := "stored"
	if err := p.repo.Save(ctx, result); err != nil {
		status = "store_failed"
		logging.DefaultLogger.Error("Failed to store threat %s: %v", result.Threat.ID, err)
	}

	if p.alerts != nil {
		published, err := p.alerts.Notify(result)
		if err != nil {
			logging.DefaultLogger.Error("Failed to publish alert: %v", err)
		} else if published {
			status += ",alerted"
			if p.monitor != nil {
				p.monitor.RecordAlert()
			}
		}
	}

	logging.DefaultLogger.LogThreatDetection(result.Threat, status)
}

// report 附加来源位置
func (p *ThreatProcessor) report(result *types.AnalysisResult, entry types.LogEntry) *Report {
	report := &Report{AnalysisResult: result}
	if p.geoIP == nil {
		return report
	}
	ip, ok := entry.String("ip")
	if !ok || ip == "" {
		return report
	}
	if location, err := p.geoIP.GetLocation(ip); err == nil {
		report.Origin = location
	}
	return report
}
