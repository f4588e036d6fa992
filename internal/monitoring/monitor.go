package monitoring

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
	"github.com/shirou/gopsutil/v4/mem"

	"cyber-shield/internal/logging"
	"cyber-shield/internal/threat/types"
)

// Metrics 监控指标
var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cybershield_http_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	responseTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cybershield_http_response_time_seconds",
			Help:    "API response time in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	analysesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cybershield_analyses_total",
			Help: "Total number of analysed log entries",
		},
	)

	threatsDetected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cybershield_threats_detected_total",
			Help: "Total number of detected threats",
		},
		[]string{"threat_type", "severity"},
	)

	gatedEntries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cybershield_gated_entries_total",
			Help: "Entries that produced no threat",
		},
	)

	alertsPublished = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cybershield_alerts_published_total",
			Help: "Total number of published alerts",
		},
	)

	analysisDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cybershield_analysis_duration_seconds",
			Help:    "Analysis time in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	riskScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cybershield_risk_score",
			Help:    "Risk score of detected threats",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)

	registerOnce sync.Once
)

// Monitor 监控管理器
type Monitor struct {
	config    Config
	mu        sync.Mutex
	isRunning bool
	server    *http.Server
	startedAt time.Time

	requests   atomic.Int64
	analyzed   atomic.Int64
	detected   atomic.Int64
	gated      atomic.Int64
	alerts     atomic.Int64
	bySeverity sync.Map // types.Severity -> *atomic.Int64
}

// Config 监控配置
type Config struct {
	Enabled           bool
	PrometheusAddress string
}

// Counters 分析计数快照
type Counters struct {
	Requests   int64            `json:"requests"`
	Analyzed   int64            `json:"analyzed"`
	Detected   int64            `json:"detected"`
	Gated      int64            `json:"gated"`
	Alerts     int64            `json:"alerts"`
	BySeverity map[string]int64 `json:"by_severity"`
}

// NewMonitor 创建新的监控管理器
func NewMonitor(config Config) *Monitor {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			requestsTotal,
			responseTime,
			analysesTotal,
			threatsDetected,
			gatedEntries,
			alertsPublished,
			analysisDuration,
			riskScore,
		)
	})
	return &Monitor{
		config:    config,
		startedAt: time.Now(),
	}
}

// Start 启动Prometheus指标服务
func (m *Monitor) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.isRunning || !m.config.Enabled {
		return nil
	}

	address := m.config.PrometheusAddress
	if address == "" {
		address = ":9090"
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	m.server = &http.Server{Addr: address, Handler: mux}

	go func(server *http.Server) {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.DefaultLogger.Error("Prometheus server failed: %v", err)
		}
	}(m.server)

	m.isRunning = true
	logging.DefaultLogger.Info("Prometheus metrics available at %s/metrics", address)
	return nil
}

// Stop 停止监控服务
func (m *Monitor) Stop(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.isRunning {
		return nil
	}

	m.isRunning = false
	return m.server.Shutdown(ctx)
}

// RecordRequest 记录API请求
func (m *Monitor) RecordRequest(method, path string, status int, duration time.Duration) {
	m.requests.Add(1)
	requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	responseTime.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordAnalysis 记录一次分析，result为nil表示未达到置信度阈值
func (m *Monitor) RecordAnalysis(result *types.AnalysisResult, duration time.Duration) {
	m.analyzed.Add(1)
	analysesTotal.Inc()
	analysisDuration.Observe(duration.Seconds())

	if result == nil || result.Threat == nil {
		m.gated.Add(1)
		gatedEntries.Inc()
		return
	}

	t := result.Threat
	m.detected.Add(1)
	m.severityCounter(t.Severity).Add(1)
	threatsDetected.WithLabelValues(string(t.Type), string(t.Severity)).Inc()
	riskScore.Observe(float64(t.RiskScore))
}

// RecordAlert 记录已发布的告警
func (m *Monitor) RecordAlert() {
	m.alerts.Add(1)
	alertsPublished.Inc()
}

func (m *Monitor) severityCounter(severity types.Severity) *atomic.Int64 {
	counter, _ := m.bySeverity.LoadOrStore(severity, new(atomic.Int64))
	return counter.(*atomic.Int64)
}

// Counters 获取分析计数
func (m *Monitor) Counters() Counters {
	counters := Counters{
		Requests:   m.requests.Load(),
		Analyzed:   m.analyzed.Load(),
		Detected:   m.detected.Load(),
		Gated:      m.gated.Load(),
		Alerts:     m.alerts.Load(),
		BySeverity: make(map[string]int64),
	}
	m.bySeverity.Range(func(key, value any) bool {
		counters.BySeverity[string(key.(types.Severity))] = value.(*atomic.Int64).Load()
		return true
	})
	return counters
}

// GetStats 获取系统状态和分析统计
func (m *Monitor) GetStats(ctx context.Context) map[string]interface{} {
	counters := m.Counters()

	elapsed := time.Since(m.startedAt).Seconds()
	requestsPerSecond := 0.0
	if elapsed > 0 {
		requestsPerSecond = float64(counters.Requests) / elapsed
	}

	stats := map[string]interface{}{
		"requestsPerSecond": requestsPerSecond,
		"goroutines":        runtime.NumGoroutine(),
		"serviceUptime":     int64(elapsed),
		"analysis":          counters,
	}

	// 系统指标采集失败时只记录日志，不影响其他数据
	if percents, err := cpu.PercentWithContext(ctx, 0, false); err == nil && len(percents) > 0 {
		stats["cpuUsage"] = percents[0]
	} else if err != nil {
		logging.DefaultLogger.Debug("Failed to read cpu usage: %v", err)
	}
	if vm, err := mem.VirtualMemoryWithContext(ctx); err == nil {
		stats["memoryUsage"] = vm.UsedPercent
	} else {
		logging.DefaultLogger.Debug("Failed to read memory usage: %v", err)
	}
	if usage, err := disk.UsageWithContext(ctx, "/"); err == nil {
		stats["diskUsage"] = usage.UsedPercent
	} else {
		logging.DefaultLogger.Debug("Failed to read disk usage: %v", err)
	}
	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		stats["hostUptime"] = uptime
	} else {
		logging.DefaultLogger.Debug("Failed to read host uptime: %v", err)
	}

	return stats
}
