package threat

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"cyber-shield/internal/threat/detectors"
	"cyber-shield/internal/threat/types"
)

// DefaultConfidenceThreshold 默认置信度门限，低于门限不产生威胁记录
const DefaultConfidenceThreshold = 30

// Detector 指标检测器接口
type Detector interface {
	Detect(entry types.LogEntry) []string
	Name() string
}

// Logger 日志接口
type Logger interface {
	Debug(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Config 威胁分析引擎配置
type Config struct {
	ConfidenceThreshold    int           // 置信度门限
	KnownAddresses         []string      // 可信登录地址，支持CIDR，nil时使用默认地址
	CaseInsensitiveSubject bool          // 邮件主题关键字匹配是否忽略大小写
	ConfidenceNoise        float64       // 置信度随机扰动上限
	LikelihoodNoise        float64       // 可能性随机扰动上限
	Workers                int           // 批量分析并发数
	MinLatency             time.Duration // 模拟分析延迟下限
	MaxLatency             time.Duration // 模拟分析延迟上限
}

// DefaultConfig 返回默认引擎配置
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold:    DefaultConfidenceThreshold,
		KnownAddresses:         []string{detectors.DefaultKnownAddress},
		CaseInsensitiveSubject: true,
		ConfidenceNoise:        10,
		LikelihoodNoise:        20,
		Workers:                runtime.NumCPU(),
	}
}

// Option 引擎选项
type Option func(*Engine)

// WithRandom 设置随机源
func WithRandom(random RandomSource) Option {
	return func(e *Engine) {
		e.random = random
	}
}

// WithClock 设置时钟
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithIDGenerator 设置威胁ID生成函数
func WithIDGenerator(newID func(time.Time) string) Option {
	return func(e *Engine) {
		e.newID = newID
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// Engine 威胁分析引擎，单次分析之间不共享状态
type Engine struct {
	config    Config
	detectors []Detector
	random    RandomSource
	now       func() time.Time
	newID     func(time.Time) string
	logger    Logger
}

// NewEngine 创建威胁分析引擎
func NewEngine(config Config, opts ...Option) (*Engine, error) {
	if config.ConfidenceThreshold <= 0 {
		config.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if config.Workers <= 0 {
		config.Workers = runtime.NumCPU()
	}
	if config.KnownAddresses == nil {
		config.KnownAddresses = []string{detectors.DefaultKnownAddress}
	}
	if config.MaxLatency < config.MinLatency {
		return nil, fmt.Errorf("max latency %s is below min latency %s", config.MaxLatency, config.MinLatency)
	}

	known, err := detectors.NewKnownAddresses(config.KnownAddresses)
	if err != nil {
		return nil, fmt.Errorf("failed to build known address set: %w", err)
	}

	e := &Engine{
		config: config,
		random: globalRandom{},
		now:    time.Now,
		newID:  newThreatID,
	}

	// 检测器顺序决定指标顺序
	e.detectors = []Detector{
		detectors.NewLoginDetector(known),
		detectors.NewFileAccessDetector(),
		detectors.NewNetworkDetector(),
		detectors.NewEmailDetector(config.CaseInsensitiveSubject),
		detectors.NewSystemDetector(),
	}

	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config 返回引擎配置
func (e *Engine) Config() Config {
	return e.config
}

// ExtractIndicators 提取日志条目的指标标签
func (e *Engine) ExtractIndicators(entry types.LogEntry) []string {
	indicators := make([]string, 0)
	for _, detector := range e.detectors {
		indicators = append(indicators, detector.Detect(entry)...)
	}
	return indicators
}

// Detect 对单条日志进行威胁判定，置信度低于门限时返回nil
func (e *Engine) Detect(entry types.LogEntry) *types.Threat {
	indicators := e.ExtractIndicators(entry)
	count := len(indicators)

	// 门限和等级使用未取整的置信度，记录中保存取整后的值
	confidence := 0.0
	if count > 0 {
		confidence = calculateConfidence(count, e.random.Float64()*e.config.ConfidenceNoise)
	}
	if confidence < float64(e.config.ConfidenceThreshold) {
		if e.logger != nil {
			e.logger.Debug("Entry below confidence threshold: indicators=%v confidence=%.2f", indicators, confidence)
		}
		return nil
	}

	threatType := classifyThreatType(indicators)
	severity := determineSeverity(count, confidence)
	now := e.now()

	source, _ := entry.String("source")
	if source == "" {
		source = "unknown"
	}

	return &types.Threat{
		ID:                 e.newID(now),
		Type:               threatType,
		Source:             source,
		Severity:           severity,
		Confidence:         int(math.Round(confidence)),
		Timestamp:          now,
		Description:        generateDescription(threatType, indicators),
		Indicators:         indicators,
		RecommendedActions: recommendedActions(threatType, severity),
		RiskScore:          calculateRiskScore(severity, confidence, count),
	}
}

// Analyze 分析单条日志，未检测到威胁时返回nil, nil
// 仅在模拟延迟期间上下文被取消时返回错误
func (e *Engine) Analyze(ctx context.Context, entry types.LogEntry) (*types.AnalysisResult, error) {
	if err := e.simulateLatency(ctx); err != nil {
		return nil, err
	}

	threat := e.Detect(entry)
	if threat == nil {
		return nil, nil
	}

	return &types.AnalysisResult{
		Threat:      threat,
		Analysis:    analyze(threat),
		Predictions: predict(threat, e.random.Float64()*e.config.LikelihoodNoise),
	}, nil
}

// AnalyzeStream 批量分析日志，结果保持输入顺序，未检测到威胁的条目不出现在结果中
func (e *Engine) AnalyzeStream(ctx context.Context, entries []types.LogEntry) ([]*types.AnalysisResult, error) {
	slots, err := e.AnalyzeEach(ctx, entries)
	if err != nil {
		return nil, err
	}

	results := make([]*types.AnalysisResult, 0, len(slots))
	for _, result := range slots {
		if result != nil {
			results = append(results, result)
		}
	}
	return results, nil
}

// AnalyzeEach 批量分析日志，返回与输入等长的结果，未检测到威胁的位置为nil
func (e *Engine) AnalyzeEach(ctx context.Context, entries []types.LogEntry) ([]*types.AnalysisResult, error) {
	slots := make([]*types.AnalysisResult, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.config.Workers)
	for i, entry := range entries {
		g.Go(func() error {
			result, err := e.Analyze(gctx, entry)
			if err != nil {
				return err
			}
			slots[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slots, nil
}

// simulateLatency 按配置等待一段随机时间
func (e *Engine) simulateLatency(ctx context.Context) error {
	if e.config.MaxLatency <= 0 {
		return ctx.Err()
	}

	delay := e.config.MinLatency
	if spread := e.config.MaxLatency - e.config.MinLatency; spread > 0 {
		delay += time.Duration(e.random.Float64() * float64(spread))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// newThreatID 生成 threat_<毫秒时间戳>_<9位随机串> 格式的ID
func newThreatID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
	return fmt.Sprintf("threat_%d_%s", now.UnixMilli(), suffix)
}
