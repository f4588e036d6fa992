package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"cyber-shield/internal/config"
	"cyber-shield/internal/feed"
	"cyber-shield/internal/logging"
	"cyber-shield/internal/services"
	"cyber-shield/internal/threat"
	"cyber-shield/internal/threat/types"
)

// BatchProcessor 批量分析接口，由 services.ThreatProcessor 实现
type BatchProcessor interface {
	ProcessBatch(ctx context.Context, entries []types.LogEntry) ([]*services.Report, threat.Summary, error)
}

// RunResult 一次定时分析的结果
type RunResult struct {
	StartedAt time.Time      `json:"started_at"`
	Duration  time.Duration  `json:"duration"`
	Entries   int            `json:"entries"`
	Summary   threat.Summary `json:"summary"`
	Error     string         `json:"error,omitempty"`
}

// Scheduler 定时分析日志源
type Scheduler struct {
	cron      *cron.Cron
	config    config.SchedulerConfig
	processor BatchProcessor
	loadFeed  func() ([]types.LogEntry, error)
	entryID   cron.EntryID
	runMutex  sync.Mutex // 保证同一时间只有一次分析
	mu        sync.RWMutex
	lastRun   *RunResult
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewScheduler 创建新的定时任务调度器
func NewScheduler(cfg config.SchedulerConfig, processor BatchProcessor) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		// 创建cron实例，支持秒级精度
		cron:      cron.New(cron.WithSeconds()),
		config:    cfg,
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
	s.loadFeed = s.defaultFeed
	return s
}

// defaultFeed 读取配置的日志文件，未配置时使用样例日志
func (s *Scheduler) defaultFeed() ([]types.LogEntry, error) {
	if s.config.FeedPath == "" {
		return feed.Sample(), nil
	}
	return feed.Load(s.config.FeedPath)
}

// Start 启动定时任务调度器
func (s *Scheduler) Start() error {
	entryID, err := s.cron.AddFunc(s.config.Schedule, func() {
		if _, err := s.RunOnce(s.ctx); err != nil {
			logging.DefaultLogger.Error("Scheduled analysis failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to add cron task with schedule %q: %w", s.config.Schedule, err)
	}
	s.entryID = entryID

	s.cron.Start()
	logging.DefaultLogger.Info("Scheduler started with schedule: %s", s.config.Schedule)
	return nil
}

// Stop 停止定时任务调度器，等待正在执行的任务结束
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	logging.DefaultLogger.Info("Scheduler stopped")
}

// RunOnce 立即执行一次分析，上一次分析未结束时返回错误
func (s *Scheduler) RunOnce(ctx context.Context) (*RunResult, error) {
	if !s.runMutex.TryLock() {
		return nil, fmt.Errorf("analysis is already running")
	}
	defer s.runMutex.Unlock()

	run := &RunResult{StartedAt: time.Now()}
	err := s.run(ctx, run)
	run.Duration = time.Since(run.StartedAt)
	if err != nil {
		run.Error = err.Error()
	}

	s.mu.Lock()
	s.lastRun = run
	s.mu.Unlock()

	if err != nil {
		return run, err
	}
	logging.DefaultLogger.Info("Scheduled analysis finished: %d entries, %d threats (%d critical, %d high) in %s",
		run.Entries, run.Summary.Total, run.Summary.Critical, run.Summary.High, run.Duration)
	return run, nil
}

func (s *Scheduler) run(ctx context.Context, run *RunResult) error {
	entries, err := s.loadFeed()
	if err != nil {
		return err
	}
	run.Entries = len(entries)

	_, summary, err := s.processor.ProcessBatch(ctx, entries)
	if err != nil {
		return err
	}
	run.Summary = summary
	return nil
}

// LastRun 获取最近一次分析结果
func (s *Scheduler) LastRun() *RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// NextRun 获取下次执行时间
func (s *Scheduler) NextRun() (time.Time, bool) {
	if s.entryID == 0 {
		return time.Time{}, false
	}
	entry := s.cron.Entry(s.entryID)
	if !entry.Valid() {
		return time.Time{}, false
	}
	return entry.Next, true
}
