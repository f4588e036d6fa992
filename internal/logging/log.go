package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"cyber-shield/internal/threat/types"
)

// LogLevel 日志级别
type LogLevel int

const (
	// DEBUG 调试级别
	DEBUG LogLevel = iota
	// INFO 信息级别
	INFO
	// WARN 警告级别
	WARN
	// ERROR 错误级别
	ERROR
	// FATAL 致命级别
	FATAL
)

// ParseLevel 解析日志级别，未知级别返回INFO
func ParseLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return DEBUG
	case "warn", "warning":
		return WARN
	case "error":
		return ERROR
	case "fatal":
		return FATAL
	default:
		return INFO
	}
}

// Logger 日志记录器
type Logger struct {
	debugLogger  *log.Logger
	infoLogger   *log.Logger
	warnLogger   *log.Logger
	errorLogger  *log.Logger
	fatalLogger  *log.Logger
	auditLogger  *log.Logger
	level        LogLevel
	auditEnabled bool
	mu           sync.RWMutex
}

// Config 日志配置
type Config struct {
	Level        string
	Output       string
	AuditEnabled bool
	AuditOutput  string
}

// AuditLogEntry 审计日志条目
type AuditLogEntry struct {
	Timestamp time.Time              `json:"timestamp"`
	Level     string                 `json:"level"`
	EventType string                 `json:"event_type"`
	User      string                 `json:"user,omitempty"`
	IP        string                 `json:"ip,omitempty"`
	Action    string                 `json:"action"`
	Resource  string                 `json:"resource,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Result    string                 `json:"result"`
	Message   string                 `json:"message"`
}

// NewLogger 创建新的日志记录器
func NewLogger(config Config) *Logger {
	output := openOutput(config.Output, "log")

	var auditOutput io.Writer
	if config.AuditEnabled {
		auditOutput = openOutput(config.AuditOutput, "audit log")
	}

	return NewWriterLogger(ParseLevel(config.Level), output, auditOutput)
}

// NewWriterLogger 基于指定的输出创建日志记录器，audit为nil时关闭审计日志
func NewWriterLogger(level LogLevel, output io.Writer, audit io.Writer) *Logger {
	flags := log.Ldate | log.Ltime | log.Lmicroseconds
	logger := &Logger{
		debugLogger:  log.New(output, "[DEBUG] ", flags),
		infoLogger:   log.New(output, "[INFO]  ", flags),
		warnLogger:   log.New(output, "[WARN]  ", flags),
		errorLogger:  log.New(output, "[ERROR] ", flags),
		fatalLogger:  log.New(output, "[FATAL] ", flags),
		level:        level,
		auditEnabled: audit != nil,
	}
	if audit != nil {
		logger.auditLogger = log.New(audit, "", 0) // 审计日志使用JSON格式，不需要前缀和时间戳
	}
	return logger
}

// openOutput 打开日志输出，失败时回退到标准输出
func openOutput(path string, name string) io.Writer {
	if path == "stdout" || path == "" {
		return os.Stdout
	}
	if path == "stderr" {
		return os.Stderr
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		fmt.Printf("Failed to open %s file: %v, using stdout instead\n", name, err)
		return os.Stdout
	}
	return file
}

// SetLevel 修改日志级别，用于配置热更新
func (l *Logger) SetLevel(level LogLevel) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

func (l *Logger) enabled(level LogLevel) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level <= level
}

// Debug 记录调试日志
func (l *Logger) Debug(format string, v ...interface{}) {
	if l.enabled(DEBUG) {
		l.debugLogger.Printf(format, v...)
	}
}

// Info 记录信息日志
func (l *Logger) Info(format string, v ...interface{}) {
	if l.enabled(INFO) {
		l.infoLogger.Printf(format, v...)
	}
}

// Warn 记录警告日志
func (l *Logger) Warn(format string, v ...interface{}) {
	if l.enabled(WARN) {
		l.warnLogger.Printf(format, v...)
	}
}

// Error 记录错误日志
func (l *Logger) Error(format string, v ...interface{}) {
	if l.enabled(ERROR) {
		l.errorLogger.Printf(format, v...)
	}
}

// Fatal 记录致命日志并退出程序
func (l *Logger) Fatal(format string, v ...interface{}) {
	l.fatalLogger.Printf(format, v...)
	os.Exit(1)
}

// Audit 记录审计日志
func (l *Logger) Audit(entry AuditLogEntry) {
	if !l.auditEnabled {
		return
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	jsonData, err := json.Marshal(entry)
	if err != nil {
		l.Error("Failed to marshal audit log: %v", err)
		return
	}

	l.auditLogger.Println(string(jsonData))
}

// LogSecurityEvent 记录安全事件
func (l *Logger) LogSecurityEvent(eventType string, ip string, details map[string]interface{}, result string, message string) {
	l.Audit(AuditLogEntry{
		Level:     "SECURITY",
		EventType: eventType,
		IP:        ip,
		Action:    "security_event",
		Details:   details,
		Result:    result,
		Message:   message,
	})
}

// LogAdminAction 记录管理员操作
func (l *Logger) LogAdminAction(user string, ip string, action string, resource string, details map[string]interface{}, result string, message string) {
	l.Audit(AuditLogEntry{
		Level:     "ADMIN",
		EventType: "admin_action",
		User:      user,
		IP:        ip,
		Action:    action,
		Resource:  resource,
		Details:   details,
		Result:    result,
		Message:   message,
	})
}

// LogThreatDetection 记录威胁检测结果
func (l *Logger) LogThreatDetection(threat *types.Threat, result string) {
	if threat == nil {
		return
	}
	l.Audit(AuditLogEntry{
		Timestamp: threat.Timestamp,
		Level:     "THREAT",
		EventType: "threat_detection",
		Action:    "detect_threat",
		Resource:  threat.ID,
		Details: map[string]interface{}{
			"type":       threat.Type,
			"source":     threat.Source,
			"severity":   threat.Severity,
			"confidence": threat.Confidence,
			"risk_score": threat.RiskScore,
			"indicators": threat.Indicators,
		},
		Result:  result,
		Message: threat.Description,
	})
	l.Info("Threat detected: %s (%s) from %s, confidence: %d%%, result: %s",
		threat.Type, threat.Severity, threat.Source, threat.Confidence, result)
}

// LoggerInterface 日志接口
type LoggerInterface interface {
	Debug(format string, v ...interface{})
	Info(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Error(format string, v ...interface{})
	Fatal(format string, v ...interface{})
	Audit(entry AuditLogEntry)
	LogSecurityEvent(eventType string, ip string, details map[string]interface{}, result string, message string)
	LogAdminAction(user string, ip string, action string, resource string, details map[string]interface{}, result string, message string)
	LogThreatDetection(threat *types.Threat, result string)
}

// DefaultLogger 默认日志记录器
var DefaultLogger *Logger

func init() {
	DefaultLogger = NewLogger(Config{
		Level:        "info",
		Output:       "stdout",
		AuditEnabled: true,
		AuditOutput:  "stdout",
	})
}
