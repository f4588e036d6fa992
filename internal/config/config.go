package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"cyber-shield/internal/threat"
	"cyber-shield/internal/threat/detectors"
	"cyber-shield/internal/threat/types"
)

// ConfigChangeHandler 配置变化处理函数
type ConfigChangeHandler func(*Config)

// ConfigManager 配置管理器，用于管理配置和热重载
type ConfigManager struct {
	mutex          sync.RWMutex
	config         *Config
	configPath     string
	handlers       []ConfigChangeHandler
	lastModified   time.Time
	watcherRunning bool
	closeChan      chan struct{}
	pollInterval   time.Duration
}

var (
	instance *ConfigManager
	once     sync.Once
)

// Config 应用全局配置
type Config struct {
	// 服务器配置
	Server ServerConfig `yaml:"server" json:"server"`
	// 威胁分析引擎配置
	Engine EngineConfig `yaml:"engine" json:"engine"`
	// 存储配置
	Storage StorageConfig `yaml:"storage" json:"storage"`
	// 缓存配置
	Cache CacheConfig `yaml:"cache" json:"cache"`
	// 告警配置
	Alerts AlertsConfig `yaml:"alerts" json:"alerts"`
	// 监控配置
	Monitoring MonitoringConfig `yaml:"monitoring" json:"monitoring"`
	// 认证配置
	Auth AuthConfig `yaml:"auth" json:"auth"`
	// 定时任务配置
	Scheduler SchedulerConfig `yaml:"scheduler" json:"scheduler"`
	// 地理位置配置
	GeoIP GeoIPConfig `yaml:"geoip" json:"geoip"`
	// 日志配置
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Address   string          `yaml:"address" json:"address"`
	Port      int             `yaml:"port" json:"port"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	TLS       TLSConfig       `yaml:"tls" json:"tls"`
}

// TLSConfig HTTPS证书配置
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	CertFile string `yaml:"cert_file" json:"cert_file"`
	KeyFile  string `yaml:"key_file" json:"key_file"`
}

// RateLimitConfig 频率限制配置
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled" json:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
	Burst             int     `yaml:"burst" json:"burst"`
}

// EngineConfig 威胁分析引擎配置
type EngineConfig struct {
	ConfidenceThreshold    int      `yaml:"confidence_threshold" json:"confidence_threshold"`
	KnownAddresses         []string `yaml:"known_addresses" json:"known_addresses"` // 可信登录地址，支持CIDR
	CaseInsensitiveSubject bool     `yaml:"case_insensitive_subject" json:"case_insensitive_subject"`
	ConfidenceNoise        float64  `yaml:"confidence_noise" json:"confidence_noise"`
	LikelihoodNoise        float64  `yaml:"likelihood_noise" json:"likelihood_noise"`
	Workers                int      `yaml:"workers" json:"workers"`
	MinLatencyMs           int      `yaml:"min_latency_ms" json:"min_latency_ms"` // 模拟分析延迟（毫秒）
	MaxLatencyMs           int      `yaml:"max_latency_ms" json:"max_latency_ms"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	Type        string `yaml:"type" json:"type"` // memory, redis, postgres
	PostgresURL string `yaml:"postgres_url" json:"-"`
	MemorySize  int    `yaml:"memory_size" json:"memory_size"` // 保留的历史记录条数

	// RecordTTL redis中单条威胁记录的过期时间，0表示永不过期
	RecordTTL time.Duration `yaml:"record_ttl" json:"record_ttl"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	RedisURL string `yaml:"redis_url" json:"-"`
}

// AlertsConfig 告警发布配置
type AlertsConfig struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	Channel     string `yaml:"channel" json:"channel"`
	MinSeverity string `yaml:"min_severity" json:"min_severity"`
}

// MonitoringConfig 监控配置
type MonitoringConfig struct {
	Enabled           bool   `yaml:"enabled" json:"enabled"`
	PrometheusAddress string `yaml:"prometheus_address" json:"prometheus_address"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	SecretKey  string        `yaml:"secret_key" json:"-"`
	ExpireTime time.Duration `yaml:"expire_time" json:"expire_time"`
	DataDir    string        `yaml:"data_dir" json:"data_dir"`
}

// SchedulerConfig 定时分析配置
type SchedulerConfig struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Schedule string `yaml:"schedule" json:"schedule"`   // 支持秒级的cron表达式
	FeedPath string `yaml:"feed_path" json:"feed_path"` // 为空时使用内置样例日志
}

// GeoIPConfig 地理位置解析配置
type GeoIPConfig struct {
	Enabled      bool   `yaml:"enabled" json:"enabled"`
	DatabasePath string `yaml:"database_path" json:"database_path"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level        string `yaml:"level" json:"level"`
	Output       string `yaml:"output" json:"output"`
	AuditEnabled bool   `yaml:"audit_enabled" json:"audit_enabled"`
	AuditOutput  string `yaml:"audit_output" json:"audit_output"`
}

// ToEngineConfig 转换为威胁分析引擎配置
func (c EngineConfig) ToEngineConfig() threat.Config {
	return threat.Config{
		ConfidenceThreshold:    c.ConfidenceThreshold,
		KnownAddresses:         c.KnownAddresses,
		CaseInsensitiveSubject: c.CaseInsensitiveSubject,
		ConfidenceNoise:        c.ConfidenceNoise,
		LikelihoodNoise:        c.LikelihoodNoise,
		Workers:                c.Workers,
		MinLatency:             time.Duration(c.MinLatencyMs) * time.Millisecond,
		MaxLatency:             time.Duration(c.MaxLatencyMs) * time.Millisecond,
	}
}

// ConfigManagerInterface 配置管理器接口
type ConfigManagerInterface interface {
	GetConfig() *Config
	AddConfigChangeHandler(handler ConfigChangeHandler)
	StartWatching() error
	StopWatching()
}

// GetInstance 获取配置管理器实例
func GetInstance() *ConfigManager {
	once.Do(func() {
		instance = &ConfigManager{
			config:       defaultConfig(),
			closeChan:    make(chan struct{}),
			pollInterval: 5 * time.Second,
		}
	})
	return instance
}

// LoadConfig 从环境变量和YAML配置文件加载配置
func LoadConfig(configPath string) (*Config, error) {
	cfg, err := readConfig(configPath)
	if err != nil {
		return nil, err
	}

	manager := GetInstance()
	manager.mutex.Lock()
	defer manager.mutex.Unlock()

	manager.configPath = configPath
	if configPath != "" {
		if info, err := os.Stat(configPath); err == nil {
			manager.lastModified = info.ModTime()
		}
	}
	manager.config = cfg

	return cfg, nil
}

// readConfig 读取并校验配置，不修改管理器状态
func readConfig(configPath string) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(file, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	// 环境变量覆盖文件配置
	loadFromEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", cfg.Server.Port)
	}
	if cfg.Server.TLS.Enabled && (cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "") {
		return fmt.Errorf("tls requires cert_file and key_file")
	}

	e := cfg.Engine
	// 引擎把0视为未设置并回退到默认门限，这里直接拒绝
	if e.ConfidenceThreshold < 1 || e.ConfidenceThreshold > 100 {
		return fmt.Errorf("confidence_threshold must be between 1 and 100, got %d", e.ConfidenceThreshold)
	}
	if e.ConfidenceNoise < 0 || e.LikelihoodNoise < 0 {
		return fmt.Errorf("noise values must not be negative")
	}
	if e.MinLatencyMs < 0 || e.MaxLatencyMs < e.MinLatencyMs {
		return fmt.Errorf("invalid latency range: %d..%d ms", e.MinLatencyMs, e.MaxLatencyMs)
	}
	for _, addr := range e.KnownAddresses {
		if _, err := detectors.ParseAddress(addr); err != nil {
			return fmt.Errorf("invalid known address: %w", err)
		}
	}

	switch cfg.Storage.Type {
	case "memory", "redis":
	case "postgres":
		if cfg.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres storage requires postgres_url")
		}
	default:
		return fmt.Errorf("unknown storage type: %q", cfg.Storage.Type)
	}
	if cfg.Storage.RecordTTL < 0 {
		return fmt.Errorf("storage record_ttl must not be negative")
	}
	if cfg.Storage.MemorySize <= 0 {
		return fmt.Errorf("memory_size must be positive")
	}

	if cfg.Alerts.Enabled {
		if _, ok := types.ParseSeverity(cfg.Alerts.MinSeverity); !ok {
			return fmt.Errorf("unknown alert severity: %q", cfg.Alerts.MinSeverity)
		}
		if cfg.Alerts.Channel == "" {
			return fmt.Errorf("alerts channel must not be empty")
		}
	}

	if cfg.Auth.ExpireTime <= 0 {
		return fmt.Errorf("auth expire_time must be positive")
	}

	if cfg.Scheduler.Enabled && cfg.Scheduler.Schedule == "" {
		return fmt.Errorf("scheduler requires a schedule")
	}
	return nil
}

// GetConfig 获取当前配置
func (cm *ConfigManager) GetConfig() *Config {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()
	return cm.config
}

// AddConfigChangeHandler 添加配置变化处理函数
func (cm *ConfigManager) AddConfigChangeHandler(handler ConfigChangeHandler) {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()
	cm.handlers = append(cm.handlers, handler)
}

// StartWatching 开始监控配置文件变化
func (cm *ConfigManager) StartWatching() error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.configPath == "" {
		return nil // 没有配置文件，无需监控
	}

	if cm.watcherRunning {
		return nil
	}

	cm.watcherRunning = true
	go cm.watchConfig(cm.closeChan)
	return nil
}

// StopWatching 停止监控配置文件变化
func (cm *ConfigManager) StopWatching() {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if !cm.watcherRunning {
		return
	}

	cm.watcherRunning = false
	close(cm.closeChan)
	cm.closeChan = make(chan struct{})
}

// watchConfig 监控配置文件变化
func (cm *ConfigManager) watchConfig(closeChan chan struct{}) {
	ticker := time.NewTicker(cm.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			cm.checkAndReload()
		case <-closeChan:
			return
		}
	}
}

// checkAndReload 检查配置文件是否变化，如果变化则重新加载
func (cm *ConfigManager) checkAndReload() bool {
	cm.mutex.RLock()
	configPath := cm.configPath
	lastModified := cm.lastModified
	cm.mutex.RUnlock()

	if configPath == "" {
		return false
	}

	info, err := os.Stat(configPath)
	if err != nil || !info.ModTime().After(lastModified) {
		return false
	}

	return cm.reloadConfig(info.ModTime())
}

// reloadConfig 重新加载配置，新配置校验失败时保留旧配置
func (cm *ConfigManager) reloadConfig(modTime time.Time) bool {
	cfg, err := readConfig(cm.configPath)

	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	// 无论成功与否都记录修改时间，避免反复加载同一份错误配置
	cm.lastModified = modTime
	if err != nil {
		return false
	}

	cm.config = cfg
	for _, handler := range cm.handlers {
		go handler(cfg) // 异步调用，避免阻塞
	}
	return true
}

// defaultConfig 创建默认配置
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Address: "0.0.0.0",
			Port:    8080,
			RateLimit: RateLimitConfig{
				Enabled:           true,
				RequestsPerSecond: 20,
				Burst:             40,
			},
		},
		Engine: EngineConfig{
			ConfidenceThreshold:    threat.DefaultConfidenceThreshold,
			KnownAddresses:         []string{detectors.DefaultKnownAddress},
			CaseInsensitiveSubject: true,
			ConfidenceNoise:        10,
			LikelihoodNoise:        20,
			Workers:                4,
			MinLatencyMs:           0,
			MaxLatencyMs:           0,
		},
		Storage: StorageConfig{
			Type:        "memory",
			PostgresURL: "",
			MemorySize:  1000,
		},
		Cache: CacheConfig{
			RedisURL: "localhost:6379",
		},
		Alerts: AlertsConfig{
			Enabled:     false,
			Channel:     "cybershield:alerts",
			MinSeverity: string(types.SeverityHigh),
		},
		Monitoring: MonitoringConfig{
			Enabled:           true,
			PrometheusAddress: ":9090",
		},
		Auth: AuthConfig{
			SecretKey:  "change-me",
			ExpireTime: 24 * time.Hour,
			DataDir:    "./data",
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,
			Schedule: "0 */5 * * * *", // 每5分钟
			FeedPath: "",
		},
		GeoIP: GeoIPConfig{
			Enabled:      false,
			DatabasePath: "./data/GeoLite2-Country.mmdb",
		},
		Logging: LoggingConfig{
			Level:        "info",
			Output:       "stdout",
			AuditEnabled: true,
			AuditOutput:  "stdout",
		},
	}
}

// loadFromEnv 从环境变量加载配置，覆盖现有配置
func loadFromEnv(cfg *Config) {
	// 服务器配置
	cfg.Server.Address = getEnv("SERVER_ADDRESS", cfg.Server.Address)
	cfg.Server.Port = getEnvAsInt("SERVER_PORT", cfg.Server.Port)
	cfg.Server.RateLimit.Enabled = getEnvAsBool("SERVER_RATE_LIMIT_ENABLED", cfg.Server.RateLimit.Enabled)
	cfg.Server.TLS.Enabled = getEnvAsBool("SERVER_TLS_ENABLED", cfg.Server.TLS.Enabled)
	cfg.Server.TLS.CertFile = getEnv("SERVER_TLS_CERT_FILE", cfg.Server.TLS.CertFile)
	cfg.Server.TLS.KeyFile = getEnv("SERVER_TLS_KEY_FILE", cfg.Server.TLS.KeyFile)

	// 引擎配置
	cfg.Engine.ConfidenceThreshold = getEnvAsInt("ENGINE_CONFIDENCE_THRESHOLD", cfg.Engine.ConfidenceThreshold)
	cfg.Engine.CaseInsensitiveSubject = getEnvAsBool("ENGINE_CASE_INSENSITIVE_SUBJECT", cfg.Engine.CaseInsensitiveSubject)
	cfg.Engine.ConfidenceNoise = getEnvAsFloat("ENGINE_CONFIDENCE_NOISE", cfg.Engine.ConfidenceNoise)
	cfg.Engine.LikelihoodNoise = getEnvAsFloat("ENGINE_LIKELIHOOD_NOISE", cfg.Engine.LikelihoodNoise)
	cfg.Engine.Workers = getEnvAsInt("ENGINE_WORKERS", cfg.Engine.Workers)
	if addrs := getEnv("ENGINE_KNOWN_ADDRESSES", ""); addrs != "" {
		cfg.Engine.KnownAddresses = splitList(addrs)
	}

	// 存储配置
	cfg.Storage.Type = getEnv("STORAGE_TYPE", cfg.Storage.Type)
	cfg.Storage.PostgresURL = getEnv("STORAGE_POSTGRES_URL", cfg.Storage.PostgresURL)
	cfg.Storage.MemorySize = getEnvAsInt("STORAGE_MEMORY_SIZE", cfg.Storage.MemorySize)
	cfg.Storage.RecordTTL = getEnvAsDuration("STORAGE_RECORD_TTL", cfg.Storage.RecordTTL)

	// 缓存配置
	cfg.Cache.RedisURL = getEnv("CACHE_REDIS_URL", cfg.Cache.RedisURL)

	// 告警配置
	cfg.Alerts.Enabled = getEnvAsBool("ALERTS_ENABLED", cfg.Alerts.Enabled)
	cfg.Alerts.MinSeverity = getEnv("ALERTS_MIN_SEVERITY", cfg.Alerts.MinSeverity)

	// 监控配置
	cfg.Monitoring.Enabled = getEnvAsBool("MONITORING_ENABLED", cfg.Monitoring.Enabled)
	cfg.Monitoring.PrometheusAddress = getEnv("MONITORING_PROMETHEUS_ADDRESS", cfg.Monitoring.PrometheusAddress)

	// 认证配置
	cfg.Auth.SecretKey = getEnv("AUTH_SECRET_KEY", cfg.Auth.SecretKey)
	cfg.Auth.DataDir = getEnv("AUTH_DATA_DIR", cfg.Auth.DataDir)

	// 定时任务配置
	cfg.Scheduler.Enabled = getEnvAsBool("SCHEDULER_ENABLED", cfg.Scheduler.Enabled)
	cfg.Scheduler.FeedPath = getEnv("SCHEDULER_FEED_PATH", cfg.Scheduler.FeedPath)

	// 地理位置配置
	cfg.GeoIP.Enabled = getEnvAsBool("GEOIP_ENABLED", cfg.GeoIP.Enabled)
	cfg.GeoIP.DatabasePath = getEnv("GEOIP_DATABASE_PATH", cfg.GeoIP.DatabasePath)

	// 日志配置
	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Output = getEnv("LOG_OUTPUT", cfg.Logging.Output)
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt 获取环境变量并转换为整数，如果不存在或转换失败则返回默认值
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration 获取环境变量并解析为时间间隔，如果不存在或解析失败则返回默认值
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsBool 获取环境变量并转换为布尔值，如果不存在或转换失败则返回默认值
func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsFloat 获取环境变量并转换为float64类型，如果不存在或转换失败则返回默认值
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// splitList 按逗号拆分列表并去除空白
func splitList(value string) []string {
	parts := strings.Split(value, ",")
	list := make([]string, 0, len(parts))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	return list
}
