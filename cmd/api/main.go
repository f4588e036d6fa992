package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"cyber-shield/internal/api/routes"
	"cyber-shield/internal/auth"
	"cyber-shield/internal/config"
	"cyber-shield/internal/db"
	"cyber-shield/internal/logging"
	"cyber-shield/internal/monitoring"
	"cyber-shield/internal/redis"
	"cyber-shield/internal/repository"
	"cyber-shield/internal/scheduler"
	"cyber-shield/internal/services"
	"cyber-shield/internal/ssl/cert"
	"cyber-shield/internal/threat"
)

// shutdownTimeout 优雅关闭的最长等待时间
const shutdownTimeout = 10 * time.Second

func main() {
	// 解析命令行参数
	var configPath string
	flag.StringVar(&configPath, "config", "", "Path to the YAML configuration file")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := logging.NewLogger(logging.Config{
		Level:        cfg.Logging.Level,
		Output:       cfg.Logging.Output,
		AuditEnabled: cfg.Logging.AuditEnabled,
		AuditOutput:  cfg.Logging.AuditOutput,
	})
	logging.DefaultLogger = logger
	if logging.ParseLevel(cfg.Logging.Level) != logging.DEBUG {
		gin.SetMode(gin.ReleaseMode)
	}

	// 启动配置文件监控
	configManager := config.GetInstance()
	if err := configManager.StartWatching(); err != nil {
		logger.Warn("Failed to start config watching: %v", err)
	}
	configManager.AddConfigChangeHandler(func(newConfig *config.Config) {
		logger.SetLevel(logging.ParseLevel(newConfig.Logging.Level))
		logger.LogAdminAction("system", "localhost", "config_update", "global_config", map[string]interface{}{"source": "config_file"}, "success", "Configuration updated from file")
		logger.Info("Config updated, log level is now %s", newConfig.Logging.Level)
	})
	defer configManager.StopWatching()

	// 初始化威胁分析引擎
	engine, err := threat.NewEngine(cfg.Engine.ToEngineConfig(), threat.WithLogger(logger))
	if err != nil {
		logger.Fatal("Failed to initialize threat engine: %v", err)
	}

	// 存储或告警需要Redis时建立连接
	var redisClient *redis.Client
	if cfg.Storage.Type == "redis" || cfg.Alerts.Enabled {
		redisClient, err = redis.NewClient(cfg.Cache.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		logger.Info("Connected to redis at %s", cfg.Cache.RedisURL)
	}

	repo, err := repository.New(cfg, redisClient)
	if err != nil {
		logger.Fatal("Failed to initialize %s storage: %v", cfg.Storage.Type, err)
	}
	defer db.Close()

	monitor := monitoring.NewMonitor(monitoring.Config{
		Enabled:           cfg.Monitoring.Enabled,
		PrometheusAddress: cfg.Monitoring.PrometheusAddress,
	})
	if err := monitor.Start(); err != nil {
		logger.Error("Failed to start monitoring: %v", err)
	}

	options := []services.ProcessorOption{services.WithMonitor(monitor)}

	if cfg.GeoIP.Enabled {
		geoIP, err := services.NewGeoIPService(cfg.GeoIP.DatabasePath)
		if err != nil {
			logger.Warn("GeoIP disabled: %v", err)
		} else {
			defer geoIP.Close()
			options = append(options, services.WithGeoIP(geoIP))
		}
	}

	if cfg.Alerts.Enabled {
		subscriber := redis.NewSubscriber(redisClient.GetRawClient())
		notifier, err := services.NewAlertNotifier(subscriber, cfg.Alerts.Channel, cfg.Alerts.MinSeverity)
		if err != nil {
			logger.Fatal("Failed to initialize alerts: %v", err)
		}
		subscriber.AddHandler(notifier.Channel(), services.NewAuditAlertHandler(logger))
		if err := subscriber.Start(); err != nil {
			logger.Error("Failed to subscribe to %s: %v", notifier.Channel(), err)
		} else {
			defer subscriber.Stop()
		}
		options = append(options, services.WithAlerts(notifier))
	}

	processor := services.NewThreatProcessor(engine, repo, options...)

	// 定时分析日志源
	var analysisScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		analysisScheduler = scheduler.NewScheduler(cfg.Scheduler, processor)
		if err := analysisScheduler.Start(); err != nil {
			logger.Fatal("Failed to start scheduler: %v", err)
		}
		defer analysisScheduler.Stop()
	}

	// 初始化认证模块
	userManager, err := auth.NewUserManager(cfg.Auth.DataDir)
	if err != nil {
		logger.Fatal("Failed to initialize user manager: %v", err)
	}
	var revoker auth.TokenRevoker
	if redisClient != nil {
		revoker = redisClient
	}
	jwtManager := auth.NewJWTManager(&auth.JWTConfig{
		SecretKey:  cfg.Auth.SecretKey,
		ExpireTime: cfg.Auth.ExpireTime,
	}, revoker)
	if cfg.Auth.SecretKey == "change-me" {
		logger.Warn("Using the default JWT secret, set auth.secret_key before exposing the API")
	}

	controllers := routes.SetupControllers(userManager, jwtManager, processor, redisClient, analysisScheduler, monitor)
	router := routes.NewRouter(cfg, controllers, jwtManager, monitor, logger)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Address, cfg.Server.Port),
		Handler:           router.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Server.TLS.Enabled {
		certManager, err := cert.NewManager(cert.Config{
			CertFile: cfg.Server.TLS.CertFile,
			KeyFile:  cfg.Server.TLS.KeyFile,
		})
		if err != nil {
			logger.Fatal("Failed to load TLS certificate: %v", err)
		}
		server.TLSConfig = certManager.TLSConfig()
	}

	go func() {
		var err error
		if server.TLSConfig != nil {
			logger.Info("API server starting on https://%s", server.Addr)
			err = server.ListenAndServeTLS("", "")
		} else {
			logger.Info("API server starting on http://%s", server.Addr)
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("API server failed: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("API server shutdown failed: %v", err)
	}
	if err := monitor.Stop(ctx); err != nil {
		logger.Error("Monitoring shutdown failed: %v", err)
	}
	logger.Info("Server stopped")
}
