package routes

import (
	"github.com/gin-gonic/gin"

	"cyber-shield/internal/auth"
	"cyber-shield/internal/config"
	"cyber-shield/internal/logging"
	"cyber-shield/internal/middleware"
	"cyber-shield/internal/monitoring"
)

// Router API路由器，负责组装中间件并注册所有API路由
type Router struct {
	controllers *Controllers
	jwtManager  *auth.JWTManager
	monitor     *monitoring.Monitor
	limiter     *middleware.RateLimiter
	logger      logging.LoggerInterface
}

// NewRouter 创建API路由器实例，monitor为nil时不记录请求指标
func NewRouter(cfg *config.Config, controllers *Controllers, jwtManager *auth.JWTManager, monitor *monitoring.Monitor, logger logging.LoggerInterface) *Router {
	r := &Router{
		controllers: controllers,
		jwtManager:  jwtManager,
		monitor:     monitor,
		logger:      logger,
	}
	if cfg.Server.RateLimit.Enabled {
		r.limiter = middleware.NewRateLimiter(cfg.Server.RateLimit.RequestsPerSecond, cfg.Server.RateLimit.Burst)
	}
	return r
}

// Engine 创建gin引擎并注册路由
func (r *Router) Engine() *gin.Engine {
	ginRouter := gin.New()
	ginRouter.Use(middleware.GlobalErrorHandler(r.logger))
	r.RegisterRoutes(ginRouter)
	return ginRouter
}

// RegisterRoutes 在已有引擎上注册中间件和所有API路由
func (r *Router) RegisterRoutes(ginRouter *gin.Engine) {
	if r.monitor != nil {
		ginRouter.Use(middleware.RequestMetrics(r.monitor))
	}
	addSecurityHeaders(ginRouter)
	addCorsMiddleware(ginRouter)
	if r.limiter != nil {
		ginRouter.Use(r.limiter.Middleware())
	}

	RegisterAllRoutes(ginRouter, r.controllers, r.jwtManager)
	ginRouter.NoRoute(notFound)
}
