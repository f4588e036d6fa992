package routes

import (
	"cyber-shield/internal/api/controllers"
	"cyber-shield/internal/auth"
	"cyber-shield/internal/monitoring"
	"cyber-shield/internal/redis"
	"cyber-shield/internal/scheduler"
	"cyber-shield/internal/services"
)

// Controllers 包含所有API控制器实例
type Controllers struct {
	AuthController       *controllers.AuthController
	ThreatController     *controllers.ThreatController
	MonitoringController *controllers.MonitoringController
	SystemController     *controllers.SystemController
}

// SetupControllers 创建并配置所有控制器实例，redisClient和scheduler可为nil
func SetupControllers(
	userManager *auth.UserManager,
	jwtManager *auth.JWTManager,
	processor *services.ThreatProcessor,
	redisClient *redis.Client,
	scheduler *scheduler.Scheduler,
	monitor *monitoring.Monitor,
) *Controllers {
	return &Controllers{
		AuthController:       controllers.NewAuthController(userManager, jwtManager),
		ThreatController:     controllers.NewThreatController(processor),
		MonitoringController: controllers.NewMonitoringController(monitor, scheduler),
		SystemController:     controllers.NewSystemController(redisClient),
	}
}
