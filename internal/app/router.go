package app

import (
	"skillforge_backend/internal/config"
	"skillforge_backend/internal/middleware"
	"skillforge_backend/internal/model"
	"skillforge_backend/pkg/monitoring"
	"skillforge_backend/pkg/security"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		a.registerCandidateRoutes(authGroup, c, cfg)
	}

	// 3. 管理员相关接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/skills/available", c.skill.Available)
	}
}

func (a *App) registerCandidateRoutes(rg *gin.RouterGroup, c *controllers, cfg *config.Config) {
	// 技能测评
	rg.POST("/assessments", c.assessment.Start)
	rg.GET("/assessments/:id", c.assessment.GetState)
	rg.POST("/assessments/:id/response", c.assessment.SubmitAnswer)

	// 行为遥测，单独限流
	rg.POST("/v1/telemetry/ingest",
		security.RateLimiter(cfg.RateLimit.TelemetryMaxRequests, rateWindow(cfg)),
		c.telemetry.Ingest)

	// 徽章
	rg.POST("/badges/issue", c.badge.Issue)
	rg.GET("/badges", c.badge.List)
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin, model.Reviewer))
	{
		admin.GET("/integrity/:sessionId", c.integrity.GetVerdict)
	}
}
