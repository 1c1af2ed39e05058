package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-performance-api/internal/handler"
	"github.com/noah-isme/sma-performance-api/internal/middleware"
	"github.com/noah-isme/sma-performance-api/internal/models"
	"github.com/noah-isme/sma-performance-api/internal/service"
	"github.com/noah-isme/sma-performance-api/pkg/config"
	"github.com/noah-isme/sma-performance-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-performance-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-performance-api/pkg/middleware/requestid"
)

type routeHandlers struct {
	auth        *handler.AuthHandler
	grading     *handler.GradingHandler
	performance *handler.PerformanceHandler
	exports     *handler.ExportHandler
	metrics     *handler.MetricsHandler
}

func newRouter(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, tokens middleware.TokenValidator, h routeHandlers) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.metrics.Health)
	r.GET("/ready", h.metrics.Ready)
	r.GET("/metrics", h.metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.POST("/auth/login", h.auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(tokens))

	staff := middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher)

	grading := secured.Group("/grading")
	grading.GET("/schemes", h.grading.Schemes)
	grading.GET("/policy", h.grading.Policy)
	grading.PUT("/policy", middleware.RequireRoles(models.RoleAdmin), h.grading.UpdatePolicy)

	secured.GET("/metrics/system", middleware.RequireRoles(models.RoleAdmin), h.metrics.System)

	perf := secured.Group("/performance")
	perf.Use(middleware.FeatureFlag(cfg.Performance.Enabled))
	perf.GET("/students/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), middleware.RoleSelf), h.performance.Student)
	perf.GET("/cohorts", staff, h.performance.Cohort)
	perf.GET("/attendance", staff, h.performance.Attendance)
	perf.GET("/attendance/students", staff, h.performance.AttendanceByStudent)
	perf.GET("/attendance/daily", staff, h.performance.DailyAttendance)
	perf.GET("/reports", staff, h.performance.Report)

	if h.exports != nil {
		perf.POST("/reports/export", staff, h.exports.Create)
		perf.GET("/reports/export/:id", staff, h.exports.Status)
		api.GET("/export/:token", h.exports.Download)
	}

	return r
}
