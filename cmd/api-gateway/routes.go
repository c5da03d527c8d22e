package main

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-room-schedule/internal/handler"
	"github.com/noah-isme/sma-room-schedule/internal/middleware"
	"github.com/noah-isme/sma-room-schedule/internal/models"
	"github.com/noah-isme/sma-room-schedule/internal/service"
	"github.com/noah-isme/sma-room-schedule/pkg/config"
	"github.com/noah-isme/sma-room-schedule/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-room-schedule/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/sma-room-schedule/pkg/middleware/requestid"
)

type services struct {
	schedule     *service.ScheduleService
	interactions *service.InteractionService
	auth         *service.AuthService
	metrics      *service.MetricsService
	exports      *service.ExportService
}

func newRouter(cfg *config.Config, logr *zap.Logger, svc services) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(corsmiddleware.Options{AllowedOrigins: cfg.CORS.AllowedOrigins}))
	r.Use(middleware.Metrics(svc.metrics))

	metricsHandler := handler.NewMetricsHandler(svc.metrics, svc.schedule)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	scheduleHandler := handler.NewScheduleHandler(svc.schedule)
	roomHandler := handler.NewRoomHandler(svc.schedule)
	studentHandler := handler.NewStudentHandler(svc.schedule)
	interactionHandler := handler.NewInteractionHandler(svc.interactions)
	streamHandler := handler.NewFilterStreamHandler(svc.schedule, svc.metrics, cfg.CORS.AllowedOrigins, logr)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.WithResponseMeta())
	api.GET("/metrics/summary", metricsHandler.Snapshot)

	api.GET("/schedule/status", scheduleHandler.Status)
	api.GET("/schedule/options", scheduleHandler.Options)

	admin := api.Group("/schedule")
	admin.Use(middleware.JWT(svc.auth), middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/reload", middleware.Audit(logr, "schedule.reload"), scheduleHandler.Reload)
	admin.POST("/sources", middleware.Audit(logr, "schedule.upload"), scheduleHandler.Upload)

	api.GET("/rooms", roomHandler.List)
	api.GET("/rooms/export", roomHandler.Export)
	api.GET("/rooms/:name", roomHandler.Get)
	api.GET("/rooms/:name/summary", roomHandler.Summary)
	api.GET("/rooms/:name/students", roomHandler.Students)
	api.GET("/rooms/:name/stats", roomHandler.Stats)

	api.GET("/students/:name/schedule", studentHandler.Schedule)
	api.GET("/filters/stream", streamHandler.Stream)

	api.POST("/interactions", interactionHandler.Record)
	api.GET("/interactions", interactionHandler.Report)

	if svc.exports != nil {
		exportHandler := handler.NewExportHandler(svc.exports)
		api.POST("/rooms/exports",
			middleware.JWT(svc.auth), middleware.RequireRoles(models.RoleAdmin), middleware.Audit(logr, "export.publish"),
			exportHandler.Publish)
		api.GET("/exports/download", exportHandler.Download)
	}

	return r
}
