package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	_ "github.com/noah-isme/sma-room-schedule/api/swagger"
	"github.com/noah-isme/sma-room-schedule/internal/dto"
	"github.com/noah-isme/sma-room-schedule/internal/repository"
	"github.com/noah-isme/sma-room-schedule/internal/schedule"
	"github.com/noah-isme/sma-room-schedule/internal/service"
	"github.com/noah-isme/sma-room-schedule/pkg/cache"
	"github.com/noah-isme/sma-room-schedule/pkg/config"
	"github.com/noah-isme/sma-room-schedule/pkg/database"
	"github.com/noah-isme/sma-room-schedule/pkg/jobs"
	"github.com/noah-isme/sma-room-schedule/pkg/logger"
	"github.com/noah-isme/sma-room-schedule/pkg/storage"
)

// @title Room Schedule API
// @version 1.0.0
// @description Room occupancy index built from the student timetable CSV
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := service.NewMetricsService()
	validate := service.NewValidator()

	var (
		providers []service.SourceProvider
		store     service.SourceStore
	)
	if cfg.Database.Enabled {
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			logr.Warn("database source disabled", zap.Error(err))
		} else {
			defer db.Close()
			repo := repository.NewSourceRepository(db)
			store = repo
			providers = append(providers, repo)
		}
	}
	providers = append(providers, repository.NewFileSourceRepository(cfg.Schedule.CandidateDirs, logr))

	var cacheSvc *service.CacheService
	if cfg.Cache.Enabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewCacheRepository(client, logr)
			defer cacheRepo.Close()
			cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Cache.TTL, logr, true)
		}
	}

	scheduleSvc := service.NewScheduleService(
		service.NewChainSource(logr, providers...),
		repository.NewCatalogRepository(cfg.Schedule.CatalogPath),
		store,
		cacheSvc,
		metrics,
		validate,
		logr,
		service.ScheduleConfig{
			SourceName:      cfg.Schedule.SourceName,
			Layout:          schedule.Layout{BaseHour: cfg.Schedule.BaseHour, Slots: cfg.Schedule.Slots, MinFields: cfg.Schedule.MinFields},
			DefaultCapacity: cfg.Schedule.DefaultCapacity,
			CacheTTL:        cfg.Cache.TTL,
		},
	)

	mux := jobs.NewMux()
	mux.Handle(service.JobTypeReload, scheduleSvc.HandleReloadJob)
	queue := jobs.NewQueue("schedule-reload", mux.Process, jobs.QueueConfig{
		Workers:    cfg.Schedule.ReloadWorkers,
		MaxRetries: cfg.Schedule.ReloadRetries,
		RetryDelay: cfg.Schedule.ReloadDelay,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()
	scheduleSvc.AttachQueue(queue)

	if _, err := scheduleSvc.Reload(ctx, dto.ReloadRequest{Reason: "startup"}); err != nil {
		logr.Warn("initial schedule load failed, serving an empty index", zap.Error(err))
	}

	svc := services{
		schedule: scheduleSvc,
		interactions: service.NewInteractionService(service.InteractionConfig{
			Cooldown:  cfg.Interactions.Cooldown,
			Retention: cfg.Interactions.Retention,
			Recent:    cfg.Interactions.Recent,
		}, validate, metrics, logr),
		auth: service.NewAuthService(service.AuthConfig{
			Secret:     cfg.JWT.Secret,
			Issuer:     cfg.JWT.Issuer,
			Expiration: cfg.JWT.Expiration,
		}, logr),
		metrics: metrics,
	}

	if exportStore, err := storage.NewLocalStorage(cfg.Export.Dir); err != nil {
		logr.Warn("export snapshots disabled", zap.Error(err))
	} else {
		svc.exports = service.NewExportService(scheduleSvc, exportStore,
			storage.NewSigner(cfg.Export.Secret, cfg.Export.LinkTTL),
			service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newRouter(cfg, logr, svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		scheduleSvc.RunPeriodicReload(gctx, cfg.Schedule.ReloadInterval)
		return nil
	})
	if svc.exports != nil {
		g.Go(func() error {
			svc.exports.RunCleanup(gctx, cfg.Export.CleanupInterval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logr.Error("server stopped with error", zap.Error(err))
		return
	}
	logr.Info("server stopped")
}
