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

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/leveling-api/api/swagger"
	"github.com/noah-isme/leveling-api/internal/handler"
	"github.com/noah-isme/leveling-api/internal/repository"
	"github.com/noah-isme/leveling-api/internal/router"
	"github.com/noah-isme/leveling-api/internal/service"
	"github.com/noah-isme/leveling-api/pkg/cache"
	"github.com/noah-isme/leveling-api/pkg/config"
	"github.com/noah-isme/leveling-api/pkg/database"
	"github.com/noah-isme/leveling-api/pkg/logger"
)

// @title Leveling Matriculation API
// @version 1.0.0
// @description Allocates leveling demands into section-courses and reports schedule conflicts
// @BasePath /api/v1
// @schemes http

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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	metrics := service.NewMetricsService()
	checks := map[string]handler.ReadinessCheck{
		"postgres": db.PingContext,
	}

	var conflictCache *service.ConflictCacheService
	if cfg.Leveling.ConflictCacheEnabled {
		redisClient, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			logr.Warn("redis unavailable, conflict cache disabled", zap.Error(err))
		} else {
			cacheRepo := repository.NewConflictCacheRepository(redisClient)
			defer cacheRepo.Close() //nolint:errcheck
			conflictCache = service.NewConflictCacheService(cacheRepo, cfg.Leveling.ConflictCacheTTL, metrics, logr)
			checks["redis"] = cacheRepo.Ping
		}
	}

	validate := validator.New()

	periods := repository.NewPeriodRepository(db)
	runs := repository.NewLevelingRunRepository(db)
	demands := repository.NewStudentCourseDemandRepository(db)
	sections := repository.NewSectionCourseRepository(db)
	blocks := repository.NewScheduleBlockRepository(db)
	assignments := repository.NewAssignmentRepository(db)
	audits := repository.NewReassignmentRepository(db)

	matriculationSvc := service.NewMatriculationService(
		runs, periods, demands, sections, blocks, assignments,
		db, conflictCache, metrics, validate, logr,
		service.MatriculationConfig{
			DefaultPolicy: cfg.Leveling.DefaultPolicy,
			LockTimeout:   cfg.Leveling.LockTimeout,
		},
	)
	conflictSvc := service.NewConflictService(
		periods, sections, blocks, assignments,
		conflictCache, metrics, logr,
	)
	reassignmentSvc := service.NewReassignmentService(
		periods, demands, audits, sections, blocks, assignments,
		db, conflictCache, metrics, validate, logr,
	)

	engine := router.New(cfg, router.Dependencies{
		Logger:               logr,
		Metrics:              metrics,
		Tokens:               service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}),
		MetricsHandler:       handler.NewMetricsHandler(metrics, checks),
		MatriculationHandler: handler.NewMatriculationHandler(matriculationSvc),
		ConflictHandler:      handler.NewConflictHandler(conflictSvc),
		ReassignmentHandler:  handler.NewReassignmentHandler(reassignmentSvc),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}
