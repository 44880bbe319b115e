package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/campus-timetable-api/api/swagger"
	"github.com/noah-isme/campus-timetable-api/internal/repository"
	"github.com/noah-isme/campus-timetable-api/internal/router"
	"github.com/noah-isme/campus-timetable-api/internal/service"
	"github.com/noah-isme/campus-timetable-api/pkg/cache"
	"github.com/noah-isme/campus-timetable-api/pkg/config"
	"github.com/noah-isme/campus-timetable-api/pkg/database"
	"github.com/noah-isme/campus-timetable-api/pkg/logger"
)

// @title Campus Timetable API
// @version 1.0.0
// @description Timeslot registry, class offerings and conflict-free student timetables
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect database", zap.Error(err))
	}
	defer db.Close()

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(db.DB, logr); err != nil {
			logr.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, draft cache disabled", zap.Error(err))
		redisClient = nil
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Timetable.DraftCacheTTL, logr, cfg.Timetable.DraftCache && redisClient != nil)

	timeslotRepo := repository.NewTimeslotRepository(db)
	offeringRepo := repository.NewClassOfferingRepository(db)
	timetableRepo := repository.NewTimetableRepository(db)
	termRepo := repository.NewTermRepository(db)
	userRepo := repository.NewUserRepository(db)

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	timeslotSvc := service.NewTimeslotService(timeslotRepo, db, cacheSvc, validate, logr)
	offeringSvc := service.NewClassOfferingService(offeringRepo, termRepo, timeslotRepo, cacheSvc, validate, logr)
	timetableSvc := service.NewTimetableService(timetableRepo, offeringRepo, termRepo, timeslotRepo, db, metrics, validate, logr)
	generatorSvc := service.NewTimetableGeneratorService(offeringRepo, termRepo, timeslotRepo, cacheSvc, metrics, validate, logr, service.TimetableGeneratorConfig{
		MaxDrafts: cfg.Timetable.MaxDrafts,
		CacheTTL:  cfg.Timetable.DraftCacheTTL,
	})

	r := router.New(router.Dependencies{
		Config:         cfg,
		Logger:         logr,
		Metrics:        metrics,
		DB:             db,
		Auth:           authSvc,
		Timeslots:      timeslotSvc,
		ClassOfferings: offeringSvc,
		Timetables:     timetableSvc,
		Generator:      generatorSvc,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "generator", cfg.Timetable.GeneratorEnabled)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
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
