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
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/scolarite-api/api/swagger"
	"github.com/noah-isme/scolarite-api/internal/handler"
	internalmiddleware "github.com/noah-isme/scolarite-api/internal/middleware"
	"github.com/noah-isme/scolarite-api/internal/models"
	"github.com/noah-isme/scolarite-api/internal/repository"
	"github.com/noah-isme/scolarite-api/internal/service"
	"github.com/noah-isme/scolarite-api/pkg/cache"
	"github.com/noah-isme/scolarite-api/pkg/config"
	"github.com/noah-isme/scolarite-api/pkg/database"
	"github.com/noah-isme/scolarite-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/scolarite-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/scolarite-api/pkg/middleware/requestid"
	"github.com/noah-isme/scolarite-api/pkg/storage"
)

// @title Scolarite API
// @version 1.0.0
// @description Student registry, tuition ledger and grade sheet for a school secretariat
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

type auditSink interface {
	Record(ctx context.Context, log *models.AuditLog) error
}

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
	validate := validator.New()

	store, closeStore, err := newDatasetStore(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("dataset store unavailable", "backend", cfg.Store.Backend, "error", err)
	}
	defer closeStore()
	datasets := repository.NewDatasetRepository(store, metrics, logr)

	audit, closeAudit, err := newAuditSink(ctx, cfg, logr)
	if err != nil {
		logr.Sugar().Fatalw("audit database unavailable", "error", err)
	}
	defer closeAudit()

	authSvc, err := service.NewAuthService(audit, validate, logr, service.AuthConfig{
		TokenSecret: cfg.JWT.Secret,
		TokenExpiry: cfg.JWT.Expiration,
		Issuer:      cfg.JWT.Issuer,
		Secrets: map[models.Scope]string{
			models.ScopePayments:  cfg.Secrets.Payments,
			models.ScopeDeletions: cfg.Secrets.Deletions,
			models.ScopeGrades:    cfg.Secrets.Grades,
		},
	})
	if err != nil {
		logr.Sugar().Fatalw("failed to init unlock gate", "error", err)
	}

	backups, err := storage.NewLocalStorage(cfg.Backups.Dir)
	if err != nil {
		logr.Sugar().Fatalw("backup directory unavailable", "dir", cfg.Backups.Dir, "error", err)
	}

	notifications := service.NewNotificationService(service.NewConsoleSMSSender(logr), cfg.Notifications, metrics, logr)
	notifications.Start(ctx)
	defer notifications.Stop()

	policy := service.NewClassificationPolicy(cfg.Store.PrimaryClasses)
	studentSvc := service.NewStudentService(datasets, policy, cfg.Ledger, metrics, validate, logr)
	paymentSvc := service.NewPaymentService(datasets, notifications, cfg.Ledger, cfg.Notifications.SchoolName, metrics, validate, logr)
	gradeSvc := service.NewGradeService(datasets, cfg.Grades, validate, logr)
	sheetSvc := service.NewSpreadsheetService(datasets, policy, backups, service.SpreadsheetConfig{
		Ledger:          cfg.Ledger,
		Grades:          cfg.Grades,
		ImportRowPolicy: cfg.Import.RowPolicy,
		BackupRetention: cfg.Backups.Retention,
	}, metrics, logr)

	metricsHandler := handler.NewMetricsHandler(metrics, datasets)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metrics))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r.Group(cfg.APIPrefix), handler.Handlers{
		Auth:        handler.NewAuthHandler(authSvc),
		Students:    handler.NewStudentHandler(studentSvc),
		Payments:    handler.NewPaymentHandler(paymentSvc),
		Grades:      handler.NewGradeHandler(gradeSvc),
		Spreadsheet: handler.NewSpreadsheetHandler(sheetSvc, cfg.Import.MaxFileBytes),
		Metrics:     metricsHandler,
	}, internalmiddleware.Unlock(authSvc), func(action, resource string) gin.HandlerFunc {
		return internalmiddleware.Audit(audit, logr, action, resource)
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Backend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}

func newDatasetStore(ctx context.Context, cfg *config.Config, logr *zap.Logger) (repository.DatasetStore, func(), error) {
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		store := repository.NewRedisDatasetStore(client, cfg.Store.RedisKey, cfg.Store.MaxUpdateRetries, logr)
		return store, func() { _ = client.Close() }, nil
	default:
		return repository.NewFileDatasetStore(cfg.Store.DataFile, logr), func() {}, nil
	}
}

func newAuditSink(ctx context.Context, cfg *config.Config, logr *zap.Logger) (auditSink, func(), error) {
	if !cfg.Database.AuditEnabled {
		return repository.NewLogAuditRepository(logr), func() {}, nil
	}
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return repository.NewAuditRepository(db), func() { _ = db.Close() }, nil
}
