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

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	_ "github.com/noah-isme/sma-performance-api/api/swagger"
	"github.com/noah-isme/sma-performance-api/internal/handler"
	"github.com/noah-isme/sma-performance-api/internal/repository"
	"github.com/noah-isme/sma-performance-api/internal/service"
	"github.com/noah-isme/sma-performance-api/pkg/cache"
	"github.com/noah-isme/sma-performance-api/pkg/config"
	"github.com/noah-isme/sma-performance-api/pkg/database"
	"github.com/noah-isme/sma-performance-api/pkg/docstore"
	"github.com/noah-isme/sma-performance-api/pkg/jobs"
	"github.com/noah-isme/sma-performance-api/pkg/logger"
	"github.com/noah-isme/sma-performance-api/pkg/storage"
)

// @title SMA Performance API
// @version 1.0.0
// @description Grading and performance aggregation over student score and attendance records
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const exportQueueRetries = 3

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, aggregation cache disabled", zap.Error(err))
		redisClient = nil
	}
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	defer cacheRepo.Close() //nolint:errcheck

	records, mongoClient, err := recordSources(ctx, cfg, db)
	if err != nil {
		logr.Fatal("failed to initialise record store", zap.String("driver", cfg.RecordStore), zap.Error(err))
	}
	if mongoClient != nil {
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mongoClient.Disconnect(disconnectCtx)
		}()
	}
	logr.Info("record store selected", zap.String("driver", cfg.RecordStore))

	validate := validator.New()
	metrics := service.NewMetricsService()
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Performance.CacheTTL, logr, redisClient != nil)

	configSvc := service.NewConfigurationService(repository.NewConfigurationRepository(db), cacheSvc, validate, logr, service.GradingDefaults{
		Scheme:                     cfg.Grading.Scheme,
		PassThreshold:              cfg.Grading.PassThreshold,
		PassBoundary:               cfg.Grading.PassBoundary,
		AttendanceGoodThreshold:    cfg.Grading.AttendanceGoodThreshold,
		AttendanceWarningThreshold: cfg.Grading.AttendanceWarningThreshold,
	})
	performanceSvc := service.NewPerformanceService(records.scores, records.attendance, records.students, configSvc, cacheSvc, metrics, validate, logr, cfg.Performance.CacheTTL)
	authSvc := service.NewAuthService(repository.NewUserRepository(db), validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            "sma-performance-api",
	})

	var exportJobs *service.ExportJobService
	if cfg.Exports.Enabled {
		exportJobs, err = startExports(ctx, cfg, db, performanceSvc, metrics, validate, logr)
		if err != nil {
			logr.Fatal("failed to start export pipeline", zap.Error(err))
		}
	}

	checks := []handler.ReadinessCheck{
		{Name: "postgres", Ping: db.PingContext},
	}
	if redisClient != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Ping: cacheRepo.Ping})
	}
	if mongoClient != nil {
		checks = append(checks, handler.ReadinessCheck{Name: "mongo", Ping: func(ctx context.Context) error {
			return mongoClient.Ping(ctx, readpref.Primary())
		}})
	}

	router := newRouter(cfg, logr, metrics, authSvc, routeHandlers{
		auth:        handler.NewAuthHandler(authSvc),
		grading:     handler.NewGradingHandler(configSvc),
		performance: handler.NewPerformanceHandler(performanceSvc),
		exports:     exportHandler(exportJobs),
		metrics:     handler.NewMetricsHandler(metrics, checks...),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("graceful shutdown failed", zap.Error(err))
	}
}

type recordRepositories struct {
	scores     service.ScoreSource
	attendance service.AttendanceSource
	students   service.StudentDirectory
}

func recordSources(ctx context.Context, cfg *config.Config, db *sqlx.DB) (recordRepositories, *mongo.Client, error) {
	if cfg.RecordStore != config.RecordStoreMongo {
		return recordRepositories{
			scores:     repository.NewScoreRepository(db),
			attendance: repository.NewAttendanceRepository(db),
			students:   repository.NewStudentRepository(db),
		}, nil, nil
	}
	client, mdb, err := docstore.NewMongo(ctx, cfg.Mongo)
	if err != nil {
		return recordRepositories{}, nil, err
	}
	store := repository.NewDocumentStore(mdb)
	return recordRepositories{
		scores:     store.Scores,
		attendance: store.Attendance,
		students:   store.Students,
	}, client, nil
}

func startExports(ctx context.Context, cfg *config.Config, db *sqlx.DB, reports *service.PerformanceService, metrics *service.MetricsService, validate *validator.Validate, logr *zap.Logger) (*service.ExportJobService, error) {
	files, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
	if err != nil {
		return nil, err
	}
	signer := storage.NewSignedURLSigner(cfg.Exports.SignedURLSecret, cfg.Exports.SignedURLTTL)
	exporter := service.NewExportService(reports, files, signer, service.ExportConfig{
		APIPrefix: cfg.APIPrefix,
		ResultTTL: cfg.Exports.Retention,
	}, logr)

	jobRepo := repository.NewExportJobRepository(db)
	worker := service.NewExportWorker(jobRepo, exporter, metrics, exportQueueRetries, logr)
	queue := jobs.NewQueue("performance-exports", worker.Handle, jobs.QueueConfig{
		Workers:    2,
		MaxRetries: exportQueueRetries,
		RetryDelay: 5 * time.Second,
		OnExhausted: func(job jobs.Job, err error) {
			logr.Error("export job abandoned", zap.String("job_id", job.ID), zap.Error(err))
		},
		Logger: logr,
	})
	metrics.TrackExportQueue(queue.Pending)
	queue.Start(ctx)
	go func() {
		<-ctx.Done()
		queue.Stop()
	}()

	svc := service.NewExportJobService(jobRepo, queue, exporter, validate, logr, service.ExportJobServiceConfig{
		ResultTTL:       cfg.Exports.Retention,
		CleanupInterval: cfg.Exports.CleanupInterval,
	})
	svc.RecoverPendingJobs(ctx)
	svc.StartCleanup(ctx)
	return svc, nil
}

func exportHandler(svc *service.ExportJobService) *handler.ExportHandler {
	if svc == nil {
		return nil
	}
	return handler.NewExportHandler(svc)
}
