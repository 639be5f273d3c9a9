package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"revit-qc/common/database"
	"revit-qc/common/logger"
	rediscommon "revit-qc/common/redis"
	"revit-qc/internal/audit"
	"revit-qc/internal/config"
	httpapi "revit-qc/internal/http"
	"revit-qc/internal/metrics"
	"revit-qc/internal/migrations"
	"revit-qc/internal/repository"
	"revit-qc/internal/service"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "revit-qc-api", logger.WithVersion(version))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// DB optional: without it the API serves an empty in-memory store
	var db *sql.DB
	if cfg.DBEnabled {
		if d, err := database.NewPostgresDB(&cfg.Database); err == nil {
			db = d
			log.Info("DB enabled for revit-qc-api", zap.String("url", cfg.Database.GetURL()))
		} else {
			log.Warn("DB enabled but connection failed, falling back to memory store", zap.Error(err))
		}
	}
	if db != nil && cfg.Migrate {
		if err := migrations.MigrateUp(db); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
		log.Info("Migrations applied")
	} else if db != nil {
		if err := migrations.CheckDBMigrationStatus(db); err != nil {
			log.Warn("Schema is not at the embedded version", zap.Error(err))
		}
	}

	var repos repository.Repositories
	if db != nil {
		repos = repository.NewPostgresRepositories(db)
	} else {
		repos = repository.NewMemoryStore().Repositories()
	}

	var publisher audit.Publisher = audit.NopPublisher{}
	var redisClient *rediscommon.Client
	if cfg.RedisEnabled {
		redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		pingCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := rediscommon.Ping(pingCtx, redisClient); err != nil {
			log.Warn("Redis unreachable, deletion events will not be published", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		cancel()
		publisher = audit.NewStreamPublisher(redisClient, cfg.AuditStream, logger.Component(log, "audit"))
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m, err := metrics.NewMetrics(registry)
	if err != nil {
		log.Fatal("Failed to register metrics", zap.Error(err))
	}

	clock := service.RealClock{}
	notifier := service.NewDeletionNotifier(publisher, m, clock, logger.Component(log, "deletions"))
	inspect := service.NewInspectionService(repos, notifier, logger.Component(log, "inspection"))
	clash := service.NewClashService(repos.Clash, service.ClashHistoryConfig{
		Days:     cfg.Clash.HistoryDays,
		Policy:   cfg.Clash.SameDayPolicy,
		Location: cfg.ReportLocation,
	}, clock, notifier, logger.Component(log, "clash"))

	admin := httpapi.NewAdminAuth(cfg.Admin.User, cfg.Admin.Password, log)
	if !admin.Configured() {
		log.Warn("ADMIN_PASSWORD not set, delete endpoints are disabled")
	}

	httpLog := logger.Component(log, "http")
	router := httpapi.NewRouter(httpLog)
	router.RegisterRoutes(httpapi.NewHandlers(inspect, clash, httpLog), admin)
	router.HandleHandler("GET /metrics", m.Handler())

	srv := service.NewServer(cfg.HTTP.Addr, httpapi.Chain(router, httpLog, m), log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("HTTP server stopped", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		log.Warn("Graceful shutdown failed", zap.Error(err))
	}
	_ = rediscommon.Close(redisClient)
	if db != nil {
		_ = database.Close(db)
	}
}
