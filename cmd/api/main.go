// Package main is the entry point for the dlock-service API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dlock-service/internal/app/service"
	"dlock-service/internal/config"
	"dlock-service/internal/domain"
	"dlock-service/internal/infra/postgres"
	"dlock-service/internal/infra/postgres/migrations"
	redisinfra "dlock-service/internal/infra/redis"
	"dlock-service/internal/job"
	"dlock-service/internal/logger"
	"dlock-service/internal/transport/httpserver"
	"dlock-service/internal/transport/httpserver/middleware"
	"dlock-service/internal/validator"
	"dlock-service/pkg/dlock"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("APP_CONFIG"))
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(logger.Config{
		Level:  cfg.Logger.Level,
		Format: cfg.Logger.Format,
		Output: cfg.Logger.Output,
		Sentry: logger.SentryConfig{
			Enabled:     cfg.Sentry.Enabled,
			DSN:         cfg.Sentry.DSN,
			Environment: cfg.Sentry.Environment,
			SampleRate:  cfg.Sentry.SampleRate,
		},
	})
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting dlock-service",
		zap.String("env", cfg.App.Env),
		zap.Int("port", cfg.App.Port),
		zap.String("token_strategy", cfg.Lock.TokenStrategy),
	)

	ctx := context.Background()

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("failed to connect to Redis", zap.Error(err))
	}
	defer func() { _ = redisClient.Close() }()
	log.Info("connected to Redis", zap.String("addr", cfg.Redis.Addr()))

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Lock factory
	locks := dlock.NewFactory(
		redisClient,
		cfg.Lock.Dlock(),
		log.Named("dlock").Logger,
		dlock.WithMetrics(dlock.NewMetrics(registry)),
	)
	inspector := redisinfra.NewInspector(redisClient, locks, log.Logger)

	probes := []middleware.Probe{inspector.Ping}

	// Audit log (optional)
	var (
		db     *gorm.DB
		events domain.EventRepository
	)
	if cfg.Audit.Enabled {
		db, err = postgres.NewConnection(ctx, postgres.Config{
			DSN:          cfg.Audit.DSN(),
			MaxOpenConns: cfg.Audit.MaxOpenConns,
			MaxIdleConns: cfg.Audit.MaxIdleConns,
			MaxLifetime:  cfg.Audit.MaxLifetime,
		}, log.Logger)
		if err != nil {
			log.Fatal("failed to connect to audit database", zap.Error(err))
		}
		defer func() { _ = postgres.Close(db) }()

		if err := migrations.Run(db); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		log.Info("audit log enabled, migrations completed")

		events = postgres.NewEventRepository(db)
		probes = append(probes, func(ctx context.Context) error {
			return postgres.HealthCheck(ctx, db)
		})
	} else {
		log.Info("audit log disabled")
	}

	// Create services
	lockSvc := service.NewLockService(locks, inspector, events, service.DefaultSampleConfig(), log.Logger)

	// Create HTTP server
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Port:      cfg.App.Port,
			BodyLimit: 1024 * 1024, // 1MB
			Debug:     cfg.App.Debug,
		},
		lockSvc,
		validator.New(),
		registry,
		log.Logger,
		probes...,
	)

	// Start retention scheduler
	var scheduler *job.RetentionScheduler
	if cfg.Retention.Enabled {
		scheduler = job.NewRetentionScheduler(
			events,
			locks,
			job.RetentionConfig{
				Interval: cfg.Retention.Interval,
				MaxAge:   cfg.Retention.MaxAge,
				Timeout:  cfg.Retention.Timeout,
			},
			log.Named("retention").Logger,
		)
		scheduler.Start(cfg.Retention.OnStartup)
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("shutdown signal received")

		if scheduler != nil {
			scheduler.Stop()
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.App.ShutdownWithContext(ctx); err != nil {
			log.Error("server shutdown error", zap.Error(err))
		}
	}()

	// Start server
	if err := server.Start(cfg.App.Port); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
