// Package app assembles the detection engine from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"

	goredis "github.com/redis/go-redis/v9"

	"github.com/pratik-mahalle/usagepulse/internal/config"
	"github.com/pratik-mahalle/usagepulse/internal/domain/anomaly"
	"github.com/pratik-mahalle/usagepulse/internal/domain/baseline"
	"github.com/pratik-mahalle/usagepulse/internal/pkg/logger"
	"github.com/pratik-mahalle/usagepulse/internal/report"
	"github.com/pratik-mahalle/usagepulse/internal/repository/postgres"
	"github.com/pratik-mahalle/usagepulse/internal/repository/redis"
	"github.com/pratik-mahalle/usagepulse/internal/services"
	"github.com/pratik-mahalle/usagepulse/internal/trigger"
	"github.com/pratik-mahalle/usagepulse/migrations"
)

// App holds the wired repositories and services
type App struct {
	Config *config.Config
	Logger *logger.Logger

	DB    *sql.DB
	Redis *goredis.Client

	Customers *postgres.CustomerRepository
	Usage     *postgres.UsageRepository
	Anomalies anomaly.Repository

	Baselines baseline.Service
	Detector  anomaly.Service

	closers []io.Closer
}

// New opens the store, applies pending migrations and builds the services
func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	db, err := postgres.New(cfg.Database)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Logger: log, DB: db}
	a.closers = append(a.closers, db)

	applied, err := postgres.RunMigrations(ctx, db, migrations.GetFS())
	if err != nil {
		a.Close()
		return nil, err
	}
	if applied > 0 {
		log.WithFields(map[string]interface{}{
			"applied": applied,
		}).Info("Database migrations applied")
	}

	a.Customers = postgres.NewCustomerRepository(db)
	a.Usage = postgres.NewUsageRepository(db)
	a.Anomalies = postgres.NewAnomalyRepository(db)

	var cache baseline.Cache
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.WithError(err).Warn("Baseline cache unavailable, continuing without it")
		} else {
			a.Redis = client
			a.closers = append(a.closers, client)
			cache = redis.NewBaselineCache(client, cfg.Redis.KeyPrefix)
		}
	}

	a.Baselines = services.NewBaselineService(postgres.NewBaselineRepository(db), a.Usage, cache, log)

	opts := []services.AnomalyServiceOption{
		services.WithDetectionConfig(cfg.Detection),
		services.WithScanOptions(services.ScanOptions{
			Concurrency:     cfg.Scan.Concurrency,
			CustomerTimeout: cfg.Scan.CustomerTimeout,
			StartRate:       cfg.Scan.StartRate,
		}),
	}
	if cfg.Report.Enabled {
		archiver, err := report.NewS3Archiver(ctx, report.S3Config{
			Bucket:          cfg.Report.Bucket,
			Prefix:          cfg.Report.Prefix,
			Region:          cfg.Report.Region,
			Endpoint:        cfg.Report.Endpoint,
			AccessKeyID:     cfg.Report.AccessKeyID,
			SecretAccessKey: cfg.Report.SecretAccessKey,
		})
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, services.WithArchiver(archiver))
	}

	a.Detector = services.NewAnomalyService(a.Customers, a.Usage, a.Anomalies, a.Baselines, a.publisher(cfg.Trigger, log), log, opts...)
	return a, nil
}

// publisher fans out to every configured trigger. Events are always logged.
func (a *App) publisher(cfg config.TriggerConfig, log *logger.Logger) trigger.Publisher {
	publishers := trigger.Multi{trigger.NewLogPublisher(log)}
	if cfg.WebhookURL != "" {
		publishers = append(publishers, trigger.NewWebhookPublisher(cfg.WebhookURL, cfg.WebhookSecret, cfg.WebhookTimeout))
	}
	if len(cfg.KafkaBrokers) > 0 {
		kp := trigger.NewKafkaPublisher(trigger.KafkaConfig{Brokers: cfg.KafkaBrokers, Topic: cfg.KafkaTopic})
		a.closers = append(a.closers, kp)
		publishers = append(publishers, kp)
	}
	return publishers
}

// Checks returns the readiness checks of the database and, when enabled, the baseline cache
func (a *App) Checks() map[string]func(context.Context) error {
	checks := map[string]func(context.Context) error{
		"database": a.DB.PingContext,
	}
	if a.Redis != nil {
		checks["redis"] = func(ctx context.Context) error {
			return a.Redis.Ping(ctx).Err()
		}
	}
	return checks
}

// Close releases resources in reverse order of acquisition
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if len(errs) > 0 {
		return fmt.Errorf("failed to close app: %w", errors.Join(errs...))
	}
	return nil
}
