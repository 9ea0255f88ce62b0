package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bibbank/leasing/internal/application/usecase"
	"github.com/bibbank/leasing/internal/domain/port"
	"github.com/bibbank/leasing/internal/infrastructure/config"
	infraKafka "github.com/bibbank/leasing/internal/infrastructure/kafka"
	"github.com/bibbank/leasing/internal/infrastructure/persistence/memory"
	infraPostgres "github.com/bibbank/leasing/internal/infrastructure/persistence/postgres"
	"github.com/bibbank/leasing/internal/infrastructure/retry"
	grpcPresentation "github.com/bibbank/leasing/internal/presentation/grpc"
	"github.com/bibbank/leasing/internal/presentation/rest"
	pkgkafka "github.com/bibbank/leasing/pkg/kafka"
	"github.com/bibbank/leasing/pkg/observability"
	pgutil "github.com/bibbank/leasing/pkg/postgres"
)

// engine is the wired application shared by every subcommand.
type engine struct {
	cfg     config.Config
	logger  *slog.Logger
	metrics http.Handler
	checks  []rest.Check
	uc      grpcPresentation.UseCases

	closers []func() error
}

func loadConfig() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := observability.InitLogger(observability.LogConfig{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Service: cfg.ServiceName,
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logger, nil
}

func newEngine(ctx context.Context, cfg config.Config, logger *slog.Logger) (*engine, error) {
	e := &engine{cfg: cfg, logger: logger}

	provider, metricsHandler, err := observability.InitMetrics(observability.MetricsConfig{ServiceName: cfg.ServiceName})
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	e.metrics = metricsHandler
	e.closers = append(e.closers, func() error { return provider.Shutdown(context.Background()) })

	engineMetrics, err := observability.NewEngineMetrics(provider.Meter("github.com/bibbank/leasing"))
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("init engine metrics: %w", err)
	}

	store, err := e.openStore(ctx)
	if err != nil {
		e.Close()
		return nil, err
	}

	publisher, err := e.openPublisher()
	if err != nil {
		e.Close()
		return nil, err
	}

	retrier := retry.New(retry.Config{
		MaxAttempts:     cfg.Engine.RetryMaxAttempts,
		InitialInterval: cfg.Engine.RetryInitial,
		MaxInterval:     cfg.Engine.RetryMaxInterval,
	}, logger)

	rc := usecase.NewReconciliation(store, publisher,
		usecase.WithRetrier(retrier),
		usecase.WithMetrics(engineMetrics),
		usecase.WithLogger(logger),
	)
	e.uc = grpcPresentation.NewUseCases(rc, cfg.Engine.GracePeriodDays, cfg.Engine.BulkConcurrency)
	return e, nil
}

func (e *engine) openStore(ctx context.Context) (port.TransactionManager, error) {
	if e.cfg.Engine.Store == config.StoreMemory {
		e.logger.Warn("using in-memory store, state is lost on exit")
		return memory.NewStore(e.cfg.DB.LockTimeout), nil
	}

	pgCfg := e.cfg.Postgres()
	if e.cfg.DB.AutoMigrate {
		if err := pgutil.RunEmbeddedMigrations(pgCfg.DSN(), infraPostgres.Migrations, infraPostgres.MigrationsDir); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		e.logger.Info("database migrations applied")
	}

	pool, err := pgutil.NewPool(ctx, pgCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	e.closers = append(e.closers, func() error { pool.Close(); return nil })
	e.logger.Info("connected to database", "database", pgCfg.Database)

	store := infraPostgres.NewStore(pool, e.cfg.DB.LockTimeout)
	e.checks = append(e.checks, rest.Check{Name: "postgres", Probe: store.Ping})
	return store, nil
}

func (e *engine) openPublisher() (port.EventPublisher, error) {
	if !e.cfg.Kafka.Enabled {
		return infraKafka.NewLogPublisher(e.logger), nil
	}
	producer, err := pkgkafka.NewProducer(e.cfg.KafkaClient())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	e.closers = append(e.closers, producer.Close)
	return infraKafka.NewEventPublisher(producer, e.cfg.Kafka.EventsTopic, e.logger), nil
}

// Close releases resources in reverse order of acquisition.
func (e *engine) Close() {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		e.logger.Error("shutdown", "error", err)
	}
}
