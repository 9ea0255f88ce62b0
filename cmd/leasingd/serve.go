package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	infraKafka "github.com/bibbank/leasing/internal/infrastructure/kafka"
	"github.com/bibbank/leasing/internal/infrastructure/scheduler"
	grpcPresentation "github.com/bibbank/leasing/internal/presentation/grpc"
	"github.com/bibbank/leasing/internal/presentation/rest"
	pkgkafka "github.com/bibbank/leasing/pkg/kafka"
)

const shutdownTimeout = 15 * time.Second

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().Bool("reflection", false, "Register the gRPC reflection service")
	serveCmd.Flags().Bool("no-sweep", false, "Disable the periodic reconciliation sweep")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the gRPC API, health endpoints, sweep and payment import consumer",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	reflection, _ := cmd.Flags().GetBool("reflection")
	noSweep, _ := cmd.Flags().GetBool("no-sweep")

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("starting leasing engine", "store", cfg.Engine.Store, "kafka", cfg.Kafka.Enabled)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newEngine(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	grpcServer, err := grpcPresentation.NewServer(grpcPresentation.NewLeasingHandler(app.uc), grpcPresentation.ServerOptions{
		CertFile:   cfg.TLS.CertFile,
		KeyFile:    cfg.TLS.KeyFile,
		Reflection: reflection,
		RateLimit:  cfg.RateLimit.RPS,
		RateBurst:  cfg.RateLimit.Burst,
	}, logger)
	if err != nil {
		return fmt.Errorf("create gRPC server: %w", err)
	}

	mux := http.NewServeMux()
	rest.NewHealthHandler(cfg.ServiceName, app.metrics, logger, app.checks...).RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	var sweep *scheduler.Sweep
	if !noSweep {
		sweep, err = scheduler.NewSweep(cfg.Engine.SweepSchedule, app.uc.ReconcileAll, cfg.Engine.SweepTimeout, logger)
		if err != nil {
			return err
		}
	}

	var consumer *pkgkafka.Consumer
	if cfg.Kafka.Enabled {
		rows := infraKafka.NewPaymentRowsHandler(app.uc.ImportPayments, logger)
		consumer, err = pkgkafka.NewConsumer(cfg.KafkaClient(), cfg.Kafka.PaymentsTopic, rows.Handle, logger)
		if err != nil {
			return fmt.Errorf("create payment rows consumer: %w", err)
		}
		defer func() {
			if err := consumer.Close(); err != nil {
				logger.Error("close consumer", "error", err)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return grpcServer.Serve(cfg.GRPCAddr())
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server failed: %w", err)
		}
		return nil
	})

	if sweep != nil {
		sweep.Start()
		defer sweep.Stop()
	}
	if consumer != nil {
		g.Go(func() error { return consumer.Start(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown HTTP server", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		return err
	}
	logger.Info("leasing engine stopped")
	return nil
}
