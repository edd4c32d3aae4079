package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/scribe-api/internal/config"
	"github.com/jwalitptl/scribe-api/internal/handler"
	"github.com/jwalitptl/scribe-api/internal/repository/postgres"
	"github.com/jwalitptl/scribe-api/pkg/logger"
	"github.com/jwalitptl/scribe-api/pkg/messaging"
	"github.com/jwalitptl/scribe-api/pkg/messaging/redis"
	"github.com/jwalitptl/scribe-api/pkg/metrics"
	"github.com/jwalitptl/scribe-api/pkg/worker"
)

func main() {
	var configPath, healthAddr string

	rootCmd := &cobra.Command{
		Use:          "scribe-worker",
		Short:        "Relays outbox events to Redis",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runWorker(cfg, healthAddr)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config.yaml")
	rootCmd.Flags().StringVar(&healthAddr, "health-addr", ":8081", "address for health and metrics endpoints")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "listen",
		Short: "Print events published on the configured channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return runListener(cfg)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(cfg config.LogConfig) *logger.Logger {
	log := logger.NewLogger(&logger.Config{
		Level:  logger.ParseLevel(cfg.Level),
		Format: cfg.Format,
	})
	log.SetGlobal()
	return log
}

func brokerConfig(cfg config.RedisConfig) redis.Config {
	return redis.Config{
		URL:             cfg.URL,
		MaxRetries:      cfg.MaxRetries,
		RetryBackoff:    cfg.RetryBackoff,
		PoolSize:        cfg.PoolSize,
		MinIdleConns:    cfg.MinIdleConns,
		BreakerFailures: cfg.BreakerFailures,
		BreakerTimeout:  cfg.BreakerTimeout,
	}
}

func runWorker(cfg *config.Config, healthAddr string) error {
	if cfg.Database.Driver != "postgres" {
		return errors.New("the worker requires the postgres driver")
	}
	log := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	m := metrics.NewMetrics(cfg.Metrics.Namespace, "worker", reg)

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	broker, err := redis.NewRedisBroker(ctx, brokerConfig(cfg.Redis), log, m)
	if err != nil {
		return fmt.Errorf("failed to create Redis broker: %w", err)
	}
	defer broker.Close()

	outbox := postgres.NewOutboxRepository(db)

	processor, err := worker.NewOutboxProcessor(outbox, broker, worker.OutboxProcessorConfig{
		Channel:       cfg.Redis.Channel,
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
		MaxDeliveries: cfg.Outbox.MaxDeliveries,
	}, log, m)
	if err != nil {
		return err
	}
	cleanup := worker.NewOutboxCleanupWorker(outbox, cfg.Outbox.Retention, cfg.Outbox.CleanupInterval, log, m)

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	handler.NewHandler(db, reg).RegisterRoutes(engine.Group(""))
	srv := &http.Server{Addr: healthAddr, Handler: engine}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "health server failed")
			stop()
		}
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		processor.Start(ctx)
	}()
	go func() {
		defer wg.Done()
		cleanup.Start(ctx)
	}()

	log.Info("worker started", "channel", cfg.Redis.Channel)
	<-ctx.Done()
	log.Info("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "health server shutdown failed")
	}
	wg.Wait()
	return nil
}

func runListener(cfg *config.Config) error {
	log := newLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	broker, err := redis.NewRedisBroker(ctx, brokerConfig(cfg.Redis), log, metrics.NewMetrics(cfg.Metrics.Namespace, "listener", prometheus.NewRegistry()))
	if err != nil {
		return fmt.Errorf("failed to create Redis broker: %w", err)
	}
	defer broker.Close()

	return listen(ctx, broker, cfg.Redis.Channel, log)
}

func listen(ctx context.Context, broker messaging.Broker, channel string, log *logger.Logger) error {
	msgs, err := broker.Subscribe(ctx, channel)
	if err != nil {
		return err
	}
	log.Info("listening", "channel", channel)
	for payload := range msgs {
		var msg messaging.Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Warn("skipping malformed message", "error", err.Error())
			continue
		}
		log.Info("event received", "id", msg.ID, "type", msg.Type, "occurred_at", msg.OccurredAt)
	}
	return nil
}
