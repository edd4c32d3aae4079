package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/scribe-api/internal/config"
	"github.com/jwalitptl/scribe-api/internal/email"
	"github.com/jwalitptl/scribe-api/internal/handler"
	letterhandler "github.com/jwalitptl/scribe-api/internal/handler/letter"
	patienthandler "github.com/jwalitptl/scribe-api/internal/handler/patient"
	resulthandler "github.com/jwalitptl/scribe-api/internal/handler/result"
	"github.com/jwalitptl/scribe-api/internal/ingest"
	"github.com/jwalitptl/scribe-api/internal/lettergen"
	"github.com/jwalitptl/scribe-api/internal/middleware"
	"github.com/jwalitptl/scribe-api/internal/router"
	"github.com/jwalitptl/scribe-api/internal/service/letter"
	"github.com/jwalitptl/scribe-api/internal/service/patient"
	"github.com/jwalitptl/scribe-api/internal/service/result"
	"github.com/jwalitptl/scribe-api/pkg/logger"
	"github.com/jwalitptl/scribe-api/pkg/metrics"
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

func runServer(cfg *config.Config) error {
	log := newLogger(cfg.Log)
	middleware.RegisterValidation()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg.Database, log)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := os.MkdirAll(cfg.Letters.Dir, 0o750); err != nil {
		return fmt.Errorf("failed to create letters directory: %w", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(cfg.Metrics.Namespace, "api", reg)

	// Services
	patientSvc := patient.NewService(store.patients, log)
	resultSvc := result.NewService(store.patients, store.results, result.Config{
		MaxUploadBytes: cfg.Upload.MaxBytes,
		RangePolicy:    ingest.SplitFirstHyphen,
	}, log, m)
	letterSvc := letter.NewService(
		store.letters,
		store.patients,
		resultSvc,
		newComposer(cfg.Letters.LLM, log),
		newMailer(cfg.Mail, log),
		letter.Config{
			Dir:            cfg.Letters.Dir,
			SenderName:     cfg.Letters.SenderName,
			SenderAddress:  cfg.Letters.SenderAddress,
			Signatory:      cfg.Letters.Signatory,
			SignatoryTitle: cfg.Letters.SignatoryTitle,
			PDFCacheTTL:    cfg.Letters.PDFCacheTTL,
		},
		log,
		m,
	)

	// Handlers
	var pinger handler.Pinger
	if store.db != nil {
		pinger = store.db
	}
	health := handler.NewHandler(pinger, reg)

	sizeLimit := middleware.DefaultSizeLimitConfig()
	sizeLimit.MaxUploadSize = cfg.Upload.MaxBytes
	sizeLimit.UploadRoutes = resulthandler.UploadRoutes(router.APIPrefix)

	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORS.AllowOrigins
	cors.MaxAge = cfg.CORS.MaxAge

	r := router.NewRouter(router.RouterConfig{
		Mode:             cfg.Server.Mode,
		RequestTimeout:   cfg.Server.RequestTimeout,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RateLimit:        rate.Limit(cfg.RateLimit.RPS),
		RateBurst:        cfg.RateLimit.Burst,
		CORSConfig:       cors,
		SizeLimit:        sizeLimit,
		Security:         middleware.DefaultSecurityConfig(),
		MetricsPrefix:    cfg.Metrics.Namespace + "_http",
		Registerer:       reg,
	}, log,
		health,
		patienthandler.NewHandler(patientSvc),
		resulthandler.NewHandler(resultSvc),
		letterhandler.NewHandler(letterSvc),
	)
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", srv.Addr, "driver", cfg.Database.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	log.Info("server exited")
	return nil
}

func newComposer(cfg config.LLMConfig, log *logger.Logger) *lettergen.Chain {
	var primary lettergen.Generator
	if cfg.Enabled {
		log.Info("letter drafting via language model", "url", cfg.URL, "model", cfg.Model)
		primary = lettergen.NewOllamaGenerator(cfg, log)
	}
	return lettergen.NewChain(primary, lettergen.NewTemplateGenerator(), log)
}

func newMailer(cfg config.MailConfig, log *logger.Logger) email.Mailer {
	if !cfg.Enabled {
		return email.NopMailer{}
	}
	return email.NewSMTPMailer(cfg, log)
}
