package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/patient-records/internal/config"
	"github.com/iliyamo/patient-records/internal/handler"
	"github.com/iliyamo/patient-records/internal/metrics"
	"github.com/iliyamo/patient-records/internal/queue"
	"github.com/iliyamo/patient-records/internal/repository"
	"github.com/iliyamo/patient-records/internal/router"
	"github.com/iliyamo/patient-records/internal/service"
	"github.com/iliyamo/patient-records/pkg/logging"
)

func newServeCmd(opts *options) *cobra.Command {
	var (
		port   string
		memory bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := opts.loadConfig()
			if port != "" {
				cfg.Port = port
			}
			logger := logging.Setup(cfg.LogLevel)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, logger, memory)
		},
	}
	cmd.Flags().StringVar(&port, "port", "", "port to listen on (overrides APP_PORT)")
	cmd.Flags().BoolVar(&memory, "memory", false, "keep records in memory instead of STORE_PATH")
	return cmd
}

// serve runs the HTTP server, and the audit consumer when enabled, until ctx
// is cancelled or one of them fails.  In-flight requests get
// cfg.ShutdownTimeout to finish.
func serve(ctx context.Context, cfg config.Config, logger *slog.Logger, memory bool) error {
	var store repository.Store
	if memory {
		store = repository.NewMemoryStore(nil)
		cfg.StorePath = ":memory:"
	} else {
		fs := repository.NewFileStore(cfg.StorePath)
		if _, err := os.Stat(fs.Path()); errors.Is(err, os.ErrNotExist) {
			logger.Warn("patient store does not exist; run `patientd init` to create it", "path", fs.Path())
		}
		store = fs
	}

	var rdb *redis.Client
	if cfg.RateLimit.Enabled {
		if rdb = config.NewRedisClient(ctx); rdb == nil {
			logger.Warn("redis unavailable; rate limiting disabled")
		} else {
			defer rdb.Close()
		}
	}

	m := metrics.New()
	patients := handler.NewPatientHandler(
		repository.NewPatientRepo(store),
		service.NewEventPublisher(cfg.Events, logger),
		m,
		logger,
	)

	e := echo.New()
	router.Setup(e, router.Deps{
		Logger:    logger,
		Metrics:   m,
		RateLimit: cfg.RateLimit,
		Redis:     rdb,
		Patients:  patients,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", cfg.Addr(), "env", cfg.Env, "store", cfg.StorePath)
		if err := e.Start(cfg.Addr()); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
		return e.Shutdown(shutdownCtx)
	})
	if cfg.Events.Enabled && cfg.Events.Consume {
		consumer := &queue.AuditConsumer{
			URL:     cfg.Events.URL,
			Queue:   cfg.Events.Queue,
			LogPath: cfg.Events.AuditLogPath,
			Logger:  logger.With("component", "audit"),
		}
		g.Go(func() error { return consumer.Run(gctx) })
	}
	return g.Wait()
}
