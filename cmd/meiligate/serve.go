package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/meiligate/internal/config"
	logpkg "github.com/kailas-cloud/meiligate/internal/logger"
	"github.com/kailas-cloud/meiligate/internal/meili"
	"github.com/kailas-cloud/meiligate/internal/metrics"
	chiTransport "github.com/kailas-cloud/meiligate/internal/transport/chi"
	adminuc "github.com/kailas-cloud/meiligate/internal/usecase/admin"
	documentuc "github.com/kailas-cloud/meiligate/internal/usecase/document"
	healthuc "github.com/kailas-cloud/meiligate/internal/usecase/health"
	indexuc "github.com/kailas-cloud/meiligate/internal/usecase/index"
	searchuc "github.com/kailas-cloud/meiligate/internal/usecase/search"
	settingsuc "github.com/kailas-cloud/meiligate/internal/usecase/settings"
	"github.com/kailas-cloud/meiligate/internal/version"
)

// The gateway client satisfies every use case contract.
var (
	_ indexuc.Gateway    = (*meili.Client)(nil)
	_ documentuc.Gateway = (*meili.Client)(nil)
	_ searchuc.Gateway   = (*meili.Client)(nil)
	_ settingsuc.Gateway = (*meili.Client)(nil)
	_ adminuc.Gateway    = (*meili.Client)(nil)
	_ healthuc.Pinger    = (*meili.Provider)(nil)
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envName)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(envName, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	environ, err := config.Environ(cfg.Meilisearch.DotenvPath)
	if err != nil {
		return fmt.Errorf("read environment: %w", err)
	}
	conn, err := config.ResolveConnection(environ)
	if err != nil {
		return err
	}

	logger.Info("Starting meiligate",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", envName),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("meilisearch", conn.Redacted()),
	)

	provider, err := meili.NewProvider(conn, meili.Options{
		RequestTimeout:   time.Duration(cfg.Meilisearch.RequestTimeoutSec) * time.Second,
		MaxIdleConns:     cfg.Meilisearch.MaxIdleConns,
		TaskWaitTimeout:  cfg.TaskWaitTimeout(),
		TaskPollInterval: cfg.TaskPollInterval(),
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("create meilisearch provider: %w", err)
	}

	// Register upstream metrics explicitly (no init())
	metrics.Register()

	server := chiTransport.NewServer(buildServices(cfg, provider), int64(cfg.HTTP.MaxBodyMB)<<20, logger)
	handler := server.Handler(
		jsonRecoverer(logger),
		chiMiddleware.RequestID,
		wideEventMiddleware(logger),
		chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys),
		metrics.Middleware(),
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting HTTP server", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
		defer cancel()

		var errs []error
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
		// In-flight handlers have returned their leases by now.
		if err := provider.Close(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("close provider: %w", err))
		}
		return errors.Join(errs...)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

func buildServices(cfg config.Config, provider *meili.Provider) chiTransport.Services {
	return chiTransport.Services{
		Indexes: indexuc.New(leaseAs[indexuc.Gateway](provider), indexuc.Options{
			EmptyListNotFound: cfg.Index.EmptyListNotFound,
			PageSize:          int64(cfg.Index.DefaultPageSize),
		}),
		Documents: documentuc.New(leaseAs[documentuc.Gateway](provider)).
			WithMaxPayloadSize(cfg.Documents.MaxPayloadSizeMiB << 20).
			WithPageSize(int64(cfg.Documents.DefaultPageSize)),
		Search:   searchuc.New(leaseAs[searchuc.Gateway](provider)),
		Settings: settingsuc.New(leaseAs[settingsuc.Gateway](provider)),
		Admin:    adminuc.New(leaseAs[adminuc.Gateway](provider)),
		Health:   healthuc.New(provider, time.Duration(cfg.Meilisearch.HealthCheckTimeoutSec)*time.Second),
	}
}

// leaseAs adapts the provider to a use case's Acquirer.
func leaseAs[G any](p *meili.Provider) func(context.Context) (G, func(), error) {
	return func(ctx context.Context) (G, func(), error) {
		var zero G
		c, release, err := p.Acquire(ctx)
		if err != nil {
			return zero, nil, err
		}
		return any(c).(G), release, nil
	}
}
