package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/killallgit/spectrogram-api/api"
	"github.com/killallgit/spectrogram-api/api/types"
	"github.com/killallgit/spectrogram-api/internal/database"
	"github.com/killallgit/spectrogram-api/internal/metrics"
	"github.com/killallgit/spectrogram-api/internal/services/cleanup"
	"github.com/killallgit/spectrogram-api/internal/services/history"
	"github.com/killallgit/spectrogram-api/internal/services/pipeline"
	"github.com/killallgit/spectrogram-api/internal/services/workers"
	"github.com/killallgit/spectrogram-api/pkg/config"
	"github.com/killallgit/spectrogram-api/pkg/download"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	serverHost string
	serverPort int
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long: `Start the Spectrogram API server with the configured settings.

The server renders spectrograms for share links posted to
/api/v1/spectrograms, records each render when a database is configured,
and exposes Prometheus metrics.

Example:
  spectro serve
  spectro serve --port 9090
  spectro serve --host 0.0.0.0 --port 8080`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Server flags
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (overrides config)")
}

// app holds every long-lived component of the server
type app struct {
	db      *database.DB
	pool    *workers.WorkerPool
	sweeper *cleanup.Service
	server  *api.Server
}

// newApp wires the server from configuration without starting anything
func newApp(cfg *config.Config, address string) (*app, error) {
	a := &app{}

	var pool *workers.WorkerPool
	var collector *metrics.Collector
	var pipelineOpts []pipeline.Option
	pipelineOpts = append(pipelineOpts, pipeline.WithTempDir(cfg.Storage.TempDir))

	if cfg.Monitoring.Enabled {
		collector = metrics.NewCollector(func() int {
			if pool == nil {
				return 0
			}
			return pool.QueueDepth()
		})
		pipelineOpts = append(pipelineOpts, pipeline.WithObserver(collector))
	}

	svc, err := buildPipeline(cfg, download.NewDownloader(cfg.DownloadOptions()), pipelineOpts...)
	if err != nil {
		return nil, err
	}

	var hooks []workers.CompletionHook
	if collector != nil {
		hooks = append(hooks, func(_ context.Context, _, _ string, _ *pipeline.Result, err error, _ time.Duration) {
			collector.RecordOutcome(err)
		})
	}

	var historySvc history.Service
	if cfg.HistoryEnabled() {
		db, err := database.InitializeWithMigrations(cfg.Database.Path, cfg.Database.Verbose)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		a.db = db
		historySvc = history.NewService(history.NewRepository(db.DB))
		hooks = append(hooks, recordHistory(historySvc))
	}

	pool = workers.NewWorkerPool(svc, cfg.WorkerOptions(), hooks...)
	a.pool = pool
	a.sweeper = cleanup.NewService(cfg.Storage.TempDir, strings.TrimSuffix(pipeline.TempPattern, "*"),
		cfg.Storage.MaxTempAge, cfg.Storage.CleanupInterval)

	deps := &types.Dependencies{
		DB:           a.db,
		Spectrograms: pool,
		History:      historySvc,
		Version:      Version,
	}
	if collector != nil {
		deps.MetricsHandler = collector.Handler()
	}

	a.server = api.NewServer(address, api.Options{
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		MaxHeaderBytes:   cfg.Server.MaxHeaderBytes,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		EnableCORS:       cfg.Security.EnableCORS,
		CORSOrigins:      cfg.Security.CORSOrigins,
		MetricsPath:      cfg.Monitoring.MetricsPath,
		RateLimitEnabled: cfg.RateLimit.Enabled,
		RatePerMinute:    cfg.RateLimit.RequestsPerMinute,
		RateBurst:        cfg.RateLimit.Burst,
	})
	a.server.SetDependencies(deps)
	if err := a.server.Initialize(); err != nil {
		a.close()
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	return a, nil
}

// recordHistory stores every finished job. Writes drop the caller's
// cancellation so a client disconnect never loses the audit entry.
func recordHistory(svc history.Service) workers.CompletionHook {
	return func(jobCtx context.Context, requestID, shareURL string, result *pipeline.Result, err error, elapsed time.Duration) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(jobCtx), 5*time.Second)
		defer cancel()
		if _, recErr := svc.Record(ctx, requestID, shareURL, result, err, elapsed); recErr != nil {
			logrus.WithError(recErr).WithField("request_id", requestID).Warn("Render not recorded")
		}
	}
}

// close releases the database
func (a *app) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := applyLogConfig(cmd, cfg); err != nil {
		return err
	}

	// Use config values if flags not provided
	host := cfg.Server.Host
	if serverHost != "" {
		host = serverHost
	}
	port := cfg.Server.Port
	if serverPort != 0 {
		port = serverPort
	}
	address := net.JoinHostPort(host, strconv.Itoa(port))

	a, err := newApp(cfg, address)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(contextOrBackground(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.pool.Start(ctx); err != nil {
		return err
	}
	a.sweeper.Start(ctx)

	logger := logrus.WithFields(logrus.Fields{
		"address": address,
		"workers": a.pool.Size(),
		"history": a.db != nil,
	})
	logger.Info("Starting Spectrogram API server")

	// Channel to receive server errors
	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server error: %w", err)
		}
	}()

	// Wait for interrupt signal or server error
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down server")
	case runErr = <-serverErr:
		logger.WithError(runErr).Error("Server failed, shutting down")
	}
	// Fail queued jobs now instead of after the shutdown timeout
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("Server forced to shutdown")
		runErr = errors.Join(runErr, err)
	}
	a.pool.Stop()
	a.sweeper.Stop()

	if runErr == nil {
		logger.Info("Server gracefully stopped")
	}
	return runErr
}

func contextOrBackground(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
