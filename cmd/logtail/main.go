package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/jonny/logtail/internal/adapter/inbound/httpapi"
	"github.com/jonny/logtail/internal/adapter/inbound/httpapi/middleware"
	"github.com/jonny/logtail/internal/adapter/outbound/notification"
	slacknotifier "github.com/jonny/logtail/internal/adapter/outbound/notification/slack"
	"github.com/jonny/logtail/internal/adapter/outbound/persistence/kvstore"
	"github.com/jonny/logtail/internal/adapter/outbound/persistence/sqlite"
	"github.com/jonny/logtail/internal/config"
	"github.com/jonny/logtail/internal/domain/model"
	"github.com/jonny/logtail/internal/domain/port/outbound"
	"github.com/jonny/logtail/internal/domain/service"
	"github.com/jonny/logtail/internal/observability/metrics"
	"github.com/jonny/logtail/pkg/health"
	"github.com/jonny/logtail/pkg/version"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	printVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *printVersion {
		fmt.Println(version.String())
		os.Exit(0)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger = buildLogger(cfg.Logging)
	slog.SetDefault(logger)

	metrics.Init()

	// --- Database ---
	repo, ping, closeStore, err := openRepository(cfg.Database)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// --- Domain services ---
	tailer := service.NewTailer(repo, model.SystemClock{}, service.Limits{
		Default: cfg.Tail.DefaultLimit,
		Max:     cfg.Tail.MaxLimit,
	}, logger)

	// --- Notifier ---
	if cfg.Notify.Enabled {
		minLevel, err := model.ParseLevel(cfg.Notify.MinLevel)
		if err != nil {
			logger.Error("invalid notify.minLevel", "error", err)
			os.Exit(1)
		}
		var notifier outbound.EntryNotifier
		if cfg.Notify.Slack.BotToken != "" {
			notifier = slacknotifier.NewNotifier(slacknotifier.Config{
				BotToken:       cfg.Notify.Slack.BotToken,
				DefaultChannel: cfg.Notify.Slack.DefaultChannel,
				Channels:       cfg.Notify.Slack.Channels,
			})
		} else {
			logger.Warn("slack bot token not configured; notifications are logged only")
			notifier = notification.NewNoopNotifier(logger)
		}
		tailer.WithNotifier(notifier, minLevel)
	}

	// --- HTTP API ---
	var limiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
			TrustProxy:        cfg.RateLimit.TrustProxy,
			MaxClients:        cfg.RateLimit.MaxClients,
		})
	}

	apiServer := httpapi.NewServer(httpapi.ServerConfig{
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		MaxBodyBytes:    cfg.Server.MaxBodyBytes,
		BearerToken:     cfg.Auth.BearerToken,
		HMACSecret:      cfg.Auth.HMACSecret,
	}, httpapi.NewHandler(tailer, logger), limiter, logger)

	if cfg.Auth.BearerToken == "" && cfg.Auth.HMACSecret == "" {
		logger.Warn("api authentication disabled; set auth.bearerToken or auth.hmacSecret")
	}

	// --- Health checker ---
	checker := health.NewChecker()
	checker.Register("database", ping)

	// --- Metrics server ---
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsMux.HandleFunc("/healthz", checker.LivenessHandler())
	metricsMux.HandleFunc("/readyz", checker.ReadinessHandler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: metricsMux,
	}

	// --- Signal handling & startup ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gCtx := errgroup.WithContext(ctx)

	// API HTTP server.
	g.Go(func() error {
		logger.Info("starting api server", "port", cfg.Server.Port)
		return apiServer.Start(gCtx)
	})

	// Metrics/health server.
	if cfg.Server.MetricsPort != 0 {
		g.Go(func() error {
			logger.Info("starting metrics server", "port", cfg.Server.MetricsPort)
			errCh := make(chan error, 1)
			go func() {
				if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()
			select {
			case <-gCtx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
				defer cancel()
				return metricsServer.Shutdown(shutdownCtx)
			case err := <-errCh:
				return err
			}
		})
	} else {
		logger.Info("metrics server disabled")
	}

	// Rate limiter eviction.
	if limiter != nil {
		g.Go(func() error {
			limiter.Run(gCtx)
			return nil
		})
	}

	logger.Info("logtail started", "version", version.String(), "driver", cfg.Database.Driver)

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("logtail stopped")
}

// openRepository opens the configured backend and returns the repository,
// a readiness probe and a close func.
func openRepository(cfg config.DatabaseConfig) (outbound.EntryRepository, health.CheckFunc, func() error, error) {
	switch cfg.Driver {
	case "leveldb":
		store, err := kvstore.Open(kvstore.Config{
			Path:        cfg.LevelDB.Path,
			CacheSizeMB: cfg.LevelDB.CacheSizeMB,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store.Ping, store.Close, nil
	case "sqlite":
		store, err := sqlite.NewStore(sqlite.Config{
			Path:              cfg.SQLite.Path,
			MaxOpenConns:      cfg.SQLite.MaxOpenConns,
			PragmaJournalMode: cfg.SQLite.PragmaJournalMode,
			PragmaBusyTimeout: cfg.SQLite.PragmaBusyTimeout,
		})
		if err != nil {
			return nil, nil, nil, err
		}
		return sqlite.NewEntryRepo(store), store.Ping, store.Close, nil
	}
	return nil, nil, nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// buildLogger constructs a slog.Logger based on config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := os.Stdout
	if cfg.Output == "stderr" {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}
