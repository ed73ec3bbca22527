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

	gcs "cloud.google.com/go/storage"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"hrportfolio.dev/web/internal/offline"
	"hrportfolio.dev/web/internal/platform/config"
	"hrportfolio.dev/web/internal/platform/observability"
)

const installRetryInterval = 10 * time.Second

func main() {
	baseLogger, err := observability.NewLogger("portfolio-offline")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	logger := baseLogger.Named("offline")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(observability.WithLogger(ctx, logger), logger)
	stop()
	if err != nil {
		logger.Error("offline proxy stopped", zap.Error(err))
		_ = baseLogger.Sync()
		os.Exit(1)
	}
	_ = baseLogger.Sync()
}

// run serves the proxy until ctx ends. A lifecycle failure stops the server and is
// returned so the process exits non-zero and its supervisor restarts it.
func run(ctx context.Context, logger *zap.Logger) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	storage, closeStorage, err := newStorage(ctx, cfg.Offline)
	if err != nil {
		return fmt.Errorf("cache storage %s: %w", cfg.Offline.Backend, err)
	}
	defer func() {
		if err := closeStorage(); err != nil {
			logger.Warn("cache storage close error", zap.Error(err))
		}
	}()

	worker, err := offline.NewWorker(cfg.Offline.Origin, storage,
		offline.WithCacheName(cfg.Offline.CacheName),
		offline.WithManifest(offline.Manifest(cfg.Offline.Manifest)),
		offline.WithFetcher(&http.Client{Timeout: cfg.Server.RequestTimeout}),
		offline.WithLogger(logger.Named("worker")),
	)
	if err != nil {
		return fmt.Errorf("initialise worker: %w", err)
	}

	server := &http.Server{
		Addr:              cfg.Offline.Addr(),
		Handler:           newRouter(worker, logger),
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return lifecycle(gctx, worker, logger, installRetryInterval)
	})
	g.Go(func() error {
		logger.Info("offline proxy listening",
			zap.String("addr", server.Addr),
			zap.String("origin", cfg.Offline.Origin),
			zap.String("cache", worker.CacheName()),
			zap.String("backend", cfg.Offline.Backend),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// newStorage opens the configured generation backend. The returned close func releases
// any client it created.
func newStorage(ctx context.Context, cfg config.OfflineConfig) (offline.Storage, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Backend {
	case config.BackendMemory, "":
		return offline.NewMemoryStorage(), noop, nil
	case config.BackendRedis:
		client := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs: []string{cfg.RedisAddr},
			DB:    cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		s, err := offline.NewRedisStorage(client, offline.WithRedisNamespace(cfg.RedisNamespace))
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return s, client.Close, nil
	case config.BackendGCS:
		client, err := gcs.NewClient(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("storage client: %w", err)
		}
		s, err := offline.NewGCSStorage(client.Bucket(cfg.GCSBucket), offline.WithGCSPrefix(cfg.GCSPrefix))
		if err != nil {
			_ = client.Close()
			return nil, nil, err
		}
		return s, client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func newRouter(worker *offline.Worker, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.Stack(logger)...)

	r.Method(http.MethodGet, offline.StatusPath, offline.StatusHandler(worker))
	r.Handle("/*", offline.Handler(worker))
	return r
}

// lifecycle installs and activates the generation, retrying a failed install every
// interval until it succeeds or ctx ends. Requests pass through to the origin meanwhile.
// A failed activation is returned so the process exits and its supervisor restarts it.
func lifecycle(ctx context.Context, worker *offline.Worker, logger *zap.Logger, interval time.Duration) error {
	for {
		err := worker.Install(ctx)
		if err == nil {
			break
		}
		logger.Warn("install failed; serving from origin", zap.Duration("retry_in", interval), zap.Error(err))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(interval):
		}
	}
	if err := worker.Activate(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		logger.Error("activate failed; cache will not serve until restart", zap.Error(err))
		return fmt.Errorf("activate %s: %w", worker.CacheName(), err)
	}
	gens, _ := worker.Generations(ctx)
	logger.Info("offline cache active", zap.String("cache", worker.CacheName()), zap.Strings("generations", gens))
	return nil
}
