package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/spf13/cobra"

	"taskflow/internal/cache"
	"taskflow/internal/config"
	"taskflow/internal/server"
	"taskflow/internal/storage"
	"taskflow/internal/storage/postgres"
	"taskflow/internal/storage/sqlite"
	"taskflow/internal/task"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the task API and serve the web client",
		Long: `Run the task API.

Examples:
  taskflow serve
  taskflow serve --addr :8080 --db data/tasks.db
  taskflow serve --driver postgres --dsn postgres://localhost/taskflow --redis localhost:6379`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "HTTP listen address (default :3030)")
	cmd.Flags().String("static", "", "directory with the web client")
	cmd.Flags().String("driver", "", "store driver: sqlite or postgres")
	cmd.Flags().String("db", "", "path to the sqlite database file")
	cmd.Flags().String("dsn", "", "postgres connection string")
	cmd.Flags().String("redis", "", "redis address for the list cache (disabled when empty)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	logger.Info("TaskFlow", slog.String("version", Version))

	store := openStore(ctx, cfg.Store, logger)

	var (
		opts      []task.Option
		srvOpts   []server.Option
		listCache *cache.Cache
	)
	if cfg.Cache.RedisAddr != "" {
		listCache, err = cache.Dial(ctx, cacheConfig(cfg.Cache))
		if err != nil {
			logger.Warn("list cache disabled", slog.String("error", err.Error()))
			listCache = nil
		} else {
			opts = append(opts, task.WithCache(listCache))
			srvOpts = append(srvOpts, server.WithCacheStats(listCache.Snapshot))
			logger.Info("list cache enabled", slog.String("redis", cfg.Cache.RedisAddr), slog.Duration("ttl", cfg.Cache.TTL))
		}
	}

	srv := server.New(task.NewService(store, logger, opts...), logger, cfg.Server.StaticDir, srvOpts...)

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	wait := gfshutdown.GracefulShutdown(context.Background(), cfg.Server.ShutdownTimeout, shutdownOps(httpServer, store, listCache, logger))

	select {
	case err := <-listenErr:
		_ = store.Close()
		if listCache != nil {
			_ = listCache.Close()
		}
		return fmt.Errorf("listen on %s: %w", httpServer.Addr, err)
	case code := <-wait:
		logger.Info("server stopped", slog.Int("exit_code", code))
		if code != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", code)
		}
		return nil
	}
}

// shutdownOps stops the HTTP server first; the store and the cache close once
// in-flight requests have drained or the shutdown deadline passes.
func shutdownOps(httpServer *http.Server, store storage.Store, listCache *cache.Cache, logger *slog.Logger) map[string]gfshutdown.Operation {
	drained := make(chan struct{})
	afterDrain := func(ctx context.Context, name string, closeFn func() error) error {
		select {
		case <-drained:
		case <-ctx.Done():
		}
		logger.Info("closing " + name)
		return closeFn()
	}

	ops := map[string]gfshutdown.Operation{
		"http-server": func(ctx context.Context) error {
			defer close(drained)
			logger.Info("shutting down server")
			return httpServer.Shutdown(ctx)
		},
		"task-store": func(ctx context.Context) error {
			return afterDrain(ctx, "task store", store.Close)
		},
	}
	if listCache != nil {
		ops["list-cache"] = func(ctx context.Context) error {
			return afterDrain(ctx, "list cache", listCache.Close)
		}
	}
	return ops
}

// cacheConfig fills unset values from cache.DefaultConfig.
func cacheConfig(c config.CacheConfig) cache.Config {
	cfg := cache.DefaultConfig()
	cfg.RedisAddr = c.RedisAddr
	cfg.Password = c.Password
	cfg.DB = c.DB
	if c.Prefix != "" {
		cfg.Prefix = c.Prefix
	}
	if c.TTL > 0 {
		cfg.TTL = c.TTL
	}
	return cfg
}

// openStore connects the configured backend. A failed connection does not
// stop the server: requests fail with 500 and /healthz reports the cause.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) storage.Store {
	var (
		store storage.Store
		err   error
	)
	switch cfg.Driver {
	case config.DriverPostgres:
		var pg *postgres.Store
		pg, err = postgres.Open(ctx, cfg.DSN, logger)
		if err == nil {
			store = pg
		}
	default:
		var lite *sqlite.Store
		lite, err = sqlite.Open(cfg.Path, logger)
		if err == nil {
			store = lite
		}
	}
	if err != nil {
		logger.Error("unable to open task store", slog.String("driver", cfg.Driver), slog.String("error", err.Error()))
		return storage.Offline{Cause: err}
	}
	return store
}
