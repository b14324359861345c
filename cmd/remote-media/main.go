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

	"github.com/rs/zerolog"

	"github.com/hfi/remote-media-staging/internal/attachment"
	"github.com/hfi/remote-media-staging/internal/cache"
	"github.com/hfi/remote-media-staging/internal/config"
	"github.com/hfi/remote-media-staging/internal/hooks"
	"github.com/hfi/remote-media-staging/internal/logging"
	"github.com/hfi/remote-media-staging/internal/media"
	"github.com/hfi/remote-media-staging/internal/metrics"
	"github.com/hfi/remote-media-staging/internal/server"
	"github.com/hfi/remote-media-staging/internal/storage"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "version" {
		fmt.Printf("Remote Media Staging %s\n", Version)
		fmt.Printf("Git Commit: %s\n", GitCommit)
		fmt.Printf("Build Time: %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("remote media service failed")
	}
}

// cacheStartupTimeout bounds the initial cache reachability check
const cacheStartupTimeout = 2 * time.Second

// openCacheStore never fails: a cache that is down at startup is reported and
// kept, since every lookup falls back to the database until it recovers.
func openCacheStore(ctx context.Context, cfg config.CacheConfig, logger zerolog.Logger) storage.CacheStore {
	if cfg.Type != "redis" {
		return storage.NewMemoryStore()
	}

	store := storage.NewRedisStore(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)

	pingCtx, cancel := context.WithTimeout(ctx, cacheStartupTimeout)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Warn().Err(err).Str("address", cfg.Redis.Address).
			Msg("redis cache unreachable, lookups go to the database until it recovers")
	}
	return store
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().Str("version", Version).Msg("remote media service starting")

	cacheStore := openCacheStore(ctx, cfg.Cache, logger)
	defer cacheStore.Close()

	db, err := attachment.OpenSQLite(ctx, cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	// An invalid origin disables rewriting; the service still runs and
	// passes every URL through.
	origin, err := media.ParseOrigin(cfg.Remote.URL)
	if err != nil {
		logger.Warn().Err(err).Msg("remote media rewriting disabled")
		origin = nil
	}

	lookups := cache.New(cacheStore, cache.Options{
		Group:     cfg.Cache.Group,
		TTL:       cfg.CacheTTL(),
		Multisite: cfg.Site.Multisite,
		SiteID:    cfg.Site.ID,
	}, logger)

	rewriter := media.New(origin,
		attachment.NewResolver(db, lookups, logger),
		attachment.NewClassifier(db, logger),
		logger,
	)

	events := hooks.NewDispatcher()
	rewriter.Register(events, events)

	api := &http.Server{
		Addr:              cfg.Hooks.Listen,
		Handler:           hooks.NewAPI(events, db, logger).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Str("addr", api.Addr).Msg("hook API listening")
		if err := api.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("hook API: %w", err)
		}
	}()

	var mgmt *server.Server
	if cfg.Metrics.Enabled {
		mcfg := server.DefaultConfig()
		mcfg.Addr = cfg.Metrics.Addr
		mcfg.Version = Version
		mcfg.Rewriting = rewriter.Enabled()
		mgmt = server.New(mcfg)
		mgmt.RegisterHealthCheck("cache", server.PingCheck(cacheStore))
		mgmt.RegisterHealthCheck("database", server.PingCheck(db))

		go func() {
			logger.Info().Str("addr", mgmt.Addr()).Msg("management server listening")
			if err := mgmt.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("management server: %w", err)
			}
		}()
		go reportCacheSize(ctx, cacheStore, 30*time.Second)
	}

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	case err := <-errCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := api.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("hook API shutdown failed")
	}
	if mgmt != nil {
		if err := mgmt.Stop(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("management server shutdown failed")
		}
	}
	return nil
}

// reportCacheSize periodically publishes the cache store size
func reportCacheSize(ctx context.Context, store storage.CacheStore, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		metrics.CacheStoreSize.Set(float64(store.Size()))
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
