package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lysyi3m/ad-comb/app/ads"
	"github.com/lysyi3m/ad-comb/app/api"
	"github.com/lysyi3m/ad-comb/app/cache"
	"github.com/lysyi3m/ad-comb/app/cfg"
	"github.com/lysyi3m/ad-comb/app/database"
	"github.com/lysyi3m/ad-comb/app/metrics"
	"github.com/lysyi3m/ad-comb/app/seed"
	"github.com/lysyi3m/ad-comb/app/storage"
	"github.com/lysyi3m/ad-comb/app/tasks"
)

func main() {
	config, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if config == nil {
		// Help was shown
		return
	}

	setupLogger(config.Debug)

	slog.Info("Starting Ad Comb server", "version", config.Version)

	db, err := database.NewConnection(config.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", config.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", config.DBPath, "schema_version", version, "dirty", dirty)

	registry := metrics.NewRegistry()

	adRepo := database.NewAdRepository(db)
	postRepo := database.NewPostRepository(db)
	notificationRepo := database.NewNotificationRepository(db)

	assets, err := storage.NewLocalStore(config.AssetsDir)
	if err != nil {
		slog.Error("Failed to open asset storage", "dir", config.AssetsDir, "error", err)
		os.Exit(1)
	}

	rotationCache, advancer := newRotationCache(registry)
	defer rotationCache.Close()

	rotatorOpts := []ads.RotatorOption{ads.WithObserver(registry)}
	if advancer != nil {
		rotatorOpts = append(rotatorOpts, ads.WithAtomicCursor(advancer))
	}
	rotator := ads.NewRotator(adRepo, rotationCache, rotatorOpts...)

	lifecycle := ads.NewLifecycle(adRepo, ads.NewInvalidator(rotationCache), notificationRepo, assets)
	feeds := ads.NewFeedService(postRepo, adRepo)

	if config.SeedFile != "" {
		catalog, err := seed.NewLoader(config.SeedFile).Load()
		if err != nil {
			slog.Error("Failed to load seed catalog", "path", config.SeedFile, "error", err)
			os.Exit(1)
		}
		if err := seed.Apply(context.Background(), catalog, lifecycle, postRepo, assets); err != nil {
			slog.Error("Failed to apply seed catalog", "path", config.SeedFile, "error", err)
			os.Exit(1)
		}
	}

	counts, err := adRepo.CountByStatus(context.Background())
	if err != nil {
		slog.Warn("Failed to count ads", "error", err)
	} else {
		slog.Info("Ads loaded", "active", counts[ads.StatusActive], "pending", counts[ads.StatusPending],
			"paused", counts[ads.StatusPaused], "expired", counts[ads.StatusExpired])
	}

	reaper := tasks.NewScheduler(func(now time.Time) []tasks.TaskInterface {
		return []tasks.TaskInterface{
			tasks.NewExpireAdsTask(now, adRepo, lifecycle, notificationRepo, registry),
			tasks.NewPurgeAdsTask(now, config.RetentionDays, adRepo, lifecycle, registry),
		}
	}, config.WorkerCount, config.ReapOnStart)

	slog.Info("Starting daily reaper", "workers", config.WorkerCount, "retention_days", config.RetentionDays,
		"run_on_start", config.ReapOnStart)
	reaper.Start()
	defer reaper.Stop()

	handler := api.NewHandler(rotator, feeds, lifecycle, db, rotationCache, registry, config.Version)
	server := api.NewServer(handler, config.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", config.Port, "admin_auth", config.APIAccessKey != "")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Ad Comb server shutdown complete")
}

func setupLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	var handler slog.Handler
	if debug {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// newRotationCache returns the Redis-backed cache, or a no-op cache when no
// address is configured. The advancer is non-nil only for atomic cursors.
func newRotationCache(registry *metrics.Registry) (cache.CacheInterface, ads.CursorAdvancer) {
	config := cfg.Get()
	if config.RedisAddr == "" {
		slog.Info("Rotation cache disabled, every request rebuilds its rotation")
		return cache.Noop{}, nil
	}

	client := cache.NewClient(config.RedisAddr, config.RedisPassword, config.RedisDB)
	rc := cache.NewRotationCache(client, cache.Options{
		TTL:      config.RotationTTL,
		Timeout:  config.CacheTimeout,
		Recorder: registry,
	})

	health := rc.Health(context.Background())
	slog.Info("Rotation cache configured", "addr", config.RedisAddr, "status", health["status"],
		"ttl", config.RotationTTL, "atomic_cursor", config.RotationAtomic)

	if config.RotationAtomic {
		return rc, rc
	}
	return rc, nil
}
