package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/tablehub/internal/adapter/httpserver"
	"github.com/pscheid92/tablehub/internal/adapter/redis"
	"github.com/pscheid92/tablehub/internal/broadcast"
	"github.com/pscheid92/tablehub/internal/hub"
	"github.com/pscheid92/tablehub/internal/metrics"
	"github.com/pscheid92/tablehub/internal/platform/config"
	"github.com/pscheid92/tablehub/internal/platform/logging"
	"github.com/pscheid92/tablehub/internal/platform/version"
	"github.com/pscheid92/tablehub/internal/state"
)

func runGracefulShutdown(cfg *config.Config, srv *httpserver.Server, h *hub.Hub, mirror *redis.EventMirror, redisClient *redis.Client) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		h.Stop()

		if mirror != nil {
			mirror.Close()
		}
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				slog.Error("Failed to close Redis client", "error", err)
			}
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupRedis(cfg *config.Config, clock clockwork.Clock) *redis.Client {
	client, err := redis.NewClient(cfg.RedisURL)
	if err != nil {
		slog.Error("Failed to create Redis client", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := client.WaitReady(ctx, clock); err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	build := version.Get()
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "build", build)
	metrics.BuildInfo.WithLabelValues(build.Version, build.Commit, build.BuildTime, build.GoVersion).Set(1)

	var (
		redisClient *redis.Client
		mirror      *redis.EventMirror
	)
	if cfg.MirrorEnabled() {
		redisClient = setupRedis(cfg, clock)
		mirror = redis.NewEventMirror(redisClient, cfg.RedisChannelPrefix)
		slog.Info("Event mirror enabled", "prefix", cfg.RedisChannelPrefix)
	}

	store := state.NewStore(state.DefaultTables(cfg.SeedTables))
	broadcaster := broadcast.NewBroadcaster(clock, cfg.MaxWebSocketConnections)
	opts := hub.Options{
		SyncStateOnConnect:    cfg.SyncStateOnConnect,
		BroadcastTableUpdates: cfg.BroadcastTableUpdates,
	}

	// Pass nil explicitly to avoid a typed-nil interface
	var h *hub.Hub
	if mirror != nil {
		h = hub.New(store, broadcaster, mirror, clock, opts)
	} else {
		h = hub.New(store, broadcaster, nil, clock, opts)
	}

	healthChecks := []httpserver.HealthCheck{
		{Name: "hub", Check: func(context.Context) error {
			if h.ClientCount() < 0 {
				return errors.New("hub not responding")
			}
			return nil
		}},
	}
	if redisClient != nil {
		healthChecks = append(healthChecks, httpserver.HealthCheck{Name: "redis", Check: redisClient.Ping})
	}

	srv := httpserver.NewServer(cfg, h, healthChecks)

	done := runGracefulShutdown(cfg, srv, h, mirror, redisClient)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
