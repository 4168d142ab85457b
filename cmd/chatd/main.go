package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/rickgao/chat-relay/internal/config"
	"github.com/rickgao/chat-relay/internal/connection"
	"github.com/rickgao/chat-relay/internal/crossnode"
	"github.com/rickgao/chat-relay/internal/dispatch"
	"github.com/rickgao/chat-relay/internal/heartbeat"
	"github.com/rickgao/chat-relay/internal/presence"
	"github.com/rickgao/chat-relay/internal/registry"
	"github.com/rickgao/chat-relay/internal/rtc"
	"github.com/rickgao/chat-relay/internal/server"
	"github.com/rickgao/chat-relay/internal/store"
	"github.com/rickgao/chat-relay/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/chatd.local.yaml", "path to config file")
	flag.Parse()

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	slog.SetDefault(logger)

	logger.Info("starting chatd",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("configuration loaded",
		"node_id", cfg.Node.ID,
		"addr", cfg.Server.Addr,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to the shared store (presence + cross-node pub/sub)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()

	logger.Info("redis connected", "addr", cfg.Redis.Addr)

	// Connect to the relational collaborators
	pool, err := store.Connect(ctx, cfg.Database.Postgres)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	logger.Info("database connected",
		"host", cfg.Database.Postgres.Host,
		"database", cfg.Database.Postgres.Name,
	)

	// Assemble the routing core, leaves first
	dir := presence.NewRedis(rdb)

	reg := registry.New(registry.Config{
		NodeID:      cfg.Node.ID,
		PresenceTTL: cfg.Heartbeat.PresenceTTL,
		ShardCount:  cfg.Connections.ShardCount,
	}, dir, logger)

	bus := crossnode.NewBus(rdb, cfg.Node.ID, logger)
	sink := store.NewMessageStore(pool, 3*time.Second, logger)
	dispatcher := dispatch.New(cfg.Node.ID, reg, dir, bus, sink, logger)
	listener := crossnode.NewListener(rdb, cfg.Node.ID, dispatcher, logger)
	relay := rtc.NewRelay(dispatcher, logger)

	var srv *server.Server
	monitor := heartbeat.NewMonitor(heartbeat.Config{
		Window:        cfg.Heartbeat.Window,
		Grace:         cfg.Heartbeat.Grace,
		SweepInterval: cfg.Heartbeat.SweepInterval,
		PresenceTTL:   cfg.Heartbeat.PresenceTTL,
		NodeID:        cfg.Node.ID,
	}, reg, dir, func(c *connection.Conn) { srv.OnEvict(c) }, logger)

	srv = server.New(server.Config{
		NodeID:         cfg.Node.ID,
		Path:           cfg.Server.Path,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Server.RateLimit,
		RateBurst:      cfg.Server.RateBurst,
		Conn: connection.Config{
			QueueSize:    cfg.Connections.QueueSize,
			WriteTimeout: cfg.Connections.WriteTimeout,
			PingInterval: cfg.Connections.PingInterval,
			ReadLimit:    cfg.Connections.ReadLimit,
		},
	}, server.Deps{
		Registry:   reg,
		Dispatcher: dispatcher,
		Monitor:    monitor,
		Relay:      relay,
		Tokens:     store.NewTokenStore(pool, logger),
		Authorizer: store.NewRelationStore(pool, logger),
	}, logger)

	// Start background components
	if err := listener.Start(ctx); err != nil {
		logger.Error("failed to start cross-node listener", "error", err)
		os.Exit(1)
	}
	if err := monitor.Start(ctx); err != nil {
		logger.Error("failed to start heartbeat monitor", "error", err)
		os.Exit(1)
	}

	wsServer := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: srv.Handler(),
	}
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Health.Port),
		Handler: createHealthHandler(cfg.Health.Path, rdb, pool, reg, dispatcher),
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("websocket server listening", "addr", cfg.Server.Addr, "path", cfg.Server.Path)
		if err := wsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("websocket server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		logger.Info("health server listening", "port", cfg.Health.Port)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		_ = wsServer.Shutdown(shutdownCtx)
		_ = healthServer.Shutdown(shutdownCtx)
		_ = monitor.Stop(shutdownCtx)
		_ = listener.Stop(shutdownCtx)
		return nil
	})

	logger.Info("chatd running",
		"node_id", cfg.Node.ID,
		"health_url", fmt.Sprintf("http://localhost:%d%s", cfg.Health.Port, cfg.Health.Path),
	)

	if err := g.Wait(); err != nil {
		logger.Error("chatd exited with error", "error", err)
		os.Exit(1)
	}

	logger.Info("chatd stopped")
}

// createHealthHandler reports the health of the shared store, the
// database, and the local registry.
func createHealthHandler(path string, rdb *redis.Client, pool interface {
	Ping(ctx context.Context) error
}, reg *registry.Registry, dispatcher *dispatch.Dispatcher) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := rdb.Ping(ctx).Err(); err != nil {
			health.Status = "unhealthy"
			health.Components["redis"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["redis"] = "connected"
		}

		if err := pool.Ping(ctx); err != nil {
			health.Status = "degraded"
			health.Components["postgres"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["postgres"] = "connected"
		}

		stats := dispatcher.Stats()
		health.Components["routing"] = map[string]any{
			"connections": reg.Len(),
			"delivered":   stats.Delivered,
			"forwarded":   stats.Forwarded,
			"offline":     stats.Offline,
			"dropped":     stats.Dropped,
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(health)
	})

	return mux
}
