package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cwrk-planet/presence-service/config"
	"github.com/cwrk-planet/presence-service/internal/auth"
	"github.com/cwrk-planet/presence-service/internal/bus"
	"github.com/cwrk-planet/presence-service/internal/memory"
	"github.com/cwrk-planet/presence-service/internal/postgres"
	"github.com/cwrk-planet/presence-service/internal/service"
	httpx "github.com/cwrk-planet/presence-service/internal/transport/http"
	"github.com/cwrk-planet/presence-service/internal/transport/ws"
	"github.com/cwrk-planet/presence-service/pkg/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting presence-service",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	ctx := context.Background()

	// --- storage ---
	var (
		presenceRepo service.PresenceRepo
		roomRepo     service.RoomRepo
	)
	switch cfg.Storage.Backend {
	case "memory":
		presenceRepo = memory.NewPresenceRepository()
		roomRepo = memory.NewRoomRepository()
	default:
		db, err := postgres.New(ctx, cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("postgres: %v", err)
		}
		defer db.Close()
		presenceRepo = postgres.NewPresenceRepository(db.Pool)
		roomRepo = postgres.NewRoomRepository(db.Pool)
	}

	// --- bus ---
	var groupBus bus.Bus
	if cfg.Bus.Backend == "redis" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatalf("redis: %v", err)
		}
		rb := bus.NewRedisBus(ctx, rdb)
		defer rb.Close()
		groupBus = rb
	} else {
		groupBus = bus.NewMemoryBus()
	}

	// --- services ---
	verifier := auth.NewVerifier(cfg.Auth.Secret, cfg.Auth.Issuer, cfg.Auth.Skew())
	lifecycle := service.NewRoomLifecycle(groupBus)
	roomSvc := service.NewRoomService(roomRepo, presenceRepo, lifecycle)
	presenceSvc := service.NewPresenceService(presenceRepo)

	// --- WS & HTTP ---
	wsServer := ws.NewServer(groupBus, presenceSvc, roomSvc, verifier)
	handler := httpx.NewHandler(roomSvc, presenceSvc)
	router := httpx.NewRouter(handler, verifier, wsServer)

	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
