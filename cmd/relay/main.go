package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"tictactoe_relay/internal/config"
	"tictactoe_relay/internal/fanout"
	httpServer "tictactoe_relay/internal/http"
	"tictactoe_relay/internal/http/handlers"
	"tictactoe_relay/internal/http/middleware"
	"tictactoe_relay/internal/logger"
	"tictactoe_relay/internal/metrics"
	"tictactoe_relay/internal/repository"
	"tictactoe_relay/internal/service"
	"tictactoe_relay/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Version устанавливается при сборке
var Version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}

	logger.Init(cfg.LogLevel, cfg.JSONLogs())

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid config", "error", err)
	}
	logger.Debug("config loaded", "backend", cfg.RegistryBackend, "port", cfg.AppPort, "ttl", cfg.SessionTTL)
	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openRegistry(ctx, cfg, logger.Get())
	if err != nil {
		logger.Fatal("failed to open session registry", "backend", cfg.RegistryBackend, "error", err)
	}
	logger.Info("session registry ready", "backend", cfg.RegistryBackend, "ttl", cfg.SessionTTL)

	if store.purger != nil {
		go repository.RunJanitor(ctx, store.purger, cfg.JanitorInterval, logger.With("component", "janitor"))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	relayMetrics := metrics.NewRelay(reg)

	relay := service.NewRelayService(store.registry, relayMetrics)
	hub := ws.NewHub(relay, relayMetrics, logger.With("component", "hub"))

	var bridge *fanout.Bridge
	if cfg.NATSURL != "" {
		bridge, err = fanout.Connect(cfg.NATSURL, cfg.NATSSubject, logger.With("component", "fanout"))
		if err != nil {
			logger.Fatal("failed to connect fanout", "error", err)
		}
		if err := bridge.Start(hub.DeliverLocal); err != nil {
			logger.Fatal("failed to subscribe fanout", "error", err)
		}
		hub.SetBridge(bridge)
		logger.Info("cross-instance fanout enabled", "subject", cfg.NATSSubject)
	}

	var auth *service.TokenAuth
	if cfg.JWTSecret != "" {
		auth = service.NewTokenAuth(cfg.JWTSecret)
		logger.Info("relay token auth enabled")
	}

	var limiter *middleware.RateLimiter
	if cfg.RedisURL != "" && cfg.RateLimitPerMinute > 0 {
		rdb, err := newRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("rate limiter disabled", "error", err)
		} else {
			defer rdb.Close()
			limiter = middleware.NewRateLimiter(rdb, cfg.RedisKeyPrefix, cfg.RateLimitPerMinute, logger.With("component", "ratelimit"))
		}
	}

	wsHandler := ws.NewWSHandler(hub, auth, cfg.AllowedOrigin)
	wsHandler.BaseContext = ctx

	h := handlers.NewHandler(store.registry, Version)
	h.Ping = store.ping

	r := httpServer.NewRouter(httpServer.Routes{
		Handler:       h,
		WS:            wsHandler,
		RateLimiter:   limiter,
		Gatherer:      reg,
		AllowedOrigin: cfg.AllowedOrigin,
		Log:           logger.Get(),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// hijacked websocket-соединения http.Server не закрывает, это делает hub
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := hub.Shutdown(shutdownCtx); err != nil {
		logger.Error("hub shutdown incomplete", "error", err)
	}
	if bridge != nil {
		if err := bridge.Close(); err != nil {
			logger.Warn("fanout close failed", "error", err)
		}
	}
	if err := store.registry.Close(); err != nil {
		logger.Warn("registry close failed", "error", err)
	}

	logger.Info("server exited")
}
