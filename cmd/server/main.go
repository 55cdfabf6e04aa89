// Package main is the entry point for the buildledger API server.
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

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"buildledger/internal/app"
	"buildledger/internal/config"
	"buildledger/internal/domain/notification"
	"buildledger/internal/infrastructure/auth"
	v1 "buildledger/internal/infrastructure/http/v1"
	"buildledger/internal/infrastructure/http/v1/handlers"
	"buildledger/internal/infrastructure/realtime"
	"buildledger/internal/infrastructure/redis"
	"buildledger/internal/infrastructure/storage/postgres"
	"buildledger/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.Development(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting buildledger server", "storage", cfg.StorageDriver, "redis", cfg.RedisEnabled())

	openCtx, cancelOpen := context.WithTimeout(ctx, time.Minute)
	rt, err := app.Open(openCtx, cfg)
	cancelOpen()
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer rt.Close()

	hub := realtime.NewHub(cfg.CORSOrigins)
	go hub.Run(ctx)

	opts := rt.Options()
	opts.Publisher = publisher(rt, hub)
	if rt.Redis != nil {
		go func() {
			if err := redis.Subscribe(ctx, rt.Redis, hub.Deliver); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorw("notification subscriber stopped", "error", err)
			}
		}()
	}

	services, err := app.NewServices(rt.Storage, opts)
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}
	go drainDispatchErrors(ctx, services.Notifications)

	rateLimiter, err := newLimiter(rt)
	if err != nil {
		log.Fatalw("failed to configure rate limiter", "error", err)
	}

	jwtConfig := auth.DefaultJWTConfig(cfg.JWTSecret)
	jwtConfig.Issuer = cfg.JWTIssuer
	jwtService := auth.NewJWTService(jwtConfig)

	routerCfg := v1.RouterConfig{
		Services:     services,
		Logger:       log,
		JWTValidator: jwtService,
		Limiter:      rateLimiter,
		CORSOrigins:  cfg.CORSOrigins,
		Hub:          hub,
		Checks:       checks(rt),
		Debug:        cfg.Development(),
	}
	if cfg.IdempotencyEnabled {
		routerCfg.Idempotency = rt.Storage.Idempotency
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      v1.NewRouter(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server...")

	// Give outstanding requests 30 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}
	log.Info("server stopped")
}

// publisher picks the delivery path for live notifications. With Postgres
// and Redis, events go through the outbox and the worker relays them; the
// subscriber above feeds them to the hub.
func publisher(rt *app.Runtime, hub *realtime.Hub) notification.Publisher {
	switch {
	case rt.TxManager != nil && rt.Redis != nil:
		return postgres.NewOutboxPublisher(rt.TxManager)
	case rt.Redis != nil:
		return redis.NewPublisher(rt.Redis)
	default:
		return realtime.NewPublisher(hub)
	}
}

func newLimiter(rt *app.Runtime) (*limiter.Limiter, error) {
	if rt.Config.RateLimit == "" || rt.Config.RateLimit == "off" {
		return nil, nil
	}
	rate, err := limiter.NewRateFromFormatted(rt.Config.RateLimit)
	if err != nil {
		return nil, fmt.Errorf("RATE_LIMIT %q: %w", rt.Config.RateLimit, err)
	}

	store := memory.NewStore()
	if rt.Redis != nil {
		store, err = sredis.NewStoreWithOptions(rt.Redis, limiter.StoreOptions{
			Prefix: "buildledger:ratelimit",
		})
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
	}
	return limiter.New(store, rate), nil
}

func checks(rt *app.Runtime) map[string]handlers.Check {
	out := map[string]handlers.Check{}
	if rt.Pool != nil {
		out["postgres"] = func(ctx context.Context) error { return rt.Pool.Ping(ctx) }
	}
	if rt.Redis != nil {
		out["redis"] = func(ctx context.Context) error { return rt.Redis.Ping(ctx).Err() }
	}
	return out
}

func drainDispatchErrors(ctx context.Context, d *notification.Dispatcher) {
	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-d.Errors():
			if !ok {
				return
			}
			logger.Warn(ctx, "notification delivery failed", "error", err)
		}
	}
}
