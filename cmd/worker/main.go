// Package main is the entry point for the buildledger background worker.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"buildledger/internal/app"
	"buildledger/internal/config"
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

	if cfg.StorageDriver == config.DriverMemory {
		log.Fatal("worker needs shared storage; STORAGE_DRIVER=memory is per process")
	}

	openCtx, cancelOpen := context.WithTimeout(ctx, time.Minute)
	rt, err := app.Open(openCtx, cfg)
	cancelOpen()
	if err != nil {
		log.Fatalw("failed to open storage", "error", err)
	}
	defer rt.Close()

	services, err := app.NewServices(rt.Storage, rt.Options())
	if err != nil {
		log.Fatalw("failed to build services", "error", err)
	}

	w := &Worker{
		services:          services,
		idempotency:       rt.Storage.Idempotency,
		pool:              rt.Pool,
		pollInterval:      cfg.OutboxPollInterval,
		reconcileInterval: cfg.ReconcileInterval,
		log:               log.WithComponent("worker"),
	}
	if rt.Redis != nil {
		w.relay = postgres.NewOutboxRelay(rt.TxManager, cfg.OutboxBatchSize, redis.NewPublisher(rt.Redis))
	} else {
		log.Warn("REDIS_ADDRESS not set; outbox relay disabled")
	}

	log.Info("starting buildledger worker")
	w.Run(ctx)
	log.Info("worker stopped")
}
