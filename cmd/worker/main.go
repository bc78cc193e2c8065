// The worker runs the expiry scheduler as a standalone process, for
// deployments that keep background billing maintenance out of the API
// replicas. The Redis daily sentinel makes running both harmless.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"retail-service/internal/adapters/notifier"
	"retail-service/internal/adapters/repository"
	"retail-service/internal/domain/subscription"
	"retail-service/internal/infrastructure/config"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/internal/service/scheduler"
	broker "retail-service/pkg/broker/nats"
)

func main() {
	logger := log.New()
	defer logger.Sync()

	logger.Info("starting worker")

	cfg, err := config.New()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := store.New(cfg.Store.DSN)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	var redisClient *redis.Client
	if cfg.Redis.URL != "" {
		redisStore, err := store.NewRedis(cfg.Redis.URL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		redisClient = redisStore.Connection
		defer redisClient.Close()
	}

	repos, err := repository.New(repository.WithPostgresStore(db.Client))
	if err != nil {
		logger.Fatal("failed to initialize repositories", zap.Error(err))
	}

	var billingNotifier subscription.Notifier = subscription.NopNotifier{}
	if cfg.NATS.URL != "" {
		js, err := broker.New(broker.Config{
			URL:        cfg.NATS.URL,
			StreamName: cfg.NATS.StreamName,
			Subjects:   []string{cfg.NATS.Subject + ".>"},
			MaxAge:     7 * 24 * time.Hour,
		})
		if err != nil {
			logger.Fatal("failed to connect to nats", zap.Error(err))
		}
		defer js.Close()
		billingNotifier = notifier.NewNATS(js, cfg.NATS.Subject)
	}

	hour, minute, err := cfg.Scheduler.FireTime()
	if err != nil {
		logger.Fatal("invalid scheduler time", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	daily := scheduler.New(repos.Tenant, repos.Subscription, billingNotifier, redisClient, hour, minute, logger)
	go daily.Run(ctx)

	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	cancel()
	logger.Info("worker stopped")
}
