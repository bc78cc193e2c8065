// Package app wires the whole platform together: configuration, storage,
// gateway, brokers, services, the HTTP server, and the embedded scheduler.
package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"retail-service/internal/adapters/gateway/payflow"
	httpadapter "retail-service/internal/adapters/http"
	"retail-service/internal/adapters/notifier"
	"retail-service/internal/adapters/repository"
	"retail-service/internal/domain/subscription"
	"retail-service/internal/infrastructure/auth"
	"retail-service/internal/infrastructure/config"
	"retail-service/internal/infrastructure/log"
	"retail-service/internal/infrastructure/store"
	"retail-service/internal/service/billing"
	"retail-service/internal/service/catalog"
	"retail-service/internal/service/identity"
	"retail-service/internal/service/reporting"
	"retail-service/internal/service/sales"
	"retail-service/internal/service/scheduler"
	stockservice "retail-service/internal/service/stock"
	broker "retail-service/pkg/broker/nats"
	"retail-service/pkg/broker/rabbitmq"
)

const shutdownTimeout = 15 * time.Second

// Run initializes the whole application.
func Run() {
	logger := log.New()
	defer logger.Sync()

	cfg, err := config.New()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	db, err := store.New(cfg.Store.DSN)
	if err != nil {
		logger.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	if err := store.RunMigrations(cfg.Store.DSN); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

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

	gateway := payflow.New(payflow.Config{
		BaseURL:       cfg.Gateway.BaseURL,
		Secret:        cfg.Gateway.Secret,
		Public:        cfg.Gateway.Public,
		WebhookSecret: cfg.Gateway.WebhookSecret,
		CallbackURL:   cfg.Gateway.CallbackURL,
		Timeout:       cfg.Gateway.Timeout,
	})

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

	var receipts sales.ReceiptPublisher
	if cfg.RabbitMQ.URL != "" {
		queue, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.Queue)
		if err != nil {
			logger.Fatal("failed to connect to rabbitmq", zap.Error(err))
		}
		defer queue.Close()
		receipts = queue
	}

	jwtService := auth.NewJWTService(cfg.Session.Secret, cfg.Session.TokenTTL, cfg.Session.Issuer)

	identityService := identity.New(repos.User, repos.Tenant, repos.Membership, jwtService, identity.Defaults{
		Currency:        cfg.Tenant.CurrencyDefault,
		TaxRate:         cfg.Tenant.TaxRateDefault,
		Timezone:        cfg.Tenant.TimezoneDefault,
		TrialPeriodDays: cfg.Tenant.TrialPeriodDays,
	})
	catalogService := catalog.New(repos.Product, repos.Stock, repos.Tenant)
	stockService := stockservice.New(repos.Stock, repos.Product)
	salesService := sales.New(repos.Sale, repos.Product, repos.Stock, repos.Tenant, receipts)
	reportingService := reporting.New(repos.Report, repos.Tenant)
	billingService := billing.New(repos.Tenant, repos.Subscription, gateway, billingNotifier, billingPricing(cfg, logger))

	if cfg.Seed.Demo {
		if err := seedDemo(context.Background(), logger, cfg, identityService, repos); err != nil {
			logger.Error("demo seed failed", zap.Error(err))
		}
	}

	server := httpadapter.NewServer(httpadapter.RouterConfig{
		Config:   cfg,
		Logger:   logger,
		JWT:      jwtService,
		Identity: identityService,
		Catalog:  catalogService,
		Stock:    stockService,
		Sales:    salesService,
		Report:   reportingService,
		Billing:  billingService,
		Verifier: gateway,
	})
	server.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Scheduler.Embedded {
		hour, minute, _ := cfg.Scheduler.FireTime()
		daily := scheduler.New(repos.Tenant, repos.Subscription, billingNotifier, redisClient, hour, minute, logger)
		go daily.Run(ctx)
	}

	logger.Info("platform started", zap.String("addr", cfg.App.Port))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("platform stopped")
}

// billingPricing builds the pure pricing table from configuration.
func billingPricing(cfg *config.Config, logger *zap.Logger) subscription.Pricing {
	base, err := decimal.NewFromString(cfg.Billing.BaseMonthlyPrice)
	if err != nil {
		logger.Fatal("invalid BILLING_BASE_MONTHLY_PRICE", zap.Error(err))
	}
	rate, err := decimal.NewFromString(cfg.Billing.BranchRate)
	if err != nil {
		logger.Fatal("invalid BILLING_BRANCH_RATE", zap.Error(err))
	}
	return subscription.Pricing{Base: base, BranchRate: rate}
}
