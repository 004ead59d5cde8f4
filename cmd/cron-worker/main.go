package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/giftwell-app/giftwell-backend/internal/addressing"
	"github.com/giftwell-app/giftwell-backend/internal/catalog"
	"github.com/giftwell-app/giftwell-backend/internal/cron"
	"github.com/giftwell-app/giftwell-backend/internal/executions"
	"github.com/giftwell-app/giftwell-backend/internal/notifications"
	"github.com/giftwell-app/giftwell-backend/internal/orders"
	"github.com/giftwell-app/giftwell-backend/internal/rules"
	"github.com/giftwell-app/giftwell-backend/internal/selection"
	"github.com/giftwell-app/giftwell-backend/internal/users"
	"github.com/giftwell-app/giftwell-backend/internal/wishlist"
	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/mailer"
	"github.com/giftwell-app/giftwell-backend/pkg/metrics"
	"github.com/giftwell-app/giftwell-backend/pkg/migrate"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox/idempotency"
	"github.com/giftwell-app/giftwell-backend/pkg/redis"
	"github.com/giftwell-app/giftwell-backend/pkg/square"
)

const lockKeyFormat = "gw:cron-worker:lock:%s"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "cron-worker"

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	orchestrator, err := buildOrchestrator(ctx, cfg, logg, dbClient, redisClient)
	if err != nil {
		logg.Error(ctx, "failed to build execution orchestrator", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	rulesRepo := rules.NewRepository(conn)

	registry := cron.NewRegistry(
		cron.NewOccasionScanJob(cron.OccasionScanParams{
			Rules:        rulesRepo,
			Users:        users.NewRepository(conn),
			Events:       executions.NewRepository(conn),
			Orchestrator: orchestrator,
			Logger:       logg,
			LeadDays:     cfg.Gifting.OccasionLeadDays,
		}),
		cron.NewAddressExpiryJob(addressing.NewRepository(conn), orchestrator, logg, nil),
		cron.NewBudgetRolloverJob(rulesRepo, logg, nil),
	)

	metricsCollector := metrics.NewCronJobMetrics(prometheus.DefaultRegisterer)
	lock, err := cron.NewRedisLock(redisClient, lockKey(cfg.App.Env), 0)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metricsCollector,
		Interval: cfg.Cron.Interval,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "starting cron worker")

	if err := service.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "cron worker shutting down gracefully")
}

// buildOrchestrator wires the execution pipeline the scan and expiry jobs
// drive. It mirrors the api wiring minus the HTTP-only services.
func buildOrchestrator(ctx context.Context, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, redisClient *redis.Client) (executions.Service, error) {
	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)

	mailClient, err := mailer.NewClient(cfg.Sendgrid, logg)
	if err != nil {
		return nil, err
	}
	squareClient, err := square.NewClient(ctx, cfg.Square, logg)
	if err != nil {
		return nil, err
	}
	processedMarker, err := idempotency.NewManager(redisClient, 0)
	if err != nil {
		return nil, err
	}

	notificationsSvc, err := notifications.NewService(notifications.ServiceParams{
		Repo:   notifications.NewRepository(conn),
		Logger: logg,
	})
	if err != nil {
		return nil, err
	}

	selectorSvc, err := selection.NewService(selection.ServiceParams{
		Wishlists: wishlist.NewRepository(conn),
		Catalog:   catalog.NewRepository(conn),
		Gifting:   cfg.Gifting,
		Logger:    logg,
	})
	if err != nil {
		return nil, err
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(conn),
		Tx:       dbClient,
		Outbox:   outboxSvc,
		Payments: squareClient,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	addressingSvc, err := addressing.NewService(addressing.ServiceParams{
		Repo:    addressing.NewRepository(conn),
		Tx:      dbClient,
		Outbox:  outboxSvc,
		Mailer:  mailClient,
		Logger:  logg,
		App:     cfg.App,
		Gifting: cfg.Gifting,
	})
	if err != nil {
		return nil, err
	}

	orchestrator, err := executions.NewService(executions.ServiceParams{
		Repo:          executions.NewRepository(conn),
		Tx:            dbClient,
		Outbox:        outboxSvc,
		Rules:         rules.NewRepository(conn),
		Users:         users.NewRepository(conn),
		Selector:      selectorSvc,
		Orders:        ordersSvc,
		Addressing:    addressingSvc,
		Notifications: notificationsSvc,
		Idempotency:   processedMarker,
		Logger:        logg,
		Gifting:       cfg.Gifting,
	})
	if err != nil {
		return nil, err
	}
	addressingSvc.SetApprover(orchestrator)
	return orchestrator, nil
}

func lockKey(env string) string {
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf(lockKeyFormat, env)
}
