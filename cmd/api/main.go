package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/giftwell-app/giftwell-backend/api"
	"github.com/giftwell-app/giftwell-backend/api/routes"
	"github.com/giftwell-app/giftwell-backend/internal/addressing"
	"github.com/giftwell-app/giftwell-backend/internal/catalog"
	"github.com/giftwell-app/giftwell-backend/internal/connections"
	"github.com/giftwell-app/giftwell-backend/internal/executions"
	"github.com/giftwell-app/giftwell-backend/internal/notifications"
	"github.com/giftwell-app/giftwell-backend/internal/nudges"
	"github.com/giftwell-app/giftwell-backend/internal/orders"
	"github.com/giftwell-app/giftwell-backend/internal/rules"
	"github.com/giftwell-app/giftwell-backend/internal/selection"
	"github.com/giftwell-app/giftwell-backend/internal/users"
	"github.com/giftwell-app/giftwell-backend/internal/wishlist"
	"github.com/giftwell-app/giftwell-backend/pkg/aitext"
	"github.com/giftwell-app/giftwell-backend/pkg/auth/session"
	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/mailer"
	"github.com/giftwell-app/giftwell-backend/pkg/migrate"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox"
	"github.com/giftwell-app/giftwell-backend/pkg/outbox/idempotency"
	"github.com/giftwell-app/giftwell-backend/pkg/redis"
	"github.com/giftwell-app/giftwell-backend/pkg/square"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		logg.Warn(ctx, ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(ctx, "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(ctx, "failed to create session manager", err)
		os.Exit(1)
	}

	mailClient, err := mailer.NewClient(cfg.Sendgrid, logg)
	if err != nil {
		logg.Error(ctx, "failed to create mail client", err)
		os.Exit(1)
	}
	composer, err := aitext.NewClient(cfg.OpenAI, logg)
	if err != nil {
		logg.Error(ctx, "failed to create ai composer", err)
		os.Exit(1)
	}
	squareClient, err := square.NewClient(ctx, cfg.Square, logg)
	if err != nil {
		logg.Error(ctx, "failed to create square client", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(conn), logg)
	processedMarker, err := idempotency.NewManager(redisClient, 24*time.Hour)
	if err != nil {
		logg.Error(ctx, "failed to create idempotency manager", err)
		os.Exit(1)
	}

	usersRepo := users.NewRepository(conn)
	connectionsRepo := connections.NewRepository(conn)
	rulesRepo := rules.NewRepository(conn)
	executionsRepo := executions.NewRepository(conn)
	addressingRepo := addressing.NewRepository(conn)
	ordersRepo := orders.NewRepository(conn)
	nudgesRepo := nudges.NewRepository(conn)
	notificationsRepo := notifications.NewRepository(conn)
	wishlistRepo := wishlist.NewRepository(conn)
	catalogRepo := catalog.NewRepository(conn)

	usersSvc, err := users.NewService(users.ServiceParams{
		Repo:           usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(ctx, "failed to create users service", err)
		os.Exit(1)
	}

	connectionsSvc, err := connections.NewService(connections.ServiceParams{
		Repo:  connectionsRepo,
		Users: usersRepo,
	})
	if err != nil {
		logg.Error(ctx, "failed to create connections service", err)
		os.Exit(1)
	}

	rulesSvc, err := rules.NewService(rules.ServiceParams{
		Repo:            rulesRepo,
		ConnectionsRepo: connectionsRepo,
		Gifting:         cfg.Gifting,
	})
	if err != nil {
		logg.Error(ctx, "failed to create rules service", err)
		os.Exit(1)
	}

	notificationsSvc, err := notifications.NewService(notifications.ServiceParams{
		Repo:   notificationsRepo,
		Logger: logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notifications service", err)
		os.Exit(1)
	}

	wishlistSvc, err := wishlist.NewService(wishlist.ServiceParams{
		WishlistRepo: wishlistRepo,
		CatalogRepo:  catalogRepo,
	})
	if err != nil {
		logg.Error(ctx, "failed to create wishlist service", err)
		os.Exit(1)
	}

	catalogSvc, err := catalog.NewService(catalog.ServiceParams{Repo: catalogRepo})
	if err != nil {
		logg.Error(ctx, "failed to create catalog service", err)
		os.Exit(1)
	}

	selectorSvc, err := selection.NewService(selection.ServiceParams{
		Wishlists: wishlistRepo,
		Catalog:   catalogRepo,
		Gifting:   cfg.Gifting,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create selection service", err)
		os.Exit(1)
	}

	ordersSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     ordersRepo,
		Tx:       dbClient,
		Outbox:   outboxSvc,
		Payments: squareClient,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(ctx, "failed to create orders service", err)
		os.Exit(1)
	}

	addressingSvc, err := addressing.NewService(addressing.ServiceParams{
		Repo:    addressingRepo,
		Tx:      dbClient,
		Outbox:  outboxSvc,
		Mailer:  mailClient,
		Logger:  logg,
		App:     cfg.App,
		Gifting: cfg.Gifting,
	})
	if err != nil {
		logg.Error(ctx, "failed to create addressing service", err)
		os.Exit(1)
	}

	executionsSvc, err := executions.NewService(executions.ServiceParams{
		Repo:          executionsRepo,
		Tx:            dbClient,
		Outbox:        outboxSvc,
		Rules:         rulesRepo,
		Users:         usersRepo,
		Selector:      selectorSvc,
		Orders:        ordersSvc,
		Addressing:    addressingSvc,
		Notifications: notificationsSvc,
		Idempotency:   processedMarker,
		Logger:        logg,
		Gifting:       cfg.Gifting,
	})
	if err != nil {
		logg.Error(ctx, "failed to create executions service", err)
		os.Exit(1)
	}
	// address submission resumes the paused execution synchronously
	addressingSvc.SetApprover(executionsSvc)

	nudgesSvc, err := nudges.NewService(nudges.ServiceParams{
		Repo:            nudgesRepo,
		ConnectionsRepo: connectionsRepo,
		Tx:              dbClient,
		Outbox:          outboxSvc,
		Composer:        composer,
		Mailer:          mailClient,
		Logger:          logg,
		Nudge:           cfg.Nudge,
	})
	if err != nil {
		logg.Error(ctx, "failed to create nudges service", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()

	handler := routes.NewRouter(cfg, logg, dbClient, redisClient, sessionManager, registry, routes.Services{
		Users:         usersSvc,
		Connections:   connectionsSvc,
		Rules:         rulesSvc,
		Executions:    executionsSvc,
		Addressing:    addressingSvc,
		Orders:        ordersSvc,
		Nudges:        nudgesSvc,
		Notifications: notificationsSvc,
		Wishlists:     wishlistSvc,
		Catalog:       catalogSvc,
	})

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootCtx := logg.WithFields(runCtx, map[string]any{
		"env":  cfg.App.Env,
		"port": cfg.App.Port,
	})
	logg.Info(bootCtx, "starting api server")

	server := api.NewServer(cfg, logg, handler)
	if err := server.Run(runCtx); err != nil {
		logg.Error(bootCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(bootCtx, "api server stopped")
}
