package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/giftwell-app/giftwell-backend/api/controllers"
	"github.com/giftwell-app/giftwell-backend/api/middleware"
	"github.com/giftwell-app/giftwell-backend/internal/addressing"
	"github.com/giftwell-app/giftwell-backend/internal/catalog"
	"github.com/giftwell-app/giftwell-backend/internal/connections"
	"github.com/giftwell-app/giftwell-backend/internal/executions"
	"github.com/giftwell-app/giftwell-backend/internal/notifications"
	"github.com/giftwell-app/giftwell-backend/internal/nudges"
	"github.com/giftwell-app/giftwell-backend/internal/orders"
	"github.com/giftwell-app/giftwell-backend/internal/rules"
	"github.com/giftwell-app/giftwell-backend/internal/users"
	"github.com/giftwell-app/giftwell-backend/internal/wishlist"
	"github.com/giftwell-app/giftwell-backend/pkg/auth/session"
	"github.com/giftwell-app/giftwell-backend/pkg/config"
	"github.com/giftwell-app/giftwell-backend/pkg/db"
	"github.com/giftwell-app/giftwell-backend/pkg/logger"
	"github.com/giftwell-app/giftwell-backend/pkg/redis"
)

type sessionManager interface {
	session.AccessSessionChecker
	Rotate(context.Context, string, string) (string, string, error)
	Revoke(context.Context, string) error
}

// Services groups everything the router mounts. Nil services leave their
// routes responding with an internal error instead of panicking at boot.
type Services struct {
	Users         users.Service
	Connections   connections.Service
	Rules         rules.Service
	Executions    executions.Service
	Addressing    addressing.Service
	Orders        orders.Service
	Nudges        nudges.Service
	Notifications notifications.Service
	Wishlists     wishlist.Service
	Catalog       catalog.Service
}

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	sessions sessionManager,
	registry *prometheus.Registry,
	svcs Services,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, redisClient, logg)).
			With(middleware.Idempotency(redisClient, logg)).
			Post("/register", controllers.Register(svcs.Users, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, redisClient, logg)).
			Post("/login", controllers.Login(svcs.Users, logg))
		r.Post("/refresh", controllers.Refresh(svcs.Users, logg))
	})

	// Address collection is reached from an emailed link; the capability
	// token in the query string is the only credential.
	r.Route("/collect-address", func(r chi.Router) {
		r.Get("/", controllers.GetAddressForm(svcs.Addressing, logg))
		r.Post("/", controllers.SubmitAddress(svcs.Addressing, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, sessions, logg))
		r.Use(middleware.Idempotency(redisClient, logg))

		r.Post("/auth/logout", controllers.Logout(svcs.Users, logg))

		r.Route("/users/me", func(r chi.Router) {
			r.Get("/", controllers.GetMe(svcs.Users, logg))
			r.Patch("/", controllers.UpdateMe(svcs.Users, logg))
			r.Put("/shipping-address", controllers.UpdateShippingAddress(svcs.Users, logg))
		})

		r.Route("/connections", func(r chi.Router) {
			r.Get("/", controllers.ListConnections(svcs.Connections, logg))
			r.Post("/", controllers.LinkConnection(svcs.Connections, logg))
		})

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", controllers.ListRules(svcs.Rules, logg))
			r.Post("/", controllers.CreateRule(svcs.Rules, logg))
			r.Get("/{id}", controllers.GetRule(svcs.Rules, logg))
			r.Patch("/{id}", controllers.UpdateRule(svcs.Rules, logg))
			r.Delete("/{id}", controllers.DeactivateRule(svcs.Rules, logg))
		})

		r.Route("/settings", func(r chi.Router) {
			r.Get("/", controllers.GetSettings(svcs.Rules, logg))
			r.Put("/", controllers.UpdateSettings(svcs.Rules, logg))
		})

		r.Route("/executions", func(r chi.Router) {
			r.Get("/", controllers.ListExecutions(svcs.Executions, logg))
			r.Get("/{id}", controllers.GetExecution(svcs.Executions, logg))
			r.Post("/{id}/approve", controllers.ApproveExecution(svcs.Executions, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(svcs.Orders, logg))
			r.Get("/{id}", controllers.GetOrder(svcs.Orders, logg))
		})

		r.Route("/nudges", func(r chi.Router) {
			r.Get("/", controllers.ListNudges(svcs.Nudges, logg))
			r.Post("/", controllers.SendNudge(svcs.Nudges, svcs.Users, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svcs.Notifications, logg))
			r.Get("/unread-count", controllers.CountUnreadNotifications(svcs.Notifications, logg))
			r.Post("/{id}/read", controllers.MarkNotificationRead(svcs.Notifications, logg))
		})

		r.Route("/wishlists", func(r chi.Router) {
			r.Get("/", controllers.ListWishlists(svcs.Wishlists, logg))
			r.Post("/", controllers.CreateWishlist(svcs.Wishlists, logg))
			r.Get("/{id}/items", controllers.GetWishlistItems(svcs.Wishlists, logg))
			r.Post("/{id}/items", controllers.AddWishlistItem(svcs.Wishlists, logg))
			r.Delete("/{id}/items/{productID}", controllers.RemoveWishlistItem(svcs.Wishlists, logg))
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListCatalogProducts(svcs.Catalog, logg))
			r.Get("/{id}", controllers.GetCatalogProduct(svcs.Catalog, logg))
		})
	})

	r.Route("/api/internal/v1", func(r chi.Router) {
		r.Use(middleware.InternalToken(cfg.Internal.Token, logg))
		r.Post("/events/{id}/process", controllers.ProcessEvent(svcs.Executions, logg))
	})

	return r
}
