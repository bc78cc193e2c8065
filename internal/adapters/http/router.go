// Package http assembles the chi router and HTTP server. CORS sits
// outermost so every response — authorization denials and panics included —
// carries the cross-origin headers; errors raised deeper in the chain once
// bypassed them.
package http

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"retail-service/internal/adapters/http/handlers"
	"retail-service/internal/adapters/http/middleware"
	"retail-service/internal/infrastructure/auth"
	"retail-service/internal/infrastructure/config"
	"retail-service/internal/service/billing"
	"retail-service/internal/service/catalog"
	"retail-service/internal/service/identity"
	"retail-service/internal/service/reporting"
	"retail-service/internal/service/sales"
	"retail-service/internal/service/stock"
)

// RouterConfig holds everything the router needs.
type RouterConfig struct {
	Config   *config.Config
	Logger   *zap.Logger
	JWT      *auth.JWTService
	Identity *identity.Service
	Catalog  *catalog.Service
	Stock    *stock.Service
	Sales    *sales.Service
	Report   *reporting.Service
	Billing  *billing.Service
	Verifier handlers.SignatureVerifier
}

// NewRouter creates the HTTP router with all routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Config.CORS.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", handlers.WebhookSignatureHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(cfg.Config.App.Timeout))
	r.Use(chimiddleware.Heartbeat("/health"))

	r.Handle("/metrics", promhttp.Handler())

	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT, cfg.Identity)

	authHandler := handlers.NewAuthHandler(cfg.Identity)
	productHandler := handlers.NewProductHandler(cfg.Catalog)
	stockHandler := handlers.NewStockHandler(cfg.Stock)
	saleHandler := handlers.NewSaleHandler(cfg.Sales)
	reportHandler := handlers.NewReportHandler(cfg.Report)
	subscriptionHandler := handlers.NewSubscriptionHandler(cfg.Billing, cfg.Verifier)
	memberHandler := handlers.NewMemberHandler(cfg.Identity)

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/auth", authHandler.PublicRoutes())
		r.Mount("/webhooks", subscriptionHandler.WebhookRoutes())

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			r.Mount("/session", authHandler.Routes())
			r.Mount("/products", productHandler.Routes())
			r.Mount("/categories", productHandler.CategoryRoutes())
			r.Mount("/units", productHandler.UnitRoutes())
			r.Mount("/stock", stockHandler.Routes())
			r.Mount("/sales", saleHandler.Routes())
			r.Mount("/reports", reportHandler.Routes())
			r.Mount("/subscription", subscriptionHandler.Routes())
			r.Mount("/members", memberHandler.Routes())
			r.Mount("/branches", memberHandler.BranchRoutes())
		})
	})

	return r
}
