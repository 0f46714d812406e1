package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/merchantkit/admin-api/internal/domain"
	"github.com/merchantkit/admin-api/internal/service"
	"github.com/merchantkit/admin-api/pkg/health"
	"github.com/merchantkit/admin-api/pkg/middleware"
)

// RouterConfig carries the HTTP-surface settings the router needs.
type RouterConfig struct {
	// JWTSecret protects the admin routes when non-empty. Health,
	// metrics, catalog reads and the slug lookup stay public.
	JWTSecret string

	// AllowedOrigins is the CORS allowlist for the admin routes.
	AllowedOrigins []string

	// RateLimitRPS/Burst enable per-IP rate limiting when RPS > 0.
	RateLimitRPS   int
	RateLimitBurst int
}

// Services groups the service dependencies of the router.
type Services struct {
	Discounts *service.DiscountService
	Listings  *service.ListingService
	Pages     *service.PageService
	Catalog   *service.CatalogService
}

// NewRouter creates a chi router with all admin API routes registered.
func NewRouter(svcs Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(middleware.CORSConfig{AllowedOrigins: cfg.AllowedOrigins}))
	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics("admin_api"))
	if cfg.RateLimitRPS > 0 {
		r.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	discountHandler := NewDiscountHandler(svcs.Discounts, logger)
	listingHandler := NewListingHandler(svcs.Listings, logger)
	pageHandler := NewPageHandler(svcs.Pages, logger)
	catalogHandler := NewCatalogHandler(svcs.Catalog, logger)

	auth := func(next http.Handler) http.Handler { return next }
	if cfg.JWTSecret != "" {
		auth = middleware.JWTAuth(cfg.JWTSecret, logger)
	}

	r.Route("/api/v1/discounts", func(r chi.Router) {
		r.Use(auth)
		r.Use(ContentTypeJSON)

		r.Post("/", discountHandler.CreateDiscount)
		r.Get("/", discountHandler.ListDiscounts)

		// Code check must come before /{id} to avoid conflict.
		r.Get("/code-check", discountHandler.CheckCode)

		r.Get("/{id}", discountHandler.GetDiscount)
		r.Put("/{id}", discountHandler.UpdateDiscount)
		r.Delete("/{id}", discountHandler.DeleteDiscount)
		r.Post("/{id}/duplicate", discountHandler.DuplicateDiscount)
		r.Get("/{id}/form", discountHandler.GetForm)
	})

	r.Route("/api/v1/listings", func(r chi.Router) {
		r.Use(auth)
		r.Use(ContentTypeJSON)

		r.Post("/", listingHandler.CreateListing)
		r.Get("/", listingHandler.ListListings)

		// Bulk endpoint must come before /{id} to avoid conflict.
		r.Put("/bulk", listingHandler.BulkUpdateListings)

		r.Get("/{id}", listingHandler.GetListing)
		r.Put("/{id}", listingHandler.UpdateListing)
		r.Delete("/{id}", listingHandler.DeleteListing)
		r.Get("/{id}/country-prices", listingHandler.GetCountryPrices)
	})

	// The price-rule editor fills its country dropdown from here.
	r.With(auth).Get("/api/v1/countries", listingHandler.ListCountries)

	r.Route("/api/v1/pages", func(r chi.Router) {
		r.Use(auth)
		r.Use(ContentTypeJSON)

		r.Post("/", pageHandler.CreatePage)
		r.Get("/", pageHandler.ListPages)
		r.Get("/{id}", pageHandler.GetPage)
		r.Put("/{id}", pageHandler.UpdatePage)
		r.Delete("/{id}", pageHandler.DeletePage)
		r.Put("/{id}/sections/reorder", pageHandler.ReorderSections)
	})

	// Catalog reads are public: the id-resolver client calls them over
	// HTTP without admin credentials.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", catalogHandler.SearchProducts)
		r.Get("/suggest", catalogHandler.Suggest(domain.KindProducts))

		// The slug lookup serves storefront previews from other origins,
		// so it alone gets wide-open CORS.
		r.With(middleware.AllowAll()).Get("/slug/{slug}", catalogHandler.GetProductBySlug)

		r.Get("/{id}", catalogHandler.GetProduct)
	})

	r.Route("/api/v1/collections", func(r chi.Router) {
		r.Get("/", catalogHandler.SearchCollections)
		r.Get("/suggest", catalogHandler.Suggest(domain.KindCollections))
		r.Get("/{id}", catalogHandler.GetCollection)
	})

	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", catalogHandler.SearchCategories)
		r.Get("/suggest", catalogHandler.Suggest(domain.KindCategories))
		r.Get("/{id}", catalogHandler.GetCategory)
	})

	return r
}
