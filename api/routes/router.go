package routes

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/geoinstrumentos/catalog-backend/api/controllers"
	"github.com/geoinstrumentos/catalog-backend/api/middleware"
	"github.com/geoinstrumentos/catalog-backend/internal/auth"
	"github.com/geoinstrumentos/catalog-backend/internal/checkout"
	product "github.com/geoinstrumentos/catalog-backend/internal/products"
	producttype "github.com/geoinstrumentos/catalog-backend/internal/producttypes"
	upload "github.com/geoinstrumentos/catalog-backend/internal/uploads"
	"github.com/geoinstrumentos/catalog-backend/pkg/config"
	"github.com/geoinstrumentos/catalog-backend/pkg/logger"
	"github.com/geoinstrumentos/catalog-backend/pkg/metrics"
	"github.com/geoinstrumentos/catalog-backend/pkg/redis"
)

// Deps carries everything the router wires into handlers. Limiter and
// Gatherer are optional.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	Ready        map[string]controllers.Pinger
	Gate         *auth.Gate
	Guard        *auth.Guard
	Limiter      redis.RateLimiter
	Products     product.Service
	Catalog      product.Catalog
	ProductTypes producttype.Service
	Uploads      upload.Service
	Checkout     checkout.Service
	HTTPMetrics  *metrics.HTTPMetrics
	Gatherer     prometheus.Gatherer
}

func NewRouter(deps Deps) http.Handler {
	cfg, logg := deps.Config, deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(observer(deps.HTTPMetrics)),
		middleware.CORS(cfg.App.AllowedOrigins()),
		middleware.RouteGuard(deps.Guard, deps.Gate, logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, deps.Ready, logg))
	})

	if deps.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{}))
	}

	trusted, err := cfg.AuthRateLimit.TrustedProxyPrefixes()
	if err != nil && logg != nil {
		logg.Warn(logg.WithField(context.Background(), "error", err.Error()), "auth.trusted_proxies.invalid")
	}
	loginPolicy := middleware.LoginRateLimitPolicy{
		Window:         cfg.AuthRateLimit.LoginWindow,
		IPLimit:        cfg.AuthRateLimit.LoginIPLimit,
		TrustedProxies: trusted,
	}

	r.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.LoginRateLimit(loginPolicy, deps.Limiter, logg)).Post("/login", controllers.AuthLogin(deps.Gate, deps.Limiter, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Gate, logg))
		r.Get("/session", controllers.AuthSession(deps.Gate, logg))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.Get("/products", controllers.PublicListProducts(deps.Catalog, logg))
		r.Get("/products/{id}", controllers.PublicGetProduct(deps.Catalog, logg))
		r.Get("/product-types", controllers.PublicListProductTypes(deps.ProductTypes, logg))
		r.Post("/checkout/whatsapp", controllers.WhatsAppHandoff(deps.Checkout, logg))
	})

	r.Route(middleware.AdminAPIPrefix, func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.AdminListProducts(deps.Products, logg))
			r.Post("/", controllers.AdminCreateProduct(deps.Products, logg))
			r.Get("/{id}", controllers.AdminGetProduct(deps.Products, logg))
			r.Patch("/{id}", controllers.AdminUpdateProduct(deps.Products, logg))
			r.Delete("/{id}", controllers.AdminDeleteProduct(deps.Products, logg))
		})
		r.Route("/product-types", func(r chi.Router) {
			r.Get("/", controllers.AdminListProductTypes(deps.ProductTypes, logg))
			r.Post("/", controllers.AdminCreateProductType(deps.ProductTypes, logg))
			r.Patch("/{id}", controllers.AdminUpdateProductType(deps.ProductTypes, logg))
			r.Delete("/{id}", controllers.AdminDeactivateProductType(deps.ProductTypes, logg))
			r.Post("/{id}/reactivate", controllers.AdminReactivateProductType(deps.ProductTypes, logg))
		})
		r.Route("/uploads", func(r chi.Router) {
			r.Post("/", controllers.AdminUpload(deps.Uploads, cfg.Upload.MaxUploadBytes(), logg))
			r.Post("/presign", controllers.AdminPresignUpload(deps.Uploads, logg))
		})
	})

	if site := NewStaticSite(cfg.App.WebDir); site != nil {
		r.Method(http.MethodGet, "/*", site)
		r.Method(http.MethodHead, "/*", site)
	}

	return r
}

// observer avoids handing a typed nil to the metrics middleware.
func observer(m *metrics.HTTPMetrics) middleware.HTTPObserver {
	if m == nil {
		return nil
	}
	return m
}
