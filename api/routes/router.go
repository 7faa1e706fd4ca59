package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quenbyco/storefront-backend/api/controllers"
	"github.com/quenbyco/storefront-backend/api/middleware"
	addresssvc "github.com/quenbyco/storefront-backend/internal/address"
	cartsvc "github.com/quenbyco/storefront-backend/internal/cart"
	"github.com/quenbyco/storefront-backend/internal/catalog"
	checkoutsvc "github.com/quenbyco/storefront-backend/internal/checkout"
	orderssvc "github.com/quenbyco/storefront-backend/internal/orders"
	"github.com/quenbyco/storefront-backend/pkg/config"
	"github.com/quenbyco/storefront-backend/pkg/logger"
	"github.com/quenbyco/storefront-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	promRegistry *prometheus.Registry,
	catalogService catalog.Service,
	cartService cartsvc.Service,
	addressService addresssvc.Service,
	checkoutService checkoutsvc.Service,
	orderService orderssvc.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	var redisPinger controllers.Pinger
	var idempotencyStore redis.IdempotencyStore
	if redisClient != nil {
		redisPinger = redisClient
		idempotencyStore = redisClient
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})

	if promRegistry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{}))
	}

	// Catalog is browsable without credentials.
	r.Route("/api/v1/catalog", func(r chi.Router) {
		r.Get("/products", controllers.CatalogSearch(catalogService, logg))
		r.Get("/products/{productId}", controllers.CatalogProductDetail(catalogService, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Identity(cfg.JWT, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartFetch(cartService, logg))
			r.Delete("/", controllers.CartClear(cartService, logg))
			r.Get("/validate", controllers.CartValidate(cartService, logg))
			r.Post("/merge", controllers.CartMerge(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{itemId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{itemId}", controllers.CartRemoveItem(cartService, logg))
		})

		r.Route("/addresses", func(r chi.Router) {
			r.Get("/", controllers.AddressList(addressService, logg))
			r.Post("/", controllers.AddressCreate(addressService, logg))
			r.Get("/{addressId}", controllers.AddressDetail(addressService, logg))
			r.Delete("/{addressId}", controllers.AddressDelete(addressService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/", controllers.CheckoutStart(checkoutService, logg))
			r.Get("/{checkoutId}", controllers.CheckoutDetail(checkoutService, logg))
			r.Post("/{checkoutId}/address", controllers.CheckoutSubmitAddress(checkoutService, logg))
			r.Post("/{checkoutId}/confirm", controllers.CheckoutConfirm(checkoutService, logg))
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrdersList(orderService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(orderService, logg))
		})
	})

	return r
}
