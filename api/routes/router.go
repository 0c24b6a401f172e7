package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/marketplace-backend/api/controllers"
	cartcontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/cart"
	ordercontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/orders"
	webhookcontrollers "github.com/angelmondragon/marketplace-backend/api/controllers/webhooks"
	"github.com/angelmondragon/marketplace-backend/api/middleware"
	"github.com/angelmondragon/marketplace-backend/internal/address"
	"github.com/angelmondragon/marketplace-backend/internal/cart"
	"github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/internal/coupons"
	"github.com/angelmondragon/marketplace-backend/internal/guests"
	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/returns"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
)

// checkoutIPMultiplier lets several buyers share one address (offices, NAT)
// before the per-IP counter trips.
const checkoutIPMultiplier = 5

type requestStore interface {
	middleware.ReplayStore
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

type signingSecretSource interface {
	SigningSecret() string
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// Params carries everything the HTTP surface is wired to.
type Params struct {
	Config       *config.Config
	Logger       *logger.Logger
	Verifier     identity.Verifier
	Store        requestStore
	Dependencies []controllers.Dependency
	Gatherer     prometheus.Gatherer

	Checkout  checkout.Service
	Orders    orders.Service
	Returns   returns.Service
	Guests    guests.Service
	Cart      cart.Service
	Addresses address.Service
	Coupons   coupons.Service
	Stores    middleware.SellerStoreResolver

	StripeWebhook webhookcontrollers.StripeWebhookService
	StripeClient  signingSecretSource
	StripeGuard   eventGuard
}

func NewRouter(p Params) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.PublicOrigin),
	)

	gatherer := p.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.Dependencies...))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(p.StripeWebhook, p.StripeClient, p.StripeGuard, logg))
	})

	checkoutPolicy := middleware.NewRateLimitPolicy(
		"checkout",
		cfg.Auth.RateLimitWindow,
		cfg.Auth.RateLimitCheckout*checkoutIPMultiplier,
		cfg.Auth.RateLimitCheckout,
	)

	replay := middleware.Replay(p.Store, middleware.StandardReplayWindow, logg)
	replayCritical := middleware.Replay(p.Store, middleware.CriticalReplayWindow, logg)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/guest/convert-account", controllers.GuestVerify(p.Guests, logg))
		r.With(replayCritical).Post("/guest/convert-account", controllers.GuestConvert(p.Guests, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.OptionalAuth(p.Verifier, logg),
				middleware.RateLimit(checkoutPolicy, p.Store, logg),
				replayCritical,
			)
			r.Post("/orders", ordercontrollers.PlaceOrder(p.Checkout, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(p.Verifier, logg))
			r.Get("/orders", ordercontrollers.List(p.Orders, logg))

			r.Get("/return-requests", controllers.ReturnRequestList(p.Returns, logg))
			r.With(replayCritical).Post("/return-requests", controllers.ReturnRequestCreate(p.Returns, logg))

			r.Get("/cart", cartcontrollers.CartFetch(p.Cart, logg))
			r.With(replay).Put("/cart", cartcontrollers.CartReplace(p.Cart, logg))

			r.Get("/addresses", controllers.AddressList(p.Addresses, logg))
			r.With(replay).Post("/addresses", controllers.AddressCreate(p.Addresses, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(p.Verifier, logg),
				middleware.SellerStore(p.Stores, logg),
				replay,
			)
			r.Route("/store", func(r chi.Router) {
				r.Route("/orders", func(r chi.Router) {
					r.Get("/", ordercontrollers.StoreList(p.Orders, logg))
					r.Post("/", ordercontrollers.StoreUpdateStatus(p.Orders, logg))
					r.Put("/{orderId}", ordercontrollers.StoreUpdateFulfillment(p.Orders, logg))
					r.Delete("/{orderId}", ordercontrollers.StoreDelete(p.Orders, logg))
				})
				r.Route("/return-requests", func(r chi.Router) {
					r.Get("/", controllers.StoreReturnRequestList(p.Returns, logg))
					r.Put("/{id}", controllers.StoreReturnRequestUpdate(p.Returns, logg))
				})
				r.Route("/coupons", func(r chi.Router) {
					r.Get("/", controllers.StoreCouponList(p.Coupons, logg))
					r.Post("/", controllers.StoreCouponCreate(p.Coupons, logg))
					r.Put("/{code}", controllers.StoreCouponUpdate(p.Coupons, logg))
					r.Delete("/{code}", controllers.StoreCouponDelete(p.Coupons, logg))
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(p.Verifier, logg),
				middleware.RequireAdmin(cfg.Auth, logg),
				replay,
			)
			r.Get("/admin/coupons", controllers.AdminCouponList(p.Coupons, logg))
			r.Post("/admin/coupons", controllers.AdminCouponCreate(p.Coupons, logg))
			r.Delete("/admin/coupons", controllers.AdminCouponDelete(p.Coupons, logg))
		})
	})

	return r
}
