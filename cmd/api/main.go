package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/marketplace-backend/api/controllers"
	"github.com/angelmondragon/marketplace-backend/api/routes"
	"github.com/angelmondragon/marketplace-backend/internal/address"
	"github.com/angelmondragon/marketplace-backend/internal/cart"
	"github.com/angelmondragon/marketplace-backend/internal/checkout"
	"github.com/angelmondragon/marketplace-backend/internal/coupons"
	"github.com/angelmondragon/marketplace-backend/internal/guests"
	"github.com/angelmondragon/marketplace-backend/internal/identity"
	"github.com/angelmondragon/marketplace-backend/internal/media"
	"github.com/angelmondragon/marketplace-backend/internal/notifications"
	"github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/internal/payments"
	"github.com/angelmondragon/marketplace-backend/internal/products"
	"github.com/angelmondragon/marketplace-backend/internal/returns"
	"github.com/angelmondragon/marketplace-backend/internal/shipping"
	"github.com/angelmondragon/marketplace-backend/internal/stores"
	"github.com/angelmondragon/marketplace-backend/internal/users"
	stripewebhook "github.com/angelmondragon/marketplace-backend/internal/webhooks/stripe"
	"github.com/angelmondragon/marketplace-backend/pkg/auth"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/firebase"
	"github.com/angelmondragon/marketplace-backend/pkg/idempotency"
	"github.com/angelmondragon/marketplace-backend/pkg/instance"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/metrics"
	"github.com/angelmondragon/marketplace-backend/pkg/migrate"
	"github.com/angelmondragon/marketplace-backend/pkg/outbox"
	"github.com/angelmondragon/marketplace-backend/pkg/redis"
	"github.com/angelmondragon/marketplace-backend/pkg/storage/gcs"
	pkgstripe "github.com/angelmondragon/marketplace-backend/pkg/stripe"
)

const (
	stripeEventScope      = "stripe-webhook"
	shutdownGracePeriod   = 15 * time.Second
	readHeaderTimeout     = 10 * time.Second
	defaultStripeGuardTTL = 24 * time.Hour
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing redis", err)
		}
	}()

	firebaseClient, err := firebase.NewClient(bootCtx, cfg.Firebase)
	if err != nil {
		return err
	}
	var verifier identity.Verifier = firebaseClient
	if cfg.Auth.UsesLocalTokens() {
		local, err := auth.NewLocalVerifier(cfg.Auth)
		if err != nil {
			return err
		}
		verifier = local
		logg.Warn(bootCtx, "using locally signed bearer tokens")
	}

	gcsClient, err := gcs.NewClient(bootCtx, cfg.GCS, cfg.GCP, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing gcs", err)
		}
	}()

	stripeClient, err := pkgstripe.NewClient(bootCtx, cfg.Stripe, logg)
	if err != nil {
		return err
	}

	gormDB := dbClient.DB()
	outboxService := outbox.NewService(outbox.NewRepository(gormDB), logg)
	notifier, err := notifications.NewDispatcher(dbClient, outboxService)
	if err != nil {
		return err
	}

	userRepo := users.NewRepository(gormDB)
	orderRepo := orders.NewRepository(gormDB)

	couponService, err := coupons.NewService(coupons.ServiceParams{
		Repo:              coupons.NewRepository(gormDB),
		EnforceUsageLimit: cfg.FeatureFlags.EnforceCouponUsageLimit,
	})
	if err != nil {
		return err
	}

	orderService, err := orders.NewService(orders.ServiceParams{
		Repo:          orderRepo,
		Tx:            dbClient,
		Outbox:        outboxService,
		Notifier:      notifier,
		Users:         userRepo,
		NotifyTimeout: cfg.Checkout.NotifyTimeout,
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	cartService, err := cart.NewService(userRepo)
	if err != nil {
		return err
	}

	addressRepo := address.NewRepository(gormDB)
	addressService, err := address.NewService(addressRepo, userRepo)
	if err != nil {
		return err
	}

	paymentService, err := payments.NewService(stripeClient, payments.Config{
		Currency:     cfg.Stripe.Currency,
		TTL:          cfg.Stripe.SessionTTL,
		AppID:        cfg.App.AppID,
		PublicOrigin: cfg.App.PublicOrigin,
	})
	if err != nil {
		return err
	}

	guestRepo := guests.NewRepository(gormDB)
	checkoutService, err := checkout.NewService(checkout.ServiceParams{
		Tx:                dbClient,
		Outbox:            outboxService,
		Coupons:           couponService,
		History:           orderService,
		Products:          products.NewRepository(gormDB),
		Shipping:          shipping.NewSettingsRepository(gormDB),
		Orders:            orderRepo,
		Addresses:         addressRepo,
		Users:             userRepo,
		Guests:            guestRepo,
		Payments:          paymentService,
		Cart:              cartService,
		Notifier:          notifier,
		Metrics:           metrics.NewCheckoutMetrics(prometheus.DefaultRegisterer),
		Logger:            logg,
		ForceFreeShipping: cfg.FeatureFlags.ForceFreeShipping,
		GuestTokenTTL:     cfg.Checkout.GuestTokenTTL,
		NotifyTimeout:     cfg.Checkout.NotifyTimeout,
		PaymentTimeout:    cfg.Checkout.ExternalCallTimeout,
		PublicOrigin:      cfg.App.PublicOrigin,
	})
	if err != nil {
		return err
	}

	guestService, err := guests.NewService(guests.ServiceParams{
		Repo:          guestRepo,
		Users:         userRepo,
		Accounts:      firebaseClient,
		Tx:            dbClient,
		Outbox:        outboxService,
		Notifier:      notifier,
		CallTimeout:   cfg.Checkout.ExternalCallTimeout,
		NotifyTimeout: cfg.Checkout.NotifyTimeout,
		Logger:        logg,
	})
	if err != nil {
		return err
	}

	mediaService, err := media.NewService(media.ServiceParams{
		Storage:     gcsClient,
		MaxUploadMB: cfg.Media.MaxUploadMB,
		MaxFiles:    cfg.Media.MaxFiles,
	})
	if err != nil {
		return err
	}

	returnService, err := returns.NewService(returns.ServiceParams{
		Repo:   returns.NewRepository(gormDB),
		Orders: orderRepo,
		Media:  mediaService,
		Tx:     dbClient,
		Outbox: outboxService,
		Logger: logg,
	})
	if err != nil {
		return err
	}

	storeService, err := stores.NewService(stores.NewRepository(gormDB))
	if err != nil {
		return err
	}

	webhookService, err := stripewebhook.NewService(stripewebhook.ServiceParams{
		Orders: orderService,
		Cart:   cartService,
		AppID:  cfg.App.AppID,
		Logger: logg,
	})
	if err != nil {
		return err
	}
	guardTTL := cfg.Eventing.OutboxIdempotencyTTL
	if guardTTL <= 0 {
		guardTTL = defaultStripeGuardTTL
	}
	webhookGuard, err := idempotency.NewLedger(redisClient, stripeEventScope, guardTTL)
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Params{
		Config:   cfg,
		Logger:   logg,
		Verifier: verifier,
		Store:    redisClient,
		Dependencies: []controllers.Dependency{
			{Name: "db", Pinger: dbClient},
			{Name: "redis", Pinger: redisClient},
			{Name: "gcs", Pinger: gcsClient},
		},
		Gatherer:      prometheus.DefaultGatherer,
		Checkout:      checkoutService,
		Orders:        orderService,
		Returns:       returnService,
		Guests:        guestService,
		Cart:          cartService,
		Addresses:     addressService,
		Coupons:       couponService,
		Stores:        storeService,
		StripeWebhook: webhookService,
		StripeClient:  stripeClient,
		StripeGuard:   webhookGuard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.ID("local"),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
