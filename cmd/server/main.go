package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/arena/internal"
	"github.com/dukerupert/arena/internal/account"
	"github.com/dukerupert/arena/internal/admin"
	"github.com/dukerupert/arena/internal/assistant"
	"github.com/dukerupert/arena/internal/auth"
	"github.com/dukerupert/arena/internal/billing"
	"github.com/dukerupert/arena/internal/bootstrap"
	"github.com/dukerupert/arena/internal/cart"
	"github.com/dukerupert/arena/internal/catalog"
	"github.com/dukerupert/arena/internal/checkout"
	"github.com/dukerupert/arena/internal/cookie"
	"github.com/dukerupert/arena/internal/domain"
	"github.com/dukerupert/arena/internal/handler"
	adminhandler "github.com/dukerupert/arena/internal/handler/admin"
	"github.com/dukerupert/arena/internal/handler/storefront"
	"github.com/dukerupert/arena/internal/handler/webhook"
	"github.com/dukerupert/arena/internal/middleware"
	"github.com/dukerupert/arena/internal/points"
	"github.com/dukerupert/arena/internal/postgres"
	"github.com/dukerupert/arena/internal/realtime"
	"github.com/dukerupert/arena/internal/router"
	"github.com/dukerupert/arena/internal/routes"
	"github.com/dukerupert/arena/internal/session"
	"github.com/dukerupert/arena/internal/telemetry"
	"github.com/dukerupert/arena/internal/tournament"
	"github.com/dukerupert/arena/internal/wallet"
)

const (
	metricsNamespace     = "arena"
	sessionSweepInterval = 10 * time.Minute
	cartPurgeInterval    = 24 * time.Hour
	cartRetention        = 90 * 24 * time.Hour
	shutdownTimeout      = 15 * time.Second
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	// Initialize Sentry
	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return fmt.Errorf("sentry initialization failed: %w", err)
	}
	defer flushSentry()

	// Database
	logger.Info("Connecting to database...")
	pool, err := postgres.Open(ctx, cfg.DatabaseUrl)
	if err != nil {
		return err
	}
	defer pool.Close()
	logger.Info("Database connection established")

	logger.Info("Running database migrations...")
	if err := migrate(pool); err != nil {
		return err
	}
	logger.Info("Database migrations completed successfully")

	store := postgres.NewStore(pool)

	if err := bootstrap.EnsureAdmin(ctx, store.Profiles, cfg.Admin.Email, logger); err != nil {
		return fmt.Errorf("admin bootstrap failed: %w", err)
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := middleware.NewMetrics(metricsNamespace, registry)
	metrics := telemetry.NewBusinessMetrics(metricsNamespace, registry)

	// Realtime feed
	bus, err := newBus(cfg.NatsURL, logger, metrics)
	if err != nil {
		return err
	}
	defer bus.Close()
	messages := realtime.NewPublishingMessages(store.Messages, bus, func(msg domain.Message, err error) {
		logger.Warn("message stored but not published", "message_id", msg.ID, "order_id", msg.OrderID, "error", err)
	})

	// Payments
	provider, err := newBillingProvider(cfg, logger)
	if err != nil {
		return err
	}

	// Sessions
	tokens := auth.NewTokenIssuer(cfg.SessionSecret, cfg.SessionTTL)
	sessions := session.NewManager(store.Profiles, tokens, logger,
		session.WithRevocations(store.Revocations),
	)

	// Services
	accounts := account.NewService(store.Profiles, auth.NewHasher(cfg.BcryptCost), logger)
	catalogService := catalog.NewService(store.Products)
	checkoutService := checkout.NewService(store.Checkout, logger,
		checkout.WithObserver(func(state checkout.State, elapsed time.Duration) {
			metrics.ObserveCheckout(string(state), elapsed)
		}),
		checkout.WithSessions(sessions),
	)
	sessions.OnLogout(checkoutService.Forget)

	walletService := wallet.NewService(provider, store.Wallet, sessions, logger,
		wallet.WithCurrency(cfg.Stripe.Currency),
		wallet.WithObserver(metrics.ObserveDeposit),
		wallet.WithReporter(func(err error, extras map[string]interface{}) {
			telemetry.CaptureError(err, extras)
		}),
	)
	pointsService := points.NewService(store.PointShop, logger, metrics.ObserveRedemption,
		points.WithSessions(sessions),
	)
	tournamentService := tournament.NewService(store.Tournaments, logger, metrics.ObserveRegistration)
	adminService := admin.NewService(admin.Stores{
		Products:    store.Products,
		Profiles:    store.Profiles,
		Orders:      store.Orders,
		Tournaments: store.Tournaments,
		PointShop:   store.PointShop,
		Audit:       store.Audit,
		Stats:       store.Stats,
	}, logger)

	var completer assistant.Completer
	if cfg.Assistant.Enabled() {
		completer = assistant.NewClient(assistant.Config{
			APIKey:     cfg.Assistant.APIKey,
			BaseURL:    cfg.Assistant.BaseURL,
			Model:      cfg.Assistant.Model,
			Timeout:    cfg.Assistant.Timeout,
			MaxRetries: 3,
			Transport:  &telemetry.HTTPTransport{},
		})
	} else {
		logger.Info("assistant disabled: ASSISTANT_API_KEY not set")
	}
	assistantService := assistant.NewService(completer, store.Products, store.Tournaments, store.ChatLogs, logger)

	// Carts live in device storage
	openCart := func(ctx context.Context, deviceID string) *cart.Store {
		return cart.New(ctx, postgres.NewDeviceStorage(pool, deviceID),
			cart.WithLogger(logger),
			cart.WithObserver(metrics.ObserveCart),
		)
	}

	// HTTP
	cookies := cookie.NewConfig("", strings.HasPrefix(cfg.BaseURL, "https://"))
	origins := []string{strings.TrimRight(cfg.BaseURL, "/")}

	authLimiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimit.AuthPerMinute))
	defer authLimiter.Stop()
	apiLimiter := middleware.NewRateLimiter(middleware.PerMinute(cfg.RateLimit.APIPerMinute))
	defer apiLimiter.Stop()

	r := router.New(
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithClientIP(),
		router.Logger(logger),
		httpMetrics.Middleware,
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig()),
		router.CORS(origins),
		middleware.WithDevice(cookies),
		middleware.Sessions(sessions, cookies, logger),
		telemetry.SentryMiddleware(sentryUser),
		middleware.WithRequestLogger(logger),
	)

	pingers := map[string]handler.Pinger{"database": pool}
	if p, ok := bus.(handler.Pinger); ok {
		pingers["realtime"] = p
	}
	routes.RegisterSystemRoutes(r, routes.SystemDeps{
		Health:  handler.Health(pingers),
		Metrics: httpMetrics.Handler(),
	})

	routes.RegisterStorefrontRoutes(r, routes.StorefrontDeps{
		CatalogHandler:    storefront.NewCatalogHandler(catalogService),
		CartHandler:       storefront.NewCartHandler(openCart, catalogService),
		CheckoutHandler:   storefront.NewCheckoutHandler(checkoutService, openCart),
		AuthHandler:       storefront.NewAuthHandler(accounts, sessions, cookies, metrics, logger),
		OrderHandler:      storefront.NewOrderHandler(store.Orders),
		ChatHandler:       storefront.NewChatHandler(store.Orders, messages, bus, origins, metrics, logger),
		WalletHandler:     storefront.NewWalletHandler(walletService),
		PointsHandler:     storefront.NewPointsHandler(pointsService),
		TournamentHandler: storefront.NewTournamentHandler(tournamentService),
		AssistantHandler:  storefront.NewAssistantHandler(assistantService, metrics),
		ConfigHandler: storefront.ConfigHandler(storefront.ClientConfig{
			StripePublishableKey: cfg.Stripe.PublishableKey,
			Currency:             cfg.Stripe.Currency,
			AssistantEnabled:     assistantService.Enabled(),
		}),
		AuthLimiter: authLimiter,
		APILimiter:  apiLimiter,
	})
	routes.RegisterAdminRoutes(r, routes.AdminDeps{Handler: adminhandler.NewHandler(adminService)})
	routes.RegisterWebhookRoutes(r, routes.WebhookDeps{
		StripeHandler: webhook.NewStripeHandler(provider, walletService, metrics, logger).HandleWebhook,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting server", "address", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return sessions.Run(gctx, sessionSweepInterval)
	})
	g.Go(func() error {
		return purgeCarts(gctx, pool, logger)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// purgeCarts removes device carts untouched for cartRetention, once a day.
func purgeCarts(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	ticker := time.NewTicker(cartPurgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := postgres.PurgeDeviceStorage(ctx, pool, cartRetention)
			if err != nil {
				logger.Warn("device storage purge failed", "error", err)
				continue
			}
			logger.Info("purged device storage", "rows", n)
		}
	}
}

// migrate runs goose over a database/sql handle sharing the pool's config.
func migrate(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := internal.RunMigrations(db); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// newBus connects to NATS when configured and otherwise keeps the feed
// in-process, which only works with a single server instance.
func newBus(url string, logger *slog.Logger, metrics *telemetry.BusinessMetrics) (realtime.Bus, error) {
	if url == "" {
		logger.Warn("NATS_URL not set: realtime feed is in-process")
		return realtime.NewLocalBus(metrics.ObserveRealtime), nil
	}
	bus, err := realtime.Connect(url, logger, metrics.ObserveRealtime)
	if err != nil {
		return nil, err
	}
	return bus, nil
}

// newBillingProvider returns Stripe when a secret key is configured. The
// in-memory provider is only allowed in development.
func newBillingProvider(cfg *internal.Config, logger *slog.Logger) (billing.Provider, error) {
	if cfg.Stripe.SecretKey == "" {
		if cfg.Env == "prod" {
			return nil, errors.New("STRIPE_SECRET_KEY is required in production")
		}
		logger.Warn("STRIPE_SECRET_KEY not set: using the in-memory payment provider")
		return billing.NewMockProvider(), nil
	}

	stripeConfig := billing.StripeConfig{
		APIKey:        cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		Currency:      cfg.Stripe.Currency,
	}
	provider, err := billing.NewStripeProvider(stripeConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Stripe provider: %w", err)
	}
	logger.Info("Stripe billing provider initialized", "test_mode", stripeConfig.IsTestMode())
	return provider, nil
}

func sentryUser(ctx context.Context) *telemetry.UserInfo {
	user := domain.UserFromContext(ctx)
	if user == nil {
		return nil
	}
	return &telemetry.UserInfo{ID: user.ID.String(), Email: user.Email}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
