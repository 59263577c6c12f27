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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/api/controllers"
	"github.com/angelmondragon/storefront-backend/api/routes"
	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/payment"
	"github.com/angelmondragon/storefront-backend/internal/search"
	"github.com/angelmondragon/storefront-backend/internal/session"
	"github.com/angelmondragon/storefront-backend/internal/shipping"
	"github.com/angelmondragon/storefront-backend/pkg/carrier"
	"github.com/angelmondragon/storefront-backend/pkg/catalog"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/migrate"
	"github.com/angelmondragon/storefront-backend/pkg/orderapi"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

const shutdownTimeout = 20 * time.Second

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
		Env:         cfg.App.Env,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) (err error) {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	storefrontMetrics := metrics.NewStorefront(registry)
	jobMetrics := metrics.NewJobMetrics(registry)

	catalogClient, err := catalog.NewClient(cfg.Catalog.BaseURL,
		catalog.WithCredentials(cfg.Catalog.ConsumerKey, cfg.Catalog.ConsumerSecret),
		catalog.WithTimeout(cfg.Catalog.Timeout),
		catalog.WithPageSize(cfg.Catalog.SearchPageSize),
	)
	if err != nil {
		return err
	}

	carrierClient, err := carrier.NewClient(cfg.Carrier.BaseURL,
		carrier.WithAPIKey(cfg.Carrier.APIKey),
		carrier.WithTimeout(cfg.Carrier.Timeout),
		carrier.WithLatencyObserver(storefrontMetrics.ObserveCarrierLatency),
		carrier.WithBreaker(carrier.BreakerSettings{
			ConsecutiveFailures: cfg.Carrier.BreakerFailures,
			OpenDelay:           cfg.Carrier.BreakerOpenDelay,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logg.Warn(logg.WithFields(ctx, map[string]any{
					"breaker": name,
					"from":    from.String(),
					"to":      to.String(),
				}), "carrier.breaker.state_change")
			},
		}),
	)
	if err != nil {
		return err
	}

	orderClient, err := orderapi.NewClient(cfg.OrderAPI.BaseURL,
		orderapi.WithCredentials(cfg.OrderAPI.ConsumerKey, cfg.OrderAPI.ConsumerSecret),
		orderapi.WithTimeout(cfg.OrderAPI.Timeout),
	)
	if err != nil {
		return err
	}

	adapter, err := payment.NewAdapter(payment.ConfigFrom(cfg.PayFast, cfg.Checkout.StoreName, cfg.App.APIBaseURL))
	if err != nil {
		return err
	}

	resolverCfg, err := shipping.ConfigFrom(cfg.Warehouse, cfg.Shipping)
	if err != nil {
		return err
	}
	resolver, err := shipping.NewResolver(carrierClient, resolverCfg, logg, storefrontMetrics)
	if err != nil {
		return err
	}

	searchService, err := search.NewService(catalogClient)
	if err != nil {
		return err
	}

	var journal checkout.Journal
	var callbackJournal controllers.CallbackRecorder
	if cfg.FeatureFlags.Journal {
		gormJournal, err := checkout.NewJournal(dbClient.DB())
		if err != nil {
			return err
		}
		journal = gormJournal
		callbackJournal = gormJournal
	}

	cartStore, err := cart.NewRedisStore(redisClient, cfg.Redis.CartTTL)
	if err != nil {
		return err
	}

	sessions, err := session.NewRegistry(session.Params{
		Store:        cartStore,
		CartObserver: storefrontMetrics,
		Checkout: checkout.Dependencies{
			Backend:  orderClient,
			Gateway:  adapter,
			Journal:  journal,
			Observer: storefrontMetrics,
			Logger:   logg,
			Settings: checkout.Settings{
				PaymentMethod: cfg.Checkout.PaymentMethod,
				PaymentTitle:  cfg.Checkout.PaymentTitle,
				StoreName:     cfg.Checkout.StoreName,
				OrderTimeout:  cfg.OrderAPI.Timeout,
			},
		},
		Logger:  logg,
		Jobs:    jobMetrics,
		IdleTTL: cfg.Session.IdleTTL,
	})
	if err != nil {
		return err
	}

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		Sessions: sessions,
		Search:   searchService,
		Catalog:  catalogClient,
		Products: catalogClient,
		Rates:    resolver,
		Callbacks: controllers.PaymentCallbacks{
			Interpreter: adapter,
			Journal:     callbackJournal,
			Observer:    storefrontMetrics,
			LandingURL:  cfg.App.PublicURL,
			Logger:      logg,
		},
		Idempotency: redisClient,
		RateLimiter: redisClient,
		Readiness: []controllers.ReadinessCheck{
			{Name: "database", Check: dbClient.Ping},
			{Name: "redis", Check: redisClient.Ping},
			{Name: "carrier", Optional: true, Check: func(context.Context) error {
				if carrierClient.State() == gobreaker.StateOpen {
					return errors.New("carrier circuit open")
				}
				return nil
			}},
		},
		Gatherer: registry,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, cancelSweep := context.WithCancel(ctx)
	defer cancelSweep()
	go func() {
		if err := sessions.Run(sweepCtx); err != nil && !errors.Is(err, context.Canceled) {
			logg.Error(logCtx, "session sweeper stopped", err)
		}
	}()

	serveErr := make(chan error, 1)
	go func() {
		logg.Info(logCtx, "starting api server")
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

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	cancelSweep()
	return multierr.Combine(
		server.Shutdown(shutdownCtx),
		sessions.Close(shutdownCtx),
	)
}
