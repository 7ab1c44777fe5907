package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/fjod/go_storefront/internal/checkout"
	"github.com/fjod/go_storefront/internal/config"
	sfgrpc "github.com/fjod/go_storefront/internal/grpc"
	h "github.com/fjod/go_storefront/internal/http"
	"github.com/fjod/go_storefront/internal/orders"
	"github.com/fjod/go_storefront/internal/payment"
	"github.com/fjod/go_storefront/internal/publisher"
	"github.com/fjod/go_storefront/internal/repository"
	"github.com/fjod/go_storefront/internal/storage"
	"github.com/fjod/go_storefront/internal/storefront"
	"github.com/fjod/go_storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	log := logger.New(logger.Options{Service: cfg.Service, Env: cfg.Env, Level: cfg.LogLevel})

	if err := run(cfg, log); err != nil {
		log.Error("storefront stopped with error", slog.Any("error", err))
		os.Exit(1)
	}
	log.Info("storefront stopped")
}

type closer func() error

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Warn("close failed", slog.Any("error", err))
			}
		}
	}()

	tp := setupTracing(cfg)
	closers = append(closers, func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return tp.Shutdown(sctx)
	})

	checks := map[string]sfgrpc.Check{}

	// Session store
	var redisClient *redis.Client
	var store storage.Store
	switch cfg.SessionStore {
	case config.StoreRedis:
		client, err := storage.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return err
		}
		redisClient = client
		store = storage.NewRedisStore(client)
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	case config.StoreMongo:
		db, err := storage.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return err
		}
		ms := storage.NewMongoStore(db)
		if err := ms.CreateIndexes(ctx); err != nil {
			_ = ms.Close()
			return fmt.Errorf("failed to create session indexes: %w", err)
		}
		store = ms
		checks["mongo"] = func(ctx context.Context) error { return db.Client().Ping(ctx, nil) }
	default:
		store = storage.NewMemoryStore()
	}
	closers = append(closers, store.Close)
	log.Info("session store ready", slog.String("store", cfg.SessionStore))

	// Catalog
	local, err := catalog.NewSQLiteSource(cfg.CatalogDBPath)
	if err != nil {
		return fmt.Errorf("failed to open bundled catalog: %w", err)
	}
	closers = append(closers, local.Close)

	var remote catalog.Source
	if cfg.CMSBaseURL != "" {
		remote = catalog.NewRemoteSource(cfg.CMSBaseURL, cfg.CMSTimeout, log)
	}
	var catalogOpts []catalog.RepositoryOption
	if redisClient != nil && cfg.ProductCacheTTL > 0 {
		catalogOpts = append(catalogOpts, catalog.WithCache(catalog.NewRedisCache(redisClient, cfg.ProductCacheTTL)))
	}
	products := catalog.NewRepository(remote, local, cfg.CatalogPolicy, log, catalogOpts...)
	log.Info("catalog ready", slog.String("policy", string(products.Policy())))

	// Payments
	registry := payment.NewRegistry()
	if cfg.StripeSecretKey != "" {
		registry.Register(payment.NewStripeAdapter(payment.NewStripeClient(cfg.StripeSecretKey), cfg.StripePublishableKey))
	}
	if cfg.PayPalClientID != "" && cfg.PayPalSecret != "" {
		client, err := payment.NewPayPalClient(cfg.PayPalClientID, cfg.PayPalSecret, cfg.PayPalSandbox)
		if err != nil {
			return fmt.Errorf("failed to create paypal client: %w", err)
		}
		registry.Register(payment.NewPayPalAdapter(client, cfg.PayPalClientID))
	}
	if len(registry.Providers()) == 0 {
		log.Warn("no payment provider configured")
	}
	tracker := payment.NewTracker(cfg.PaymentTrackerTTL)
	closers = append(closers, func() error { tracker.Close(); return nil })

	// Order sinks
	var (
		ledger    storefront.Ledger
		history   storefront.OrderHistory
		submitter orders.Submitter
		repo      *repository.Repository
	)
	if cfg.LedgerEnabled() {
		repo, err = repository.NewRepository(ctx, &repository.Credentials{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			return err
		}
		closers = append(closers, repo.Close)
		if err := repo.RunMigrations(); err != nil {
			return err
		}
		log.Info("order ledger migrations completed")
		ledger, history = repo, repo
		checks["postgres"] = repo.Ping
	}
	if cfg.OrdersAPIURL != "" {
		submitter = orders.NewClient(cfg.OrdersAPIURL, cfg.OrdersAPIToken, cfg.OrdersAPITimeout, log)
	}

	svc := storefront.New(storefront.Deps{
		Store:     store,
		Catalog:   products,
		Payments:  registry,
		Tracker:   tracker,
		Finalizer: storefront.NewFinalizer(ledger, submitter, log),
		History:   history,
	}, storefront.Config{
		DraftTTL: cfg.DraftTTL,
		Pricing: checkout.PricingConfig{
			ShippingFee: cfg.ShippingFee,
			TaxRate:     cfg.TaxRate,
			Currency:    cfg.Currency,
		},
		SuccessDelay: cfg.PaymentSuccessDelay,
	}, log)

	httpChecks := make(map[string]h.HealthCheck, len(checks))
	for name, c := range checks {
		httpChecks[name] = h.HealthCheck(c)
	}
	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: h.NewRouter(svc, h.RouterOptions{
			RequestTimeout:     cfg.RequestTimeout,
			MaxRequestBodySize: cfg.MaxRequestBodySize,
			SecureCookie:       cfg.SecureCookie,
			Checks:             httpChecks,
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + cfg.PaymentSuccessDelay + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	grpcServer := sfgrpc.NewServer(log)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("http server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		grpcServer.Watch(gctx, checks, cfg.HealthInterval)
		return nil
	})

	if repo != nil && len(cfg.KafkaBrokers) > 0 {
		writer := publisher.NewKafkaWriter(cfg.KafkaTopic, cfg.KafkaBrokers...)
		poller := publisher.NewOutboxPoller(repo, writer, publisher.Options{
			Topic:     cfg.KafkaTopic,
			EventTick: cfg.OutboxTick,
		}, log)
		closers = append(closers, poller.Close)
		g.Go(func() error { return poller.Run(gctx) })
	} else if repo != nil {
		log.Warn("KAFKA_BROKERS not set, order events stay in the outbox")
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down servers...")
		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		grpcServer.Stop()
		if err := srv.Shutdown(sctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func setupTracing(cfg *config.Config) *sdktrace.TracerProvider {
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", cfg.Service),
			attribute.String("deployment.environment", cfg.Env),
		)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{},
	))
	return tp
}
