package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/beastsupply/storefront/internal/cart/cache"
	"github.com/beastsupply/storefront/internal/cart/poller"
	cartrepo "github.com/beastsupply/storefront/internal/cart/repository"
	cartsvc "github.com/beastsupply/storefront/internal/cart/service"
	"github.com/beastsupply/storefront/internal/catalog"
	"github.com/beastsupply/storefront/internal/checkout"
	"github.com/beastsupply/storefront/internal/consumer"
	h "github.com/beastsupply/storefront/internal/http"
	"github.com/beastsupply/storefront/internal/order/repository"
	"github.com/beastsupply/storefront/internal/pricing"
	"github.com/beastsupply/storefront/internal/publisher"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, the health endpoint and the background workers",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func serve(ctx context.Context) error {
	// Catalog
	products, err := catalog.NewRepository(cfg.CatalogDBPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer products.Close()
	if err := products.RunMigrations(cfg.CatalogMigrationsPath); err != nil {
		return err
	}
	guardedCatalog := catalog.NewBreakerAccessor(products, log)

	// Cart store and cache
	mongoDB, err := cartrepo.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			log.Warn("mongodb disconnect failed", zap.Error(err))
		}
	}()
	lines := cartrepo.NewMongoRepository(mongoDB)
	if err := cartrepo.EnsureIndexes(ctx, lines); err != nil {
		return err
	}
	log.Info("connected to mongodb", zap.String("database", cfg.MongoDBName))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		// the cart falls back to mongodb on every cache error
		log.Warn("redis ping failed, cart cache degraded", zap.Error(err))
	}

	carts := cartsvc.NewCartService(lines, cache.NewRedisCache(redisClient), guardedCatalog, log.Named("cart"))

	// Order store
	creds := postgresCredentials()
	orders, err := repository.NewRepository(creds)
	if err != nil {
		return fmt.Errorf("failed to connect to postgres: %w", err)
	}
	defer orders.Close()
	if err := orders.RunMigrations(creds); err != nil {
		return err
	}
	log.Info("order store migrations completed")

	settlement := checkout.NewService(
		carts,
		guardedCatalog,
		pricing.NewEngine(cfg.Pricing),
		orders,
		checkout.Settings{
			SettlementKey:   cfg.SettlementKey,
			ClearRetries:    cfg.ClearRetries,
			ClearRetryDelay: cfg.ClearRetryDelay,
		},
		log,
	)

	// Background workers
	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	var wg sync.WaitGroup

	outbox := publisher.NewOutboxPoller(orders,
		publisher.NewKafkaWriter(cfg.OrderEventsTopic, cfg.KafkaBrokers...),
		cfg.OutboxPollInterval, log)
	cartPoller := poller.NewPoller(carts,
		poller.NewKafkaReader(cfg.KafkaBrokers, cfg.OrderEventsTopic, cfg.CartConsumerGroup),
		log)
	fulfillment := consumer.NewConsumer(settlement,
		consumer.NewKafkaReader(cfg.KafkaBrokers, cfg.FulfillmentTopic, cfg.FulfillmentGroup),
		log)

	for _, run := range []func(context.Context){outbox.Run, cartPoller.Run, fulfillment.Run} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(workerCtx)
		}()
	}

	// HTTP
	router := h.NewRouter(h.Handlers{
		Cart:     h.NewCartHandler(carts, cfg.RequestTimeout, log),
		Checkout: h.NewCheckoutHandler(settlement, cfg.RequestTimeout, log),
		Orders:   h.NewOrdersHandler(settlement, cfg.RequestTimeout, log),
		Products: h.NewProductHandler(products, cfg.RequestTimeout, log),
	}, h.RouterConfig{
		RequestTimeout:     cfg.RequestTimeout,
		MaxRequestBodySize: cfg.MaxRequestBodySize,
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// gRPC health and reflection for probes and grpcurl
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	errCh := make(chan error, 2)
	go func() {
		log.Info("http server listening", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		log.Info("grpc health server listening", zap.String("port", cfg.GRPCPort))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case runErr = <-errCh:
		log.Error("server failed, shutting down", zap.Error(runErr))
	}

	healthServer.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()

	stopWorkers()
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		log.Info("workers stopped cleanly")
	case <-shutdownCtx.Done():
		log.Warn("workers didn't stop in time")
	}

	outbox.Close()
	cartPoller.Close()
	fulfillment.Close()

	log.Info("storefront stopped")
	return runErr
}
