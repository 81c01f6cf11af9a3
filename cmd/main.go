package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fjod/go_cart/shop-api/internal/config"
	h "github.com/fjod/go_cart/shop-api/internal/http"
	"github.com/fjod/go_cart/shop-api/internal/poller"
	"github.com/fjod/go_cart/shop-api/internal/repository"
	s "github.com/fjod/go_cart/shop-api/internal/service"
	"github.com/fjod/go_cart/shop-api/pkg/logger"
	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger is not configured yet
		bootLog := logger.New("info", false)
		bootLog.Fatal().Err(err).Msg("failed to load config")
	}

	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	// Set up MongoDB connection
	ctx := context.Background()
	mongoDB, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	log.Info().Str("database", cfg.MongoDBName).Msg("connected to MongoDB")

	if err := repository.RunMigrations(mongoDB); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	carts := repository.NewMongoRepository(mongoDB)
	products := repository.NewProductRepository(mongoDB)
	cartService := s.NewCartService(carts, products)
	productService := s.NewProductService(products)

	pollCtx, stopPolling := context.WithCancel(ctx)
	defer stopPolling()

	var (
		checkoutPoller *poller.Poller
		pollers        sync.WaitGroup
	)
	if len(cfg.KafkaBrokers) > 0 {
		checkoutPoller = poller.NewPoller(cartService, poller.Config{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.CheckoutTopic,
			GroupID: cfg.KafkaGroupID,
		}, log)
		pollers.Go(func() { checkoutPoller.Run(pollCtx) })
	} else {
		log.Warn().Msg("KAFKA_BROKERS not set, checkout poller disabled")
	}

	router := h.NewRouter(
		h.RouterConfig{
			JWTSecret:          []byte(cfg.JWTSecret),
			RequestTimeout:     cfg.RequestTimeout,
			MaxRequestBodySize: cfg.MaxRequestBodySize,
		},
		log,
		cartService,
		productService,
		func(ctx context.Context) error { return repository.Ping(ctx, mongoDB) },
	)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      otelhttp.NewHandler(router, "shop-api"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Msg("shop API starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	// the poller may be mid-ClearCart; let it finish before Mongo goes away
	stopPolling()
	pollers.Wait()
	if checkoutPoller != nil {
		checkoutPoller.Close()
	}
	disconnect(shutdownCtx, mongoDB.Client())

	log.Info().Msg("server exited")
}

func disconnect(ctx context.Context, client *mongo.Client) {
	if err := client.Disconnect(ctx); err != nil {
		logger.FromContext(ctx).Error().Err(err).Msg("failed to disconnect from MongoDB")
	}
}
