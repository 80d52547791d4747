package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/safar/go-sql-shop/internal/api"
	"github.com/safar/go-sql-shop/internal/cache"
	"github.com/safar/go-sql-shop/internal/config"
	"github.com/safar/go-sql-shop/internal/database"
	"github.com/safar/go-sql-shop/internal/events"
	"github.com/safar/go-sql-shop/internal/inventory"
	"github.com/safar/go-sql-shop/internal/service"
)

const serviceName = "shop-api"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewConnection(&cfg.Database)
	if err != nil {
		log.Fatalf("Connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database successfully")

	var orderCache cache.OrderCache = cache.NopOrderCache{}
	if cfg.Redis.Addr != "" {
		rdb := cache.NewRedisClient(cfg.Redis.Addr)
		defer rdb.Close()

		redisCache := cache.NewRedisOrderCache(rdb, cfg.Redis.OrderTTL)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("Redis at %s unreachable, order cache disabled: %v", cfg.Redis.Addr, err)
		} else {
			orderCache = redisCache
			log.Printf("Order cache enabled (redis %s)", cfg.Redis.Addr)
		}
	}

	var publisher events.Publisher = events.NopPublisher{}
	var kafkaPublisher *events.KafkaPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaPublisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.BufferSize)
		kafkaPublisher.Start()
		publisher = kafkaPublisher
		log.Printf("Publishing order events to %s", cfg.Kafka.OrderTopic)
	}

	orders := service.NewOrderService(db,
		inventory.NewGuard(cfg.Orders.LockMode == config.LockModeNoWait),
		publisher,
		orderCache,
		service.OrderOptions{
			PlacementTimeout: cfg.Orders.PlacementTimeout,
			MaxRetries:       cfg.Orders.MaxRetries,
			Producer:         serviceName,
		})

	processorDone := make(chan struct{})
	if cfg.Orders.ProcessorEnabled {
		processor := service.NewPaymentProcessor(orders, cfg.Orders.ProcessorInterval)
		go func() {
			defer close(processorDone)
			processor.Run(ctx)
		}()
	} else {
		close(processorDone)
	}

	router := api.NewRouter(api.Services{
		Accounts: service.NewAccountService(db),
		Catalog:  service.NewCatalogService(db),
		Reviews:  service.NewReviewService(db),
		Carts:    service.NewCartService(db),
		Orders:   orders,
		DB:       db,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Printf("Server starting on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown: %v", err)
	}

	cancel()
	<-processorDone

	if kafkaPublisher != nil {
		kafkaPublisher.Close()
		kafkaPublisher.WaitClosed()
	}
}
