package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/config"
	"storefront/internal/api"
	"storefront/internal/broker"
	"storefront/internal/cart"
	"storefront/internal/redisclient"
	"storefront/internal/service"
	"storefront/internal/store"
	"storefront/internal/util"
	"storefront/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const serviceName = "storefront"

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env, serviceName); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting storefront")

	tp, err := util.InitTracer(serviceName, cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	catalog, err := store.NewCatalog(cfg.Storage.ProductsFile)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.String("path", cfg.Storage.ProductsFile), zap.Error(err))
	}
	ledger, err := store.NewLedger(cfg.Storage.OrdersFile, catalog)
	if err != nil {
		logger.Fatal("Failed to load order ledger", zap.String("path", cfg.Storage.OrdersFile), zap.Error(err))
	}
	logger.Info("Stores loaded",
		zap.Int("products", catalog.Len()),
		zap.Int("orders", ledger.Len()))

	sessions := cart.NewSessions(catalog)

	var idempotency service.IdempotencyStore
	if cfg.Redis.Addr != "" {
		redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.IdempotencyTTL)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		idempotency = redisClient
		log.Println("Redis connected")
	}

	var eventPublisher service.EventPublisher = broker.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrderEvents)
		defer producer.Close()
		eventPublisher = broker.NewEventPublisher(producer)
		log.Println("Kafka producer initialized")
	}

	orderService := service.NewOrderService(ledger, sessions, eventPublisher, idempotency)
	reportService := service.NewReportService(catalog, ledger, cfg.Business.LowStockThreshold)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var statusWorker *worker.StatusWorker
	if len(cfg.Kafka.Brokers) > 0 {
		statusConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicStatusCommands, cfg.Kafka.ConsumerGroup)
		statusWorker = worker.NewStatusWorker(statusConsumer, orderService)
		go func() {
			if err := statusWorker.Start(workerCtx); err != nil && err != context.Canceled {
				log.Printf("Status worker error: %v", err)
			}
		}()
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(catalog, sessions, orderService, reportService, cfg.Business.AdminToken)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if statusWorker != nil {
		if err := statusWorker.Stop(); err != nil {
			log.Printf("Error stopping status worker: %v", err)
		}
	}

	log.Println("Server exited")
}
