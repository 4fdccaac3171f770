package main

import (
	"context"
	"crypto/tls"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/catalog"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/events"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/handler"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/payment"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository/bolt"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository/dynamodb"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository/sqlite"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/service"
	"github.com/cloud-wave-best-zizon/checkout-service/pkg/config"
	"github.com/cloud-wave-best-zizon/checkout-service/pkg/middleware"
	pkgtls "github.com/cloud-wave-best-zizon/checkout-service/pkg/tls"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	tlsConfig := &pkgtls.TLSConfig{}
	if err := envconfig.Process("", tlsConfig); err != nil {
		logger.Fatal("Failed to load TLS config", zap.Error(err))
	}

	logger.Info("Service configuration",
		zap.String("port", cfg.Port),
		zap.String("storage_driver", cfg.StorageDriver),
		zap.String("kafka_brokers", cfg.KafkaBrokers),
		zap.Bool("payment_simulator", cfg.PaymentAPIURL == ""),
		zap.Bool("tls_enabled", tlsConfig.Enabled))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize components
	store, err := openStore(ctx, cfg)
	if err != nil {
		logger.Fatal("Failed to open store", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer store.Close()

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to create Kafka producer", zap.Error(err))
	}
	defer publisher.Close()

	var gateway payment.Gateway = payment.NewSimulator()
	if cfg.PaymentAPIURL != "" {
		gateway = payment.NewClient(cfg.PaymentAPIURL, cfg.PaymentTimeout, cfg.PaymentRateLimit, logger)
	}

	feed := catalog.NewFeedClient(cfg.ProductsAPIURL, cfg.CatalogTimeout)
	catalogService := service.NewCatalogService(feed, store, logger)
	orderService := service.NewOrderService(store, store, gateway, publisher, logger)

	if _, err := catalogService.Refresh(ctx); err != nil {
		logger.Error("Initial catalog refresh failed, serving stored catalog", zap.Error(err))
	}
	if cfg.CatalogRefreshInterval > 0 {
		go catalogService.Run(ctx, cfg.CatalogRefreshInterval)
	}

	// Setup Gin Router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(middleware.RequestID())

	handler.RegisterRoutes(router,
		handler.NewProductHandler(catalogService, logger),
		handler.NewOrderHandler(orderService, logger),
		handler.NewHealthHandler(store, publisher, tlsConfig.Enabled),
	)

	var wg sync.WaitGroup
	servers := []*http.Server{}

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	servers = append(servers, httpServer)

	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	if tlsConfig.Enabled {
		tlsCfg, err := pkgtls.LoadTLSConfig(tlsConfig, logger)
		if err != nil {
			logger.Error("Failed to load TLS config", zap.Error(err))
		} else {
			var current atomic.Pointer[tls.Config]
			current.Store(tlsCfg)

			httpsServer := &http.Server{
				Addr:              ":" + tlsConfig.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
				TLSConfig: &tls.Config{
					MinVersion: tls.VersionTLS12,
					GetConfigForClient: func(*tls.ClientHelloInfo) (*tls.Config, error) {
						return current.Load(), nil
					},
				},
			}
			servers = append(servers, httpsServer)

			wg.Add(1)
			go func() {
				defer wg.Done()
				logger.Info("Starting TLS server", zap.String("port", tlsConfig.Port))
				if err := httpsServer.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
					logger.Error("TLS server failed", zap.Error(err))
				}
			}()

			// Watch for certificate updates
			go pkgtls.WatchCertificates(ctx, tlsConfig, func(newCfg *tls.Config) error {
				current.Store(newCfg)
				logger.Info("TLS configuration reloaded")
				return nil
			}, logger)
		}
	}

	// Graceful Shutdown
	<-ctx.Done()

	logger.Info("Shutting down servers...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown failed", zap.Error(err))
		}
	}

	wg.Wait()
	logger.Info("All servers stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func openStore(ctx context.Context, cfg *config.Config) (repository.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverBolt:
		return bolt.Open(cfg.BoltPath)
	case config.DriverDynamoDB:
		client, err := dynamodb.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			return nil, err
		}
		return dynamodb.NewStore(client, cfg.OrderTableName), nil
	default:
		return sqlite.Open(cfg.SQLitePath)
	}
}

func newPublisher(cfg *config.Config, logger *zap.Logger) (events.Publisher, error) {
	if cfg.KafkaBrokers == "" {
		logger.Info("KAFKA_BROKERS not set, order events are not published")
		return events.NopPublisher{}, nil
	}
	return events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
}
