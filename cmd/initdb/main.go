// Command initdb resets the configured store and loads the catalog from the
// products feed.
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/cloud-wave-best-zizon/checkout-service/internal/catalog"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository/bolt"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository/dynamodb"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/repository/sqlite"
	"github.com/cloud-wave-best-zizon/checkout-service/internal/service"
	"github.com/cloud-wave-best-zizon/checkout-service/pkg/config"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := resetStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Failed to reset store", zap.String("driver", cfg.StorageDriver), zap.Error(err))
	}
	defer store.Close()

	feed := catalog.NewFeedClient(cfg.ProductsAPIURL, cfg.CatalogTimeout)
	n, err := service.NewCatalogService(feed, store, logger).Refresh(ctx)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}

	logger.Info("Database initialized",
		zap.String("driver", cfg.StorageDriver),
		zap.Int("products", n))
}

// resetStore removes file based stores before reopening them. DynamoDB tables
// are left in place; only the catalog is replaced.
func resetStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, error) {
	switch cfg.StorageDriver {
	case config.DriverBolt:
		if err := removeFiles(cfg.BoltPath); err != nil {
			return nil, err
		}
		return bolt.Open(cfg.BoltPath)
	case config.DriverDynamoDB:
		logger.Warn("DynamoDB orders are not removed by initdb", zap.String("table", cfg.OrderTableName))
		client, err := dynamodb.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			return nil, err
		}
		return dynamodb.NewStore(client, cfg.OrderTableName), nil
	default:
		if err := removeFiles(cfg.SQLitePath, cfg.SQLitePath+"-wal", cfg.SQLitePath+"-shm"); err != nil {
			return nil, err
		}
		return sqlite.Open(cfg.SQLitePath)
	}
}

func removeFiles(paths ...string) error {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}
