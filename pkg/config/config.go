package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	DriverSQLite   = "sqlite"
	DriverBolt     = "bolt"
	DriverDynamoDB = "dynamodb"
)

type Config struct {
	Port     string `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	StorageDriver    string `envconfig:"STORAGE_DRIVER" default:"sqlite"`
	SQLitePath       string `envconfig:"SQLITE_PATH" default:"checkout.db"`
	BoltPath         string `envconfig:"BOLT_PATH" default:"checkout.bolt"`
	AWSRegion        string `envconfig:"AWS_REGION" default:"ap-northeast-2"`
	OrderTableName   string `envconfig:"ORDER_TABLE_NAME" default:"orders"`
	DynamoDBEndpoint string `envconfig:"DYNAMODB_ENDPOINT" default:""` // DynamoDB Local endpoint

	// Empty disables event publishing.
	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:""`
	KafkaTopic   string `envconfig:"KAFKA_TOPIC" default:"order-events"`

	ProductsAPIURL         string        `envconfig:"PRODUCTS_API_URL" default:"https://dimensweb.uqac.ca/~jgnault/shops/products/"`
	CatalogTimeout         time.Duration `envconfig:"CATALOG_TIMEOUT" default:"10s"`
	CatalogRefreshInterval time.Duration `envconfig:"CATALOG_REFRESH_INTERVAL" default:"0"`

	// Empty uses the built-in payment simulator.
	PaymentAPIURL    string        `envconfig:"PAYMENT_API_URL" default:""`
	PaymentTimeout   time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"10s"`
	PaymentRateLimit float64       `envconfig:"PAYMENT_RATE_LIMIT" default:"0"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverSQLite, DriverBolt, DriverDynamoDB:
	default:
		return fmt.Errorf("config: unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.PaymentTimeout <= 0 {
		return fmt.Errorf("config: PAYMENT_TIMEOUT must be positive")
	}
	if c.CatalogTimeout <= 0 {
		return fmt.Errorf("config: CATALOG_TIMEOUT must be positive")
	}
	if c.CatalogRefreshInterval < 0 {
		return fmt.Errorf("config: CATALOG_REFRESH_INTERVAL must not be negative")
	}
	if c.PaymentRateLimit < 0 {
		return fmt.Errorf("config: PAYMENT_RATE_LIMIT must not be negative")
	}
	return nil
}
