package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/beastsupply/storefront/internal/pricing"
	"github.com/shopspring/decimal"
)

type Config struct {
	HTTPPort           string
	GRPCPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64

	LogLevel string
	AppEnv   string

	MongoURI    string
	MongoDBName string

	RedisAddr     string
	RedisPassword string

	Postgres Postgres

	CatalogDBPath         string
	CatalogMigrationsPath string

	KafkaBrokers       []string
	OrderEventsTopic   string
	FulfillmentTopic   string
	CartConsumerGroup  string
	FulfillmentGroup   string
	OutboxPollInterval time.Duration

	// SettlementKey is the payment-routing token stamped on every new order.
	SettlementKey   string
	ClearRetries    int
	ClearRetryDelay time.Duration

	Pricing pricing.Rules
}

type Postgres struct {
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	MigrationsPath string
}

func Load() (*Config, error) {
	var errs []string
	intEnv := func(key string, def int) int {
		v, err := strconv.Atoi(getEnv(key, strconv.Itoa(def)))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
		return v
	}
	durationEnv := func(key string, def time.Duration) time.Duration {
		v, err := time.ParseDuration(getEnv(key, def.String()))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
		return v
	}
	decimalEnv := func(key string, def decimal.Decimal) decimal.Decimal {
		v, err := decimal.NewFromString(getEnv(key, def.String()))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
		return v
	}

	defaults := pricing.DefaultRules()
	cfg := &Config{
		HTTPPort:           getEnv("HTTP_PORT", "8080"),
		GRPCPort:           getEnv("GRPC_PORT", "50060"),
		RequestTimeout:     durationEnv("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout:    durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
		MaxRequestBodySize: 1 << 20, // 1MB

		LogLevel: getEnv("LOG_LEVEL", "info"),
		AppEnv:   getEnv("APP_ENV", "production"),

		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "cartdb"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		Postgres: Postgres{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           intEnv("DB_PORT", 5432),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "storefront"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./internal/order/repository/migrations"),
		},

		CatalogDBPath:         getEnv("CATALOG_DB_PATH", "./catalog.db"),
		CatalogMigrationsPath: getEnv("CATALOG_MIGRATIONS_PATH", "./internal/catalog/migrations"),

		KafkaBrokers:       strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		OrderEventsTopic:   getEnv("ORDER_EVENTS_TOPIC", "order-events"),
		FulfillmentTopic:   getEnv("FULFILLMENT_TOPIC", "fulfillment-events"),
		CartConsumerGroup:  getEnv("CART_CONSUMER_GROUP", "storefront-cart"),
		FulfillmentGroup:   getEnv("FULFILLMENT_CONSUMER_GROUP", "storefront-fulfillment"),
		OutboxPollInterval: durationEnv("OUTBOX_POLL_INTERVAL", time.Second),

		SettlementKey:   getEnv("SETTLEMENT_KEY", "pix@beastsupplements.com"),
		ClearRetries:    intEnv("CART_CLEAR_RETRIES", 3),
		ClearRetryDelay: durationEnv("CART_CLEAR_RETRY_DELAY", 100*time.Millisecond),

		Pricing: pricing.Rules{
			FreeShippingThreshold:       decimalEnv("FREE_SHIPPING_THRESHOLD", defaults.FreeShippingThreshold),
			StandardShippingFee:         decimalEnv("STANDARD_SHIPPING_FEE", defaults.StandardShippingFee),
			ExpeditedShippingFee:        decimalEnv("EXPEDITED_SHIPPING_FEE", defaults.ExpeditedShippingFee),
			InstantTransferDiscountRate: decimalEnv("INSTANT_TRANSFER_DISCOUNT_RATE", defaults.InstantTransferDiscountRate),
		},
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	if cfg.SettlementKey == "" {
		return nil, fmt.Errorf("invalid configuration: SETTLEMENT_KEY must not be empty")
	}
	if cfg.ClearRetries < 1 {
		return nil, fmt.Errorf("invalid configuration: CART_CLEAR_RETRIES must be at least 1")
	}
	if err := cfg.Pricing.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
