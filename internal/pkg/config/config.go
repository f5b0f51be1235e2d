// Package config holds the process configuration of the order service and
// the payment initiator stub.
package config

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// OrderService configures cmd/order-service.
type OrderService struct {
	HTTPAddr    string `env:"ORDERS_HTTP_ADDR" envDefault:":8080"`
	LogLevel    string `env:"ORDERS_LOG_LEVEL" envDefault:"info"`
	Environment string `env:"ORDERS_ENV" envDefault:"local"`

	StoreDriver string `env:"ORDERS_STORE_DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"ORDERS_SQLITE_PATH" envDefault:"./data/orders.db"`
	DatabaseURL string `env:"DATABASE_URL"`

	// RedisAddr enables the vendor directory cache when set.
	RedisAddr      string        `env:"ORDERS_REDIS_ADDR"`
	VendorCacheTTL time.Duration `env:"ORDERS_VENDOR_CACHE_TTL" envDefault:"5m"`

	// DirectoryPath is the YAML file with vendors, tiers and product weights.
	DirectoryPath string `env:"ORDERS_DIRECTORY_PATH" envDefault:"./config/directory.yaml"`

	PaymentInitiatorAddr string        `env:"ORDERS_PAYMENT_INITIATOR_ADDR" envDefault:"localhost:50053"`
	PaymentTimeout       time.Duration `env:"ORDERS_PAYMENT_TIMEOUT" envDefault:"10s"`
	PaymentCallbackURL   string        `env:"ORDERS_PAYMENT_CALLBACK_URL" envDefault:"http://localhost:8080/payments/callback"`

	// MinimumPayout is in minor units.
	MinimumPayout          int64           `env:"ORDERS_MINIMUM_PAYOUT" envDefault:"500000"`
	PlatformCommissionRate decimal.Decimal `env:"ORDERS_PLATFORM_COMMISSION_RATE" envDefault:"0.10"`

	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"order-service"`
}

// LoadOrderService parses and validates the order service configuration.
func LoadOrderService() (OrderService, error) {
	var cfg OrderService
	if err := ParseEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects combinations the service cannot start with.
func (c OrderService) Validate() error {
	switch c.StoreDriver {
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("config: ORDERS_SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown store driver %q", c.StoreDriver)
	}
	if c.MinimumPayout < 0 {
		return fmt.Errorf("config: minimum payout must not be negative")
	}
	if c.PlatformCommissionRate.IsNegative() || c.PlatformCommissionRate.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("config: platform commission rate %s is outside [0, 1]", c.PlatformCommissionRate)
	}
	return nil
}

// PaymentInitiator configures cmd/payment-initiator.
type PaymentInitiator struct {
	GRPCAddr          string `env:"PAYMENT_INITIATOR_GRPC_ADDR" envDefault:":50053"`
	LogLevel          string `env:"PAYMENT_INITIATOR_LOG_LEVEL" envDefault:"info"`
	Environment       string `env:"PAYMENT_INITIATOR_ENV" envDefault:"local"`
	AuthorizationBase string `env:"PAYMENT_INITIATOR_AUTHORIZATION_BASE" envDefault:"https://checkout.example.test/pay"`

	// RedisAddr keeps initiations across restarts when set.
	RedisAddr string        `env:"PAYMENT_INITIATOR_REDIS_ADDR"`
	CacheTTL  time.Duration `env:"PAYMENT_INITIATOR_CACHE_TTL" envDefault:"48h"`

	OTelEnabled  bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4317"`
	ServiceName  string `env:"OTEL_SERVICE_NAME" envDefault:"payment-initiator"`
}

func LoadPaymentInitiator() (PaymentInitiator, error) {
	var cfg PaymentInitiator
	err := ParseEnv(&cfg)
	return cfg, err
}
