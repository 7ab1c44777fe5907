package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/fjod/go_storefront/internal/catalog"
	"github.com/shopspring/decimal"
)

const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMongo  = "mongo"
)

type Config struct {
	Service  string
	Env      string
	LogLevel string

	HTTPPort           string
	GRPCPort           string
	RequestTimeout     time.Duration
	ShutdownTimeout    time.Duration
	MaxRequestBodySize int64
	SecureCookie       bool
	HealthInterval     time.Duration

	SessionStore  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	MongoURI      string
	MongoDatabase string

	CatalogPolicy   catalog.Policy
	CMSBaseURL      string
	CMSTimeout      time.Duration
	CatalogDBPath   string
	ProductCacheTTL time.Duration

	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
	Currency    string

	DraftTTL            time.Duration
	PaymentSuccessDelay time.Duration
	PaymentTrackerTTL   time.Duration

	StripeSecretKey      string
	StripePublishableKey string
	PayPalClientID       string
	PayPalSecret         string
	PayPalSandbox        bool

	OrdersAPIURL     string
	OrdersAPIToken   string
	OrdersAPITimeout time.Duration

	// DBHost empty disables the order ledger and the outbox poller.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	KafkaBrokers []string
	KafkaTopic   string
	OutboxTick   time.Duration
}

func Load() (*Config, error) {
	var errs []string
	fail := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	cfg := &Config{
		Service:  getEnv("SERVICE_NAME", "storefront"),
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		GRPCPort:      getEnv("GRPC_PORT", "50060"),
		SessionStore:  strings.ToLower(getEnv("SESSION_STORE", StoreMemory)),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "storefront"),

		CMSBaseURL:    getEnv("CMS_BASE_URL", ""),
		CatalogDBPath: getEnv("CATALOG_DB_PATH", ":memory:"),

		Currency: strings.ToUpper(getEnv("CURRENCY", "USD")),

		StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
		StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		PayPalClientID:       getEnv("PAYPAL_CLIENT_ID", ""),
		PayPalSecret:         getEnv("PAYPAL_SECRET", ""),

		OrdersAPIURL:   getEnv("ORDERS_API_URL", ""),
		OrdersAPIToken: getEnv("ORDERS_API_TOKEN", ""),

		DBHost:     getEnv("DB_HOST", ""),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "storefront"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		KafkaTopic: getEnv("KAFKA_TOPIC", "storefront-orders"),
	}

	var err error
	cfg.RequestTimeout, err = getEnvDuration("REQUEST_TIMEOUT", 30*time.Second)
	fail(err)
	cfg.ShutdownTimeout, err = getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	fail(err)
	cfg.HealthInterval, err = getEnvDuration("HEALTH_INTERVAL", 10*time.Second)
	fail(err)
	cfg.CMSTimeout, err = getEnvDuration("CMS_TIMEOUT", 5*time.Second)
	fail(err)
	cfg.ProductCacheTTL, err = getEnvDuration("PRODUCT_CACHE_TTL", 10*time.Minute)
	fail(err)
	cfg.DraftTTL, err = getEnvDuration("ORDER_DRAFT_TTL", 30*time.Minute)
	fail(err)
	cfg.PaymentSuccessDelay, err = getEnvDuration("PAYMENT_SUCCESS_DELAY", 1500*time.Millisecond)
	fail(err)
	cfg.PaymentTrackerTTL, err = getEnvDuration("PAYMENT_SESSION_TTL", time.Hour)
	fail(err)
	cfg.OrdersAPITimeout, err = getEnvDuration("ORDERS_API_TIMEOUT", 10*time.Second)
	fail(err)
	cfg.OutboxTick, err = getEnvDuration("OUTBOX_TICK", time.Second)
	fail(err)

	cfg.RedisDB, err = getEnvInt("REDIS_DB", 0)
	fail(err)
	cfg.DBPort, err = getEnvInt("DB_PORT", 5432)
	fail(err)
	bodySize, err := getEnvInt("MAX_REQUEST_BODY_SIZE", 1<<20)
	fail(err)
	cfg.MaxRequestBodySize = int64(bodySize)

	cfg.SecureCookie, err = getEnvBool("SECURE_COOKIE", false)
	fail(err)
	cfg.PayPalSandbox, err = getEnvBool("PAYPAL_SANDBOX", true)
	fail(err)

	cfg.ShippingFee, err = getEnvDecimal("SHIPPING_FEE", decimal.NewFromInt(100))
	fail(err)
	cfg.TaxRate, err = getEnvDecimal("TAX_RATE", decimal.RequireFromString("0.10"))
	fail(err)

	policy := getEnv("CATALOG_POLICY", string(catalog.PolicyRemoteFirst))
	cfg.CatalogPolicy, err = catalog.ParsePolicy(policy)
	fail(err)

	if brokers := getEnv("KAFKA_BROKERS", ""); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	switch cfg.SessionStore {
	case StoreMemory, StoreRedis, StoreMongo:
	default:
		errs = append(errs, fmt.Sprintf("SESSION_STORE: unknown store %q", cfg.SessionStore))
	}
	if cfg.ShippingFee.IsNegative() || cfg.TaxRate.IsNegative() {
		errs = append(errs, "SHIPPING_FEE and TAX_RATE must not be negative")
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return cfg, nil
}

// LedgerEnabled reports whether Postgres is configured.
func (c *Config) LedgerEnabled() bool {
	return c.DBHost != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid integer %q", key, value)
	}
	return n, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid boolean %q", key, value)
	}
	return b, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid duration %q", key, value)
	}
	return d, nil
}

func getEnvDecimal(key string, defaultValue decimal.Decimal) (decimal.Decimal, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return defaultValue, fmt.Errorf("%s: invalid decimal %q", key, value)
	}
	return d, nil
}
