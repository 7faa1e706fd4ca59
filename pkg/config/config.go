package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Cart     CartConfig
	Checkout CheckoutConfig
	Catalog  CatalogConfig
	Square   SquareConfig
	PubSub   PubSubConfig
	Outbox   OutboxConfig
	Features FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Cart.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string `envconfig:"STOREFRONT_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL"`
	Address      string        `envconfig:"STOREFRONT_REDIS_ADDR"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"STOREFRONT_JWT_ISSUER" default:"storefront"`
	ExpirationMinutes int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CartConfig carries the pricing policy constants applied by cart summaries.
// Monetary values are cents.
type CartConfig struct {
	TaxRate                    float64 `envconfig:"STOREFRONT_CART_TAX_RATE" default:"0.08"`
	FreeShippingThresholdCents int64   `envconfig:"STOREFRONT_CART_FREE_SHIPPING_THRESHOLD_CENTS" default:"7500"`
	ReducedShippingFloorCents  int64   `envconfig:"STOREFRONT_CART_REDUCED_SHIPPING_FLOOR_CENTS" default:"2500"`
	ReducedShippingFeeCents    int64   `envconfig:"STOREFRONT_CART_REDUCED_SHIPPING_FEE_CENTS" default:"499"`
	StandardShippingFeeCents   int64   `envconfig:"STOREFRONT_CART_STANDARD_SHIPPING_FEE_CENTS" default:"899"`
	LowStockThreshold          int     `envconfig:"STOREFRONT_CART_LOW_STOCK_THRESHOLD" default:"5"`
	MaxQuantityPerLine         int     `envconfig:"STOREFRONT_CART_MAX_QUANTITY_PER_LINE" default:"99"`
	Currency                   string  `envconfig:"STOREFRONT_CART_CURRENCY" default:"USD"`
}

func (c CartConfig) validate() error {
	if c.TaxRate < 0 || c.TaxRate >= 1 {
		return fmt.Errorf("cart tax rate must be in [0,1), got %v", c.TaxRate)
	}
	if c.ReducedShippingFloorCents > c.FreeShippingThresholdCents {
		return fmt.Errorf("reduced shipping floor exceeds free shipping threshold")
	}
	if c.LowStockThreshold < 0 {
		return fmt.Errorf("low stock threshold cannot be negative")
	}
	return nil
}

type CheckoutConfig struct {
	SessionTTL      time.Duration `envconfig:"STOREFRONT_CHECKOUT_SESSION_TTL" default:"30m"`
	DedupeWindow    time.Duration `envconfig:"STOREFRONT_CHECKOUT_DEDUPE_WINDOW" default:"2m"`
	UpstreamTimeout time.Duration `envconfig:"STOREFRONT_CHECKOUT_UPSTREAM_TIMEOUT" default:"5s"`
}

type CatalogConfig struct {
	SearchCacheTTL     time.Duration `envconfig:"STOREFRONT_CATALOG_SEARCH_CACHE_TTL" default:"2m"`
	SearchCacheMaxKeys int           `envconfig:"STOREFRONT_CATALOG_SEARCH_CACHE_MAX_KEYS" default:"512"`
	SearchPageSize     int           `envconfig:"STOREFRONT_CATALOG_SEARCH_PAGE_SIZE" default:"24"`
}

type SquareConfig struct {
	AccessToken string `envconfig:"STOREFRONT_SQUARE_ACCESS_TOKEN"`
	Environment string `envconfig:"STOREFRONT_SQUARE_ENV" default:"sandbox"`
	LocationID  string `envconfig:"STOREFRONT_SQUARE_LOCATION_ID"`
}

type PubSubConfig struct {
	ProjectID   string `envconfig:"STOREFRONT_PUBSUB_PROJECT_ID"`
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC" default:"storefront-order-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	for _, envName := range requiredDBEnvVars {
		if values[envName] == "" {
			missing = append(missing, envName)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}

	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
