package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Session      SessionConfig
	FeatureFlags FeatureFlagsConfig
	Catalog      CatalogConfig
	Carrier      CarrierConfig
	Warehouse    WarehouseConfig
	Shipping     ShippingConfig
	OrderAPI     OrderAPIConfig
	PayFast      PayFastConfig
	Checkout     CheckoutConfig
	RateLimit    RateLimitConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	PublicURL    string   `envconfig:"STOREFRONT_PUBLIC_URL" default:"http://localhost:3000"`
	APIBaseURL   string   `envconfig:"STOREFRONT_API_BASE_URL" default:"http://localhost:8080"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"http://localhost:3000"`
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

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"5"`
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
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
	CartTTL      time.Duration `envconfig:"STOREFRONT_REDIS_CART_TTL" default:"720h"`
}

// SessionConfig signs the storefront session cookie.
type SessionConfig struct {
	Secret       string        `envconfig:"STOREFRONT_SESSION_SECRET" required:"true"`
	Issuer       string        `envconfig:"STOREFRONT_SESSION_ISSUER" default:"storefront"`
	CookieName   string        `envconfig:"STOREFRONT_SESSION_COOKIE" default:"sf_session"`
	TTL          time.Duration `envconfig:"STOREFRONT_SESSION_TTL" default:"720h"`
	IdleTTL      time.Duration `envconfig:"STOREFRONT_SESSION_IDLE_TTL" default:"2h"`
	SecureCookie bool          `envconfig:"STOREFRONT_SESSION_SECURE_COOKIE" default:"true"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
	Journal     bool `envconfig:"STOREFRONT_CHECKOUT_JOURNAL" default:"true"`
}

type CatalogConfig struct {
	BaseURL        string        `envconfig:"STOREFRONT_CATALOG_BASE_URL" required:"true"`
	ConsumerKey    string        `envconfig:"STOREFRONT_CATALOG_CONSUMER_KEY"`
	ConsumerSecret string        `envconfig:"STOREFRONT_CATALOG_CONSUMER_SECRET"`
	Timeout        time.Duration `envconfig:"STOREFRONT_CATALOG_TIMEOUT" default:"10s"`
	SearchPageSize int           `envconfig:"STOREFRONT_CATALOG_SEARCH_PAGE_SIZE" default:"50"`
}

type CarrierConfig struct {
	BaseURL          string        `envconfig:"STOREFRONT_CARRIER_BASE_URL" required:"true"`
	APIKey           string        `envconfig:"STOREFRONT_CARRIER_API_KEY"`
	Timeout          time.Duration `envconfig:"STOREFRONT_CARRIER_TIMEOUT" default:"8s"`
	BreakerFailures  uint32        `envconfig:"STOREFRONT_CARRIER_BREAKER_FAILURES" default:"5"`
	BreakerOpenDelay time.Duration `envconfig:"STOREFRONT_CARRIER_BREAKER_OPEN" default:"30s"`
}

// WarehouseConfig is the collection address sent with every rate request.
type WarehouseConfig struct {
	Company       string `envconfig:"STOREFRONT_WAREHOUSE_COMPANY"`
	StreetAddress string `envconfig:"STOREFRONT_WAREHOUSE_STREET" required:"true"`
	LocalArea     string `envconfig:"STOREFRONT_WAREHOUSE_LOCAL_AREA"`
	City          string `envconfig:"STOREFRONT_WAREHOUSE_CITY" required:"true"`
	Zone          string `envconfig:"STOREFRONT_WAREHOUSE_ZONE" required:"true"`
	Country       string `envconfig:"STOREFRONT_WAREHOUSE_COUNTRY" default:"ZA"`
	PostalCode    string `envconfig:"STOREFRONT_WAREHOUSE_POSTAL_CODE" required:"true"`
}

type ShippingConfig struct {
	Currency          string `envconfig:"STOREFRONT_CURRENCY" default:"ZAR"`
	FallbackFlatPrice string `envconfig:"STOREFRONT_SHIPPING_FALLBACK_PRICE" default:"99.00"`
	FreeThreshold     string `envconfig:"STOREFRONT_SHIPPING_FREE_THRESHOLD" default:"750.00"`
	DefaultWeightKG   string `envconfig:"STOREFRONT_SHIPPING_DEFAULT_WEIGHT_KG" default:"0.5"`
}

type OrderAPIConfig struct {
	BaseURL        string        `envconfig:"STOREFRONT_ORDER_API_BASE_URL" required:"true"`
	ConsumerKey    string        `envconfig:"STOREFRONT_ORDER_API_CONSUMER_KEY"`
	ConsumerSecret string        `envconfig:"STOREFRONT_ORDER_API_CONSUMER_SECRET"`
	Timeout        time.Duration `envconfig:"STOREFRONT_ORDER_API_TIMEOUT" default:"20s"`
}

type PayFastConfig struct {
	MerchantID  string `envconfig:"STOREFRONT_PAYFAST_MERCHANT_ID" required:"true"`
	MerchantKey string `envconfig:"STOREFRONT_PAYFAST_MERCHANT_KEY" required:"true"`
	Passphrase  string `envconfig:"STOREFRONT_PAYFAST_PASSPHRASE"`
	Sandbox     bool   `envconfig:"STOREFRONT_PAYFAST_SANDBOX" default:"true"`
	ReturnURL   string `envconfig:"STOREFRONT_PAYFAST_RETURN_URL"`
	CancelURL   string `envconfig:"STOREFRONT_PAYFAST_CANCEL_URL"`
	NotifyURL   string `envconfig:"STOREFRONT_PAYFAST_NOTIFY_URL"`
}

// ProcessURL returns the gateway form target for the configured environment.
func (p PayFastConfig) ProcessURL() string {
	if p.Sandbox {
		return PayFastSandboxURL
	}
	return PayFastLiveURL
}

type CheckoutConfig struct {
	StoreName     string `envconfig:"STOREFRONT_STORE_NAME" default:"Storefront"`
	PaymentMethod string `envconfig:"STOREFRONT_PAYMENT_METHOD" default:"payfast"`
	PaymentTitle  string `envconfig:"STOREFRONT_PAYMENT_TITLE" default:"PayFast"`
}

// RateLimitConfig throttles the order-creating and gateway-facing routes.
type RateLimitConfig struct {
	Window               time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_WINDOW" default:"1m"`
	CheckoutIPLimit      int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_IP" default:"30"`
	CheckoutSessionLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_CHECKOUT_SESSION" default:"10"`
	NotifyIPLimit        int           `envconfig:"STOREFRONT_RATE_LIMIT_NOTIFY_IP" default:"120"`
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
	for _, env := range componentDBEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
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
