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
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	FeatureFlags FeatureFlagsConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
	Outbox       OutboxConfig
	HTTP         HTTPConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Checkout.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MARKET_DB_DSN"`
	Driver string `envconfig:"MARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKET_DB_USER"`
	LegacyPassword string `envconfig:"MARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARKET_REDIS_ADDR"`
	Password     string        `envconfig:"MARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig validates the access tokens minted by the identity provider.
type JWTConfig struct {
	Secret            string `envconfig:"MARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"MARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"MARKET_JWT_EXPIRATION_MINUTES" default:"60"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"MARKET_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"MARKET_AUTO_MIGRATE" default:"false"`
}

// CheckoutConfig carries the order-creation and payment knobs.
type CheckoutConfig struct {
	PendingOrderTTL              time.Duration `envconfig:"MARKET_CHECKOUT_PENDING_ORDER_TTL" default:"30m"`
	DefaultShippingFeeKrw        int64         `envconfig:"MARKET_CHECKOUT_DEFAULT_SHIPPING_FEE_KRW" default:"3000"`
	DefaultFreeShippingThreshold int64         `envconfig:"MARKET_CHECKOUT_DEFAULT_FREE_SHIPPING_THRESHOLD_KRW" default:"50000"`
	AdminOverrideReasonMinLength int           `envconfig:"MARKET_ADMIN_OVERRIDE_REASON_MIN_LENGTH" default:"10"`
	MaxLinesPerCheckout          int           `envconfig:"MARKET_CHECKOUT_MAX_LINES" default:"100"`
	MaxQuantityPerLine           int           `envconfig:"MARKET_CHECKOUT_MAX_QUANTITY_PER_LINE" default:"999"`
}

func (c CheckoutConfig) validate() error {
	if c.PendingOrderTTL <= 0 {
		return fmt.Errorf("%s must be positive", EnvPendingOrderTTL)
	}
	if c.DefaultShippingFeeKrw < 0 || c.DefaultFreeShippingThreshold < 0 {
		return fmt.Errorf("default shipping values must not be negative")
	}
	if c.AdminOverrideReasonMinLength < 1 {
		return fmt.Errorf("%s must be at least 1", EnvAdminReasonMinLength)
	}
	if c.MaxQuantityPerLine < 1 {
		return fmt.Errorf("%s must be at least 1", EnvMaxQuantityPerLine)
	}
	return nil
}

// CronConfig configures the optional expiry sweep worker.
type CronConfig struct {
	Interval          time.Duration `envconfig:"MARKET_CRON_INTERVAL" default:"5m"`
	LockTTL           time.Duration `envconfig:"MARKET_CRON_LOCK_TTL" default:"4m"`
	ExpirySweepBatch  int           `envconfig:"MARKET_CRON_EXPIRY_SWEEP_BATCH" default:"200"`
	ExpirySweepEnable bool          `envconfig:"MARKET_CRON_EXPIRY_SWEEP_ENABLED" default:"true"`
}

// OutboxConfig drives the relay that copies committed outbox rows onto the
// Redis event stream, and the retention job that prunes them.
type OutboxConfig struct {
	BatchSize      int    `envconfig:"MARKET_OUTBOX_BATCH_SIZE" default:"50"`
	PollIntervalMS int    `envconfig:"MARKET_OUTBOX_POLL_INTERVAL_MS" default:"500"`
	MaxAttempts    int    `envconfig:"MARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Stream         string `envconfig:"MARKET_OUTBOX_STREAM" default:"order-events"`
	StreamMaxLen   int64  `envconfig:"MARKET_OUTBOX_STREAM_MAX_LEN" default:"100000"`
	RetentionDays  int    `envconfig:"MARKET_OUTBOX_RETENTION_DAYS" default:"30"`
}

type HTTPConfig struct {
	IdempotencyTTL     time.Duration `envconfig:"MARKET_HTTP_IDEMPOTENCY_TTL" default:"24h"`
	ConfirmRateLimit   int64         `envconfig:"MARKET_HTTP_CONFIRM_RATE_LIMIT" default:"30"`
	ConfirmRateWindow  time.Duration `envconfig:"MARKET_HTTP_CONFIRM_RATE_WINDOW" default:"1m"`
	CORSAllowedOrigins []string      `envconfig:"MARKET_HTTP_CORS_ALLOWED_ORIGINS" default:"*"`
	RequestTimeout     time.Duration `envconfig:"MARKET_HTTP_REQUEST_TIMEOUT" default:"15s"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
