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
	CORS         CORSConfig
	FeatureFlags FeatureFlagsConfig
	Midtrans     MidtransConfig
	Shipping     ShippingConfig
	Orders       OrdersConfig
	Webhooks     WebhooksConfig
	GCP          GCPConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Outbox       OutboxConfig
	Cron         CronConfig
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
	Env          string `envconfig:"TOKOFLOW_APP_ENV" required:"true"`
	Port         string `envconfig:"TOKOFLOW_APP_PORT" required:"true"`
	Version      string `envconfig:"TOKOFLOW_APP_VERSION" default:"dev"`
	LogLevel     string `envconfig:"TOKOFLOW_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"TOKOFLOW_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"TOKOFLOW_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"TOKOFLOW_DB_DSN"`
	Driver string `envconfig:"TOKOFLOW_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"TOKOFLOW_DB_HOST"`
	LegacyPort     int    `envconfig:"TOKOFLOW_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"TOKOFLOW_DB_USER"`
	LegacyPassword string `envconfig:"TOKOFLOW_DB_PASSWORD"`
	LegacyName     string `envconfig:"TOKOFLOW_DB_NAME"`
	LegacySSLMode  string `envconfig:"TOKOFLOW_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"TOKOFLOW_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"TOKOFLOW_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"TOKOFLOW_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"TOKOFLOW_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// IsSQLite reports whether the local sqlite driver was requested.
func (db DBConfig) IsSQLite() bool {
	return strings.EqualFold(strings.TrimSpace(db.Driver), DBDriverSQLite)
}

type RedisConfig struct {
	URL          string        `envconfig:"TOKOFLOW_REDIS_URL" required:"true"`
	Address      string        `envconfig:"TOKOFLOW_REDIS_ADDR"`
	Password     string        `envconfig:"TOKOFLOW_REDIS_PASSWORD"`
	DB           int           `envconfig:"TOKOFLOW_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"TOKOFLOW_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"TOKOFLOW_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"TOKOFLOW_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"TOKOFLOW_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"TOKOFLOW_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// JWTConfig holds the shared secret used to verify access tokens minted by the auth service.
type JWTConfig struct {
	Secret            string `envconfig:"TOKOFLOW_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"TOKOFLOW_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"TOKOFLOW_JWT_EXPIRATION_MINUTES" default:"60"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"TOKOFLOW_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"TOKOFLOW_AUTO_MIGRATE" default:"false"`
}

// MidtransConfig configures the Snap payment gateway client.
type MidtransConfig struct {
	ServerKey       string        `envconfig:"TOKOFLOW_MIDTRANS_SERVER_KEY"`
	Env             string        `envconfig:"TOKOFLOW_MIDTRANS_ENV" default:"sandbox"`
	BaseURL         string        `envconfig:"TOKOFLOW_MIDTRANS_BASE_URL"`
	Timeout         time.Duration `envconfig:"TOKOFLOW_MIDTRANS_TIMEOUT" default:"15s"`
	VerifySignature bool          `envconfig:"TOKOFLOW_MIDTRANS_VERIFY_SIGNATURE" default:"false"`
}

// Environment returns the normalized Midtrans environment (sandbox/production).
func (m MidtransConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(m.Env))
	if env == "" {
		return MidtransEnvSandbox
	}
	return env
}

type ShippingConfig struct {
	APIKey  string        `envconfig:"TOKOFLOW_RAJAONGKIR_API_KEY"`
	BaseURL string        `envconfig:"TOKOFLOW_RAJAONGKIR_BASE_URL"`
	Timeout time.Duration `envconfig:"TOKOFLOW_RAJAONGKIR_TIMEOUT" default:"10s"`
}

type OrdersConfig struct {
	PendingTTL time.Duration `envconfig:"TOKOFLOW_ORDER_PENDING_TTL" default:"24h"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"TOKOFLOW_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"TOKOFLOW_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"TOKOFLOW_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"TOKOFLOW_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic             string        `envconfig:"TOKOFLOW_PUBSUB_ORDERS_TOPIC" default:"tf-order-events"`
	PaymentsTopic           string        `envconfig:"TOKOFLOW_PUBSUB_PAYMENTS_TOPIC" default:"tf-payment-events"`
	AnalyticsSubscription   string        `envconfig:"TOKOFLOW_PUBSUB_ANALYTICS_SUBSCRIPTION" default:"tf-order-events-analytics"`
	AnalyticsMaxOutstanding int           `envconfig:"TOKOFLOW_PUBSUB_ANALYTICS_MAX_OUTSTANDING" default:"100"`
	AnalyticsNumGoroutines  int           `envconfig:"TOKOFLOW_PUBSUB_ANALYTICS_NUM_GOROUTINES" default:"2"`
	AnalyticsIdempotencyTTL time.Duration `envconfig:"TOKOFLOW_PUBSUB_ANALYTICS_IDEMPOTENCY_TTL" default:"168h"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"TOKOFLOW_BIGQUERY_DATASET" default:"tokoflow"`
	OrderEventsTable string `envconfig:"TOKOFLOW_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"TOKOFLOW_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"TOKOFLOW_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"TOKOFLOW_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"TOKOFLOW_OUTBOX_RETENTION_DAYS" default:"14"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"TOKOFLOW_CRON_INTERVAL" default:"15m"`
	LockTTL  time.Duration `envconfig:"TOKOFLOW_CRON_LOCK_TTL" default:"10m"`
}

// RateLimitConfig throttles payment initiation per user and webhook calls per client IP.
type RateLimitConfig struct {
	Window       time.Duration `envconfig:"TOKOFLOW_RATE_LIMIT_WINDOW" default:"1m"`
	PaymentLimit int           `envconfig:"TOKOFLOW_RATE_LIMIT_PAYMENT" default:"10"`
	WebhookLimit int           `envconfig:"TOKOFLOW_RATE_LIMIT_WEBHOOK" default:"300"`
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
