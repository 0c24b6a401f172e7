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
	FeatureFlags FeatureFlagsConfig
	Auth         AuthConfig
	Firebase     FirebaseConfig
	Eventing     EventingConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Media        MediaConfig
	PubSub       PubSubConfig
	BigQuery     BigQueryConfig
	Stripe       StripeConfig
	SMTP         SMTPConfig
	Outbox       OutboxConfig
	Checkout     CheckoutConfig
	Cron         CronConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Auth.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"MARKETPLACE_APP_ENV" required:"true"`
	Port         string `envconfig:"MARKETPLACE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"MARKETPLACE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"MARKETPLACE_LOG_WARN_STACK" default:"false"`
	// PublicOrigin is the storefront origin used for redirects, CORS and email links.
	PublicOrigin string `envconfig:"MARKETPLACE_PUBLIC_ORIGIN" default:"http://localhost:3000"`
	AppID        string `envconfig:"MARKETPLACE_APP_ID" default:"marketplace"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"MARKETPLACE_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"MARKETPLACE_DB_DSN"`
	Driver string `envconfig:"MARKETPLACE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"MARKETPLACE_DB_HOST"`
	LegacyPort     int    `envconfig:"MARKETPLACE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"MARKETPLACE_DB_USER"`
	LegacyPassword string `envconfig:"MARKETPLACE_DB_PASSWORD"`
	LegacyName     string `envconfig:"MARKETPLACE_DB_NAME"`
	LegacySSLMode  string `envconfig:"MARKETPLACE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"MARKETPLACE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"MARKETPLACE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"MARKETPLACE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
	SlowQuery       time.Duration `envconfig:"MARKETPLACE_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"MARKETPLACE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"MARKETPLACE_REDIS_ADDR"`
	Password     string        `envconfig:"MARKETPLACE_REDIS_PASSWORD"`
	DB           int           `envconfig:"MARKETPLACE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"MARKETPLACE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"MARKETPLACE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"MARKETPLACE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"MARKETPLACE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"MARKETPLACE_AUTO_MIGRATE" default:"false"`
	// ForceFreeShipping zeroes the checkout shipping fee regardless of the stored settings.
	ForceFreeShipping       bool `envconfig:"MARKETPLACE_FORCE_FREE_SHIPPING" default:"false"`
	EnforceCouponUsageLimit bool `envconfig:"MARKETPLACE_ENFORCE_COUPON_USAGE_LIMIT" default:"false"`
}

type AuthConfig struct {
	Provider          string        `envconfig:"MARKETPLACE_AUTH_PROVIDER" default:"firebase"`
	LocalSecret       string        `envconfig:"MARKETPLACE_AUTH_LOCAL_SECRET"`
	LocalIssuer       string        `envconfig:"MARKETPLACE_AUTH_LOCAL_ISSUER" default:"marketplace-local"`
	LocalTokenTTL     time.Duration `envconfig:"MARKETPLACE_AUTH_LOCAL_TOKEN_TTL" default:"1h"`
	AdminEmails       []string      `envconfig:"MARKETPLACE_ADMIN_EMAILS"`
	RateLimitWindow   time.Duration `envconfig:"MARKETPLACE_CHECKOUT_RATE_LIMIT_WINDOW" default:"1m"`
	RateLimitCheckout int           `envconfig:"MARKETPLACE_CHECKOUT_RATE_LIMIT" default:"20"`
}

func (a AuthConfig) UsesLocalTokens() bool {
	return strings.EqualFold(strings.TrimSpace(a.Provider), AuthProviderLocal)
}

// IsAdmin reports whether email is listed in the configured admin emails.
func (a AuthConfig) IsAdmin(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, candidate := range a.AdminEmails {
		if strings.EqualFold(strings.TrimSpace(candidate), email) {
			return true
		}
	}
	return false
}

func (a AuthConfig) validate() error {
	switch strings.ToLower(strings.TrimSpace(a.Provider)) {
	case AuthProviderFirebase:
		return nil
	case AuthProviderLocal:
		if strings.TrimSpace(a.LocalSecret) == "" {
			return fmt.Errorf("%s is required when %s=%s", EnvAuthLocalSecret, EnvAuthProvider, AuthProviderLocal)
		}
		return nil
	default:
		return fmt.Errorf("unsupported %s %q", EnvAuthProvider, a.Provider)
	}
}

type FirebaseConfig struct {
	ProjectID       string        `envconfig:"MARKETPLACE_FIREBASE_PROJECT_ID"`
	CredentialsFile string        `envconfig:"MARKETPLACE_FIREBASE_CREDENTIALS_FILE"`
	CredentialsJSON string        `envconfig:"MARKETPLACE_FIREBASE_CREDENTIALS_JSON"`
	CallTimeout     time.Duration `envconfig:"MARKETPLACE_FIREBASE_CALL_TIMEOUT" default:"5s"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"MARKETPLACE_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"MARKETPLACE_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"MARKETPLACE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"MARKETPLACE_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string        `envconfig:"MARKETPLACE_GCS_BUCKET_NAME" required:"true"`
	UploadTimeout time.Duration `envconfig:"MARKETPLACE_GCS_UPLOAD_TIMEOUT" default:"30s"`
}

type MediaConfig struct {
	MaxUploadMB int `envconfig:"MARKETPLACE_MAX_UPLOAD_MB" default:"50"`
	MaxFiles    int `envconfig:"MARKETPLACE_MEDIA_MAX_FILES" default:"10"`
}

type PubSubConfig struct {
	OrdersTopic              string `envconfig:"MARKETPLACE_PUBSUB_ORDERS_TOPIC" required:"true"`
	NotificationTopic        string `envconfig:"MARKETPLACE_PUBSUB_NOTIFICATION_TOPIC" default:"mk-notification-events"`
	NotificationSubscription string `envconfig:"MARKETPLACE_PUBSUB_NOTIFICATION_SUBSCRIPTION" required:"true"`
	AnalyticsSubscription    string `envconfig:"MARKETPLACE_PUBSUB_ANALYTICS_SUBSCRIPTION" required:"true"`
}

type BigQueryConfig struct {
	Dataset          string `envconfig:"MARKETPLACE_BIGQUERY_DATASET" default:"marketplace"`
	OrderEventsTable string `envconfig:"MARKETPLACE_BIGQUERY_ORDER_EVENTS_TABLE" default:"order_events"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"MARKETPLACE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"MARKETPLACE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"MARKETPLACE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	Retention      time.Duration `envconfig:"MARKETPLACE_OUTBOX_RETENTION" default:"720h"`
	DLQRetention   time.Duration `envconfig:"MARKETPLACE_OUTBOX_DLQ_RETENTION" default:"2160h"`
	PurgeBatchSize int           `envconfig:"MARKETPLACE_OUTBOX_PURGE_BATCH_SIZE" default:"500"`
}

type StripeConfig struct {
	APIKey     string        `envconfig:"MARKETPLACE_STRIPE_API_KEY"`
	Secret     string        `envconfig:"MARKETPLACE_STRIPE_SECRET"`
	Env        string        `envconfig:"MARKETPLACE_STRIPE_ENV" default:"test"`
	Currency   string        `envconfig:"MARKETPLACE_STRIPE_CURRENCY" default:"aed"`
	SessionTTL time.Duration `envconfig:"MARKETPLACE_STRIPE_SESSION_TTL" default:"30m"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type SMTPConfig struct {
	Host        string `envconfig:"MARKETPLACE_SMTP_HOST"`
	Port        int    `envconfig:"MARKETPLACE_SMTP_PORT" default:"587"`
	Username    string `envconfig:"MARKETPLACE_SMTP_USERNAME"`
	Password    string `envconfig:"MARKETPLACE_SMTP_PASSWORD"`
	DefaultFrom string `envconfig:"MARKETPLACE_SMTP_FROM_EMAIL" default:"no-reply@marketplace.local"`
	FromName    string `envconfig:"MARKETPLACE_SMTP_FROM_NAME" default:"Marketplace"`
}

type CheckoutConfig struct {
	GuestTokenTTL       time.Duration `envconfig:"MARKETPLACE_GUEST_TOKEN_TTL" default:"168h"`
	NotifyTimeout       time.Duration `envconfig:"MARKETPLACE_NOTIFY_TIMEOUT" default:"3s"`
	ExternalCallTimeout time.Duration `envconfig:"MARKETPLACE_EXTERNAL_CALL_TIMEOUT" default:"10s"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"MARKETPLACE_CRON_INTERVAL" default:"1h"`
	LockTTL  time.Duration `envconfig:"MARKETPLACE_CRON_LOCK_TTL" default:"5m"`
	// Jobs limits the worker to the named jobs; empty runs all of them.
	Jobs []string `envconfig:"MARKETPLACE_CRON_JOBS"`
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
