package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "synqsell"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "SYNQSELL_DB_DSN"
	EnvDBHost = "SYNQSELL_DB_HOST"
	EnvDBUser = "SYNQSELL_DB_USER"
	EnvDBName = "SYNQSELL_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Shopify      ShopifyConfig
	Stripe       StripeConfig
	Webhook      WebhookConfig
	FeatureFlags FeatureFlagsConfig
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
	Env          string `envconfig:"SYNQSELL_APP_ENV" required:"true"`
	Port         string `envconfig:"SYNQSELL_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SYNQSELL_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SYNQSELL_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"SYNQSELL_DB_DSN"`
	Driver string `envconfig:"SYNQSELL_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"SYNQSELL_DB_HOST"`
	LegacyPort     int    `envconfig:"SYNQSELL_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"SYNQSELL_DB_USER"`
	LegacyPassword string `envconfig:"SYNQSELL_DB_PASSWORD"`
	LegacyName     string `envconfig:"SYNQSELL_DB_NAME"`
	LegacySSLMode  string `envconfig:"SYNQSELL_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SYNQSELL_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SYNQSELL_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SYNQSELL_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SYNQSELL_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SYNQSELL_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SYNQSELL_REDIS_ADDR"`
	Password     string        `envconfig:"SYNQSELL_REDIS_PASSWORD"`
	DB           int           `envconfig:"SYNQSELL_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SYNQSELL_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SYNQSELL_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SYNQSELL_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SYNQSELL_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SYNQSELL_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type ShopifyConfig struct {
	APIVersion         string        `envconfig:"SYNQSELL_SHOPIFY_API_VERSION" default:"2024-07"`
	WebhookSecret      string        `envconfig:"SYNQSELL_SHOPIFY_WEBHOOK_SECRET" required:"true"`
	HTTPTimeout        time.Duration `envconfig:"SYNQSELL_SHOPIFY_HTTP_TIMEOUT" default:"30s"`
	TrackingMinEntries int           `envconfig:"SYNQSELL_FULFILLMENT_TRACKING_MIN_ENTRIES" default:"1"`
}

type StripeConfig struct {
	APIKey string `envconfig:"SYNQSELL_STRIPE_API_KEY"`
	Env    string `envconfig:"SYNQSELL_STRIPE_ENV" default:"test"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

type WebhookConfig struct {
	DedupTTL time.Duration `envconfig:"SYNQSELL_WEBHOOK_DEDUP_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"SYNQSELL_AUTO_MIGRATE" default:"false"`
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
