package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App               AppConfig
	DB                DBConfig
	Redis             RedisConfig
	Stripe            StripeConfig
	Platform          PlatformConfig
	CheckoutRateLimit CheckoutRateLimitConfig
	Auth              AuthConfig
	Sendgrid          SendgridConfig
	Cron              CronConfig
	FeatureFlags      FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.Platform.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Stripe.validate(cfg.App); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadDatabase reads only the app and database settings. The migration
// tool uses it so it can run without payment or auth secrets.
func LoadDatabase() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg.App); err != nil {
		return nil, fmt.Errorf("parsing app config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.DB); err != nil {
		return nil, fmt.Errorf("parsing db config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg.FeatureFlags); err != nil {
		return nil, fmt.Errorf("parsing feature flags: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"CONVOZO_APP_ENV" required:"true"`
	Port         string `envconfig:"CONVOZO_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"CONVOZO_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"CONVOZO_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"CONVOZO_LOG_FORMAT" default:"json"`
	// BaseURL is the public frontend origin used for checkout and onboarding redirects.
	BaseURL        string   `envconfig:"CONVOZO_APP_URL" default:"http://localhost:4200"`
	AllowedOrigins []string `envconfig:"CONVOZO_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// PublicURL joins path onto the configured frontend origin.
func (a AppConfig) PublicURL(path string) string {
	base := strings.TrimRight(strings.TrimSpace(a.BaseURL), "/")
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

type DBConfig struct {
	DSN    string `envconfig:"CONVOZO_DB_DSN"`
	Driver string `envconfig:"CONVOZO_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CONVOZO_DB_HOST"`
	LegacyPort     int    `envconfig:"CONVOZO_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CONVOZO_DB_USER"`
	LegacyPassword string `envconfig:"CONVOZO_DB_PASSWORD"`
	LegacyName     string `envconfig:"CONVOZO_DB_NAME"`
	LegacySSLMode  string `envconfig:"CONVOZO_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"CONVOZO_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CONVOZO_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CONVOZO_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CONVOZO_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

// RedisConfig is optional for the API. Without a URL the webhook event guard
// is disabled and duplicate deliveries fall through to the database fence.
type RedisConfig struct {
	URL          string        `envconfig:"CONVOZO_REDIS_URL"`
	Address      string        `envconfig:"CONVOZO_REDIS_ADDR"`
	Password     string        `envconfig:"CONVOZO_REDIS_PASSWORD"`
	DB           int           `envconfig:"CONVOZO_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CONVOZO_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CONVOZO_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CONVOZO_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CONVOZO_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CONVOZO_REDIS_WRITE_TIMEOUT" default:"5s"`
	// EventTTL bounds how long a processed webhook event id is remembered.
	EventTTL time.Duration `envconfig:"CONVOZO_REDIS_EVENT_TTL" default:"720h"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type StripeConfig struct {
	APIKey        string `envconfig:"CONVOZO_STRIPE_SECRET_KEY" required:"true"`
	WebhookSecret string `envconfig:"CONVOZO_STRIPE_WEBHOOK_SECRET" required:"true"`
	Env           string `envconfig:"CONVOZO_STRIPE_ENV" default:"test"`
	Currency      string `envconfig:"CONVOZO_STRIPE_CURRENCY" default:"usd"`
	// MinimumAmount is the smallest charge the provider accepts, in minor units.
	MinimumAmount  int64  `envconfig:"CONVOZO_STRIPE_MIN_AMOUNT" default:"50"`
	ConnectCountry string `envconfig:"CONVOZO_STRIPE_CONNECT_COUNTRY" default:"US"`
	// TestAccountPrefix marks sandbox payout accounts that bypass fee routing.
	TestAccountPrefix  string `envconfig:"CONVOZO_STRIPE_TEST_ACCOUNT_PREFIX" default:"acct_test_"`
	AllowSandboxPayout bool   `envconfig:"CONVOZO_STRIPE_ALLOW_SANDBOX_PAYOUT" default:"false"`
}

// Environment returns the normalized Stripe environment (test/live).
func (s StripeConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "test"
	}
	return env
}

// IsSandboxAccount reports whether accountID belongs to the sandbox escape hatch.
func (s StripeConfig) IsSandboxAccount(accountID string) bool {
	prefix := strings.TrimSpace(s.TestAccountPrefix)
	return prefix != "" && strings.HasPrefix(accountID, prefix)
}

func (s StripeConfig) validate(app AppConfig) error {
	if s.AllowSandboxPayout && app.IsProd() && s.Environment() == "live" {
		return fmt.Errorf("%s cannot be enabled with live Stripe keys in production", EnvStripeAllowSandbox)
	}
	return nil
}

type PlatformConfig struct {
	// FeePercentage is the platform share of every purchase, 0-100.
	FeePercentage decimal.Decimal `envconfig:"CONVOZO_PLATFORM_FEE_PERCENTAGE" default:"35"`
}

func (p PlatformConfig) validate() error {
	if p.FeePercentage.IsNegative() || p.FeePercentage.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("%s must be between 0 and 100, got %s", EnvPlatformFeePct, p.FeePercentage)
	}
	return nil
}

type CheckoutRateLimitConfig struct {
	Limit         int           `envconfig:"CONVOZO_CHECKOUT_RATE_LIMIT" default:"10"`
	Window        time.Duration `envconfig:"CONVOZO_CHECKOUT_RATE_WINDOW" default:"1h"`
	SweepInterval time.Duration `envconfig:"CONVOZO_CHECKOUT_RATE_SWEEP_INTERVAL" default:"10m"`
}

// AuthConfig describes how bearer tokens issued by the identity provider are verified.
type AuthConfig struct {
	JWTSecret string `envconfig:"CONVOZO_AUTH_JWT_SECRET" required:"true"`
	Audience  string `envconfig:"CONVOZO_AUTH_AUDIENCE" default:"authenticated"`
	Issuer    string `envconfig:"CONVOZO_AUTH_ISSUER"`
}

type SendgridConfig struct {
	APIKey      string `envconfig:"CONVOZO_SENDGRID_API_KEY"`
	DefaultFrom string `envconfig:"CONVOZO_SENDGRID_FROM_EMAIL" default:"noreply@convozo.com"`
	FromName    string `envconfig:"CONVOZO_SENDGRID_FROM_NAME" default:"Convozo"`
}

type CronConfig struct {
	Interval  time.Duration `envconfig:"CONVOZO_CRON_INTERVAL" default:"5m"`
	LockTTL   time.Duration `envconfig:"CONVOZO_CRON_LOCK_TTL" default:"4m"`
	Lookback  time.Duration `envconfig:"CONVOZO_CRON_CHECKOUT_LOOKBACK" default:"24h"`
	BatchSize int           `envconfig:"CONVOZO_CRON_BATCH_SIZE" default:"100"`
	// MetricsAddr exposes the worker's Prometheus metrics when set, e.g. ":9091".
	MetricsAddr string `envconfig:"CONVOZO_CRON_METRICS_ADDR"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"CONVOZO_AUTO_MIGRATE" default:"false"`
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
