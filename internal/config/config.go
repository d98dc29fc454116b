package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	ierr "github.com/spahub/billing/internal/errors"
	"github.com/spahub/billing/internal/types"
)

type Configuration struct {
	Deployment   DeploymentConfig   `mapstructure:"deployment"`
	Server       ServerConfig       `mapstructure:"server"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Postgres     PostgresConfig     `mapstructure:"postgres"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Sentry       SentryConfig       `mapstructure:"sentry"`
	Pyroscope    PyroscopeConfig    `mapstructure:"pyroscope"`
	Email        EmailConfig        `mapstructure:"email"`
	Webhook      WebhookConfig      `mapstructure:"webhook"`
	Stripe       StripeConfig       `mapstructure:"stripe"`
	Subscription SubscriptionConfig `mapstructure:"subscription"`
}

type DeploymentConfig struct {
	Mode string `mapstructure:"mode"`
}

type ServerConfig struct {
	Address string `mapstructure:"address"`
}

type LoggingConfig struct {
	Level          string `mapstructure:"level"`
	FluentdEnabled bool   `mapstructure:"fluentd_enabled"`
	FluentdHost    string `mapstructure:"fluentd_host"`
	FluentdPort    int    `mapstructure:"fluentd_port"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	UseTLS   bool          `mapstructure:"use_tls"`
	PoolSize int           `mapstructure:"pool_size"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Type    string `mapstructure:"type"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate"`
}

type PyroscopeConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Address string `mapstructure:"address"`
}

type EmailConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	APIKey      string `mapstructure:"api_key"`
	FromAddress string `mapstructure:"from_address"`
}

type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

type StripeConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	SecretKey string `mapstructure:"secret_key"`
	Currency  string `mapstructure:"currency"`
}

// SubscriptionConfig holds the tunable windows of the lifecycle sweeps. The
// defaults mirror the product's historical behavior but none of them is a
// hard invariant.
type SubscriptionConfig struct {
	TrialDays            int     `mapstructure:"trial_days"`
	AutoRenewWindowDays  int     `mapstructure:"auto_renew_window_days"`
	ReminderWindowDays   int     `mapstructure:"reminder_window_days"`
	ReminderCooldownDays int     `mapstructure:"reminder_cooldown_days"`
	SweepBatchSize       int     `mapstructure:"sweep_batch_size"`
	ForecastMonths       int     `mapstructure:"forecast_months"`
	ForecastTrailWindow  int     `mapstructure:"forecast_trail_window"`
	NotifyRatePerSecond  float64 `mapstructure:"notify_rate_per_second"`
}

// NewConfig loads configuration from ./config, .env and environment variables
func NewConfig() (*Configuration, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// .env is optional; environment variables always win
	_ = godotenv.Load()

	v.SetEnvPrefix("BILLING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, ierr.WithError(err).
				WithHint("Failed to read config file").
				Mark(ierr.ErrSystem)
		}
	}

	var cfg Configuration
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to unmarshal configuration").
			Mark(ierr.ErrSystem)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("deployment.mode", "api")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("logging.level", "info")
	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "billing")
	v.SetDefault("postgres.dbname", "billing")
	v.SetDefault("postgres.sslmode", "disable")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.timeout", 5*time.Second)
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.type", "inmemory")
	v.SetDefault("sentry.sample_rate", 0.1)
	v.SetDefault("stripe.currency", "eur")
	v.SetDefault("subscription.trial_days", 14)
	v.SetDefault("subscription.auto_renew_window_days", 3)
	v.SetDefault("subscription.reminder_window_days", 7)
	v.SetDefault("subscription.reminder_cooldown_days", 3)
	v.SetDefault("subscription.sweep_batch_size", 100)
	v.SetDefault("subscription.forecast_months", 6)
	v.SetDefault("subscription.forecast_trail_window", 12)
	v.SetDefault("subscription.notify_rate_per_second", 10)
}

func (c *Configuration) Validate() error {
	if c.Subscription.TrialDays <= 0 {
		return ierr.NewError("subscription.trial_days must be positive").
			Mark(ierr.ErrValidation)
	}
	if c.Subscription.SweepBatchSize <= 0 {
		return ierr.NewError("subscription.sweep_batch_size must be positive").
			Mark(ierr.ErrValidation)
	}
	if c.Subscription.ReminderCooldownDays > c.Subscription.ReminderWindowDays {
		return ierr.NewError("reminder cooldown cannot exceed the reminder window").
			WithHint("Check subscription.reminder_* settings").
			Mark(ierr.ErrValidation)
	}
	if c.Logging.Level != "" && types.ParseLogLevel(c.Logging.Level) == types.LogLevelUnknown {
		return ierr.NewErrorf("unknown log level %q", c.Logging.Level).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// GetDefaultConfig returns an in-memory configuration suitable for tests and
// one-off scripts. No external services are enabled.
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Deployment: DeploymentConfig{Mode: "local"},
		Server:     ServerConfig{Address: ":8080"},
		Logging:    LoggingConfig{Level: "debug"},
		Cache:      CacheConfig{Enabled: true, Type: "inmemory"},
		Subscription: SubscriptionConfig{
			TrialDays:            14,
			AutoRenewWindowDays:  3,
			ReminderWindowDays:   7,
			ReminderCooldownDays: 3,
			SweepBatchSize:       100,
			ForecastMonths:       6,
			ForecastTrailWindow:  12,
			NotifyRatePerSecond:  10,
		},
	}
}
